package approval

import "time"

// View is the read-time projection of a request: stored state plus the
// display status derived from the current time. The projection never writes
// anything back; repeated reads at the same instant are identical.
type View[P Payload] struct {
	Request[P]
	Seq         int  `json:"seq,omitempty"`
	IsCompleted bool `json:"isCompleted,omitempty"`
}

// project computes the effective view of a request at the given instant.
//
// For windowed kinds:
//   - past the end date, every enabled channel reads confirmed ("C"), since
//     an elapsed window is implicitly complete. The exception is a rejected
//     completion report, whose raw stored state passes through so the
//     checker's rejection stays visible
//   - before the start date no rollout can have happened, so channels read
//     empty regardless of stored state
//   - inside the window stored values pass through unchanged
//
// External viewers get maker-identifying fields stripped.
func (e *Engine[P]) project(req *Request[P], now time.Time, viewerInternal bool) View[P] {
	out := View[P]{Request: *req.Clone()}

	if e.kind.Windowed && out.Window != nil {
		rejectedReport := out.ApprovalStatus == ApprovalRejected && out.SubmissionStatus == SubmissionMarked
		switch {
		case now.After(out.Window.End) && !rejectedReport:
			for i := range out.Channels {
				if out.Channels[i].Enabled {
					out.Channels[i].Status = ChannelConfirmed
				} else {
					out.Channels[i].Status = ChannelEmpty
				}
			}
			out.IsCompleted = true
		case now.Before(out.Window.Start):
			for i := range out.Channels {
				out.Channels[i].Status = ChannelEmpty
			}
		}
	}

	if !viewerInternal {
		out.Maker = ""
		out.Checker = ""
	}
	return out
}
