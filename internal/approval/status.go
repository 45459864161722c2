package approval

// SubmissionStatus says what the maker last did to a change request.
type SubmissionStatus string

const (
	SubmissionNew    SubmissionStatus = "New"
	SubmissionEdited SubmissionStatus = "Edited"
	SubmissionMarked SubmissionStatus = "Marked"
	SubmissionDelete SubmissionStatus = "Delete"
)

// ApprovalStatus is the checker's side of the lifecycle.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "Pending"
	ApprovalApproved ApprovalStatus = "Approved"
	ApprovalRejected ApprovalStatus = "Rejected"
)

// ChannelStatus tracks one downstream channel's rollout of an approved
// change. The lattice is:
//
//	""  not started
//	"A"  awaiting confirmation after approval
//	"CC" channel self-reported complete, pending checker confirmation
//	"C"  confirmed complete
type ChannelStatus string

const (
	ChannelEmpty     ChannelStatus = ""
	ChannelAwaiting  ChannelStatus = "A"
	ChannelReported  ChannelStatus = "CC"
	ChannelConfirmed ChannelStatus = "C"
)

// ChannelEvent is a lifecycle transition that may move a channel status.
type ChannelEvent int

const (
	EventEdit ChannelEvent = iota
	EventDeleteRequest
	EventApprove
	EventReject
)

// NextChannelStatus computes the channel status after an event. It is the
// whole channel transition table in one pure function:
//
//   - a disabled channel always reads ""
//   - a delete-request clears every channel (pending rollout is meaningless
//     once removal is proposed)
//   - an edit re-opens rollout ("A") but never regresses a confirmed "C"
//   - an approve confirms a self-reported "CC" to "C", keeps "C", and (re)arms
//     everything else to "A"
//   - a reject voids an unconfirmed "CC" back to "A" and leaves the rest alone
func NextChannelStatus(current ChannelStatus, enabled bool, event ChannelEvent) ChannelStatus {
	if !enabled || event == EventDeleteRequest {
		return ChannelEmpty
	}
	switch event {
	case EventEdit:
		if current == ChannelConfirmed {
			return ChannelConfirmed
		}
		return ChannelAwaiting
	case EventApprove:
		switch current {
		case ChannelReported, ChannelConfirmed:
			return ChannelConfirmed
		default:
			return ChannelAwaiting
		}
	case EventReject:
		if current == ChannelReported {
			return ChannelAwaiting
		}
		return current
	default:
		return current
	}
}
