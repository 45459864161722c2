package approval

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Payload is the kind-specific body of a change request (proposed limits,
// thresholds, display settings, ...). Validate returns a coded domain error
// when the proposed values violate the kind's schema.
type Payload interface {
	Validate() error
}

// Channel is one downstream system's rollout state for this request.
type Channel struct {
	Name    string        `json:"name"`
	Enabled bool          `json:"enabled"`
	Status  ChannelStatus `json:"status"`
}

// Window is the scheduled period a windowed kind governs. Extended dates
// hold the replacement period proposed by an edit until a checker approves.
type Window struct {
	Start         time.Time  `json:"startDate"`
	End           time.Time  `json:"endDate"`
	ExtendedStart *time.Time `json:"extendedStartDate,omitempty"`
	ExtendedEnd   *time.Time `json:"extendedEndDate,omitempty"`
}

// Request is one governed change request. Exactly one row exists per logical
// entity: maker edits mutate it in place and reset the approval status.
type Request[P Payload] struct {
	ID               uuid.UUID        `json:"id"`
	Payload          P                `json:"payload"`
	SubmissionStatus SubmissionStatus `json:"submissionStatus"`
	ApprovalStatus   ApprovalStatus   `json:"approvalStatus"`
	Maker            string           `json:"maker,omitempty"`
	Checker          string           `json:"checker,omitempty"`
	RejectReason     string           `json:"rejectReason,omitempty"`
	Channels         []Channel        `json:"channels,omitempty"`
	Window           *Window          `json:"window,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	SubmittedAt      time.Time        `json:"submittedAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	ActionTakenTime  *time.Time       `json:"actionTakenTime,omitempty"`
}

// Clone returns a deep copy so stores and projections never alias callers.
func (r *Request[P]) Clone() *Request[P] {
	out := *r
	if r.Channels != nil {
		out.Channels = append([]Channel(nil), r.Channels...)
	}
	if r.Window != nil {
		w := *r.Window
		out.Window = &w
	}
	if r.ActionTakenTime != nil {
		t := *r.ActionTakenTime
		out.ActionTakenTime = &t
	}
	return &out
}

// channel returns a pointer into r.Channels for the named channel, or nil.
func (r *Request[P]) channel(name string) *Channel {
	for i := range r.Channels {
		if r.Channels[i].Name == name {
			return &r.Channels[i]
		}
	}
	return nil
}

// snapshot serializes a request for the audit trail. A marshal failure
// yields nil rather than blocking the mutation being audited.
func snapshot[P Payload](r *Request[P]) *string {
	if r == nil {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}

// Submission is the maker's input to Submit and Edit.
type Submission[P Payload] struct {
	Payload         P
	Window          *Window
	EnabledChannels map[string]bool
}
