// Package securenote governs the i-Secure note shown during login: whether
// the note is displayed and which image backs it. The image binary lives
// with an external collaborator; only its reference is stored here. Changes
// run through the shared maker-checker lifecycle.
package securenote

import (
	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/internal/audit"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
)

const (
	DisplayOn  = "on"
	DisplayOff = "off"
)

// Payload holds the current and proposed display status plus the image
// reference. ImageUpdated marks that the proposal carries a new image, so
// checkers know to review it even when the status is unchanged.
type Payload struct {
	CurrentStatus string `json:"cStatus"`
	NewStatus     string `json:"nStatus"`
	Image         string `json:"image,omitempty"`
	ImageUpdated  bool   `json:"imageUpdated"`
}

func (p Payload) Validate() error {
	if p.NewStatus != DisplayOn && p.NewStatus != DisplayOff {
		return dErrors.Newf(dErrors.CodeValidation, "nStatus must be %q or %q", DisplayOn, DisplayOff)
	}
	if p.CurrentStatus != "" && p.CurrentStatus != DisplayOn && p.CurrentStatus != DisplayOff {
		return dErrors.Newf(dErrors.CodeValidation, "cStatus must be %q or %q", DisplayOn, DisplayOff)
	}
	return nil
}

var Kind = approval.Kind{
	Module: audit.ModuleISecureNote,
	Noun:   "i-Secure note",
}

type Engine = approval.Engine[Payload]

func NewMemoryStore() *approval.MemoryStore[Payload] {
	return approval.NewMemoryStore[Payload]()
}
