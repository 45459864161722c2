// Package maintenance governs scheduled system-maintenance windows. A window
// carries a start and end date plus per-channel rollout state for the two
// delivery channels, and runs through the shared maker-checker lifecycle:
// deletion and edits both wait for checker approval, and once the window
// elapses the read-time view reports every enabled channel as confirmed.
package maintenance

import (
	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/internal/audit"
)

const (
	ChannelRakyat    = "rakyat"
	ChannelBizRakyat = "bizrakyat"
)

// Payload is empty: everything a maintenance window proposes lives in the
// shared window and channel fields of the change request.
type Payload struct{}

func (Payload) Validate() error { return nil }

var Kind = approval.Kind{
	Module:        audit.ModuleSystemMaintenance,
	Noun:          "maintenance window",
	Channels:      []string{ChannelRakyat, ChannelBizRakyat},
	DeleteAllowed: true,
	Windowed:      true,
}

// Engine aliases the shared engine instantiated for this kind.
type Engine = approval.Engine[Payload]

// NewMemoryStore returns the in-memory store used by unit tests.
func NewMemoryStore() *approval.MemoryStore[Payload] {
	return approval.NewMemoryStore[Payload]()
}
