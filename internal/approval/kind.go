package approval

import "github.com/manny-e1/user-management-backend-2/internal/audit"

// Kind configures the engine for one governed resource type. The four kinds
// share the same maker-checker skeleton and differ only in payload shape,
// channel count, and whether a delete concept applies; everything
// kind-specific lives here so the engine stays generic.
type Kind struct {
	// Module is the audit-trail module this kind's mutations land under.
	Module audit.Module
	// Noun names the resource in client-facing error messages.
	Noun string
	// Channels lists the downstream channels this kind tracks; empty for
	// kinds without per-channel rollout.
	Channels []string
	// DeleteAllowed permits the request-then-confirm delete flow.
	DeleteAllowed bool
	// Windowed kinds carry start/end dates and the read-time completion
	// projection.
	Windowed bool
}

// HasChannel reports whether name is one of the kind's channels.
func (k Kind) HasChannel(name string) bool {
	for _, c := range k.Channels {
		if c == name {
			return true
		}
	}
	return false
}
