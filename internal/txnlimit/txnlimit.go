// Package txnlimit governs the per-channel transaction limits shown to
// customers on the RIB, RMB, CIB and CMB channels. Each change request
// proposes new limits alongside the currently effective ones and runs
// through the shared maker-checker lifecycle; limits are never deleted,
// only superseded.
package txnlimit

import (
	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/internal/audit"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
)

// Payload holds the currently effective limits (c*) and the proposed ones
// (n*) for the four banking channels.
type Payload struct {
	CurrentRIB float64 `json:"cRIB"`
	CurrentRMB float64 `json:"cRMB"`
	CurrentCIB float64 `json:"cCIB"`
	CurrentCMB float64 `json:"cCMB"`
	NewRIB     float64 `json:"nRIB"`
	NewRMB     float64 `json:"nRMB"`
	NewCIB     float64 `json:"nCIB"`
	NewCMB     float64 `json:"nCMB"`
}

func (p Payload) Validate() error {
	proposed := map[string]float64{
		"nRIB": p.NewRIB,
		"nRMB": p.NewRMB,
		"nCIB": p.NewCIB,
		"nCMB": p.NewCMB,
	}
	for field, v := range proposed {
		if v <= 0 {
			return dErrors.Newf(dErrors.CodeValidation, "%s must be greater than zero", field)
		}
	}
	return nil
}

var Kind = approval.Kind{
	Module: audit.ModuleTransactionLimit,
	Noun:   "transaction limit",
}

type Engine = approval.Engine[Payload]

func NewMemoryStore() *approval.MemoryStore[Payload] {
	return approval.NewMemoryStore[Payload]()
}
