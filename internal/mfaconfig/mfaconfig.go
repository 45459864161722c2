// Package mfaconfig governs the multi-factor authentication thresholds: how
// many SMS, money-order and mobile-app challenges a customer may trigger
// before escalation. Changes run through the shared maker-checker lifecycle.
package mfaconfig

import (
	"github.com/manny-e1/user-management-backend-2/internal/approval"
	"github.com/manny-e1/user-management-backend-2/internal/audit"
	dErrors "github.com/manny-e1/user-management-backend-2/pkg/domain-errors"
)

// Payload holds the currently effective thresholds (c*) and the proposed
// ones (n*).
type Payload struct {
	CurrentSMS       int `json:"cSMS"`
	CurrentMoneyOrd  int `json:"cMO"`
	CurrentMobileApp int `json:"cMA"`
	NewSMS           int `json:"nSMS"`
	NewMoneyOrd      int `json:"nMO"`
	NewMobileApp     int `json:"nMA"`
}

func (p Payload) Validate() error {
	proposed := map[string]int{
		"nSMS": p.NewSMS,
		"nMO":  p.NewMoneyOrd,
		"nMA":  p.NewMobileApp,
	}
	for field, v := range proposed {
		if v < 0 {
			return dErrors.Newf(dErrors.CodeValidation, "%s must not be negative", field)
		}
	}
	return nil
}

var Kind = approval.Kind{
	Module: audit.ModuleMFAConfiguration,
	Noun:   "MFA configuration",
}

type Engine = approval.Engine[Payload]

func NewMemoryStore() *approval.MemoryStore[Payload] {
	return approval.NewMemoryStore[Payload]()
}
