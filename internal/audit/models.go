package audit

import (
	"time"

	"github.com/google/uuid"
)

// Module names every governed area of the console. The values are the
// display strings the operations UI filters on.
type Module string

const (
	ModuleUserManagement   Module = "User Management"
	ModuleGroupMaintenance Module = "Group and Role Maintenance"
	ModuleMFAConfiguration Module = "MFA Configuration"
	ModuleTransactionLimit Module = "Transaction Limit"
	ModuleSystemMaintenance Module = "System Maintenance"
	ModuleUserActivation   Module = "User Activation"
	ModulePasswordReset    Module = "Password Reset"
	ModuleUserLogin        Module = "User Login"
	ModuleUserLogout       Module = "User Logout"
	ModuleISecureNote      Module = "i-Secure Note"
)

// Status records whether the audited mutation succeeded.
type Status string

const (
	StatusSuccess Status = "S"
	StatusFailure Status = "F"
)

// Entry is one immutable audit record. PreviousValue and NewValue hold
// serialized snapshots of the governed resource around the mutation; either
// may be nil (e.g. no prior state on a create, no new state on a failure).
type Entry struct {
	ID            uuid.UUID `json:"id"`
	PerformedBy   string    `json:"performedBy"`
	Module        Module    `json:"module"`
	Description   string    `json:"description"`
	Status        Status    `json:"status"`
	PreviousValue *string   `json:"previousValue"`
	NewValue      *string   `json:"newValue"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Filter narrows a trail query. From/To are mandatory and inclusive.
// Nil Performers or Modules means "All". Status accepts "All", "S" or "F".
type Filter struct {
	From       time.Time
	To         time.Time
	Performers []string
	Modules    []Module
	Status     string
}

// View is a queried entry annotated with a 1-based display sequence. The
// sequence is recomputed per query and is not a stable identifier.
type View struct {
	Entry
	Seq int `json:"seq"`
}
