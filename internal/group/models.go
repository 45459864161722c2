// Package group implements the group directory: the fixed role catalog and
// the user groups that bind accounts to a role. A user's maker or checker
// capability comes entirely from the role of their group.
package group

import (
	"time"

	"github.com/google/uuid"
)

// Role is one entry of the fixed catalog seeded at install time. Admin
// tiers manage the directory itself; manager tiers are checkers; normal
// user tiers are makers.
type Role struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Role catalog names.
const (
	RoleAdmin      = "admin"
	RoleAdmin2     = "admin 2"
	RoleManager1   = "manager 1"
	RoleManager2   = "manager 2"
	RoleNormalUser = "normal user 1"
	RoleNormal2    = "normal user 2"
)

// Group binds a set of accounts to a role. MemberCount is joined on reads;
// a group with members cannot be deleted.
type Group struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	RoleID      uuid.UUID `json:"roleId"`
	Role        string    `json:"role,omitempty"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
