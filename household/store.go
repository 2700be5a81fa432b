package household

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Persistence boundary for the household aggregate
// =============================================================================

// Implementations live in store/sqlstore (SQLite, PostgreSQL) and
// store/memory (tests, demos). Getters return (nil, nil) when nothing
// matches, the same convention the storage layer uses everywhere.

type HouseholdStore interface {
	// CreateHousehold inserts a household. Returns ErrDuplicateHousehold
	// when (owner, name) is taken.
	CreateHousehold(ctx context.Context, h Household) error
	GetHousehold(ctx context.Context, id string) (*Household, error)
	// ListHouseholds returns the owner's households, oldest first.
	ListHouseholds(ctx context.Context, ownerID string) ([]Household, error)
	RenameHousehold(ctx context.Context, id, name string, at time.Time) error
}

type EmployeeStore interface {
	CreateEmployee(ctx context.Context, e Employee) error
	ListEmployees(ctx context.Context, householdID string) ([]Employee, error)
	// UpdateEmployee overwrites the employee's details. Returns
	// ErrEmployeeNotFound when no employee with e.ID belongs to
	// e.HouseholdID.
	UpdateEmployee(ctx context.Context, e Employee) error
}

type InvitationStore interface {
	CreateInvitation(ctx context.Context, inv Invitation) error
	GetInvitation(ctx context.Context, code string) (*Invitation, error)

	// MarkInvitationAccepted flips a pending invitation to accepted.
	// Returns ErrInvitationUsed if it was no longer pending.
	MarkInvitationAccepted(ctx context.Context, code, userID string, at time.Time) error

	// ExpireInvitations marks pending invitations with expires_at <= now as
	// expired and returns how many rows changed.
	ExpireInvitations(ctx context.Context, now time.Time) (int, error)
}

// Store is everything the household Service needs.
type Store interface {
	HouseholdStore
	EmployeeStore
	InvitationStore
}
