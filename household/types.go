// Package household holds the tenant aggregate of HomeStaff: households,
// the staff they employ and the invitation codes used to join them.
package household

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOUSEHOLD
// =============================================================================

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Household is the organizational unit owning employees, holiday rules and
// attendance settings.
type Household struct {
	ID        string
	OwnerID   string
	Name      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeName trims surrounding whitespace from a household name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmployeeStatus string

const (
	EmployeeActive   EmployeeStatus = "active"
	EmployeeInactive EmployeeStatus = "inactive"
)

type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentLiveIn   EmploymentType = "live_in"
	EmploymentHourly   EmploymentType = "hourly"
)

func (t EmploymentType) Valid() bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentLiveIn, EmploymentHourly:
		return true
	}
	return false
}

type PayFrequency string

const (
	PayWeekly   PayFrequency = "weekly"
	PayBiweekly PayFrequency = "biweekly"
	PayMonthly  PayFrequency = "monthly"
)

func (f PayFrequency) Valid() bool {
	switch f {
	case PayWeekly, PayBiweekly, PayMonthly:
		return true
	}
	return false
}

// Employee is a member of household staff.
type Employee struct {
	ID          string
	HouseholdID string
	Name        string
	Email       string
	Phone       string
	Status      EmployeeStatus
	Employment  Employment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Employment carries the contract details of an employee.
// Salary is optional; a zero PayFrequency means no salary was recorded.
type Employment struct {
	Role           string
	EmploymentType EmploymentType
	StartDate      *time.Time
	Salary         *decimal.Decimal
	PayFrequency   PayFrequency
}

// EmployeeInput is the personal part of a new employee.
type EmployeeInput struct {
	Name  string
	Email string
	Phone string
}

// EmploymentInput is the contract part of a new employee.
type EmploymentInput struct {
	Role           string
	EmploymentType EmploymentType
	StartDate      *time.Time
	Salary         *decimal.Decimal
	PayFrequency   PayFrequency
}

// =============================================================================
// INVITATIONS
// =============================================================================

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	InvitationRevoked  InvitationStatus = "revoked"
)

// Invitation lets a second user join an existing household.
type Invitation struct {
	Code        string
	HouseholdID string
	Email       string
	Status      InvitationStatus
	ExpiresAt   time.Time
	AcceptedBy  string
	AcceptedAt  *time.Time
	CreatedAt   time.Time
}

// ExpiredAt reports whether the invitation can no longer be accepted at t.
func (i Invitation) ExpiredAt(t time.Time) bool {
	return i.Status == InvitationExpired || !t.Before(i.ExpiresAt)
}

// InvitationResult is the outcome of accepting an invitation code.
// Error holds a message meant for the user, not for logs.
type InvitationResult struct {
	Success     bool
	HouseholdID string
	Error       string
}
