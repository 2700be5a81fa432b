/*
service.go - Household, employee and invitation operations

PURPOSE:
  The collaborator the onboarding flow and the HTTP API call into for
  everything that is not policy: creating the household, adding staff and
  joining a household through an invitation code.

CONTRACTS:
  CreateHousehold(owner, name)        -> Household, fails on empty/duplicate name
  CreateEmployee(household, emp, job) -> Employee, fails on missing role/type
  AcceptInvitationCode(code, user)    -> InvitationResult{Success, HouseholdID, Error}

INVITATION CODES:
  Six characters from [A-Z0-9], e.g. "ABC123". Codes are single use and
  expire after the configured TTL. A cron job (api/scheduler.go) flips
  stale pending codes to expired so listings stay honest; acceptance also
  checks the expiry itself so the job is not needed for correctness.

SEE ALSO:
  - store.go: persistence interfaces
  - onboarding/actions.go: how the wizard uses this service
*/
package household

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultInvitationTTL is used when the service is built without one.
	DefaultInvitationTTL = 7 * 24 * time.Hour

	invitationCodeLength   = 6
	invitationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts        = 5
)

// Service implements the household side of the HomeStaff backend.
type Service struct {
	Store         Store
	Log           logrus.FieldLogger
	InvitationTTL time.Duration

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// NewService creates a service with production defaults.
func NewService(store Store, log logrus.FieldLogger) *Service {
	return &Service{
		Store:         store,
		Log:           log,
		InvitationTTL: DefaultInvitationTTL,
		Now:           func() time.Time { return time.Now().UTC() },
		NewID:         uuid.NewString,
	}
}

// =============================================================================
// HOUSEHOLDS
// =============================================================================

// CreateHousehold creates an active household owned by ownerID.
func (s *Service) CreateHousehold(ctx context.Context, ownerID, name string) (*Household, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, Invalid("name", "household name is required")
	}

	now := s.Now()
	h := Household{
		ID:        s.NewID(),
		OwnerID:   ownerID,
		Name:      name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateHousehold(ctx, h); err != nil {
		if errors.Is(err, ErrDuplicateHousehold) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create household: %w", err)
	}

	s.Log.WithFields(logrus.Fields{"household_id": h.ID, "owner_id": ownerID}).Info("household created")
	return &h, nil
}

// GetHousehold returns the household or ErrHouseholdNotFound.
func (s *Service) GetHousehold(ctx context.Context, id string) (*Household, error) {
	h, err := s.Store.GetHousehold(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	if h == nil {
		return nil, ErrHouseholdNotFound
	}
	return h, nil
}

// ListHouseholds returns the households ownerID created.
func (s *Service) ListHouseholds(ctx context.Context, ownerID string) ([]Household, error) {
	hs, err := s.Store.ListHouseholds(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}
	return hs, nil
}

// RenameHousehold changes the display name of an existing household.
func (s *Service) RenameHousehold(ctx context.Context, id, name string) (*Household, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, Invalid("name", "household name is required")
	}

	h, err := s.GetHousehold(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.Name == name {
		return h, nil
	}

	now := s.Now()
	if err := s.Store.RenameHousehold(ctx, id, name, now); err != nil {
		if errors.Is(err, ErrDuplicateHousehold) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to rename household: %w", err)
	}
	h.Name = name
	h.UpdatedAt = now
	return h, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// CreateEmployee adds a staff member with their employment details.
func (s *Service) CreateEmployee(ctx context.Context, householdID string, emp EmployeeInput, job EmploymentInput) (*Employee, error) {
	if err := ValidateEmployee(emp, job); err != nil {
		return nil, err
	}
	if _, err := s.GetHousehold(ctx, householdID); err != nil {
		return nil, err
	}

	freq := job.PayFrequency
	if job.Salary != nil && freq == "" {
		freq = PayMonthly
	}

	now := s.Now()
	e := Employee{
		ID:          s.NewID(),
		HouseholdID: householdID,
		Name:        strings.TrimSpace(emp.Name),
		Email:       strings.TrimSpace(emp.Email),
		Phone:       strings.TrimSpace(emp.Phone),
		Status:      EmployeeActive,
		Employment: Employment{
			Role:           strings.TrimSpace(job.Role),
			EmploymentType: job.EmploymentType,
			StartDate:      job.StartDate,
			Salary:         job.Salary,
			PayFrequency:   freq,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.CreateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}

	s.Log.WithFields(logrus.Fields{"household_id": householdID, "employee_id": e.ID}).Info("employee created")
	return &e, nil
}

// UpdateEmployee replaces an employee's personal details, role and
// employment type. Start date, salary and pay frequency change only when
// given.
func (s *Service) UpdateEmployee(ctx context.Context, householdID, employeeID string, emp EmployeeInput, job EmploymentInput) (*Employee, error) {
	if err := ValidateEmployee(emp, job); err != nil {
		return nil, err
	}
	emps, err := s.ListEmployees(ctx, householdID)
	if err != nil {
		return nil, err
	}

	var e *Employee
	for i := range emps {
		if emps[i].ID == employeeID {
			e = &emps[i]
			break
		}
	}
	if e == nil {
		return nil, ErrEmployeeNotFound
	}

	e.Name = strings.TrimSpace(emp.Name)
	e.Email = strings.TrimSpace(emp.Email)
	e.Phone = strings.TrimSpace(emp.Phone)
	e.Employment.Role = strings.TrimSpace(job.Role)
	e.Employment.EmploymentType = job.EmploymentType
	if job.StartDate != nil {
		e.Employment.StartDate = job.StartDate
	}
	if job.Salary != nil {
		e.Employment.Salary = job.Salary
	}
	if job.PayFrequency != "" {
		e.Employment.PayFrequency = job.PayFrequency
	} else if e.Employment.Salary != nil && e.Employment.PayFrequency == "" {
		e.Employment.PayFrequency = PayMonthly
	}
	e.UpdatedAt = s.Now()

	if err := s.Store.UpdateEmployee(ctx, *e); err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}

	s.Log.WithFields(logrus.Fields{"household_id": householdID, "employee_id": employeeID}).Info("employee updated")
	return e, nil
}

// ListEmployees returns the household's staff, oldest first.
func (s *Service) ListEmployees(ctx context.Context, householdID string) ([]Employee, error) {
	if _, err := s.GetHousehold(ctx, householdID); err != nil {
		return nil, err
	}
	emps, err := s.Store.ListEmployees(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return emps, nil
}

// ValidateEmployee checks the fields the backend requires for a new employee.
func ValidateEmployee(emp EmployeeInput, job EmploymentInput) error {
	if strings.TrimSpace(emp.Name) == "" {
		return Invalid("name", "employee name is required")
	}
	if strings.TrimSpace(job.Role) == "" {
		return Invalid("role", "role is required")
	}
	if job.EmploymentType == "" {
		return Invalid("employment_type", "employment type is required")
	}
	if !job.EmploymentType.Valid() {
		return Invalid("employment_type", "unknown employment type %q", job.EmploymentType)
	}
	if job.Salary != nil && job.Salary.IsNegative() {
		return Invalid("salary", "salary cannot be negative")
	}
	if job.PayFrequency != "" && !job.PayFrequency.Valid() {
		return Invalid("pay_frequency", "unknown pay frequency %q", job.PayFrequency)
	}
	return nil
}

// =============================================================================
// INVITATIONS
// =============================================================================

// CreateInvitation issues a fresh single-use code for the household.
func (s *Service) CreateInvitation(ctx context.Context, householdID, email string) (*Invitation, error) {
	if _, err := s.GetHousehold(ctx, householdID); err != nil {
		return nil, err
	}

	ttl := s.InvitationTTL
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}

	now := s.Now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := newInvitationCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invitation code: %w", err)
		}
		inv := Invitation{
			Code:        code,
			HouseholdID: householdID,
			Email:       strings.TrimSpace(email),
			Status:      InvitationPending,
			ExpiresAt:   now.Add(ttl),
			CreatedAt:   now,
		}
		err = s.Store.CreateInvitation(ctx, inv)
		if errors.Is(err, ErrDuplicateInvitationCode) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create invitation: %w", err)
		}
		return &inv, nil
	}
	return nil, fmt.Errorf("failed to create invitation: %w", ErrDuplicateInvitationCode)
}

// AcceptInvitation validates the code and marks it used by userID.
// Returns the joined household id.
func (s *Service) AcceptInvitation(ctx context.Context, code, userID string) (string, error) {
	code = NormalizeInvitationCode(code)
	if code == "" {
		return "", ErrInvitationNotFound
	}

	inv, err := s.Store.GetInvitation(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to get invitation: %w", err)
	}
	if inv == nil || inv.Status == InvitationRevoked {
		return "", ErrInvitationNotFound
	}
	if inv.Status == InvitationAccepted {
		return "", ErrInvitationUsed
	}

	now := s.Now()
	if inv.ExpiredAt(now) {
		return "", ErrInvitationExpired
	}

	if err := s.Store.MarkInvitationAccepted(ctx, code, userID, now); err != nil {
		if errors.Is(err, ErrInvitationUsed) {
			return "", err
		}
		return "", fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.Log.WithFields(logrus.Fields{"household_id": inv.HouseholdID, "user_id": userID}).Info("invitation accepted")
	return inv.HouseholdID, nil
}

// AcceptInvitationCode is AcceptInvitation shaped as the result record the
// onboarding screens consume. Only store failures are returned as errors.
func (s *Service) AcceptInvitationCode(ctx context.Context, code, userID string) (InvitationResult, error) {
	householdID, err := s.AcceptInvitation(ctx, code, userID)
	if err != nil {
		if IsInvitationError(err) {
			return InvitationResult{Error: InvitationMessage(err)}, nil
		}
		return InvitationResult{}, err
	}
	return InvitationResult{Success: true, HouseholdID: householdID}, nil
}

// ExpireInvitations flips stale pending invitations to expired.
func (s *Service) ExpireInvitations(ctx context.Context) (int, error) {
	n, err := s.Store.ExpireInvitations(ctx, s.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	return n, nil
}

// NormalizeInvitationCode uppercases and strips spaces and dashes, so
// "abc-123" matches "ABC123".
func NormalizeInvitationCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer(" ", "", "-", "").Replace(code)
}

func newInvitationCode() (string, error) {
	max := big.NewInt(int64(len(invitationCodeAlphabet)))
	b := make([]byte, invitationCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = invitationCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
