package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homestaff/household-engine/household"
)

// =============================================================================
// HOUSEHOLDS (household.HouseholdStore)
// =============================================================================

type householdRow struct {
	ID        string `db:"id"`
	OwnerID   string `db:"owner_id"`
	Name      string `db:"name"`
	Status    string `db:"status"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func (r householdRow) toHousehold() household.Household {
	return household.Household{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Name:      r.Name,
		Status:    household.Status(r.Status),
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

func (s *Store) CreateHousehold(ctx context.Context, h household.Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO households (id, owner_id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), h.ID, h.OwnerID, h.Name, string(h.Status), formatTime(h.CreatedAt), formatTime(h.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return household.ErrDuplicateHousehold
		}
		return fmt.Errorf("failed to insert household: %w", err)
	}
	return nil
}

func (s *Store) GetHousehold(ctx context.Context, id string) (*household.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row householdRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT id, owner_id, name, status, created_at, updated_at
		FROM households WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h := row.toHousehold()
	return &h, nil
}

// ListHouseholds returns the households owned by ownerID, oldest first.
func (s *Store) ListHouseholds(ctx context.Context, ownerID string) ([]household.Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []householdRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT id, owner_id, name, status, created_at, updated_at
		FROM households WHERE owner_id = ?
		ORDER BY created_at ASC
	`), ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]household.Household, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toHousehold())
	}
	return out, nil
}

func (s *Store) RenameHousehold(ctx context.Context, id, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE households SET name = ?, updated_at = ? WHERE id = ?
	`), name, formatTime(at), id)
	if err != nil {
		if isUniqueViolation(err) {
			return household.ErrDuplicateHousehold
		}
		return fmt.Errorf("failed to rename household: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return household.ErrHouseholdNotFound
	}
	return nil
}

// =============================================================================
// EMPLOYEES (household.EmployeeStore)
// =============================================================================

type employeeRow struct {
	ID             string         `db:"id"`
	HouseholdID    string         `db:"household_id"`
	Name           string         `db:"name"`
	Email          string         `db:"email"`
	Phone          string         `db:"phone"`
	Status         string         `db:"status"`
	Role           string         `db:"role"`
	EmploymentType string         `db:"employment_type"`
	StartDate      sql.NullString `db:"start_date"`
	Salary         sql.NullString `db:"salary"`
	PayFrequency   string         `db:"pay_frequency"`
	CreatedAt      string         `db:"created_at"`
	UpdatedAt      string         `db:"updated_at"`
}

func (r employeeRow) toEmployee() (household.Employee, error) {
	e := household.Employee{
		ID:          r.ID,
		HouseholdID: r.HouseholdID,
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Status:      household.EmployeeStatus(r.Status),
		Employment: household.Employment{
			Role:           r.Role,
			EmploymentType: household.EmploymentType(r.EmploymentType),
			StartDate:      timePtr(r.StartDate),
			PayFrequency:   household.PayFrequency(r.PayFrequency),
		},
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
	if r.Salary.Valid {
		salary, err := decimal.NewFromString(r.Salary.String)
		if err != nil {
			return e, fmt.Errorf("employee %s has invalid salary %q: %w", r.ID, r.Salary.String, err)
		}
		e.Employment.Salary = &salary
	}
	return e, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e household.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var salary sql.NullString
	if e.Employment.Salary != nil {
		salary = sql.NullString{String: e.Employment.Salary.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO employees
		(id, household_id, name, email, phone, status, role, employment_type,
		 start_date, salary, pay_frequency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		e.ID,
		e.HouseholdID,
		e.Name,
		e.Email,
		e.Phone,
		string(e.Status),
		e.Employment.Role,
		string(e.Employment.EmploymentType),
		nullTime(e.Employment.StartDate),
		salary,
		string(e.Employment.PayFrequency),
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	return nil
}

func (s *Store) UpdateEmployee(ctx context.Context, e household.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var salary sql.NullString
	if e.Employment.Salary != nil {
		salary = sql.NullString{String: e.Employment.Salary.String(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE employees SET
			name = ?, email = ?, phone = ?, status = ?, role = ?, employment_type = ?,
			start_date = ?, salary = ?, pay_frequency = ?, updated_at = ?
		WHERE id = ? AND household_id = ?
	`),
		e.Name,
		e.Email,
		e.Phone,
		string(e.Status),
		e.Employment.Role,
		string(e.Employment.EmploymentType),
		nullTime(e.Employment.StartDate),
		salary,
		string(e.Employment.PayFrequency),
		formatTime(e.UpdatedAt),
		e.ID,
		e.HouseholdID,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return household.ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) ListEmployees(ctx context.Context, householdID string) ([]household.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []employeeRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT id, household_id, name, email, phone, status, role, employment_type,
		       start_date, salary, pay_frequency, created_at, updated_at
		FROM employees WHERE household_id = ?
		ORDER BY created_at ASC, id ASC
	`), householdID)
	if err != nil {
		return nil, err
	}

	out := make([]household.Employee, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEmployee()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// =============================================================================
// INVITATIONS (household.InvitationStore)
// =============================================================================

type invitationRow struct {
	Code        string         `db:"code"`
	HouseholdID string         `db:"household_id"`
	Email       string         `db:"email"`
	Status      string         `db:"status"`
	ExpiresAt   string         `db:"expires_at"`
	AcceptedBy  sql.NullString `db:"accepted_by"`
	AcceptedAt  sql.NullString `db:"accepted_at"`
	CreatedAt   string         `db:"created_at"`
}

func (s *Store) CreateInvitation(ctx context.Context, inv household.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO invitations (code, household_id, email, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), inv.Code, inv.HouseholdID, inv.Email, string(inv.Status), formatTime(inv.ExpiresAt), formatTime(inv.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return household.ErrDuplicateInvitationCode
		}
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

func (s *Store) GetInvitation(ctx context.Context, code string) (*household.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row invitationRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT code, household_id, email, status, expires_at, accepted_by, accepted_at, created_at
		FROM invitations WHERE code = ?
	`), code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &household.Invitation{
		Code:        row.Code,
		HouseholdID: row.HouseholdID,
		Email:       row.Email,
		Status:      household.InvitationStatus(row.Status),
		ExpiresAt:   parseTime(row.ExpiresAt),
		AcceptedBy:  row.AcceptedBy.String,
		AcceptedAt:  timePtr(row.AcceptedAt),
		CreatedAt:   parseTime(row.CreatedAt),
	}, nil
}

// MarkInvitationAccepted is a conditional update, so two users racing for
// one code cannot both win.
func (s *Store) MarkInvitationAccepted(ctx context.Context, code, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE invitations SET status = ?, accepted_by = ?, accepted_at = ?
		WHERE code = ? AND status = ?
	`), string(household.InvitationAccepted), userID, formatTime(at), code, string(household.InvitationPending))
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return household.ErrInvitationUsed
	}
	return nil
}

func (s *Store) ExpireInvitations(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE invitations SET status = ?
		WHERE status = ? AND expires_at <= ?
	`), string(household.InvitationExpired), string(household.InvitationPending), formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
