package onboarding

import (
	"context"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/policy"
)

// Actions are the side effects the wizard's steps perform.
type Actions interface {
	CreateHousehold(ctx context.Context, ownerID, name string) (string, error)
	RenameHousehold(ctx context.Context, householdID, name string) error
	ApplyDefaults(ctx context.Context, householdID string, holiday policy.HolidayPresetID, attendance policy.AttendancePresetID) error
	CreateEmployee(ctx context.Context, householdID string, emp EmployeeData) (string, error)
	UpdateEmployee(ctx context.Context, householdID, employeeID string, emp EmployeeData) error
	AcceptInvitationCode(ctx context.Context, code, userID string) (household.InvitationResult, error)
}

// ServiceActions implements Actions on top of the household and policy
// services.
type ServiceActions struct {
	Households *household.Service
	Policies   *policy.Service
}

func (a *ServiceActions) CreateHousehold(ctx context.Context, ownerID, name string) (string, error) {
	h, err := a.Households.CreateHousehold(ctx, ownerID, name)
	if err != nil {
		return "", err
	}
	return h.ID, nil
}

func (a *ServiceActions) RenameHousehold(ctx context.Context, householdID, name string) error {
	_, err := a.Households.RenameHousehold(ctx, householdID, name)
	return err
}

// ApplyDefaults applies the holiday preset first, then attendance. Both are
// upserts, so retrying after a partial failure is safe.
func (a *ServiceActions) ApplyDefaults(ctx context.Context, householdID string, holiday policy.HolidayPresetID, attendance policy.AttendancePresetID) error {
	if _, err := a.Policies.ApplyHolidayPreset(ctx, householdID, holiday); err != nil {
		return err
	}
	_, err := a.Policies.ApplyAttendancePreset(ctx, householdID, attendance)
	return err
}

func (a *ServiceActions) CreateEmployee(ctx context.Context, householdID string, emp EmployeeData) (string, error) {
	e, err := a.Households.CreateEmployee(ctx, householdID,
		household.EmployeeInput{Name: emp.Name, Email: emp.Email, Phone: emp.Phone},
		household.EmploymentInput{Role: emp.Role, EmploymentType: emp.EmploymentType},
	)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

func (a *ServiceActions) UpdateEmployee(ctx context.Context, householdID, employeeID string, emp EmployeeData) error {
	_, err := a.Households.UpdateEmployee(ctx, householdID, employeeID,
		household.EmployeeInput{Name: emp.Name, Email: emp.Email, Phone: emp.Phone},
		household.EmploymentInput{Role: emp.Role, EmploymentType: emp.EmploymentType},
	)
	return err
}

func (a *ServiceActions) AcceptInvitationCode(ctx context.Context, code, userID string) (household.InvitationResult, error) {
	return a.Households.AcceptInvitationCode(ctx, code, userID)
}
