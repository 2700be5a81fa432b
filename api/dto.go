/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  household, policy and onboarding domain types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  Calendar dates (start_date, ends_date, off days) are YYYY-MM-DD.
  Timestamps are RFC3339. Salaries are decimal strings.

VALIDATION:
  Validation is done by the services, not in DTOs. DTOs are pure data
  carriers; conversion only rejects values that cannot be parsed.

SEE ALSO:
  - handlers.go, onboarding.go: Use these types
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/onboarding"
	"github.com/homestaff/household-engine/policy"
)

const dateLayout = "2006-01-02"

// =============================================================================
// HOUSEHOLDS
// =============================================================================

type HouseholdDTO struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type CreateHouseholdRequest struct {
	Name string `json:"name"`
}

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID             string           `json:"id"`
	HouseholdID    string           `json:"household_id"`
	Name           string           `json:"name"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Status         string           `json:"status"`
	Role           string           `json:"role"`
	EmploymentType string           `json:"employment_type"`
	StartDate      string           `json:"start_date,omitempty"`
	Salary         *decimal.Decimal `json:"salary,omitempty"`
	PayFrequency   string           `json:"pay_frequency,omitempty"`
	CreatedAt      string           `json:"created_at"`
}

// CreateEmployeeRequest is the request to add an employee to a household.
type CreateEmployeeRequest struct {
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone"`
	Role           string           `json:"role"`
	EmploymentType string           `json:"employment_type"`
	StartDate      string           `json:"start_date,omitempty"`
	Salary         *decimal.Decimal `json:"salary,omitempty"`
	PayFrequency   string           `json:"pay_frequency,omitempty"`
}

type InvitationDTO struct {
	Code        string `json:"code"`
	HouseholdID string `json:"household_id"`
	Email       string `json:"email,omitempty"`
	Status      string `json:"status"`
	ExpiresAt   string `json:"expires_at"`
	CreatedAt   string `json:"created_at"`
}

type CreateInvitationRequest struct {
	Email string `json:"email"`
}

type AcceptInvitationRequest struct {
	Code string `json:"code"`
}

type InvitationResultDTO struct {
	Success     bool   `json:"success"`
	HouseholdID string `json:"household_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// =============================================================================
// POLICY
// =============================================================================

// RecurrencePatternDTO is the wire shape of a holiday rule pattern.
type RecurrencePatternDTO struct {
	RuleType           string  `json:"rule_type"`
	IntervalValue      int     `json:"interval_value"`
	IntervalUnit       string  `json:"interval_unit"`
	RepeatOnDaysOfWeek []int   `json:"repeat_on_days_of_week,omitempty"`
	RepeatOnDayOfMonth *int    `json:"repeat_on_day_of_month,omitempty"`
	DaysPerMonth       *int    `json:"days_per_month,omitempty"`
	EndsType           string  `json:"ends_type"`
	EndsDate           *string `json:"ends_date,omitempty"`
	EndsOccurrences    *int    `json:"ends_occurrences,omitempty"`
}

type HolidayRuleDTO struct {
	ID          string `json:"id"`
	HouseholdID string `json:"household_id"`
	Source      string `json:"source"`
	PresetID    string `json:"preset_id,omitempty"`
	RecurrencePatternDTO
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type AttendanceSettingsDTO struct {
	ID             string `json:"id"`
	HouseholdID    string `json:"household_id"`
	TrackingMethod string `json:"tracking_method"`
	PresetID       string `json:"preset_id,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// PolicyOverviewDTO is the household settings view. An empty holiday_rules
// list means no rule is configured yet.
type PolicyOverviewDTO struct {
	HouseholdID  string                 `json:"household_id"`
	HolidayRules []HolidayRuleDTO       `json:"holiday_rules"`
	Attendance   *AttendanceSettingsDTO `json:"attendance"`
}

type ApplyPresetRequest struct {
	PresetID string `json:"preset_id"`
}

type HolidayPresetDTO struct {
	ID          string                `json:"id"`
	Label       string                `json:"label"`
	Description string                `json:"description"`
	Pattern     *RecurrencePatternDTO `json:"pattern"`
}

type AttendancePresetDTO struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	TrackingMethod string `json:"tracking_method"`
}

type PresetCatalogDTO struct {
	Holiday    []HolidayPresetDTO    `json:"holiday"`
	Attendance []AttendancePresetDTO `json:"attendance"`
}

// CalendarDTO is a holiday rule expanded over one month.
type CalendarDTO struct {
	RuleID    string   `json:"rule_id"`
	Month     string   `json:"month"`
	OffDays   []string `json:"off_days"`
	Allowance int      `json:"allowance"`
}

// =============================================================================
// ONBOARDING
// =============================================================================

type StepDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Status      string `json:"status"`
	Skipped     bool   `json:"skipped,omitempty"`
}

type OnboardingStateDTO struct {
	UserID           string                      `json:"user_id"`
	HouseholdID      string                      `json:"household_id,omitempty"`
	CurrentStepIndex int                         `json:"current_step_index"`
	CurrentStepID    string                      `json:"current_step_id"`
	TotalSteps       int                         `json:"total_steps"`
	IsCompleted      bool                        `json:"is_completed"`
	LastSavedAt      string                      `json:"last_saved_at,omitempty"`
	Steps            []StepDTO                   `json:"steps"`
	StepData         map[int]onboarding.StepData `json:"step_data"`
}

type StartOnboardingRequest struct {
	InvitationCode string `json:"invitation_code,omitempty"`
}

type StartOnboardingResponse struct {
	State      OnboardingStateDTO   `json:"state"`
	Invitation *InvitationResultDTO `json:"invitation,omitempty"`
}

// OnboardingCommandRequest carries one wizard command. Type is advance,
// skip, retreat or complete; StepID is required for advance and skip.
type OnboardingCommandRequest struct {
	Type   string              `json:"type"`
	StepID string              `json:"step_id,omitempty"`
	Data   onboarding.StepData `json:"data"`
}

type AutoSaveRequest struct {
	Data onboarding.StepData `json:"data"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toHouseholdDTO(h household.Household) HouseholdDTO {
	return HouseholdDTO{
		ID:        h.ID,
		OwnerID:   h.OwnerID,
		Name:      h.Name,
		Status:    string(h.Status),
		CreatedAt: h.CreatedAt.Format(time.RFC3339),
		UpdatedAt: h.UpdatedAt.Format(time.RFC3339),
	}
}

func toEmployeeDTO(e household.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:             e.ID,
		HouseholdID:    e.HouseholdID,
		Name:           e.Name,
		Email:          e.Email,
		Phone:          e.Phone,
		Status:         string(e.Status),
		Role:           e.Employment.Role,
		EmploymentType: string(e.Employment.EmploymentType),
		Salary:         e.Employment.Salary,
		PayFrequency:   string(e.Employment.PayFrequency),
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
	if e.Employment.StartDate != nil {
		dto.StartDate = e.Employment.StartDate.Format(dateLayout)
	}
	return dto
}

func (req CreateEmployeeRequest) toInputs() (household.EmployeeInput, household.EmploymentInput, error) {
	emp := household.EmployeeInput{Name: req.Name, Email: req.Email, Phone: req.Phone}
	job := household.EmploymentInput{
		Role:           req.Role,
		EmploymentType: household.EmploymentType(req.EmploymentType),
		Salary:         req.Salary,
		PayFrequency:   household.PayFrequency(req.PayFrequency),
	}
	if req.StartDate != "" {
		d, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			return emp, job, household.Invalid("start_date", "invalid start_date %q (use YYYY-MM-DD)", req.StartDate)
		}
		job.StartDate = &d
	}
	return emp, job, nil
}

func toInvitationDTO(inv household.Invitation) InvitationDTO {
	return InvitationDTO{
		Code:        inv.Code,
		HouseholdID: inv.HouseholdID,
		Email:       inv.Email,
		Status:      string(inv.Status),
		ExpiresAt:   inv.ExpiresAt.Format(time.RFC3339),
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}
}

func toInvitationResultDTO(res household.InvitationResult) *InvitationResultDTO {
	return &InvitationResultDTO{Success: res.Success, HouseholdID: res.HouseholdID, Error: res.Error}
}

func toPatternDTO(p policy.RecurrencePattern) RecurrencePatternDTO {
	dto := RecurrencePatternDTO{
		RuleType:           string(p.RuleType),
		IntervalValue:      p.IntervalValue,
		IntervalUnit:       string(p.IntervalUnit),
		RepeatOnDaysOfWeek: p.RepeatOnDaysOfWeek,
		RepeatOnDayOfMonth: p.RepeatOnDayOfMonth,
		DaysPerMonth:       p.DaysPerMonth,
		EndsType:           string(p.EndsType),
		EndsOccurrences:    p.EndsOccurrences,
	}
	if p.EndsDate != nil {
		d := p.EndsDate.Format(dateLayout)
		dto.EndsDate = &d
	}
	return dto
}

func (dto RecurrencePatternDTO) toPattern() (policy.RecurrencePattern, error) {
	p := policy.RecurrencePattern{
		RuleType:           policy.RuleType(dto.RuleType),
		IntervalValue:      dto.IntervalValue,
		IntervalUnit:       policy.IntervalUnit(dto.IntervalUnit),
		RepeatOnDaysOfWeek: dto.RepeatOnDaysOfWeek,
		RepeatOnDayOfMonth: dto.RepeatOnDayOfMonth,
		DaysPerMonth:       dto.DaysPerMonth,
		EndsType:           policy.EndsType(dto.EndsType),
		EndsOccurrences:    dto.EndsOccurrences,
	}
	if dto.EndsDate != nil {
		d, err := time.Parse(dateLayout, *dto.EndsDate)
		if err != nil {
			return p, household.Invalid("ends_date", "invalid ends_date %q (use YYYY-MM-DD)", *dto.EndsDate)
		}
		p.EndsDate = &d
	}
	return p, nil
}

func toHolidayRuleDTO(r policy.HolidayRule) HolidayRuleDTO {
	return HolidayRuleDTO{
		ID:                   r.ID,
		HouseholdID:          r.HouseholdID,
		Source:               string(r.Source),
		PresetID:             r.PresetID,
		RecurrencePatternDTO: toPatternDTO(r.RecurrencePattern),
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            r.UpdatedAt.Format(time.RFC3339),
	}
}

func toAttendanceDTO(s *policy.AttendanceSettings) *AttendanceSettingsDTO {
	if s == nil {
		return nil
	}
	return &AttendanceSettingsDTO{
		ID:             s.ID,
		HouseholdID:    s.HouseholdID,
		TrackingMethod: string(s.TrackingMethod),
		PresetID:       s.PresetID,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      s.UpdatedAt.Format(time.RFC3339),
	}
}

func toOverviewDTO(o *policy.Overview) PolicyOverviewDTO {
	dto := PolicyOverviewDTO{
		HouseholdID:  o.HouseholdID,
		HolidayRules: make([]HolidayRuleDTO, 0, len(o.HolidayRules)),
		Attendance:   toAttendanceDTO(o.Attendance),
	}
	for _, r := range o.HolidayRules {
		dto.HolidayRules = append(dto.HolidayRules, toHolidayRuleDTO(r))
	}
	return dto
}

func presetCatalog() PresetCatalogDTO {
	var catalog PresetCatalogDTO
	for _, p := range policy.HolidayPresets() {
		dto := HolidayPresetDTO{ID: string(p.ID), Label: p.Label, Description: p.Description}
		if pattern, _ := policy.ResolveHolidayPreset(p.ID); pattern != nil {
			pd := toPatternDTO(*pattern)
			dto.Pattern = &pd
		}
		catalog.Holiday = append(catalog.Holiday, dto)
	}
	for _, p := range policy.AttendancePresets() {
		catalog.Attendance = append(catalog.Attendance, AttendancePresetDTO{
			ID:             string(p.ID),
			Label:          p.Label,
			Description:    p.Description,
			TrackingMethod: string(p.Method),
		})
	}
	return catalog
}

func toCalendarDTO(ruleID string, cal policy.MonthCalendar) CalendarDTO {
	dto := CalendarDTO{
		RuleID:    ruleID,
		Month:     fmt.Sprintf("%04d-%02d", cal.Year, int(cal.Month)),
		OffDays:   make([]string, 0, len(cal.OffDays)),
		Allowance: cal.Allowance,
	}
	for _, d := range cal.OffDays {
		dto.OffDays = append(dto.OffDays, d.Format(dateLayout))
	}
	return dto
}

func toOnboardingStateDTO(s onboarding.State) OnboardingStateDTO {
	dto := OnboardingStateDTO{
		UserID:           s.UserID,
		HouseholdID:      s.HouseholdID,
		CurrentStepIndex: s.Progress.CurrentStepIndex,
		TotalSteps:       s.Progress.TotalSteps,
		IsCompleted:      s.Progress.IsCompleted,
		Steps:            make([]StepDTO, 0, len(s.Steps)),
		StepData:         s.StepData,
	}
	if !s.Progress.LastSavedAt.IsZero() {
		dto.LastSavedAt = s.Progress.LastSavedAt.Format(time.RFC3339)
	}
	for i, st := range s.Steps {
		if i == s.Progress.CurrentStepIndex {
			dto.CurrentStepID = string(st.ID)
		}
		dto.Steps = append(dto.Steps, StepDTO{
			ID:          string(st.ID),
			Title:       st.Title,
			Description: st.Description,
			Required:    st.Required,
			Status:      string(st.Status),
			Skipped:     st.Skipped,
		})
	}
	return dto
}

// toCommand maps the wire command onto the wizard's closed command set.
func (req OnboardingCommandRequest) toCommand() (onboarding.Command, error) {
	switch req.Type {
	case "advance":
		return onboarding.Advance{StepID: onboarding.StepID(req.StepID), Data: req.Data}, nil
	case "skip":
		return onboarding.Skip{StepID: onboarding.StepID(req.StepID)}, nil
	case "retreat":
		return onboarding.Retreat{}, nil
	case "complete":
		return onboarding.Complete{}, nil
	}
	return nil, fmt.Errorf("%w: %q", onboarding.ErrUnknownCommand, req.Type)
}
