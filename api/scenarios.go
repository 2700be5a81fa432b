/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built households that populate the store with realistic
	data for demos and manual testing of the onboarding screens.

AVAILABLE SCENARIOS:

	fresh-start:      No data; demo-owner starts onboarding from scratch
	mid-onboarding:   demo-owner created a household and stopped at the
	                  employee step
	join-household:   A configured household with pending invitation code
	                  ABC123 for demo-member
	custom-schedule:  Household with custom holiday rules (alternate
	                  Saturdays, the 15th of each month)

HOW SCENARIOS WORK:
 1. Reset the store and drop in-memory onboarding flows
 2. Create households, employees and rules through the services
 3. Write onboarding progress or invitations directly where a scenario
    needs a fixed state (known code, half-finished wizard)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "join-household"}

NOTE:

	Scenarios reset the database. The routes are only mounted when
	AllowScenarios is set (development environment).

SEE ALSO:
  - handlers.go: Handler
  - server.go: route mounting
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/onboarding"
	"github.com/homestaff/household-engine/policy"
)

// Demo identities used by the scenarios.
const (
	DemoOwnerID    = "demo-owner"
	DemoMemberID   = "demo-member"
	DemoInviteCode = "ABC123"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Empty store; demo-owner begins onboarding at the household step",
		Category:    "onboarding",
	},
	{
		ID:          "mid-onboarding",
		Name:        "Mid Onboarding",
		Description: "demo-owner named a household, applied defaults and stopped at the employee step",
		Category:    "onboarding",
	},
	{
		ID:          "join-household",
		Name:        "Join Household",
		Description: "Configured household with invitation code ABC123 waiting for demo-member",
		Category:    "invitations",
	},
	{
		ID:          "custom-schedule",
		Name:        "Custom Schedule",
		Description: "Household with alternate Saturdays off and the 15th of each month off",
		Category:    "policy",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	loaders := map[string]func(context.Context) error{
		"fresh-start":     func(context.Context) error { return nil },
		"mid-onboarding":  h.loadMidOnboardingScenario,
		"join-household":  h.loadJoinHouseholdScenario,
		"custom-schedule": h.loadCustomScheduleScenario,
	}
	load, ok := loaders[req.ScenarioID]
	if !ok {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.Log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reset(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	h.Onboarding.Forget()

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadMidOnboardingScenario(ctx context.Context) error {
	hh, err := h.Households.CreateHousehold(ctx, DemoOwnerID, "The Demo Residence")
	if err != nil {
		return err
	}
	if err := h.applyDefaults(ctx, hh.ID, policy.PresetSundaysOff, policy.PresetPresentByDefault); err != nil {
		return err
	}

	now := time.Now().UTC()
	writes := []onboarding.ProgressWrite{
		{
			UserID:           DemoOwnerID,
			CurrentStepIndex: 1,
			TotalSteps:       onboarding.TotalSteps,
			StepIndex:        0,
			Data:             onboarding.StepData{HouseholdName: hh.Name, HouseholdID: hh.ID},
			SavedAt:          now,
		},
		{
			UserID:           DemoOwnerID,
			CurrentStepIndex: 2,
			TotalSteps:       onboarding.TotalSteps,
			StepIndex:        1,
			Data: onboarding.StepData{
				HolidayPreset:    policy.PresetSundaysOff,
				AttendancePreset: policy.PresetPresentByDefault,
			},
			SavedAt: now,
		},
	}
	for _, w := range writes {
		if err := h.Store.SaveProgress(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadJoinHouseholdScenario(ctx context.Context) error {
	hh, err := h.Households.CreateHousehold(ctx, DemoOwnerID, "Maple House")
	if err != nil {
		return err
	}
	if err := h.applyDefaults(ctx, hh.ID, policy.PresetFourDaysPerMonth, policy.PresetManualEntry); err != nil {
		return err
	}

	salary := decimal.NewFromInt(2400)
	start := time.Date(time.Now().Year(), time.January, 6, 0, 0, 0, 0, time.UTC)
	_, err = h.Households.CreateEmployee(ctx, hh.ID,
		household.EmployeeInput{Name: "Rosa Delgado", Email: "rosa@example.com"},
		household.EmploymentInput{
			Role:           "Housekeeper",
			EmploymentType: household.EmploymentFullTime,
			StartDate:      &start,
			Salary:         &salary,
		},
	)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return h.Store.CreateInvitation(ctx, household.Invitation{
		Code:        DemoInviteCode,
		HouseholdID: hh.ID,
		Email:       "member@example.com",
		Status:      household.InvitationPending,
		ExpiresAt:   now.Add(household.DefaultInvitationTTL),
		CreatedAt:   now,
	})
}

func (h *Handler) loadCustomScheduleScenario(ctx context.Context) error {
	hh, err := h.Households.CreateHousehold(ctx, DemoOwnerID, "Harbor Cottage")
	if err != nil {
		return err
	}
	if _, err := h.Policies.ApplyAttendancePreset(ctx, hh.ID, policy.PresetPresentByDefault); err != nil {
		return err
	}

	fifteenth := 15
	patterns := []policy.RecurrencePattern{
		{
			RuleType:           policy.RuleRecurring,
			IntervalValue:      2,
			IntervalUnit:       policy.UnitWeek,
			RepeatOnDaysOfWeek: []int{int(time.Saturday)},
			EndsType:           policy.EndsNever,
		},
		{
			RuleType:           policy.RuleRecurring,
			IntervalValue:      1,
			IntervalUnit:       policy.UnitMonth,
			RepeatOnDayOfMonth: &fifteenth,
			EndsType:           policy.EndsNever,
		},
	}
	for _, p := range patterns {
		if _, err := h.Policies.CreateCustomHolidayRule(ctx, hh.ID, p); err != nil {
			return err
		}
	}

	_, err = h.Households.CreateEmployee(ctx, hh.ID,
		household.EmployeeInput{Name: "Tomás Reyes"},
		household.EmploymentInput{Role: "Gardener", EmploymentType: household.EmploymentPartTime},
	)
	return err
}

func (h *Handler) applyDefaults(ctx context.Context, householdID string, holiday policy.HolidayPresetID, attendance policy.AttendancePresetID) error {
	if _, err := h.Policies.ApplyHolidayPreset(ctx, householdID, holiday); err != nil {
		return err
	}
	_, err := h.Policies.ApplyAttendancePreset(ctx, householdID, attendance)
	return err
}
