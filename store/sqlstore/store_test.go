package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/onboarding"
	"github.com/homestaff/household-engine/policy"
	"github.com/homestaff/household-engine/store/sqlstore"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedHousehold(t *testing.T, s *sqlstore.Store, id, owner, name string) household.Household {
	t.Helper()
	h := household.Household{ID: id, OwnerID: owner, Name: name, Status: household.StatusActive, CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, s.CreateHousehold(context.Background(), h))
	return h
}

// =============================================================================
// HOUSEHOLDS
// =============================================================================

func TestHouseholds_RoundTripAndUniqueness(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")

	got, err := s.GetHousehold(ctx, "H1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Home", got.Name)
	assert.True(t, got.CreatedAt.Equal(t0))

	err = s.CreateHousehold(ctx, household.Household{ID: "H2", OwnerID: "owner-1", Name: "Home", Status: household.StatusActive, CreatedAt: t0, UpdatedAt: t0})
	assert.ErrorIs(t, err, household.ErrDuplicateHousehold)

	seedHousehold(t, s, "H3", "owner-1", "Cabin")
	err = s.RenameHousehold(ctx, "H3", "Home", t0)
	assert.ErrorIs(t, err, household.ErrDuplicateHousehold)
	err = s.RenameHousehold(ctx, "nope", "X", t0)
	assert.ErrorIs(t, err, household.ErrHouseholdNotFound)

	list, err := s.ListHouseholds(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	missing, err := s.GetHousehold(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEmployees_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")
	salary := decimal.RequireFromString("1800.25")
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateEmployee(ctx, household.Employee{
		ID: "E1", HouseholdID: "H1", Name: "Maria", Status: household.EmployeeActive,
		Employment: household.Employment{
			Role: "Nanny", EmploymentType: household.EmploymentFullTime,
			StartDate: &start, Salary: &salary, PayFrequency: household.PayMonthly,
		},
		CreatedAt: t0, UpdatedAt: t0,
	}))

	list, err := s.ListEmployees(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	e := list[0]
	assert.Equal(t, "Nanny", e.Employment.Role)
	require.NotNil(t, e.Employment.Salary)
	assert.True(t, e.Employment.Salary.Equal(salary))
	require.NotNil(t, e.Employment.StartDate)
	assert.True(t, e.Employment.StartDate.Equal(start))
}

func TestEmployees_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")
	seedHousehold(t, s, "H2", "owner-1", "Cabin")
	e := household.Employee{
		ID: "E1", HouseholdID: "H1", Name: "Ana", Status: household.EmployeeActive,
		Employment: household.Employment{Role: "Cook", EmploymentType: household.EmploymentFullTime},
		CreatedAt: t0, UpdatedAt: t0,
	}
	require.NoError(t, s.CreateEmployee(ctx, e))

	e.Name = "Bob"
	e.Employment.Role = "Driver"
	e.Employment.EmploymentType = household.EmploymentPartTime
	e.UpdatedAt = t0.Add(time.Hour)
	require.NoError(t, s.UpdateEmployee(ctx, e))

	list, err := s.ListEmployees(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bob", list[0].Name)
	assert.Equal(t, "Driver", list[0].Employment.Role)
	assert.Equal(t, household.EmploymentPartTime, list[0].Employment.EmploymentType)
	assert.Equal(t, t0, list[0].CreatedAt)
	assert.Equal(t, t0.Add(time.Hour), list[0].UpdatedAt)

	e.HouseholdID = "H2"
	assert.ErrorIs(t, s.UpdateEmployee(ctx, e), household.ErrEmployeeNotFound)
}

// =============================================================================
// INVITATIONS
// =============================================================================

func TestInvitations_AcceptOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")
	inv := household.Invitation{Code: "ABC123", HouseholdID: "H1", Status: household.InvitationPending, ExpiresAt: t0.Add(time.Hour), CreatedAt: t0}
	require.NoError(t, s.CreateInvitation(ctx, inv))

	assert.ErrorIs(t, s.CreateInvitation(ctx, inv), household.ErrDuplicateInvitationCode)

	require.NoError(t, s.MarkInvitationAccepted(ctx, "ABC123", "user-2", t0))
	assert.ErrorIs(t, s.MarkInvitationAccepted(ctx, "ABC123", "user-3", t0), household.ErrInvitationUsed)

	got, err := s.GetInvitation(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, household.InvitationAccepted, got.Status)
	assert.Equal(t, "user-2", got.AcceptedBy)
	require.NotNil(t, got.AcceptedAt)
}

func TestInvitations_Expire(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")
	require.NoError(t, s.CreateInvitation(ctx, household.Invitation{Code: "OLD111", HouseholdID: "H1", Status: household.InvitationPending, ExpiresAt: t0, CreatedAt: t0}))
	require.NoError(t, s.CreateInvitation(ctx, household.Invitation{Code: "NEW222", HouseholdID: "H1", Status: household.InvitationPending, ExpiresAt: t0.Add(time.Hour), CreatedAt: t0}))

	n, err := s.ExpireInvitations(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	old, err := s.GetInvitation(ctx, "OLD111")
	require.NoError(t, err)
	assert.Equal(t, household.InvitationExpired, old.Status)
}

// =============================================================================
// POLICY
// =============================================================================

func TestUpsertPresetHolidayRule_KeepsIdentity(t *testing.T) {
	// GIVEN: H1 has a p1 preset rule
	// WHEN: Upserting p2 with a different id
	// THEN: One row remains with the first id and created_at and p2's pattern

	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")

	p1, _ := policy.ResolveHolidayPreset(policy.PresetFourDaysPerMonth)
	first, err := s.UpsertPresetHolidayRule(ctx, policy.HolidayRule{
		ID: "R1", HouseholdID: "H1", PresetID: "p1", RecurrencePattern: *p1, CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)
	assert.Equal(t, "R1", first.ID)
	assert.Equal(t, policy.SourcePreset, first.Source)

	later := t0.Add(time.Hour)
	p2, _ := policy.ResolveHolidayPreset(policy.PresetSundaysOff)
	second, err := s.UpsertPresetHolidayRule(ctx, policy.HolidayRule{
		ID: "R2", HouseholdID: "H1", PresetID: "p2", RecurrencePattern: *p2, CreatedAt: later, UpdatedAt: later,
	})
	require.NoError(t, err)

	assert.Equal(t, "R1", second.ID)
	assert.True(t, second.CreatedAt.Equal(t0))
	assert.True(t, second.UpdatedAt.Equal(later))
	assert.Equal(t, policy.RuleRecurring, second.RuleType)
	assert.Equal(t, []int{0}, second.RepeatOnDaysOfWeek)
	assert.Nil(t, second.DaysPerMonth)

	rules, err := s.ListHolidayRules(ctx, "H1")
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestHolidayRules_CustomAlongsidePreset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")

	p1, _ := policy.ResolveHolidayPreset(policy.PresetFourDaysPerMonth)
	_, err := s.UpsertPresetHolidayRule(ctx, policy.HolidayRule{ID: "R1", HouseholdID: "H1", PresetID: "p1", RecurrencePattern: *p1, CreatedAt: t0, UpdatedAt: t0})
	require.NoError(t, err)

	until := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	custom := policy.HolidayRule{
		ID: "C1", HouseholdID: "H1", Source: policy.SourceCustom,
		RecurrencePattern: policy.RecurrencePattern{
			RuleType: policy.RuleRecurring, IntervalValue: 2, IntervalUnit: policy.UnitWeek,
			RepeatOnDaysOfWeek: []int{5, 6}, EndsType: policy.EndsOnDate, EndsDate: &until,
		},
		CreatedAt: t0.Add(-time.Hour), UpdatedAt: t0,
	}
	require.NoError(t, s.InsertHolidayRule(ctx, custom))
	require.NoError(t, s.InsertHolidayRule(ctx, policy.HolidayRule{
		ID: "C2", HouseholdID: "H1", Source: policy.SourceCustom, RecurrencePattern: custom.RecurrencePattern, CreatedAt: t0, UpdatedAt: t0,
	}))

	rules, err := s.ListHolidayRules(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "R1", rules[0].ID, "preset rule listed first")

	got, err := s.GetHolidayRule(ctx, "C1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []int{5, 6}, got.RepeatOnDaysOfWeek)
	require.NotNil(t, got.EndsDate)
	assert.True(t, got.EndsDate.Equal(until))
}

func TestUpsertAttendanceSettings_KeepsIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")

	first, err := s.UpsertAttendanceSettings(ctx, policy.AttendanceSettings{
		ID: "A1", HouseholdID: "H1", TrackingMethod: policy.TrackPresentByDefault, PresetID: "a1", CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)
	second, err := s.UpsertAttendanceSettings(ctx, policy.AttendanceSettings{
		ID: "A2", HouseholdID: "H1", TrackingMethod: policy.TrackManualEntry, PresetID: "a2", CreatedAt: t0.Add(time.Hour), UpdatedAt: t0.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, policy.TrackManualEntry, second.TrackingMethod)
	got, err := s.GetAttendanceSettings(ctx, "H1")
	require.NoError(t, err)
	assert.Equal(t, "A1", got.ID)
	assert.Equal(t, "a2", got.PresetID)
}

// =============================================================================
// ONBOARDING PROGRESS
// =============================================================================

func TestProgress_TransitionAndDraft(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	missing, err := s.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Draft on a fresh user creates the row at the drafted step.
	require.NoError(t, s.SaveProgress(ctx, onboarding.ProgressWrite{
		UserID: "user-1", CurrentStepIndex: 0, TotalSteps: 4, StepIndex: 0,
		Data: onboarding.StepData{HouseholdName: "Ho", Draft: true}, Draft: true, SavedAt: t0,
	}))
	p, err := s.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 0, p.CurrentStepIndex)

	require.NoError(t, s.SaveProgress(ctx, onboarding.ProgressWrite{
		UserID: "user-1", CurrentStepIndex: 1, TotalSteps: 4, StepIndex: 0,
		Data: onboarding.StepData{HouseholdName: "Home", HouseholdID: "H1"}, SavedAt: t0.Add(time.Minute),
	}))

	p, err = s.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStepIndex)
	assert.Equal(t, 4, p.TotalSteps)
	assert.False(t, p.IsCompleted)
	assert.True(t, p.LastSavedAt.Equal(t0.Add(time.Minute)))

	d, err := s.GetStepData(ctx, "user-1", 0)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "H1", d.HouseholdID)
	assert.False(t, d.Draft)
}

func TestProgress_LateDraftIsDropped(t *testing.T) {
	// GIVEN: The user already moved from step 0 to step 1
	// WHEN: A draft for step 0 arrives late
	// THEN: It is dropped without error; index and step 0 data are untouched

	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProgress(ctx, onboarding.ProgressWrite{
		UserID: "user-1", CurrentStepIndex: 1, TotalSteps: 4, StepIndex: 0,
		Data: onboarding.StepData{HouseholdName: "Home", HouseholdID: "H1"}, SavedAt: t0,
	}))

	err := s.SaveProgress(ctx, onboarding.ProgressWrite{
		UserID: "user-1", CurrentStepIndex: 0, TotalSteps: 4, StepIndex: 0,
		Data: onboarding.StepData{HouseholdName: "Hom", Draft: true}, Draft: true, SavedAt: t0.Add(time.Second),
	})
	require.NoError(t, err)

	p, err := s.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStepIndex)
	assert.True(t, p.LastSavedAt.Equal(t0))
	d, err := s.GetStepData(ctx, "user-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Home", d.HouseholdName)

	none, err := s.GetStepData(ctx, "user-1", 2)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestProgress_Complete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveProgress(ctx, onboarding.ProgressWrite{
		UserID: "user-1", CurrentStepIndex: 3, TotalSteps: 4, StepIndex: 2,
		Data: onboarding.StepData{Skipped: true}, SavedAt: t0,
	}))

	require.NoError(t, s.CompleteOnboarding(ctx, "user-1", t0.Add(time.Minute)))
	require.NoError(t, s.CompleteOnboarding(ctx, "user-1", t0.Add(2*time.Minute)))

	p, err := s.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, p.IsCompleted)
	assert.Equal(t, 3, p.CurrentStepIndex)

	// Drafts after completion never land.
	require.NoError(t, s.SaveProgress(ctx, onboarding.ProgressWrite{
		UserID: "user-1", CurrentStepIndex: 3, TotalSteps: 4, StepIndex: 3,
		Data: onboarding.StepData{Draft: true}, Draft: true, SavedAt: t0.Add(time.Hour),
	}))
	d, err := s.GetStepData(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedHousehold(t, s, "H1", "owner-1", "Home")
	require.NoError(t, s.CompleteOnboarding(ctx, "user-1", t0))

	require.NoError(t, s.Reset(ctx))

	h, err := s.GetHousehold(ctx, "H1")
	require.NoError(t, err)
	assert.Nil(t, h)
	p, err := s.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, s.Ping(ctx))
	assert.Equal(t, sqlstore.DriverSQLite, s.Driver())
}
