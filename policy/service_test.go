package policy_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/policy"
	"github.com/homestaff/household-engine/store/memory"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// newTestService returns a policy service over a memory store that already
// holds household H1. The clock advances one minute per call.
func newTestService(t *testing.T) (*policy.Service, *memory.Memory) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.CreateHousehold(context.Background(), household.Household{
		ID: "H1", OwnerID: "owner-1", Name: "Home", Status: household.StatusActive, CreatedAt: t0, UpdatedAt: t0,
	}))

	logger, _ := test.NewNullLogger()
	svc := policy.NewService(store, store, logger)
	ticks, ids := 0, 0
	svc.Now = func() time.Time {
		ticks++
		return t0.Add(time.Duration(ticks) * time.Minute)
	}
	svc.NewID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	return svc, store
}

// =============================================================================
// HOLIDAY PRESETS
// =============================================================================

func TestApplyHolidayPreset_P1_CreatesRule(t *testing.T) {
	// GIVEN: Household H1 with no holiday rule
	// WHEN: Applying p1
	// THEN: A days_per_month rule with 4 days, monthly, never ending is stored

	svc, store := newTestService(t)
	ctx := context.Background()

	rule, err := svc.ApplyHolidayPreset(ctx, "H1", policy.PresetFourDaysPerMonth)

	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "H1", rule.HouseholdID)
	assert.Equal(t, policy.SourcePreset, rule.Source)
	assert.Equal(t, "p1", rule.PresetID)
	assert.Equal(t, policy.RuleDaysPerMonth, rule.RuleType)
	require.NotNil(t, rule.DaysPerMonth)
	assert.Equal(t, 4, *rule.DaysPerMonth)
	assert.Equal(t, policy.UnitMonth, rule.IntervalUnit)
	assert.Equal(t, 1, rule.IntervalValue)
	assert.Equal(t, policy.EndsNever, rule.EndsType)

	rules, err := store.ListHolidayRules(ctx, "H1")
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestApplyHolidayPreset_P2_CreatesRecurringRule(t *testing.T) {
	svc, _ := newTestService(t)

	rule, err := svc.ApplyHolidayPreset(context.Background(), "H1", policy.PresetSundaysOff)

	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, policy.RuleRecurring, rule.RuleType)
	assert.Equal(t, []int{0}, rule.RepeatOnDaysOfWeek)
	assert.Equal(t, policy.UnitWeek, rule.IntervalUnit)
	assert.Equal(t, 1, rule.IntervalValue)
}

func TestApplyHolidayPreset_Twice_UpdatesInPlace(t *testing.T) {
	// GIVEN: p1 already applied to H1
	// WHEN: Applying p1 again, then p2
	// THEN: Exactly one preset rule remains, keeping its id and creation time;
	//       the last preset wins

	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.ApplyHolidayPreset(ctx, "H1", policy.PresetFourDaysPerMonth)
	require.NoError(t, err)
	again, err := svc.ApplyHolidayPreset(ctx, "H1", policy.PresetFourDaysPerMonth)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.CreatedAt, again.CreatedAt)
	assert.True(t, again.UpdatedAt.After(first.UpdatedAt))

	switched, err := svc.ApplyHolidayPreset(ctx, "H1", policy.PresetSundaysOff)
	require.NoError(t, err)
	assert.Equal(t, first.ID, switched.ID)

	rules, err := store.ListHolidayRules(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, policy.RuleRecurring, rules[0].RuleType)
	assert.Equal(t, "p2", rules[0].PresetID)
}

func TestApplyHolidayPreset_P3_WritesNothing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	rule, err := svc.ApplyHolidayPreset(ctx, "H1", policy.PresetCustomHolidays)

	require.NoError(t, err)
	assert.Nil(t, rule)
	rules, err := store.ListHolidayRules(ctx, "H1")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestApplyHolidayPreset_P3_KeepsExistingRule(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, err := svc.ApplyHolidayPreset(ctx, "H1", policy.PresetFourDaysPerMonth)
	require.NoError(t, err)

	_, err = svc.ApplyHolidayPreset(ctx, "H1", policy.PresetCustomHolidays)
	require.NoError(t, err)

	rules, err := store.ListHolidayRules(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "p1", rules[0].PresetID)
}

func TestApplyHolidayPreset_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ApplyHolidayPreset(ctx, "H1", "p9")
	assert.ErrorIs(t, err, policy.ErrUnknownPreset)

	_, err = svc.ApplyHolidayPreset(ctx, "missing", policy.PresetFourDaysPerMonth)
	assert.ErrorIs(t, err, household.ErrHouseholdNotFound)
}

// =============================================================================
// ATTENDANCE PRESETS
// =============================================================================

func TestApplyAttendancePreset_Idempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.ApplyAttendancePreset(ctx, "H1", policy.PresetPresentByDefault)
	require.NoError(t, err)
	assert.Equal(t, policy.TrackPresentByDefault, first.TrackingMethod)

	second, err := svc.ApplyAttendancePreset(ctx, "H1", policy.PresetManualEntry)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	stored, err := store.GetAttendanceSettings(ctx, "H1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, policy.TrackManualEntry, stored.TrackingMethod)
	assert.Equal(t, "a2", stored.PresetID)
}

func TestApplyAttendancePreset_Unknown(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.ApplyAttendancePreset(ctx, "H1", "a9")

	assert.ErrorIs(t, err, policy.ErrUnknownPreset)
	stored, err := store.GetAttendanceSettings(ctx, "H1")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

// =============================================================================
// CUSTOM RULES AND OVERVIEW
// =============================================================================

func TestCreateCustomHolidayRule_IsAdditive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.ApplyHolidayPreset(ctx, "H1", policy.PresetFourDaysPerMonth)
	require.NoError(t, err)

	saturdays := policy.RecurrencePattern{
		RuleType:           policy.RuleRecurring,
		IntervalValue:      2,
		IntervalUnit:       policy.UnitWeek,
		RepeatOnDaysOfWeek: []int{6},
		EndsType:           policy.EndsNever,
	}
	custom, err := svc.CreateCustomHolidayRule(ctx, "H1", saturdays)
	require.NoError(t, err)
	assert.Equal(t, policy.SourceCustom, custom.Source)

	overview, err := svc.Overview(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, overview.HolidayRules, 2)
	assert.Equal(t, policy.SourcePreset, overview.HolidayRules[0].Source)
	assert.Equal(t, custom.ID, overview.HolidayRules[1].ID)

	// Re-applying the preset leaves the custom rule alone.
	_, err = svc.ApplyHolidayPreset(ctx, "H1", policy.PresetSundaysOff)
	require.NoError(t, err)
	overview, err = svc.Overview(ctx, "H1")
	require.NoError(t, err)
	assert.Len(t, overview.HolidayRules, 2)
}

func TestCreateCustomHolidayRule_Invalid(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCustomHolidayRule(ctx, "H1", policy.RecurrencePattern{
		RuleType:      policy.RuleRecurring,
		IntervalValue: 1,
		IntervalUnit:  policy.UnitWeek,
		EndsType:      policy.EndsNever,
	})

	assert.ErrorIs(t, err, household.ErrValidation)
	rules, err := store.ListHolidayRules(ctx, "H1")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestOverview_NoRules(t *testing.T) {
	svc, _ := newTestService(t)

	overview, err := svc.Overview(context.Background(), "H1")

	require.NoError(t, err)
	assert.NotNil(t, overview.HolidayRules)
	assert.Empty(t, overview.HolidayRules)
	assert.Nil(t, overview.Attendance)
}

func TestHolidayRule_ScopedToHousehold(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.CreateHousehold(ctx, household.Household{ID: "H2", OwnerID: "owner-2", Name: "Other"}))
	rule, err := svc.ApplyHolidayPreset(ctx, "H1", policy.PresetFourDaysPerMonth)
	require.NoError(t, err)

	got, err := svc.HolidayRule(ctx, "H1", rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, got.ID)

	_, err = svc.HolidayRule(ctx, "H2", rule.ID)
	assert.ErrorIs(t, err, policy.ErrRuleNotFound)
}
