// Package policy resolves household default policies: holiday entitlement
// rules and attendance tracking settings.
package policy

import "time"

// =============================================================================
// RECURRENCE VOCABULARY
// =============================================================================

type RuleType string

const (
	RuleDaysPerMonth RuleType = "days_per_month"
	RuleRecurring    RuleType = "recurring"
	RuleCustom       RuleType = "custom"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleDaysPerMonth, RuleRecurring, RuleCustom:
		return true
	}
	return false
}

type IntervalUnit string

const (
	UnitWeek  IntervalUnit = "week"
	UnitMonth IntervalUnit = "month"
)

func (u IntervalUnit) Valid() bool { return u == UnitWeek || u == UnitMonth }

type EndsType string

const (
	EndsNever            EndsType = "never"
	EndsOnDate           EndsType = "on_date"
	EndsAfterOccurrences EndsType = "after_occurrences"
)

func (e EndsType) Valid() bool {
	switch e {
	case EndsNever, EndsOnDate, EndsAfterOccurrences:
		return true
	}
	return false
}

type TrackingMethod string

const (
	TrackPresentByDefault TrackingMethod = "present_by_default"
	TrackManualEntry      TrackingMethod = "manual_entry"
)

// RuleSource tells preset rules (at most one per household) apart from
// additive custom rules.
type RuleSource string

const (
	SourcePreset RuleSource = "preset"
	SourceCustom RuleSource = "custom"
)

// =============================================================================
// RECURRENCE PATTERN
// =============================================================================

// RecurrencePattern is the normalized shape of a holiday rule.
// Weekdays use time.Weekday numbering: 0=Sunday .. 6=Saturday.
type RecurrencePattern struct {
	RuleType           RuleType
	IntervalValue      int
	IntervalUnit       IntervalUnit
	RepeatOnDaysOfWeek []int
	RepeatOnDayOfMonth *int
	DaysPerMonth       *int
	EndsType           EndsType
	EndsDate           *time.Time
	EndsOccurrences    *int
}

// =============================================================================
// PERSISTED RECORDS
// =============================================================================

// HolidayRule is a household's holiday entitlement rule.
type HolidayRule struct {
	ID          string
	HouseholdID string
	Source      RuleSource
	PresetID    string
	RecurrencePattern
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttendanceSettings is the one-per-household attendance configuration.
type AttendanceSettings struct {
	ID             string
	HouseholdID    string
	TrackingMethod TrackingMethod
	PresetID       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Overview is what the settings screen shows for a household.
// An empty HolidayRules slice is a valid state, not a fallback.
type Overview struct {
	HouseholdID  string
	HolidayRules []HolidayRule
	Attendance   *AttendanceSettings
}

func intPtr(n int) *int { return &n }
