package policy

import (
	"context"

	"github.com/homestaff/household-engine/household"
)

// Store persists holiday rules and attendance settings.
//
// The upsert methods must be atomic (insert-on-conflict-update keyed by
// household) and must keep the identity (ID, CreatedAt) of an existing
// record. They return the record as stored.
type Store interface {
	UpsertPresetHolidayRule(ctx context.Context, rule HolidayRule) (*HolidayRule, error)
	InsertHolidayRule(ctx context.Context, rule HolidayRule) error
	ListHolidayRules(ctx context.Context, householdID string) ([]HolidayRule, error)
	GetHolidayRule(ctx context.Context, id string) (*HolidayRule, error)

	UpsertAttendanceSettings(ctx context.Context, s AttendanceSettings) (*AttendanceSettings, error)
	GetAttendanceSettings(ctx context.Context, householdID string) (*AttendanceSettings, error)
}

// HouseholdLookup is the slice of the household store the resolver needs.
type HouseholdLookup interface {
	GetHousehold(ctx context.Context, id string) (*household.Household, error)
}
