/*
service.go - Household default-policy resolver

PURPOSE:
  Turns preset selections into persisted rule/settings records and accepts
  fully specified custom holiday rules.

UPSERT DISCIPLINE:
  ApplyHolidayPreset and ApplyAttendancePreset keep at most one record per
  household. The store does this with a single insert-on-conflict-update
  statement, so there is no check-then-write window. Two sessions applying
  different presets concurrently resolve last-write-wins.

  CreateCustomHolidayRule is additive: it never replaces the preset rule.

"NO RULE" IS VALID:
  Picking p3 ("custom") during onboarding writes nothing. Overview then
  reports an empty rule list, which callers display as "not configured"
  rather than substituting a default.

SEE ALSO:
  - presets.go: the catalog
  - validate.go: custom rule validation
  - store/sqlstore/policy.go: the upsert statements
*/
package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/internal/metrics"
)

// Service applies default policies to households.
type Service struct {
	Store      Store
	Households HouseholdLookup
	Log        logrus.FieldLogger

	Now   func() time.Time
	NewID func() string
}

// NewService creates a policy service with production defaults.
func NewService(store Store, households HouseholdLookup, log logrus.FieldLogger) *Service {
	return &Service{
		Store:      store,
		Households: households,
		Log:        log,
		Now:        func() time.Time { return time.Now().UTC() },
		NewID:      uuid.NewString,
	}
}

// ApplyHolidayPreset resolves presetID and upserts the household's preset
// rule. Returns (nil, nil) for presets that defer configuration.
func (s *Service) ApplyHolidayPreset(ctx context.Context, householdID string, presetID HolidayPresetID) (*HolidayRule, error) {
	pattern, err := ResolveHolidayPreset(presetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireHousehold(ctx, householdID); err != nil {
		return nil, err
	}

	log := s.Log.WithFields(logrus.Fields{"household_id": householdID, "preset": presetID})
	if pattern == nil {
		log.Info("holiday preset defers rule creation")
		metrics.PresetsApplied.WithLabelValues("holiday", string(presetID)).Inc()
		return nil, nil
	}

	now := s.Now()
	rule, err := s.Store.UpsertPresetHolidayRule(ctx, HolidayRule{
		ID:                s.NewID(),
		HouseholdID:       householdID,
		Source:            SourcePreset,
		PresetID:          string(presetID),
		RecurrencePattern: *pattern,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save holiday rule: %w", err)
	}

	metrics.PresetsApplied.WithLabelValues("holiday", string(presetID)).Inc()
	log.WithField("rule_id", rule.ID).Info("holiday preset applied")
	return rule, nil
}

// ApplyAttendancePreset resolves presetID and upserts the household's
// attendance settings.
func (s *Service) ApplyAttendancePreset(ctx context.Context, householdID string, presetID AttendancePresetID) (*AttendanceSettings, error) {
	method, err := ResolveAttendancePreset(presetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireHousehold(ctx, householdID); err != nil {
		return nil, err
	}

	now := s.Now()
	settings, err := s.Store.UpsertAttendanceSettings(ctx, AttendanceSettings{
		ID:             s.NewID(),
		HouseholdID:    householdID,
		TrackingMethod: method,
		PresetID:       string(presetID),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save attendance settings: %w", err)
	}

	metrics.PresetsApplied.WithLabelValues("attendance", string(presetID)).Inc()
	s.Log.WithFields(logrus.Fields{"household_id": householdID, "preset": presetID}).Info("attendance preset applied")
	return settings, nil
}

// CreateCustomHolidayRule validates and inserts a rule outside the preset
// catalog. It is additive and never upserts.
func (s *Service) CreateCustomHolidayRule(ctx context.Context, householdID string, pattern RecurrencePattern) (*HolidayRule, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireHousehold(ctx, householdID); err != nil {
		return nil, err
	}

	now := s.Now()
	rule := HolidayRule{
		ID:                s.NewID(),
		HouseholdID:       householdID,
		Source:            SourceCustom,
		RecurrencePattern: pattern,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Store.InsertHolidayRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save holiday rule: %w", err)
	}

	s.Log.WithFields(logrus.Fields{"household_id": householdID, "rule_id": rule.ID}).Info("custom holiday rule created")
	return &rule, nil
}

// HolidayRule returns one of the household's rules.
func (s *Service) HolidayRule(ctx context.Context, householdID, ruleID string) (*HolidayRule, error) {
	rule, err := s.Store.GetHolidayRule(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get holiday rule: %w", err)
	}
	if rule == nil || rule.HouseholdID != householdID {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

// Overview returns every rule and the attendance settings of a household.
func (s *Service) Overview(ctx context.Context, householdID string) (*Overview, error) {
	if err := s.requireHousehold(ctx, householdID); err != nil {
		return nil, err
	}

	rules, err := s.Store.ListHolidayRules(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holiday rules: %w", err)
	}
	attendance, err := s.Store.GetAttendanceSettings(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance settings: %w", err)
	}

	if rules == nil {
		rules = []HolidayRule{}
	}
	return &Overview{HouseholdID: householdID, HolidayRules: rules, Attendance: attendance}, nil
}

func (s *Service) requireHousehold(ctx context.Context, householdID string) error {
	h, err := s.Households.GetHousehold(ctx, householdID)
	if err != nil {
		return fmt.Errorf("failed to get household: %w", err)
	}
	if h == nil {
		return household.ErrHouseholdNotFound
	}
	return nil
}
