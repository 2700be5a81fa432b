package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/homestaff/household-engine/policy"
)

// =============================================================================
// HOLIDAY RULES (policy.Store)
// =============================================================================

const holidayRuleColumns = `id, household_id, source, preset_id, rule_type, interval_value, interval_unit,
	repeat_on_days_of_week, repeat_on_day_of_month, days_per_month,
	ends_type, ends_date, ends_occurrences, created_at, updated_at`

type holidayRuleRow struct {
	ID                 string         `db:"id"`
	HouseholdID        string         `db:"household_id"`
	Source             string         `db:"source"`
	PresetID           string         `db:"preset_id"`
	RuleType           string         `db:"rule_type"`
	IntervalValue      int            `db:"interval_value"`
	IntervalUnit       string         `db:"interval_unit"`
	RepeatOnDaysOfWeek string         `db:"repeat_on_days_of_week"`
	RepeatOnDayOfMonth sql.NullInt64  `db:"repeat_on_day_of_month"`
	DaysPerMonth       sql.NullInt64  `db:"days_per_month"`
	EndsType           string         `db:"ends_type"`
	EndsDate           sql.NullString `db:"ends_date"`
	EndsOccurrences    sql.NullInt64  `db:"ends_occurrences"`
	CreatedAt          string         `db:"created_at"`
	UpdatedAt          string         `db:"updated_at"`
}

func (r holidayRuleRow) toRule() (policy.HolidayRule, error) {
	var days []int
	if r.RepeatOnDaysOfWeek != "" {
		if err := json.Unmarshal([]byte(r.RepeatOnDaysOfWeek), &days); err != nil {
			return policy.HolidayRule{}, fmt.Errorf("holiday rule %s has invalid weekdays: %w", r.ID, err)
		}
	}
	return policy.HolidayRule{
		ID:          r.ID,
		HouseholdID: r.HouseholdID,
		Source:      policy.RuleSource(r.Source),
		PresetID:    r.PresetID,
		RecurrencePattern: policy.RecurrencePattern{
			RuleType:           policy.RuleType(r.RuleType),
			IntervalValue:      r.IntervalValue,
			IntervalUnit:       policy.IntervalUnit(r.IntervalUnit),
			RepeatOnDaysOfWeek: days,
			RepeatOnDayOfMonth: intPtr(r.RepeatOnDayOfMonth),
			DaysPerMonth:       intPtr(r.DaysPerMonth),
			EndsType:           policy.EndsType(r.EndsType),
			EndsDate:           timePtr(r.EndsDate),
			EndsOccurrences:    intPtr(r.EndsOccurrences),
		},
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}, nil
}

func ruleArgs(rule policy.HolidayRule) ([]any, error) {
	days := rule.RepeatOnDaysOfWeek
	if days == nil {
		days = []int{}
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal weekdays: %w", err)
	}
	return []any{
		rule.ID,
		rule.HouseholdID,
		string(rule.Source),
		rule.PresetID,
		string(rule.RuleType),
		rule.IntervalValue,
		string(rule.IntervalUnit),
		string(daysJSON),
		nullInt(rule.RepeatOnDayOfMonth),
		nullInt(rule.DaysPerMonth),
		string(rule.EndsType),
		nullTime(rule.EndsDate),
		nullInt(rule.EndsOccurrences),
		formatTime(rule.CreatedAt),
		formatTime(rule.UpdatedAt),
	}, nil
}

// UpsertPresetHolidayRule writes the household's preset rule in one
// statement. On conflict the existing row keeps its id and created_at.
func (s *Store) UpsertPresetHolidayRule(ctx context.Context, rule policy.HolidayRule) (*policy.HolidayRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule.Source = policy.SourcePreset
	args, err := ruleArgs(rule)
	if err != nil {
		return nil, err
	}

	var row holidayRuleRow
	err = s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO holiday_rules (`+holidayRuleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (household_id) WHERE source = 'preset' DO UPDATE SET
			preset_id = excluded.preset_id,
			rule_type = excluded.rule_type,
			interval_value = excluded.interval_value,
			interval_unit = excluded.interval_unit,
			repeat_on_days_of_week = excluded.repeat_on_days_of_week,
			repeat_on_day_of_month = excluded.repeat_on_day_of_month,
			days_per_month = excluded.days_per_month,
			ends_type = excluded.ends_type,
			ends_date = excluded.ends_date,
			ends_occurrences = excluded.ends_occurrences,
			updated_at = excluded.updated_at
		RETURNING `+holidayRuleColumns), args...).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert holiday rule: %w", err)
	}

	stored, err := row.toRule()
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) InsertHolidayRule(ctx context.Context, rule policy.HolidayRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args, err := ruleArgs(rule)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO holiday_rules (`+holidayRuleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), args...)
	if err != nil {
		return fmt.Errorf("failed to insert holiday rule: %w", err)
	}
	return nil
}

// ListHolidayRules returns the preset rule first, then custom rules oldest
// first.
func (s *Store) ListHolidayRules(ctx context.Context, householdID string) ([]policy.HolidayRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []holidayRuleRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+holidayRuleColumns+`
		FROM holiday_rules WHERE household_id = ?
		ORDER BY CASE WHEN source = 'preset' THEN 0 ELSE 1 END, created_at ASC, id ASC
	`), householdID)
	if err != nil {
		return nil, err
	}

	out := make([]policy.HolidayRule, 0, len(rows))
	for _, r := range rows {
		rule, err := r.toRule()
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func (s *Store) GetHolidayRule(ctx context.Context, id string) (*policy.HolidayRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row holidayRuleRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT `+holidayRuleColumns+` FROM holiday_rules WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rule, err := row.toRule()
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// =============================================================================
// ATTENDANCE SETTINGS (policy.Store)
// =============================================================================

type attendanceRow struct {
	ID             string `db:"id"`
	HouseholdID    string `db:"household_id"`
	TrackingMethod string `db:"tracking_method"`
	PresetID       string `db:"preset_id"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (r attendanceRow) toSettings() *policy.AttendanceSettings {
	return &policy.AttendanceSettings{
		ID:             r.ID,
		HouseholdID:    r.HouseholdID,
		TrackingMethod: policy.TrackingMethod(r.TrackingMethod),
		PresetID:       r.PresetID,
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
	}
}

func (s *Store) UpsertAttendanceSettings(ctx context.Context, a policy.AttendanceSettings) (*policy.AttendanceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row attendanceRow
	err := s.db.QueryRowxContext(ctx, s.q(`
		INSERT INTO attendance_settings (id, household_id, tracking_method, preset_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (household_id) DO UPDATE SET
			tracking_method = excluded.tracking_method,
			preset_id = excluded.preset_id,
			updated_at = excluded.updated_at
		RETURNING id, household_id, tracking_method, preset_id, created_at, updated_at
	`), a.ID, a.HouseholdID, string(a.TrackingMethod), a.PresetID, formatTime(a.CreatedAt), formatTime(a.UpdatedAt)).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert attendance settings: %w", err)
	}
	return row.toSettings(), nil
}

func (s *Store) GetAttendanceSettings(ctx context.Context, householdID string) (*policy.AttendanceSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row attendanceRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT id, household_id, tracking_method, preset_id, created_at, updated_at
		FROM attendance_settings WHERE household_id = ?
	`), householdID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toSettings(), nil
}
