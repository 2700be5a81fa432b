package policy

import (
	"github.com/homestaff/household-engine/household"
)

// Validate checks the field combinations implied by RuleType and EndsType.
// Errors are *household.ValidationError naming the first bad field.
func (p RecurrencePattern) Validate() error {
	if !p.RuleType.Valid() {
		return household.Invalid("rule_type", "unknown rule type %q", p.RuleType)
	}
	if p.IntervalValue < 1 {
		return household.Invalid("recurrence_interval_value", "must be at least 1")
	}
	if !p.IntervalUnit.Valid() {
		return household.Invalid("recurrence_interval_unit", "must be week or month")
	}

	if err := p.validateDays(); err != nil {
		return err
	}

	switch p.RuleType {
	case RuleDaysPerMonth:
		if p.DaysPerMonth == nil {
			return household.Invalid("days_per_month", "required for days_per_month rules")
		}
		if len(p.RepeatOnDaysOfWeek) > 0 || p.RepeatOnDayOfMonth != nil {
			return household.Invalid("rule_type", "days_per_month rules cannot repeat on specific days")
		}
	case RuleRecurring:
		if len(p.RepeatOnDaysOfWeek) == 0 && p.RepeatOnDayOfMonth == nil {
			return household.Invalid("repeat_on_days_of_week", "recurring rules need days of week or a day of month")
		}
		if p.DaysPerMonth != nil {
			return household.Invalid("days_per_month", "not allowed for recurring rules")
		}
		if p.IntervalUnit == UnitWeek && p.RepeatOnDayOfMonth != nil {
			return household.Invalid("repeat_on_day_of_month", "weekly rules repeat on days of week")
		}
	case RuleCustom:
		if p.DaysPerMonth == nil && len(p.RepeatOnDaysOfWeek) == 0 && p.RepeatOnDayOfMonth == nil {
			return household.Invalid("rule_type", "custom rules need at least one of days_per_month, repeat_on_days_of_week, repeat_on_day_of_month")
		}
	}

	return p.validateEnds()
}

func (p RecurrencePattern) validateDays() error {
	seen := make(map[int]bool, len(p.RepeatOnDaysOfWeek))
	for _, d := range p.RepeatOnDaysOfWeek {
		if d < 0 || d > 6 {
			return household.Invalid("repeat_on_days_of_week", "weekday %d out of range 0..6", d)
		}
		if seen[d] {
			return household.Invalid("repeat_on_days_of_week", "weekday %d listed twice", d)
		}
		seen[d] = true
	}
	if p.RepeatOnDayOfMonth != nil && (*p.RepeatOnDayOfMonth < 1 || *p.RepeatOnDayOfMonth > 31) {
		return household.Invalid("repeat_on_day_of_month", "must be between 1 and 31")
	}
	if p.DaysPerMonth != nil && (*p.DaysPerMonth < 1 || *p.DaysPerMonth > 31) {
		return household.Invalid("days_per_month", "must be between 1 and 31")
	}
	return nil
}

func (p RecurrencePattern) validateEnds() error {
	switch p.EndsType {
	case EndsNever:
		if p.EndsDate != nil || p.EndsOccurrences != nil {
			return household.Invalid("ends_type", "never-ending rules cannot have an end date or occurrence count")
		}
	case EndsOnDate:
		if p.EndsDate == nil {
			return household.Invalid("ends_date", "required when ends_type is on_date")
		}
		if p.EndsOccurrences != nil {
			return household.Invalid("ends_occurrences", "not allowed when ends_type is on_date")
		}
	case EndsAfterOccurrences:
		if p.EndsOccurrences == nil || *p.EndsOccurrences < 1 {
			return household.Invalid("ends_occurrences", "must be at least 1 when ends_type is after_occurrences")
		}
		if p.EndsDate != nil {
			return household.Invalid("ends_date", "not allowed when ends_type is after_occurrences")
		}
	default:
		return household.Invalid("ends_type", "unknown ends type %q", p.EndsType)
	}
	return nil
}
