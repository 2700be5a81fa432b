package policy

import (
	"time"
)

// =============================================================================
// CALENDAR - Expands a holiday rule into the days off of one month
// =============================================================================

// MonthCalendar is a rule applied to a single month. Recurring rules yield
// concrete OffDays; allowance rules (days_per_month) yield Allowance, the
// number of days staff may pick themselves.
type MonthCalendar struct {
	Year      int
	Month     time.Month
	OffDays   []time.Time
	Allowance int
}

// OffDays expands rule over the given month.
//
// Intervals are counted from the period (week starting Sunday, or month)
// in which the rule was created; months before that period are empty.
// Ends constraints cut the expansion: on_date is inclusive, and
// after_occurrences counts occurrences from the anchor period on.
func OffDays(rule HolidayRule, year int, month time.Month) MonthCalendar {
	cal := MonthCalendar{Year: year, Month: month}
	if rule.DaysPerMonth != nil {
		cal.Allowance = *rule.DaysPerMonth
	}
	if len(rule.RepeatOnDaysOfWeek) == 0 && rule.RepeatOnDayOfMonth == nil {
		return cal
	}

	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	anchor := anchorFor(rule)
	if monthEnd.Before(anchor) {
		cal.Allowance = 0
		return cal
	}

	weekdays := make(map[time.Weekday]bool, len(rule.RepeatOnDaysOfWeek))
	for _, d := range rule.RepeatOnDaysOfWeek {
		weekdays[time.Weekday(d)] = true
	}

	// Occurrence limits need every match since the anchor; otherwise start
	// at the month itself.
	from := monthStart
	if rule.EndsType == EndsAfterOccurrences || from.Before(anchor) {
		from = anchor
	}

	occurrences := 0
	for day := from; !day.After(monthEnd); day = day.AddDate(0, 0, 1) {
		if rule.EndsType == EndsOnDate && rule.EndsDate != nil && day.After(dateOf(*rule.EndsDate)) {
			break
		}
		if !matches(rule, anchor, weekdays, day) {
			continue
		}
		occurrences++
		if rule.EndsType == EndsAfterOccurrences && rule.EndsOccurrences != nil && occurrences > *rule.EndsOccurrences {
			break
		}
		if !day.Before(monthStart) {
			cal.OffDays = append(cal.OffDays, day)
		}
	}
	return cal
}

func matches(rule HolidayRule, anchor time.Time, weekdays map[time.Weekday]bool, day time.Time) bool {
	interval := rule.IntervalValue
	if interval < 1 {
		interval = 1
	}

	switch rule.IntervalUnit {
	case UnitWeek:
		weeks := int(weekStart(day).Sub(anchor).Hours() / (24 * 7))
		return weeks%interval == 0 && weekdays[day.Weekday()]
	case UnitMonth:
		months := (day.Year()-anchor.Year())*12 + int(day.Month()-anchor.Month())
		if months%interval != 0 {
			return false
		}
		if weekdays[day.Weekday()] {
			return true
		}
		if rule.RepeatOnDayOfMonth != nil {
			return day.Day() == clampDay(*rule.RepeatOnDayOfMonth, day.Year(), day.Month())
		}
	}
	return false
}

// anchorFor returns the start of the period the rule was created in.
func anchorFor(rule HolidayRule) time.Time {
	created := dateOf(rule.CreatedAt)
	if rule.IntervalUnit == UnitWeek {
		return weekStart(created)
	}
	return time.Date(created.Year(), created.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func weekStart(t time.Time) time.Time {
	return t.AddDate(0, 0, -int(t.Weekday()))
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// clampDay maps day 31 to the last day of shorter months.
func clampDay(day, year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}
