/*
presets.go - Closed catalog of default-policy presets

PURPOSE:
  Onboarding offers a handful of one-click choices instead of the full rule
  editor. Each preset id maps to a normalized RecurrencePattern (holidays)
  or TrackingMethod (attendance).

HOLIDAY PRESETS:
  p1  "4 days per month"  -> days_per_month, 4 days, every 1 month, never ends
  p2  "Every Sunday off"  -> recurring, weekly on Sunday, never ends
  p3  "Custom"            -> nil: nothing is written, the user configures a
                             rule later through the custom rule editor

ATTENDANCE PRESETS:
  a1  "Present by default" -> present_by_default
  a2  "Manual entry"       -> manual_entry

CLOSED CATALOG:
  Every catalog entry carries its own resolver. Adding a preset means adding
  an entry with a resolver; there is no switch to forget. The catalog is not
  configurable at runtime.

SEE ALSO:
  - service.go: ApplyHolidayPreset / ApplyAttendancePreset
  - validate.go: the rules custom patterns must satisfy
*/
package policy

type HolidayPresetID string

const (
	PresetFourDaysPerMonth HolidayPresetID = "p1"
	PresetSundaysOff       HolidayPresetID = "p2"
	PresetCustomHolidays   HolidayPresetID = "p3"
)

type AttendancePresetID string

const (
	PresetPresentByDefault AttendancePresetID = "a1"
	PresetManualEntry      AttendancePresetID = "a2"
)

// Defaults used when the onboarding defaults step is confirmed without an
// explicit selection.
const (
	DefaultHolidayPreset    = PresetFourDaysPerMonth
	DefaultAttendancePreset = PresetPresentByDefault
)

// =============================================================================
// CATALOG
// =============================================================================

// HolidayPreset is one selectable holiday option.
type HolidayPreset struct {
	ID          HolidayPresetID
	Label       string
	Description string

	// resolve returns nil when the preset defers rule creation.
	resolve func() *RecurrencePattern
}

// AttendancePreset is one selectable attendance option.
type AttendancePreset struct {
	ID          AttendancePresetID
	Label       string
	Description string
	Method      TrackingMethod
}

var holidayPresets = []HolidayPreset{
	{
		ID:          PresetFourDaysPerMonth,
		Label:       "4 days per month",
		Description: "Staff get four days off each month, taken on any days they agree with you.",
		resolve: func() *RecurrencePattern {
			return &RecurrencePattern{
				RuleType:      RuleDaysPerMonth,
				IntervalValue: 1,
				IntervalUnit:  UnitMonth,
				DaysPerMonth:  intPtr(4),
				EndsType:      EndsNever,
			}
		},
	},
	{
		ID:          PresetSundaysOff,
		Label:       "Every Sunday off",
		Description: "Staff are off every Sunday.",
		resolve: func() *RecurrencePattern {
			return &RecurrencePattern{
				RuleType:           RuleRecurring,
				IntervalValue:      1,
				IntervalUnit:       UnitWeek,
				RepeatOnDaysOfWeek: []int{0},
				EndsType:           EndsNever,
			}
		},
	},
	{
		ID:          PresetCustomHolidays,
		Label:       "Custom",
		Description: "Set up your own holiday schedule later from settings.",
		resolve:     func() *RecurrencePattern { return nil },
	},
}

var attendancePresets = []AttendancePreset{
	{
		ID:          PresetPresentByDefault,
		Label:       "Present by default",
		Description: "Everyone is marked present unless you record an absence.",
		Method:      TrackPresentByDefault,
	},
	{
		ID:          PresetManualEntry,
		Label:       "Manual entry",
		Description: "You record attendance for each day yourself.",
		Method:      TrackManualEntry,
	},
}

// HolidayPresets lists the holiday catalog in display order.
func HolidayPresets() []HolidayPreset {
	out := make([]HolidayPreset, len(holidayPresets))
	copy(out, holidayPresets)
	return out
}

// AttendancePresets lists the attendance catalog in display order.
func AttendancePresets() []AttendancePreset {
	out := make([]AttendancePreset, len(attendancePresets))
	copy(out, attendancePresets)
	return out
}

// =============================================================================
// RESOLVERS
// =============================================================================

// ResolveHolidayPreset maps a preset id to its pattern. A nil pattern with a
// nil error means the preset defers configuration (p3).
func ResolveHolidayPreset(id HolidayPresetID) (*RecurrencePattern, error) {
	for _, p := range holidayPresets {
		if p.ID == id {
			return p.resolve(), nil
		}
	}
	return nil, &UnknownPresetError{Kind: "holiday", ID: string(id)}
}

// ResolveAttendancePreset maps a preset id to its tracking method.
func ResolveAttendancePreset(id AttendancePresetID) (TrackingMethod, error) {
	for _, p := range attendancePresets {
		if p.ID == id {
			return p.Method, nil
		}
	}
	return "", &UnknownPresetError{Kind: "attendance", ID: string(id)}
}
