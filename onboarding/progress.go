package onboarding

import (
	"context"
	"strings"
	"time"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/policy"
)

// =============================================================================
// PROGRESS - What is persisted between sessions
// =============================================================================

// Progress is the persisted summary of a user's wizard.
type Progress struct {
	CurrentStepIndex int
	TotalSteps       int
	IsCompleted      bool
	LastSavedAt      time.Time
}

// StepData is the payload of one step. Only the fields belonging to the
// step are set; it is stored as JSON.
type StepData struct {
	// step-household
	HouseholdName string `json:"household_name,omitempty"`
	HouseholdID   string `json:"household_id,omitempty"`
	Joined        bool   `json:"joined,omitempty"`

	// step-defaults
	HolidayPreset    policy.HolidayPresetID    `json:"holiday_rule,omitempty"`
	AttendancePreset policy.AttendancePresetID `json:"attendance,omitempty"`

	// step-employee
	Employee   *EmployeeData `json:"employee,omitempty"`
	EmployeeID string        `json:"employee_id,omitempty"`

	Skipped bool `json:"skipped,omitempty"`
	Draft   bool `json:"draft,omitempty"`
}

// EmployeeData is the employee step form.
type EmployeeData struct {
	Name           string                   `json:"name"`
	Role           string                   `json:"role"`
	EmploymentType household.EmploymentType `json:"employment_type"`
	Email          string                   `json:"email,omitempty"`
	Phone          string                   `json:"phone,omitempty"`
}

func (e *EmployeeData) empty() bool {
	return e == nil || (strings.TrimSpace(e.Name) == "" && strings.TrimSpace(e.Role) == "")
}

// SavedProgress is a full snapshot as loaded from the store, used to
// rebuild a Flow.
type SavedProgress struct {
	Progress
	StepData map[int]StepData
}

// ProgressWrite is one call to SaveProgress.
//
// A transition write moves CurrentStepIndex and stores Data for StepIndex
// (the step just left). A draft write (auto-save) stores Data for the
// current step only while the stored progress still points at StepIndex
// and is not completed; otherwise it is dropped without error. A late
// draft can therefore never rewind a transition or clobber the data a
// transition stored.
type ProgressWrite struct {
	UserID           string
	CurrentStepIndex int
	TotalSteps       int
	StepIndex        int
	Data             StepData
	Draft            bool
	SavedAt          time.Time
}

// ProgressStore persists wizard progress per user.
type ProgressStore interface {
	// GetProgress returns nil when the user never started onboarding.
	GetProgress(ctx context.Context, userID string) (*Progress, error)
	GetStepData(ctx context.Context, userID string, stepIndex int) (*StepData, error)
	SaveProgress(ctx context.Context, w ProgressWrite) error
	CompleteOnboarding(ctx context.Context, userID string, at time.Time) error
}
