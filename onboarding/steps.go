// Package onboarding drives the household setup wizard: a fixed sequence
// of four steps whose progress is persisted after every transition.
package onboarding

type StepID string

const (
	StepHousehold StepID = "step-household"
	StepDefaults  StepID = "step-defaults"
	StepEmployee  StepID = "step-employee"
	StepWelcome   StepID = "step-welcome"
)

// TotalSteps is fixed for this flow.
const TotalSteps = 4

type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
)

// Step is one stage of the wizard. Required steps cannot be skipped and
// gate Advance on their validation predicate.
type Step struct {
	ID          StepID
	Title       string
	Description string
	Required    bool
	Status      StepStatus
	Skipped     bool
}

var stepOrder = [TotalSteps]StepID{StepHousehold, StepDefaults, StepEmployee, StepWelcome}

// DefaultSteps returns the wizard's steps, all pending.
func DefaultSteps() []Step {
	return []Step{
		{
			ID:          StepHousehold,
			Title:       "Name your household",
			Description: "This is how your staff will see your household.",
			Required:    true,
			Status:      StatusPending,
		},
		{
			ID:          StepDefaults,
			Title:       "Holidays and attendance",
			Description: "Pick how days off and attendance work by default. You can change this later.",
			Required:    false,
			Status:      StatusPending,
		},
		{
			ID:          StepEmployee,
			Title:       "Add your first employee",
			Description: "Add someone who works for your household.",
			Required:    false,
			Status:      StatusPending,
		},
		{
			ID:          StepWelcome,
			Title:       "You're all set",
			Description: "Your household is ready.",
			Required:    true,
			Status:      StatusPending,
		},
	}
}

// IndexOf returns the position of id in the wizard, or -1.
func IndexOf(id StepID) int {
	for i, s := range stepOrder {
		if s == id {
			return i
		}
	}
	return -1
}
