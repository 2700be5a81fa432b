package onboarding

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyCompleted = errors.New("onboarding already completed")
	ErrStepMismatch     = errors.New("command does not target the current step")
	ErrStepRequired     = errors.New("step is required and cannot be skipped")
	ErrNotTerminalStep  = errors.New("onboarding can only be completed from the last step")
	ErrNoHousehold      = errors.New("no household has been set up yet")
	ErrHouseholdExists  = errors.New("onboarding already has a household")
	ErrNoFlow           = errors.New("onboarding has not been started")
	ErrUnknownCommand   = errors.New("unknown onboarding command")
)

// StepMismatchError names the step the command targeted and the current one.
type StepMismatchError struct {
	Current StepID
	Got     StepID
}

func (e *StepMismatchError) Error() string {
	return fmt.Sprintf("command targets %s but current step is %s", e.Got, e.Current)
}

func (e *StepMismatchError) Unwrap() error {
	return ErrStepMismatch
}

// IsConflict returns true for commands that do not fit the wizard's state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrStepMismatch) ||
		errors.Is(err, ErrStepRequired) ||
		errors.Is(err, ErrNotTerminalStep) ||
		errors.Is(err, ErrNoHousehold) ||
		errors.Is(err, ErrHouseholdExists)
}
