package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownPreset means a preset id outside the catalog reached the
	// resolver. That is a data-integrity bug in the caller, not user input.
	ErrUnknownPreset = errors.New("unknown preset")

	ErrRuleNotFound = errors.New("holiday rule not found")
)

// UnknownPresetError names the offending preset.
type UnknownPresetError struct {
	Kind string // "holiday" or "attendance"
	ID   string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("unknown %s preset %q", e.Kind, e.ID)
}

func (e *UnknownPresetError) Unwrap() error {
	return ErrUnknownPreset
}
