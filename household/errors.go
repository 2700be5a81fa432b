/*
errors.go - Error types shared by the household, policy and onboarding layers

PURPOSE:
  Sentinels for errors.Is() plus a structured ValidationError that carries
  the offending field. The API layer maps these to HTTP statuses.

ERROR CATEGORIES:
  1. Validation errors - missing or malformed input, user-correctable
  2. Lookup errors     - referenced household/invitation does not exist
  3. Conflict errors   - duplicates, already used invitations
  4. Store errors      - anything else, surfaced as retryable

SEE ALSO:
  - policy/errors.go: unknown preset errors
  - onboarding/errors.go: state machine errors
  - api/errors.go: HTTP mapping
*/
package household

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is wrapped by every ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrHouseholdNotFound is returned when a referenced household doesn't exist.
	ErrHouseholdNotFound = errors.New("household not found")

	// ErrDuplicateHousehold is returned when the owner already has a
	// household with the same name.
	ErrDuplicateHousehold = errors.New("household with this name already exists")

	// ErrEmployeeNotFound is returned when a referenced employee doesn't exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrInvitationUsed     = errors.New("invitation already used")

	// ErrDuplicateInvitationCode is returned by stores on a code collision.
	// The service retries with a fresh code.
	ErrDuplicateInvitationCode = errors.New("invitation code already exists")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateHousehold) ||
		IsInvitationError(err)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrHouseholdNotFound) ||
		errors.Is(err, ErrEmployeeNotFound)
}

// IsInvitationError returns true for errors a user can fix by asking for a
// new invitation code.
func IsInvitationError(err error) bool {
	return errors.Is(err, ErrInvitationNotFound) ||
		errors.Is(err, ErrInvitationExpired) ||
		errors.Is(err, ErrInvitationUsed)
}

// InvitationMessage turns an invitation error into the text shown to the user.
func InvitationMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvitationNotFound):
		return "This invitation code is not valid. Check the code and try again."
	case errors.Is(err, ErrInvitationExpired):
		return "This invitation code has expired. Ask the household owner for a new one."
	case errors.Is(err, ErrInvitationUsed):
		return "This invitation code has already been used."
	default:
		return "We could not verify this invitation code. Please try again."
	}
}
