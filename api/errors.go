package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/onboarding"
	"github.com/homestaff/household-engine/policy"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidation        = "validation_failed"
	CodeBadRequest        = "bad_request"
	CodeUnknownPreset     = "unknown_preset"
	CodeUnknownCommand    = "unknown_command"
	CodeInvitation        = "invitation_invalid"
	CodeNotFound          = "not_found"
	CodeDuplicate         = "duplicate"
	CodeOnboardingState   = "onboarding_conflict"
	CodeUnauthenticated   = "unauthenticated"
	CodeInternal          = "internal_error"
	CodeScenariosDisabled = "scenarios_disabled"
)

// writeServiceError maps domain errors to HTTP statuses:
//
//	validation            422
//	unknown preset/command 400
//	invitation errors     400 (user-facing message)
//	not found             404
//	duplicate, wizard state conflicts 409
//	anything else         500
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var ve *household.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   ve.Message,
			Code:    CodeValidation,
			Details: map[string]string{"field": ve.Field},
		})
	case errors.Is(err, policy.ErrUnknownPreset):
		writeErrorCode(w, http.StatusBadRequest, CodeUnknownPreset, err.Error(), nil)
	case errors.Is(err, onboarding.ErrUnknownCommand):
		writeErrorCode(w, http.StatusBadRequest, CodeUnknownCommand, err.Error(), nil)
	case household.IsInvitationError(err):
		writeErrorCode(w, http.StatusBadRequest, CodeInvitation, household.InvitationMessage(err), nil)
	case household.IsNotFound(err), errors.Is(err, policy.ErrRuleNotFound), errors.Is(err, onboarding.ErrNoFlow):
		writeErrorCode(w, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, household.ErrDuplicateHousehold):
		writeErrorCode(w, http.StatusConflict, CodeDuplicate, err.Error(), nil)
	case onboarding.IsConflict(err):
		writeErrorCode(w, http.StatusConflict, CodeOnboardingState, err.Error(), nil)
	default:
		log.WithError(err).Error("request failed")
		writeErrorCode(w, http.StatusInternalServerError, CodeInternal, "Internal error", nil)
	}
}
