package api

import "net/http"

// =============================================================================
// ONBOARDING HANDLERS
// =============================================================================
//
//   GET  /api/onboarding            current state (resumes from the store)
//   POST /api/onboarding/start      start, optionally with an invitation code
//   POST /api/onboarding/resume     reload saved progress
//   POST /api/onboarding/commands   advance | skip | retreat | complete
//   POST /api/onboarding/autosave   best-effort draft of the current step
//
// All routes require X-User-ID. Command failures that leave the wizard
// unchanged still carry the error status; clients re-fetch state with GET.

// GetOnboarding returns the caller's wizard state.
func (h *Handler) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	state, err := h.Onboarding.State(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOnboardingStateDTO(state))
}

// StartOnboarding starts the wizard, or returns the saved one if the user
// already began. With an invitation code the user joins that household and
// starts at step 1; a rejected code starts normally and reports why in the
// invitation field.
func (h *Handler) StartOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req StartOnboardingRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	if req.InvitationCode == "" {
		f, err := h.Onboarding.Start(r.Context(), userID)
		if err != nil {
			writeServiceError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, StartOnboardingResponse{State: toOnboardingStateDTO(f.State())})
		return
	}

	f, res, err := h.Onboarding.StartWithInvitation(r.Context(), userID, req.InvitationCode)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, StartOnboardingResponse{
		State:      toOnboardingStateDTO(f.State()),
		Invitation: toInvitationResultDTO(res),
	})
}

// ResumeOnboarding reloads the wizard from persisted progress.
func (h *Handler) ResumeOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	f, err := h.Onboarding.Resume(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOnboardingStateDTO(f.State()))
}

// HandleOnboardingCommand applies one wizard command.
func (h *Handler) HandleOnboardingCommand(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req OnboardingCommandRequest
	if !decode(w, r, &req) {
		return
	}
	cmd, err := req.toCommand()
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}

	state, err := h.Onboarding.Handle(r.Context(), userID, cmd)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOnboardingStateDTO(state))
}

// AutoSaveOnboarding stores a draft of the current step. It always answers
// 200 once the flow exists; save failures are only logged.
func (h *Handler) AutoSaveOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req AutoSaveRequest
	if !decode(w, r, &req) {
		return
	}

	state, err := h.Onboarding.AutoSave(r.Context(), userID, req.Data)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOnboardingStateDTO(state))
}
