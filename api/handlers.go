/*
handlers.go - HTTP API handlers for households and default policies

PURPOSE:
  Exposes the household collaborator and the default-policy resolver via
  REST. Handles HTTP request/response and JSON, and delegates everything
  else to the services.

ENDPOINTS:
  Presets:
    GET    /api/presets                                  Preset catalog

  Households:
    GET    /api/households                               Caller's households
    POST   /api/households                               Create (owner = X-User-ID)
    GET    /api/households/{id}                          Get household
    GET    /api/households/{id}/employees                List employees
    POST   /api/households/{id}/employees                Add employee
    POST   /api/households/{id}/invitations              Issue invitation code
    POST   /api/invitations/accept                       Join with a code

  Policy:
    GET    /api/households/{id}/policy                   Rules + attendance
    PUT    /api/households/{id}/holiday-preset           Apply holiday preset
    PUT    /api/households/{id}/attendance-preset        Apply attendance preset
    GET    /api/households/{id}/holiday-rules            List rules
    POST   /api/households/{id}/holiday-rules            Custom rule
    GET    /api/households/{id}/holiday-rules/{ruleID}/calendar?month=YYYY-MM

  Onboarding: see onboarding.go
  Scenarios:  see scenarios.go

ARCHITECTURE:
  Handler holds the three services and the store they share. Services are
  built once in NewHandler; handlers never touch the store directly except
  for health checks and scenario resets.

IDENTITY:
  Authentication is external. The authenticated user id arrives in the
  X-User-ID header; routes that act on behalf of a user require it.

ERROR HANDLING:
  writeServiceError (errors.go) maps domain errors to statuses. Malformed
  JSON is 400 here, before any service is called.

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/onboarding"
	"github.com/homestaff/household-engine/policy"
)

// UserHeader carries the authenticated user id.
const UserHeader = "X-User-ID"

// Store is everything the API's services persist to.
type Store interface {
	household.Store
	policy.Store
	onboarding.ProgressStore
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      Store
	Households *household.Service
	Policies   *policy.Service
	Onboarding *onboarding.Service
	Log        logrus.FieldLogger

	// AllowScenarios enables the demo scenario routes.
	AllowScenarios bool

	mu              sync.Mutex
	currentScenario string
}

// Options tune NewHandler.
type Options struct {
	InvitationTTL  time.Duration
	AllowScenarios bool
}

// NewHandler wires the services on top of store.
func NewHandler(store Store, log logrus.FieldLogger, opts Options) *Handler {
	households := household.NewService(store, log.WithField("component", "household"))
	if opts.InvitationTTL > 0 {
		households.InvitationTTL = opts.InvitationTTL
	}
	policies := policy.NewService(store, store, log.WithField("component", "policy"))
	actions := &onboarding.ServiceActions{Households: households, Policies: policies}

	return &Handler{
		Store:          store,
		Households:     households,
		Policies:       policies,
		Onboarding:     onboarding.NewService(actions, store, log.WithField("component", "onboarding")),
		Log:            log,
		AllowScenarios: opts.AllowScenarios,
	}
}

// =============================================================================
// PRESETS
// =============================================================================

// ListPresets returns the holiday and attendance preset catalog.
// GET /api/presets
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presetCatalog())
}

// =============================================================================
// HOUSEHOLD HANDLERS
// =============================================================================

// CreateHousehold creates a household owned by the calling user.
// POST /api/households
func (h *Handler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateHouseholdRequest
	if !decode(w, r, &req) {
		return
	}

	hh, err := h.Households.CreateHousehold(r.Context(), userID, req.Name)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHouseholdDTO(*hh))
}

// ListHouseholds returns the calling user's households.
// GET /api/households
func (h *Handler) ListHouseholds(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	hs, err := h.Households.ListHouseholds(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}

	dtos := make([]HouseholdDTO, len(hs))
	for i, hh := range hs {
		dtos[i] = toHouseholdDTO(hh)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHousehold returns a single household.
// GET /api/households/{id}
func (h *Handler) GetHousehold(w http.ResponseWriter, r *http.Request) {
	hh, err := h.Households.GetHousehold(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toHouseholdDTO(*hh))
}

// ListEmployees returns the household's staff.
// GET /api/households/{id}/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Households.ListEmployees(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee adds an employee with employment details.
// POST /api/households/{id}/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !decode(w, r, &req) {
		return
	}
	emp, job, err := req.toInputs()
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}

	e, err := h.Households.CreateEmployee(r.Context(), chi.URLParam(r, "id"), emp, job)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*e))
}

// CreateInvitation issues a code another user can join the household with.
// POST /api/households/{id}/invitations
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	inv, err := h.Households.CreateInvitation(r.Context(), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvitationDTO(*inv))
}

// AcceptInvitation joins the calling user to a household outside of
// onboarding. Rejections are 200 with success=false and a user message.
// POST /api/invitations/accept
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req AcceptInvitationRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.Households.AcceptInvitationCode(r.Context(), req.Code, userID)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvitationResultDTO(res))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// GetPolicyOverview returns holiday rules and attendance settings.
// GET /api/households/{id}/policy
func (h *Handler) GetPolicyOverview(w http.ResponseWriter, r *http.Request) {
	o, err := h.Policies.Overview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewDTO(o))
}

// ApplyHolidayPreset upserts the household's preset rule. The body is null
// for presets that defer configuration.
// PUT /api/households/{id}/holiday-preset
func (h *Handler) ApplyHolidayPreset(w http.ResponseWriter, r *http.Request) {
	var req ApplyPresetRequest
	if !decode(w, r, &req) {
		return
	}

	rule, err := h.Policies.ApplyHolidayPreset(r.Context(), chi.URLParam(r, "id"), policy.HolidayPresetID(req.PresetID))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	if rule == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayRuleDTO(*rule))
}

// ApplyAttendancePreset upserts the household's attendance settings.
// PUT /api/households/{id}/attendance-preset
func (h *Handler) ApplyAttendancePreset(w http.ResponseWriter, r *http.Request) {
	var req ApplyPresetRequest
	if !decode(w, r, &req) {
		return
	}

	settings, err := h.Policies.ApplyAttendancePreset(r.Context(), chi.URLParam(r, "id"), policy.AttendancePresetID(req.PresetID))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(settings))
}

// ListHolidayRules returns every rule of the household.
// GET /api/households/{id}/holiday-rules
func (h *Handler) ListHolidayRules(w http.ResponseWriter, r *http.Request) {
	o, err := h.Policies.Overview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewDTO(o).HolidayRules)
}

// CreateHolidayRule adds a fully specified custom rule.
// POST /api/households/{id}/holiday-rules
func (h *Handler) CreateHolidayRule(w http.ResponseWriter, r *http.Request) {
	var req RecurrencePatternDTO
	if !decode(w, r, &req) {
		return
	}
	pattern, err := req.toPattern()
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}

	rule, err := h.Policies.CreateCustomHolidayRule(r.Context(), chi.URLParam(r, "id"), pattern)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayRuleDTO(*rule))
}

// GetRuleCalendar expands a rule over one month (default: current month).
// GET /api/households/{id}/holiday-rules/{ruleID}/calendar?month=YYYY-MM
func (h *Handler) GetRuleCalendar(w http.ResponseWriter, r *http.Request) {
	month := time.Now().UTC()
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := time.Parse("2006-01", v)
		if err != nil {
			writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
		month = parsed
	}

	rule, err := h.Policies.HolidayRule(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "ruleID"))
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarDTO(rule.ID, policy.OffDays(*rule, month.Year(), month.Month())))
}

// =============================================================================
// HEALTH
// =============================================================================

// Healthz reports whether the store is reachable.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		writeErrorCode(w, http.StatusServiceUnavailable, CodeInternal, "Store unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	writeErrorCode(w, status, "", message, err)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		writeErrorCode(w, http.StatusUnauthorized, CodeUnauthenticated, "Missing "+UserHeader+" header", nil)
		return "", false
	}
	return userID, true
}
