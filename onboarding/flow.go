/*
flow.go - Onboarding progress state machine

PURPOSE:
  Sequences the four wizard steps, gates forward progress on validation,
  runs each step's side effect and persists progress after every
  transition so the user can resume.

STEPS:
  0 step-household  required   create household (rename if one exists)
  1 step-defaults   optional   apply holiday + attendance presets
  2 step-employee   optional   create the first employee (update it on revisit)
  3 step-welcome    required   advancing completes the flow

STATUS INVARIANTS:
  - While not completed exactly one step is in_progress: the one at
    CurrentStepIndex. Steps before it are completed, steps after pending.
  - Retreat is the only way back: it demotes the current step to pending
    and promotes the previous one to in_progress.
  - After completion every step is completed and no command other than
    Complete (idempotent) is accepted.

FAILURE SEMANTICS:
  A failing side effect or a failing progress write leaves statuses and
  the index untouched and returns the error; the same command can be
  retried. Ids created by a side effect (household, employee) are kept on
  the flow before persisting, so a retry after a failed write reuses them
  instead of creating duplicates.

  AutoSave is best-effort: failures are logged and swallowed.

CONCURRENCY:
  A Flow belongs to one user. Its mutex serializes commands; AutoSave does
  its store call outside the lock and relies on the store dropping stale
  drafts (see ProgressWrite).

SEE ALSO:
  - service.go: per-user flow registry, resume, invitation start
  - actions.go: side effects
  - progress.go: persistence contract
*/
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/internal/metrics"
	"github.com/homestaff/household-engine/policy"
)

// Flow is one user's onboarding wizard.
type Flow struct {
	mu       sync.Mutex
	userID   string
	steps    []Step
	progress Progress
	data     map[int]StepData

	householdID string
	joined      bool
	employeeID  string
	// employee is what the employee record was last written with; nil
	// when unknown (for example after resuming from a draft).
	employee *EmployeeData

	// unsaved holds writes that failed on a best-effort path; they are
	// flushed before the next transition is persisted.
	unsaved []ProgressWrite

	actions Actions
	store   ProgressStore
	log     logrus.FieldLogger
	now     func() time.Time
}

// Option customizes a Flow.
type Option func(*Flow)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithRequired overrides whether a step is required.
func WithRequired(id StepID, required bool) Option {
	return func(f *Flow) {
		if i := IndexOf(id); i >= 0 {
			f.steps[i].Required = required
		}
	}
}

func newFlow(userID string, actions Actions, store ProgressStore, log logrus.FieldLogger, opts []Option) *Flow {
	f := &Flow{
		userID:  userID,
		steps:   DefaultSteps(),
		data:    make(map[int]StepData),
		actions: actions,
		store:   store,
		log:     log.WithField("user_id", userID),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(f)
	}
	f.progress.TotalSteps = len(f.steps)
	return f
}

// NewFlow starts a fresh wizard at the first step.
func NewFlow(userID string, actions Actions, store ProgressStore, log logrus.FieldLogger, opts ...Option) *Flow {
	f := newFlow(userID, actions, store, log, opts)
	f.restore(SavedProgress{})
	return f
}

// ResumeFlow rebuilds a wizard from persisted progress.
//
// Steps before the saved index are completed, the saved index is
// in_progress, later steps pending. When step 0's data carries a household
// id (the user joined by invitation) step 0 counts as completed and the
// flow starts no earlier than index 1.
func ResumeFlow(userID string, saved SavedProgress, actions Actions, store ProgressStore, log logrus.FieldLogger, opts ...Option) *Flow {
	f := newFlow(userID, actions, store, log, opts)
	for i, d := range saved.StepData {
		if i >= 0 && i < len(f.steps) {
			f.data[i] = d
		}
	}
	f.restore(saved)
	return f
}

func (f *Flow) restore(saved SavedProgress) {
	last := len(f.steps) - 1
	idx := saved.CurrentStepIndex
	if idx < 0 {
		idx = 0
	}
	if idx > last {
		idx = last
	}

	if d, ok := f.data[0]; ok && d.HouseholdID != "" {
		f.householdID = d.HouseholdID
		f.joined = d.Joined
		if idx == 0 {
			idx = 1
		}
	}
	if d, ok := f.data[IndexOf(StepEmployee)]; ok {
		f.employeeID = d.EmployeeID
		if d.EmployeeID != "" && !d.Draft && d.Employee != nil {
			applied := *d.Employee
			f.employee = &applied
		}
	}

	f.progress = Progress{
		CurrentStepIndex: idx,
		TotalSteps:       len(f.steps),
		IsCompleted:      saved.IsCompleted,
		LastSavedAt:      saved.LastSavedAt,
	}
	if saved.IsCompleted {
		f.progress.CurrentStepIndex = last
	}

	for i := range f.steps {
		switch {
		case saved.IsCompleted || i < idx:
			f.steps[i].Status = StatusCompleted
			f.steps[i].Skipped = f.data[i].Skipped
		case i == idx:
			f.steps[i].Status = StatusInProgress
		default:
			f.steps[i].Status = StatusPending
		}
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

// Handle dispatches a command to the matching operation and returns the
// resulting step index.
func (f *Flow) Handle(ctx context.Context, cmd Command) (int, error) {
	var (
		idx int
		err error
	)
	switch c := cmd.(type) {
	case Advance:
		idx, err = f.Advance(ctx, c.StepID, c.Data)
	case Skip:
		idx, err = f.Skip(ctx, c.StepID)
	case Retreat:
		idx, err = f.Retreat()
	case Complete:
		err = f.Complete(ctx)
		idx = f.CurrentStepIndex()
	default:
		return f.CurrentStepIndex(), ErrUnknownCommand
	}

	metrics.OnboardingCommands.WithLabelValues(CommandName(cmd), outcome(err)).Inc()
	return idx, err
}

// Advance validates data for the current step, performs the step's side
// effect, marks the step completed and moves to the next one. On the last
// step it completes the flow instead.
func (f *Flow) Advance(ctx context.Context, stepID StepID, data StepData) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx, step, err := f.currentLocked(stepID)
	if err != nil {
		return f.progress.CurrentStepIndex, err
	}
	if err := validateStep(step, data); err != nil {
		return idx, err
	}

	if idx == len(f.steps)-1 {
		return idx, f.completeLocked(ctx)
	}

	data.Draft = false
	data, err = f.perform(ctx, step, data)
	if err != nil {
		f.log.WithError(err).WithField("step", step.ID).Warn("onboarding step action failed")
		return idx, err
	}

	if err := f.transitionLocked(ctx, idx, data, false); err != nil {
		return idx, err
	}
	return f.progress.CurrentStepIndex, nil
}

// Skip moves past an optional step without its side effect.
func (f *Flow) Skip(ctx context.Context, stepID StepID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx, step, err := f.currentLocked(stepID)
	if err != nil {
		return f.progress.CurrentStepIndex, err
	}
	if step.Required {
		return idx, ErrStepRequired
	}

	if idx == len(f.steps)-1 {
		if err := f.completeLocked(ctx); err != nil {
			return idx, err
		}
		f.steps[idx].Skipped = true
		return idx, nil
	}

	if err := f.transitionLocked(ctx, idx, StepData{Skipped: true}, true); err != nil {
		return idx, err
	}
	return f.progress.CurrentStepIndex, nil
}

// Retreat goes back one step. It is a no-op on the first step, and on
// step 1 when the household was joined by invitation. Nothing is persisted.
func (f *Flow) Retreat() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.progress.IsCompleted {
		return f.progress.CurrentStepIndex, ErrAlreadyCompleted
	}

	floor := 0
	if f.joined {
		floor = 1
	}
	idx := f.progress.CurrentStepIndex
	if idx <= floor {
		return idx, nil
	}

	f.steps[idx].Status = StatusPending
	f.steps[idx].Skipped = false
	f.steps[idx-1].Status = StatusInProgress
	f.steps[idx-1].Skipped = false
	f.progress.CurrentStepIndex = idx - 1
	return idx - 1, nil
}

// Complete finishes the flow from the last step. Calling it again after
// success is a no-op.
func (f *Flow) Complete(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completeLocked(ctx)
}

// CanAdvance reports whether Advance would pass validation, for UIs that
// disable the next button.
func (f *Flow) CanAdvance(stepID StepID, data StepData) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, step, err := f.currentLocked(stepID)
	if err != nil {
		return false
	}
	return validateStep(step, data) == nil
}

// AutoSave stores a draft of the current step's form. Failures are logged
// and swallowed.
func (f *Flow) AutoSave(ctx context.Context, data StepData) {
	f.mu.Lock()
	if f.progress.IsCompleted {
		f.mu.Unlock()
		return
	}
	idx := f.progress.CurrentStepIndex
	data = draftOf(data, f.data[idx])
	f.mu.Unlock()

	w := ProgressWrite{
		UserID:           f.userID,
		CurrentStepIndex: idx,
		TotalSteps:       len(f.steps),
		StepIndex:        idx,
		Data:             data,
		Draft:            true,
		SavedAt:          f.now(),
	}
	if err := f.store.SaveProgress(ctx, w); err != nil {
		metrics.AutoSaveFailures.Inc()
		f.log.WithError(err).WithField("step_index", idx).Warn("auto-save failed")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progress.IsCompleted || f.progress.CurrentStepIndex != idx {
		return
	}
	f.data[idx] = data
	if w.SavedAt.After(f.progress.LastSavedAt) {
		f.progress.LastSavedAt = w.SavedAt
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is a copy of the flow for rendering.
type State struct {
	UserID      string
	Steps       []Step
	Progress    Progress
	HouseholdID string
	StepData    map[int]StepData
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	steps := make([]Step, len(f.steps))
	copy(steps, f.steps)
	data := make(map[int]StepData, len(f.data))
	for k, v := range f.data {
		data[k] = v
	}
	return State{
		UserID:      f.userID,
		Steps:       steps,
		Progress:    f.progress,
		HouseholdID: f.householdID,
		StepData:    data,
	}
}

func (f *Flow) CurrentStepIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress.CurrentStepIndex
}

func (f *Flow) IsCompleted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress.IsCompleted
}

func (f *Flow) HouseholdID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.householdID
}

// =============================================================================
// INTERNALS
// =============================================================================

func (f *Flow) currentLocked(stepID StepID) (int, Step, error) {
	if f.progress.IsCompleted {
		return 0, Step{}, ErrAlreadyCompleted
	}
	idx := f.progress.CurrentStepIndex
	step := f.steps[idx]
	if step.ID != stepID {
		return idx, step, &StepMismatchError{Current: step.ID, Got: stepID}
	}
	return idx, step, nil
}

// perform runs the step's side effect and returns the data to persist.
func (f *Flow) perform(ctx context.Context, step Step, data StepData) (StepData, error) {
	switch step.ID {
	case StepHousehold:
		name := household.NormalizeName(data.HouseholdName)
		if f.householdID == "" {
			id, err := f.actions.CreateHousehold(ctx, f.userID, name)
			if err != nil {
				return data, err
			}
			f.householdID = id
		} else if name != "" {
			if err := f.actions.RenameHousehold(ctx, f.householdID, name); err != nil {
				return data, err
			}
		}
		data.HouseholdName = name
		data.HouseholdID = f.householdID
		data.Joined = f.joined

	case StepDefaults:
		if f.householdID == "" {
			return data, ErrNoHousehold
		}
		if data.HolidayPreset == "" {
			data.HolidayPreset = policy.DefaultHolidayPreset
		}
		if data.AttendancePreset == "" {
			data.AttendancePreset = policy.DefaultAttendancePreset
		}
		if err := f.actions.ApplyDefaults(ctx, f.householdID, data.HolidayPreset, data.AttendancePreset); err != nil {
			return data, err
		}

	case StepEmployee:
		// The link to an employee created earlier survives an empty form so
		// a later advance updates it instead of adding a second one.
		if data.Employee.empty() {
			data.Employee = nil
			data.EmployeeID = f.employeeID
			break
		}
		if f.householdID == "" {
			return data, ErrNoHousehold
		}
		switch {
		case f.employeeID == "":
			id, err := f.actions.CreateEmployee(ctx, f.householdID, *data.Employee)
			if err != nil {
				return data, err
			}
			f.employeeID = id
		case f.employee == nil || *f.employee != *data.Employee:
			if err := f.actions.UpdateEmployee(ctx, f.householdID, f.employeeID, *data.Employee); err != nil {
				return data, err
			}
		}
		applied := *data.Employee
		f.employee = &applied
		data.EmployeeID = f.employeeID
	}
	return data, nil
}

func (f *Flow) transitionLocked(ctx context.Context, idx int, data StepData, skipped bool) error {
	next := idx + 1
	w := ProgressWrite{
		UserID:           f.userID,
		CurrentStepIndex: next,
		TotalSteps:       len(f.steps),
		StepIndex:        idx,
		Data:             data,
		SavedAt:          f.now(),
	}
	if err := f.saveLocked(ctx, w); err != nil {
		return err
	}

	f.steps[idx].Status = StatusCompleted
	f.steps[idx].Skipped = skipped
	f.steps[next].Status = StatusInProgress
	f.progress.CurrentStepIndex = next
	f.progress.LastSavedAt = w.SavedAt
	f.data[idx] = data

	f.log.WithFields(logrus.Fields{"step": f.steps[idx].ID, "next": f.steps[next].ID, "skipped": skipped}).Info("onboarding step completed")
	return nil
}

func (f *Flow) completeLocked(ctx context.Context) error {
	if f.progress.IsCompleted {
		return nil
	}
	last := len(f.steps) - 1
	if f.progress.CurrentStepIndex != last {
		return ErrNotTerminalStep
	}

	if err := f.flushLocked(ctx); err != nil {
		return err
	}
	now := f.now()
	if err := f.store.CompleteOnboarding(ctx, f.userID, now); err != nil {
		return fmt.Errorf("failed to complete onboarding: %w", err)
	}

	f.steps[last].Status = StatusCompleted
	f.progress.IsCompleted = true
	f.progress.LastSavedAt = now
	metrics.OnboardingCompleted.Inc()
	f.log.WithField("household_id", f.householdID).Info("onboarding completed")
	return nil
}

func (f *Flow) saveLocked(ctx context.Context, w ProgressWrite) error {
	if err := f.flushLocked(ctx); err != nil {
		return err
	}
	if err := f.store.SaveProgress(ctx, w); err != nil {
		return fmt.Errorf("failed to save onboarding progress: %w", err)
	}
	return nil
}

func (f *Flow) flushLocked(ctx context.Context) error {
	for len(f.unsaved) > 0 {
		if err := f.store.SaveProgress(ctx, f.unsaved[0]); err != nil {
			return fmt.Errorf("failed to save onboarding progress: %w", err)
		}
		f.unsaved = f.unsaved[1:]
	}
	return nil
}

// acceptInvitation redeems code for the flow's user and joins the
// household on success. The household check, the redemption and the join
// happen under the flow lock, so one flow never joins two households.
func (f *Flow) acceptInvitation(ctx context.Context, code string) (household.InvitationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.progress.IsCompleted {
		return household.InvitationResult{}, ErrAlreadyCompleted
	}
	if f.householdID != "" {
		return household.InvitationResult{}, ErrHouseholdExists
	}

	res, err := f.actions.AcceptInvitationCode(ctx, code, f.userID)
	if err != nil {
		return res, fmt.Errorf("failed to accept invitation: %w", err)
	}
	if res.Success {
		f.joinLocked(ctx, res.HouseholdID)
	}
	return res, nil
}

// joinLocked marks step 0 completed for a household the user joined by
// invitation. Persisting is best-effort: the in-memory flow is already
// correct and the write is retried before the next transition.
func (f *Flow) joinLocked(ctx context.Context, householdID string) {
	f.householdID = householdID
	f.joined = true
	data := StepData{HouseholdID: householdID, Joined: true}
	f.data[0] = data

	f.steps[0].Status = StatusCompleted
	f.steps[1].Status = StatusInProgress
	for i := 2; i < len(f.steps); i++ {
		f.steps[i].Status = StatusPending
	}
	f.progress.CurrentStepIndex = 1

	w := ProgressWrite{
		UserID:           f.userID,
		CurrentStepIndex: 1,
		TotalSteps:       len(f.steps),
		StepIndex:        0,
		Data:             data,
		SavedAt:          f.now(),
	}
	if err := f.store.SaveProgress(ctx, w); err != nil {
		f.unsaved = append(f.unsaved, w)
		f.log.WithError(err).WithField("household_id", householdID).Warn("failed to save joined household progress, will retry")
		return
	}
	f.progress.LastSavedAt = w.SavedAt
}

// validateStep applies the required-step predicates. Optional steps always
// pass; their side effects still validate what they are given.
func validateStep(step Step, data StepData) error {
	if !step.Required {
		return nil
	}
	switch step.ID {
	case StepHousehold:
		if household.NormalizeName(data.HouseholdName) == "" {
			return household.Invalid("household_name", "household name is required")
		}
	case StepEmployee:
		if data.Employee == nil || strings.TrimSpace(data.Employee.Name) == "" {
			return household.Invalid("employee.name", "employee name is required")
		}
		if strings.TrimSpace(data.Employee.Role) == "" {
			return household.Invalid("employee.role", "role is required")
		}
	}
	return nil
}

// draftOf replaces the fields only a completed transition may set with
// the ones already recorded for the step, so a draft never loses the link
// to a household or employee created earlier.
func draftOf(data, current StepData) StepData {
	data.HouseholdID = current.HouseholdID
	data.Joined = current.Joined
	data.EmployeeID = current.EmployeeID
	data.Skipped = false
	data.Draft = true
	return data
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, household.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
