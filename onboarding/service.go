package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/homestaff/household-engine/household"
)

// Service keeps one Flow per user.
//
// Flows live in memory for the session; Resume rebuilds one from the
// progress store after a restart or on a new device.
type Service struct {
	Actions Actions
	Store   ProgressStore
	Log     logrus.FieldLogger
	Options []Option

	mu    sync.Mutex
	flows map[string]*Flow
}

func NewService(actions Actions, store ProgressStore, log logrus.FieldLogger, opts ...Option) *Service {
	return &Service{
		Actions: actions,
		Store:   store,
		Log:     log,
		Options: opts,
		flows:   make(map[string]*Flow),
	}
}

// Start returns the user's flow: the one in memory, else the one saved in
// the progress store, else a fresh one at step 0. Calling it twice returns
// the same flow.
func (s *Service) Start(ctx context.Context, userID string) (*Flow, error) {
	f, err := s.Flow(ctx, userID)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, ErrNoFlow) {
		return nil, err
	}
	return s.register(userID, NewFlow(userID, s.Actions, s.Store, s.Log, s.Options...), false), nil
}

// StartWithInvitation starts a flow for a user joining an existing
// household. When the code is accepted step 0 is completed for the joined
// household and the flow starts at step 1. When it is rejected the flow
// starts normally and the result carries the user-facing reason.
//
// A user whose flow already has a household gets ErrHouseholdExists; a
// user who finished onboarding gets ErrAlreadyCompleted. Any other
// non-nil error means the invitation could not be checked at all.
func (s *Service) StartWithInvitation(ctx context.Context, userID, code string) (*Flow, household.InvitationResult, error) {
	f, err := s.Start(ctx, userID)
	if err != nil {
		return nil, household.InvitationResult{}, err
	}

	res, err := f.acceptInvitation(ctx, code)
	if err != nil {
		return f, res, err
	}
	if !res.Success {
		s.Log.WithFields(logrus.Fields{"user_id": userID, "reason": res.Error}).Info("invitation rejected")
		return f, res, nil
	}

	s.Log.WithFields(logrus.Fields{"user_id": userID, "household_id": res.HouseholdID}).Info("joined household by invitation")
	return f, res, nil
}

// Resume loads the user's saved progress and replaces any in-memory flow.
// Returns ErrNoFlow if nothing was ever saved.
func (s *Service) Resume(ctx context.Context, userID string) (*Flow, error) {
	f, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	f = s.register(userID, f, true)

	s.Log.WithFields(logrus.Fields{"user_id": userID, "step_index": f.CurrentStepIndex()}).Info("onboarding resumed")
	return f, nil
}

// Flow returns the loaded flow, falling back to the store.
func (s *Service) Flow(ctx context.Context, userID string) (*Flow, error) {
	s.mu.Lock()
	f, ok := s.flows[userID]
	s.mu.Unlock()
	if ok {
		return f, nil
	}

	f, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.register(userID, f, false), nil
}

func (s *Service) Handle(ctx context.Context, userID string, cmd Command) (State, error) {
	f, err := s.Flow(ctx, userID)
	if err != nil {
		return State{}, err
	}
	_, err = f.Handle(ctx, cmd)
	return f.State(), err
}

func (s *Service) AutoSave(ctx context.Context, userID string, data StepData) (State, error) {
	f, err := s.Flow(ctx, userID)
	if err != nil {
		return State{}, err
	}
	f.AutoSave(ctx, data)
	return f.State(), nil
}

func (s *Service) State(ctx context.Context, userID string) (State, error) {
	f, err := s.Flow(ctx, userID)
	if err != nil {
		return State{}, err
	}
	return f.State(), nil
}

// load rebuilds a flow from the progress store without registering it.
func (s *Service) load(ctx context.Context, userID string) (*Flow, error) {
	p, err := s.Store.GetProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding progress: %w", err)
	}
	if p == nil {
		return nil, ErrNoFlow
	}

	saved := SavedProgress{Progress: *p, StepData: make(map[int]StepData)}
	for i := 0; i < TotalSteps; i++ {
		d, err := s.Store.GetStepData(ctx, userID, i)
		if err != nil {
			return nil, fmt.Errorf("failed to load step %d data: %w", i, err)
		}
		if d != nil {
			saved.StepData[i] = *d
		}
	}
	return ResumeFlow(userID, saved, s.Actions, s.Store, s.Log, s.Options...), nil
}

// register installs f for userID. Unless replace is set, a flow another
// request registered first wins and is returned instead.
func (s *Service) register(userID string, f *Flow, replace bool) *Flow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.flows[userID]; ok && !replace {
		return existing
	}
	s.flows[userID] = f
	return f
}

// Forget drops every in-memory flow. The next access resumes from the
// store, which is what a store reset needs.
func (s *Service) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows = make(map[string]*Flow)
}
