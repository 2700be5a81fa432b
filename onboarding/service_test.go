package onboarding_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/onboarding"
	"github.com/homestaff/household-engine/store/memory"
)

func mustStart(t *testing.T, svc *onboarding.Service, userID string) *onboarding.Flow {
	t.Helper()
	f, err := svc.Start(context.Background(), userID)
	require.NoError(t, err)
	return f
}

func TestService_Start_ReturnsSameFlow(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(happyActions(), memory.New(), logger, clock())

	a := mustStart(t, svc, "user-1")
	b := mustStart(t, svc, "user-1")
	c := mustStart(t, svc, "user-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestService_Start_AfterRestart_ResumesSavedProgress(t *testing.T) {
	// GIVEN: A user who reached step 2 before the process restarted
	// WHEN: A new service on the same store starts their onboarding
	// THEN: The saved flow comes back at step 2 with its household, and
	//       continuing neither creates a household nor rewinds progress

	store := memory.New()
	actions := happyActions()
	logger, _ := test.NewNullLogger()
	ctx := context.Background()
	before := mustStart(t, onboarding.NewService(actions, store, logger, clock()), "user-1")
	_, err := before.Advance(ctx, onboarding.StepHousehold, onboarding.StepData{HouseholdName: "Home"})
	require.NoError(t, err)
	_, err = before.Skip(ctx, onboarding.StepDefaults)
	require.NoError(t, err)

	restarted := onboarding.NewService(actions, store, logger, clock())
	f := mustStart(t, restarted, "user-1")

	assert.Equal(t, 2, f.CurrentStepIndex())
	assert.Equal(t, "hh-1", f.HouseholdID())
	assert.Same(t, f, mustStart(t, restarted, "user-1"))

	idx, err := f.Skip(ctx, onboarding.StepEmployee)
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	actions.AssertNumberOfCalls(t, "CreateHousehold", 1)
	p, err := store.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.CurrentStepIndex)
}

func TestService_Start_AfterRestart_CompletedStaysCompleted(t *testing.T) {
	store := memory.New()
	logger, _ := test.NewNullLogger()
	ctx := context.Background()
	before := mustStart(t, onboarding.NewService(happyActions(), store, logger, clock()), "user-1")
	walkToWelcome(t, before)
	require.NoError(t, before.Complete(ctx))

	actions := happyActions()
	restarted := onboarding.NewService(actions, store, logger, clock())
	f := mustStart(t, restarted, "user-1")

	assert.True(t, f.IsCompleted())
	_, _, err := restarted.StartWithInvitation(ctx, "user-1", "ABC123")
	assert.ErrorIs(t, err, onboarding.ErrAlreadyCompleted)
	actions.AssertNotCalled(t, "AcceptInvitationCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Start_StoreFailure(t *testing.T) {
	store := &mockStore{}
	store.On("GetProgress", mock.Anything, "user-1").Return(nil, errors.New("db unavailable"))
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(happyActions(), store, logger, clock())

	f, err := svc.Start(context.Background(), "user-1")

	require.Error(t, err)
	assert.Nil(t, f)
	_, _, err = svc.StartWithInvitation(context.Background(), "user-1", "ABC123")
	assert.Error(t, err)
}

func TestService_StartWithInvitation_AfterRestart_HouseholdExists(t *testing.T) {
	// GIVEN: An owner who created a household before a restart
	// WHEN: They try to join another household with a code
	// THEN: The request is refused and the code is left untouched

	store := memory.New()
	logger, _ := test.NewNullLogger()
	ctx := context.Background()
	before := mustStart(t, onboarding.NewService(happyActions(), store, logger, clock()), "user-1")
	_, err := before.Advance(ctx, onboarding.StepHousehold, onboarding.StepData{HouseholdName: "Home"})
	require.NoError(t, err)

	actions := happyActions()
	restarted := onboarding.NewService(actions, store, logger, clock())
	_, _, err = restarted.StartWithInvitation(ctx, "user-1", "ABC123")

	assert.ErrorIs(t, err, onboarding.ErrHouseholdExists)
	actions.AssertNotCalled(t, "AcceptInvitationCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_StartWithInvitation_ConcurrentCodesJoinOnce(t *testing.T) {
	// GIVEN: Two valid codes for different households
	// WHEN: The same user redeems both at once
	// THEN: Exactly one is redeemed; the other call sees the joined household

	actions := &mockActions{}
	actions.On("AcceptInvitationCode", mock.Anything, "AAA111", "user-2").
		Return(household.InvitationResult{Success: true, HouseholdID: "hh-a"}, nil).Maybe()
	actions.On("AcceptInvitationCode", mock.Anything, "BBB222", "user-2").
		Return(household.InvitationResult{Success: true, HouseholdID: "hh-b"}, nil).Maybe()
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(actions, memory.New(), logger, clock())

	codes := []string{"AAA111", "BBB222"}
	errs := make([]error, len(codes))
	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = svc.StartWithInvitation(context.Background(), "user-2", code)
		}()
	}
	wg.Wait()

	joined, refused := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, onboarding.ErrHouseholdExists):
			refused++
		}
	}
	assert.Equal(t, 1, joined)
	assert.Equal(t, 1, refused)
	actions.AssertNumberOfCalls(t, "AcceptInvitationCode", 1)

	state, err := svc.State(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Contains(t, []string{"hh-a", "hh-b"}, state.HouseholdID)
	assert.Equal(t, 1, state.Progress.CurrentStepIndex)
}

func TestService_StartWithInvitation_SkipsHouseholdStep(t *testing.T) {
	// GIVEN: Invitation code ABC123 resolves to household hh-9
	// WHEN: Starting onboarding with the code
	// THEN: step-household is completed, the flow starts at index 1 and no
	//       household is created

	actions := &mockActions{}
	actions.On("AcceptInvitationCode", mock.Anything, "ABC123", "user-2").
		Return(household.InvitationResult{Success: true, HouseholdID: "hh-9"}, nil).Once()
	store := memory.New()
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(actions, store, logger, clock())
	ctx := context.Background()

	f, res, err := svc.StartWithInvitation(ctx, "user-2", "ABC123")

	require.NoError(t, err)
	assert.True(t, res.Success)
	state := f.State()
	assert.Equal(t, 1, state.Progress.CurrentStepIndex)
	assert.Equal(t, []onboarding.StepStatus{completed, inProgress, pending, pending}, statuses(state.Steps))
	assert.Equal(t, "hh-9", state.HouseholdID)
	actions.AssertNotCalled(t, "CreateHousehold", mock.Anything, mock.Anything, mock.Anything)

	p, err := store.GetProgress(ctx, "user-2")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.CurrentStepIndex)
	d, err := store.GetStepData(ctx, "user-2", 0)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "hh-9", d.HouseholdID)
	assert.True(t, d.Joined)
}

func TestService_StartWithInvitation_RejectedCodeStartsNormally(t *testing.T) {
	actions := &mockActions{}
	actions.On("AcceptInvitationCode", mock.Anything, "ZZZ999", "user-2").
		Return(household.InvitationResult{Error: "This invitation code has expired."}, nil)
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(actions, memory.New(), logger, clock())

	f, res, err := svc.StartWithInvitation(context.Background(), "user-2", "ZZZ999")

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 0, f.CurrentStepIndex())
	assert.Empty(t, f.HouseholdID())
}

func TestService_StartWithInvitation_LookupFailure(t *testing.T) {
	actions := &mockActions{}
	actions.On("AcceptInvitationCode", mock.Anything, "ABC123", "user-2").
		Return(household.InvitationResult{}, errors.New("db unavailable"))
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(actions, memory.New(), logger, clock())

	f, _, err := svc.StartWithInvitation(context.Background(), "user-2", "ABC123")

	require.Error(t, err)
	assert.Equal(t, 0, f.CurrentStepIndex())
}

func TestService_StartWithInvitation_HouseholdAlreadyCreated(t *testing.T) {
	actions := happyActions()
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(actions, memory.New(), logger, clock())
	ctx := context.Background()
	f := mustStart(t, svc, "user-1")
	_, err := f.Advance(ctx, onboarding.StepHousehold, onboarding.StepData{HouseholdName: "Home"})
	require.NoError(t, err)

	_, _, err = svc.StartWithInvitation(ctx, "user-1", "ABC123")

	assert.ErrorIs(t, err, onboarding.ErrHouseholdExists)
	assert.True(t, onboarding.IsConflict(err))
	actions.AssertNotCalled(t, "AcceptInvitationCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_JoinPersistFailure_FlushedOnNextTransition(t *testing.T) {
	// GIVEN: Saving the joined household fails
	// WHEN: The user advances the defaults step
	// THEN: The pending join write is saved first, then the transition

	actions := happyActions()
	actions.On("AcceptInvitationCode", mock.Anything, "ABC123", "user-2").
		Return(household.InvitationResult{Success: true, HouseholdID: "hh-9"}, nil)
	store := &mockStore{}
	store.On("GetProgress", mock.Anything, "user-2").Return(nil, nil)
	store.On("SaveProgress", mock.Anything, mock.Anything).Return(errors.New("offline")).Once()
	store.On("SaveProgress", mock.Anything, mock.MatchedBy(func(w onboarding.ProgressWrite) bool {
		return w.StepIndex == 0 && w.Data.Joined
	})).Return(nil).Once()
	store.On("SaveProgress", mock.Anything, mock.MatchedBy(func(w onboarding.ProgressWrite) bool {
		return w.StepIndex == 1 && w.CurrentStepIndex == 2
	})).Return(nil).Once()
	logger, hook := test.NewNullLogger()
	svc := onboarding.NewService(actions, store, logger, clock())
	ctx := context.Background()

	f, res, err := svc.StartWithInvitation(ctx, "user-2", "ABC123")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, f.CurrentStepIndex())
	assert.NotEmpty(t, hook.AllEntries())

	idx, err := f.Advance(ctx, onboarding.StepDefaults, onboarding.StepData{})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	store.AssertExpectations(t)
	actions.AssertCalled(t, "ApplyDefaults", mock.Anything, "hh-9", mock.Anything, mock.Anything)
}

func TestService_Resume(t *testing.T) {
	// GIVEN: A user who got to step 2 in an earlier session
	// WHEN: A new service (fresh process) resumes them
	// THEN: The flow comes back at step 2 with its step data

	store := memory.New()
	logger, _ := test.NewNullLogger()
	ctx := context.Background()

	first := onboarding.NewService(happyActions(), store, logger, clock())
	f := mustStart(t, first, "user-1")
	_, err := f.Advance(ctx, onboarding.StepHousehold, onboarding.StepData{HouseholdName: "Home"})
	require.NoError(t, err)
	_, err = f.Skip(ctx, onboarding.StepDefaults)
	require.NoError(t, err)
	f.AutoSave(ctx, onboarding.StepData{Employee: &onboarding.EmployeeData{Name: "Mar"}})

	second := onboarding.NewService(happyActions(), store, logger, clock())
	resumed, err := second.Resume(ctx, "user-1")

	require.NoError(t, err)
	state := resumed.State()
	assert.Equal(t, 2, state.Progress.CurrentStepIndex)
	assert.Equal(t, []onboarding.StepStatus{completed, completed, inProgress, pending}, statuses(state.Steps))
	assert.Equal(t, "hh-1", state.HouseholdID)
	require.NotNil(t, state.StepData[2].Employee)
	assert.Equal(t, "Mar", state.StepData[2].Employee.Name)
	assert.True(t, state.StepData[2].Draft)
}

func TestService_Resume_NothingSaved(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(happyActions(), memory.New(), logger, clock())

	_, err := svc.Resume(context.Background(), "nobody")

	assert.ErrorIs(t, err, onboarding.ErrNoFlow)
	_, err = svc.State(context.Background(), "nobody")
	assert.ErrorIs(t, err, onboarding.ErrNoFlow)
}

func TestService_Forget_ReloadsFromStore(t *testing.T) {
	store := memory.New()
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(happyActions(), store, logger, clock())
	ctx := context.Background()
	f := mustStart(t, svc, "user-1")
	_, err := f.Advance(ctx, onboarding.StepHousehold, onboarding.StepData{HouseholdName: "Home"})
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))
	svc.Forget()

	_, err = svc.State(ctx, "user-1")
	assert.ErrorIs(t, err, onboarding.ErrNoFlow)
}

func TestService_Handle(t *testing.T) {
	logger, _ := test.NewNullLogger()
	svc := onboarding.NewService(happyActions(), memory.New(), logger, clock())
	ctx := context.Background()
	mustStart(t, svc, "user-1")

	state, err := svc.Handle(ctx, "user-1", onboarding.Advance{
		StepID: onboarding.StepHousehold,
		Data:   onboarding.StepData{HouseholdName: "Home"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Progress.CurrentStepIndex)

	state, err = svc.Handle(ctx, "user-1", onboarding.Skip{StepID: onboarding.StepHousehold})
	assert.ErrorIs(t, err, onboarding.ErrStepMismatch)
	assert.Equal(t, 1, state.Progress.CurrentStepIndex)
}
