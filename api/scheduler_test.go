package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homestaff/household-engine/household"
)

type mockExpirer struct{ mock.Mock }

func (m *mockExpirer) ExpireInvitations(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestInvitationSweeper_RunNowExpiresStaleCodes(t *testing.T) {
	// GIVEN: A household with one stale and one fresh invitation
	// WHEN: The sweeper runs once
	// THEN: Only the stale code is expired

	handler := setupTestHandler(t)
	ctx := context.Background()
	hh, err := handler.Households.CreateHousehold(ctx, "owner-1", "Home")
	require.NoError(t, err)
	fresh, err := handler.Households.CreateInvitation(ctx, hh.ID, "")
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, handler.Store.CreateInvitation(ctx, household.Invitation{
		Code: "STALE1", HouseholdID: hh.ID, Status: household.InvitationPending,
		ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour),
	}))

	logger, _ := test.NewNullLogger()
	sweeper := NewInvitationSweeper(handler.Households, logger, "@every 1h")

	assert.Equal(t, 1, sweeper.RunNow(ctx))
	assert.Equal(t, 0, sweeper.RunNow(ctx))

	kept, err := handler.Store.GetInvitation(ctx, fresh.Code)
	require.NoError(t, err)
	assert.Equal(t, household.InvitationPending, kept.Status)
}

func TestInvitationSweeper_RunNowLogsFailure(t *testing.T) {
	expirer := &mockExpirer{}
	expirer.On("ExpireInvitations", mock.Anything).Return(0, errors.New("db down")).Once()
	logger, hook := test.NewNullLogger()
	sweeper := NewInvitationSweeper(expirer, logger, "@every 1h")

	n := sweeper.RunNow(context.Background())

	assert.Equal(t, 0, n)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "invitation sweep failed", hook.LastEntry().Message)
	expirer.AssertExpectations(t)
}

func TestInvitationSweeper_StartStop(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sweeper := NewInvitationSweeper(&mockExpirer{}, logger, "@every 1h")

	assert.True(t, sweeper.NextRun().IsZero())
	require.NoError(t, sweeper.Start())
	require.NoError(t, sweeper.Start())

	next := sweeper.NextRun()
	assert.False(t, next.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)

	sweeper.Stop()
	sweeper.Stop()
	assert.True(t, sweeper.NextRun().IsZero())
}

func TestInvitationSweeper_InvalidSpec(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sweeper := NewInvitationSweeper(&mockExpirer{}, logger, "every tuesday")

	err := sweeper.Start()

	assert.Error(t, err)
	assert.True(t, sweeper.NextRun().IsZero())
}
