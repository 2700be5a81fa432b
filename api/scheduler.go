/*
scheduler.go - Invitation expiry sweeper

PURPOSE:
  Periodically flips pending invitation codes past their expiry to
  expired, so household member listings and invitation screens show the
  real state. Acceptance checks expiry itself; the sweep is housekeeping.

DESIGN:
  - robfig/cron drives the job; Spec accepts standard 5-field expressions
    and descriptors such as "@every 1h" or "@daily"
  - Each run gets its own timeout context
  - Failures are logged and retried on the next tick

USAGE:
  sweeper := NewInvitationSweeper(households, log, "@every 1h")
  if err := sweeper.Start(); err != nil { ... }
  defer sweeper.Stop()

SEE ALSO:
  - household/service.go: ExpireInvitations
  - cmd/homestaff/main.go: lifecycle
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/homestaff/household-engine/internal/metrics"
)

// InvitationExpirer is the slice of the household service the sweeper runs.
type InvitationExpirer interface {
	ExpireInvitations(ctx context.Context) (int, error)
}

// InvitationSweeper expires stale invitation codes on a cron schedule.
type InvitationSweeper struct {
	Expirer    InvitationExpirer
	Log        logrus.FieldLogger
	Spec       string
	RunTimeout time.Duration

	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.Mutex
}

// NewInvitationSweeper creates a sweeper; it does nothing until Start.
func NewInvitationSweeper(expirer InvitationExpirer, log logrus.FieldLogger, spec string) *InvitationSweeper {
	return &InvitationSweeper{
		Expirer:    expirer,
		Log:        log.WithField("component", "invitation_sweeper"),
		Spec:       spec,
		RunTimeout: time.Minute,
	}
}

// Start schedules the job and starts the cron engine.
func (s *InvitationSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	id, err := c.AddFunc(s.Spec, func() { s.RunNow(context.Background()) })
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.Spec, err)
	}
	c.Start()

	s.cron = c
	s.entryID = id
	s.Log.WithField("spec", s.Spec).Info("invitation sweeper started")
	return nil
}

// Stop stops the engine and waits for a running sweep to finish.
func (s *InvitationSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.Log.Info("invitation sweeper stopped")
}

// RunNow performs one sweep and returns how many codes expired.
func (s *InvitationSweeper) RunNow(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.RunTimeout)
	defer cancel()

	n, err := s.Expirer.ExpireInvitations(ctx)
	if err != nil {
		s.Log.WithError(err).Error("invitation sweep failed")
		return 0
	}
	if n > 0 {
		metrics.InvitationsExpired.Add(float64(n))
		s.Log.WithField("expired", n).Info("expired stale invitations")
	}
	return n
}

// NextRun returns when the next sweep is scheduled, or zero if stopped.
func (s *InvitationSweeper) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}
