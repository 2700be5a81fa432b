// Package memory provides an in-memory implementation of every storage
// interface, for tests and throwaway demo servers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/homestaff/household-engine/household"
	"github.com/homestaff/household-engine/onboarding"
	"github.com/homestaff/household-engine/policy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	households  map[string]household.Household
	employees   map[string][]household.Employee
	invitations map[string]household.Invitation
	rules       []policy.HolidayRule
	attendance  map[string]policy.AttendanceSettings
	progress    map[string]onboarding.Progress
	stepData    map[stepKey]onboarding.StepData
}

type stepKey struct {
	UserID    string
	StepIndex int
}

func New() *Memory {
	m := &Memory{}
	m.resetLocked()
	return m
}

// Reset drops all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

func (m *Memory) resetLocked() {
	m.households = make(map[string]household.Household)
	m.employees = make(map[string][]household.Employee)
	m.invitations = make(map[string]household.Invitation)
	m.rules = nil
	m.attendance = make(map[string]policy.AttendanceSettings)
	m.progress = make(map[string]onboarding.Progress)
	m.stepData = make(map[stepKey]onboarding.StepData)
}

func (m *Memory) Ping(_ context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// =============================================================================
// HOUSEHOLDS
// =============================================================================

func (m *Memory) CreateHousehold(_ context.Context, h household.Household) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.households {
		if existing.OwnerID == h.OwnerID && existing.Name == h.Name {
			return household.ErrDuplicateHousehold
		}
	}
	m.households[h.ID] = h
	return nil
}

func (m *Memory) GetHousehold(_ context.Context, id string) (*household.Household, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.households[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *Memory) ListHouseholds(_ context.Context, ownerID string) ([]household.Household, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []household.Household{}
	for _, h := range m.households {
		if h.OwnerID == ownerID {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (m *Memory) RenameHousehold(_ context.Context, id, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.households[id]
	if !ok {
		return household.ErrHouseholdNotFound
	}
	for otherID, other := range m.households {
		if otherID != id && other.OwnerID == h.OwnerID && other.Name == name {
			return household.ErrDuplicateHousehold
		}
	}
	h.Name = name
	h.UpdatedAt = at
	m.households[id] = h
	return nil
}

func (m *Memory) CreateEmployee(_ context.Context, e household.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.HouseholdID] = append(m.employees[e.HouseholdID], e)
	return nil
}

func (m *Memory) UpdateEmployee(_ context.Context, e household.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.employees[e.HouseholdID] {
		if existing.ID == e.ID {
			m.employees[e.HouseholdID][i] = e
			return nil
		}
	}
	return household.ErrEmployeeNotFound
}

func (m *Memory) ListEmployees(_ context.Context, householdID string) ([]household.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]household.Employee, len(m.employees[householdID]))
	copy(result, m.employees[householdID])
	return result, nil
}

func (m *Memory) CreateInvitation(_ context.Context, inv household.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.invitations[inv.Code]; ok {
		return household.ErrDuplicateInvitationCode
	}
	m.invitations[inv.Code] = inv
	return nil
}

func (m *Memory) GetInvitation(_ context.Context, code string) (*household.Invitation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invitations[code]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *Memory) MarkInvitationAccepted(_ context.Context, code, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[code]
	if !ok || inv.Status != household.InvitationPending {
		return household.ErrInvitationUsed
	}
	inv.Status = household.InvitationAccepted
	inv.AcceptedBy = userID
	inv.AcceptedAt = &at
	m.invitations[code] = inv
	return nil
}

func (m *Memory) ExpireInvitations(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for code, inv := range m.invitations {
		if inv.Status == household.InvitationPending && !now.Before(inv.ExpiresAt) {
			inv.Status = household.InvitationExpired
			m.invitations[code] = inv
			n++
		}
	}
	return n, nil
}

// =============================================================================
// POLICY
// =============================================================================

func (m *Memory) UpsertPresetHolidayRule(_ context.Context, rule policy.HolidayRule) (*policy.HolidayRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule.Source = policy.SourcePreset
	for i, existing := range m.rules {
		if existing.HouseholdID == rule.HouseholdID && existing.Source == policy.SourcePreset {
			rule.ID = existing.ID
			rule.CreatedAt = existing.CreatedAt
			m.rules[i] = rule
			return &rule, nil
		}
	}
	m.rules = append(m.rules, rule)
	return &rule, nil
}

func (m *Memory) InsertHolidayRule(_ context.Context, rule policy.HolidayRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
	return nil
}

func (m *Memory) ListHolidayRules(_ context.Context, householdID string) ([]policy.HolidayRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []policy.HolidayRule
	for _, r := range m.rules {
		if r.HouseholdID == householdID {
			result = append(result, r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		pi, pj := result[i].Source == policy.SourcePreset, result[j].Source == policy.SourcePreset
		if pi != pj {
			return pi
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) GetHolidayRule(_ context.Context, id string) (*policy.HolidayRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		if r.ID == id {
			rule := r
			return &rule, nil
		}
	}
	return nil, nil
}

func (m *Memory) UpsertAttendanceSettings(_ context.Context, s policy.AttendanceSettings) (*policy.AttendanceSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.attendance[s.HouseholdID]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	}
	m.attendance[s.HouseholdID] = s
	return &s, nil
}

func (m *Memory) GetAttendanceSettings(_ context.Context, householdID string) (*policy.AttendanceSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.attendance[householdID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// =============================================================================
// ONBOARDING PROGRESS
// =============================================================================

func (m *Memory) GetProgress(_ context.Context, userID string) (*onboarding.Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.progress[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) GetStepData(_ context.Context, userID string, stepIndex int) (*onboarding.StepData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.stepData[stepKey{UserID: userID, StepIndex: stepIndex}]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *Memory) SaveProgress(_ context.Context, w onboarding.ProgressWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.progress[w.UserID]
	switch {
	case w.Draft && exists && (p.IsCompleted || p.CurrentStepIndex != w.StepIndex):
		return nil
	case w.Draft && !exists:
		p = onboarding.Progress{CurrentStepIndex: w.StepIndex, TotalSteps: w.TotalSteps}
	case !w.Draft:
		p.CurrentStepIndex = w.CurrentStepIndex
		p.TotalSteps = w.TotalSteps
	}
	p.LastSavedAt = w.SavedAt
	m.progress[w.UserID] = p
	m.stepData[stepKey{UserID: w.UserID, StepIndex: w.StepIndex}] = w.Data
	return nil
}

func (m *Memory) CompleteOnboarding(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.progress[userID]
	p.CurrentStepIndex = onboarding.TotalSteps - 1
	p.TotalSteps = onboarding.TotalSteps
	p.IsCompleted = true
	p.LastSavedAt = at
	m.progress[userID] = p
	return nil
}
