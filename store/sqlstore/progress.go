package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/homestaff/household-engine/onboarding"
)

// =============================================================================
// ONBOARDING PROGRESS (onboarding.ProgressStore)
// =============================================================================

type progressRow struct {
	UserID           string `db:"user_id"`
	CurrentStepIndex int    `db:"current_step_index"`
	TotalSteps       int    `db:"total_steps"`
	IsCompleted      int    `db:"is_completed"`
	LastSavedAt      string `db:"last_saved_at"`
}

func (s *Store) GetProgress(ctx context.Context, userID string) (*onboarding.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var row progressRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT user_id, current_step_index, total_steps, is_completed, last_saved_at
		FROM onboarding_progress WHERE user_id = ?
	`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &onboarding.Progress{
		CurrentStepIndex: row.CurrentStepIndex,
		TotalSteps:       row.TotalSteps,
		IsCompleted:      row.IsCompleted != 0,
		LastSavedAt:      parseTime(row.LastSavedAt),
	}, nil
}

func (s *Store) GetStepData(ctx context.Context, userID string, stepIndex int) (*onboarding.StepData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.GetContext(ctx, &raw, s.q(`
		SELECT data_json FROM onboarding_step_data WHERE user_id = ? AND step_index = ?
	`), userID, stepIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data onboarding.StepData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("invalid step data for %s/%d: %w", userID, stepIndex, err)
	}
	return &data, nil
}

// SaveProgress writes the progress row and the step payload in one
// transaction. Draft writes only land while the row still points at the
// drafted step.
func (s *Store) SaveProgress(ctx context.Context, w onboarding.ProgressWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataJSON, err := json.Marshal(w.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal step data: %w", err)
	}
	savedAt := formatTime(w.SavedAt)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if w.Draft {
		ok, err := s.claimDraft(ctx, tx, w, savedAt)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	} else {
		// is_completed is owned by CompleteOnboarding.
		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO onboarding_progress (user_id, current_step_index, total_steps, is_completed, last_saved_at)
			VALUES (?, ?, ?, 0, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				current_step_index = excluded.current_step_index,
				total_steps = excluded.total_steps,
				last_saved_at = excluded.last_saved_at
		`), w.UserID, w.CurrentStepIndex, w.TotalSteps, savedAt)
		if err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO onboarding_step_data (user_id, step_index, data_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, step_index) DO UPDATE SET
			data_json = excluded.data_json,
			updated_at = excluded.updated_at
	`), w.UserID, w.StepIndex, string(dataJSON), savedAt)
	if err != nil {
		return fmt.Errorf("failed to save step data: %w", err)
	}

	return tx.Commit()
}

// claimDraft touches the progress row if it still sits on the drafted step,
// or creates it if the user has none. The UPDATE row-locks on PostgreSQL, so
// a concurrent transition waits for this transaction.
func (s *Store) claimDraft(ctx context.Context, tx *sqlx.Tx, w onboarding.ProgressWrite, savedAt string) (bool, error) {
	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE onboarding_progress SET last_saved_at = ?
		WHERE user_id = ? AND current_step_index = ? AND is_completed = 0
	`), savedAt, w.UserID, w.StepIndex)
	if err != nil {
		return false, fmt.Errorf("failed to save draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	res, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO onboarding_progress (user_id, current_step_index, total_steps, is_completed, last_saved_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT (user_id) DO NOTHING
	`), w.UserID, w.StepIndex, w.TotalSteps, savedAt)
	if err != nil {
		return false, fmt.Errorf("failed to save draft: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) CompleteOnboarding(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO onboarding_progress (user_id, current_step_index, total_steps, is_completed, last_saved_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			current_step_index = excluded.current_step_index,
			is_completed = 1,
			last_saved_at = excluded.last_saved_at
	`), userID, onboarding.TotalSteps-1, onboarding.TotalSteps, formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to complete onboarding: %w", err)
	}
	return nil
}
