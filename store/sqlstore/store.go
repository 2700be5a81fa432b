/*
Package sqlstore is the SQL implementation of the household, policy and
onboarding storage interfaces.

PURPOSE:
  One schema, two engines. SQLite (mattn/go-sqlite3) is the default for
  development, demos and tests; PostgreSQL (lib/pq) is what production
  runs. Queries are written with ? placeholders and rebound per driver by
  sqlx.

INTERFACES IMPLEMENTED:
  household.Store:          households, employees, invitations
  policy.Store:             holiday rules, attendance settings
  onboarding.ProgressStore: wizard progress and step payloads

PORTABILITY RULES:
  - Timestamps are TEXT in a fixed-width UTC layout, so string comparison
    orders them correctly on both engines.
  - Booleans are INTEGER 0/1.
  - Arrays (weekday lists) and step payloads are JSON text.
  - Upserts use INSERT .. ON CONFLICT .. DO UPDATE .. RETURNING, which
    both engines support.

KEY CONSTRAINTS:
  idx_households_owner_name:   a user cannot own two households of one name
  idx_holiday_rules_preset:    at most one preset rule per household
                               (partial unique index, source = 'preset')
  attendance_settings UNIQUE:  one settings row per household

CONCURRENCY:
  Uses sync.RWMutex like a single-writer SQLite requires. With PostgreSQL
  the upserts are atomic on their own; the mutex only serializes this
  process.

SEE ALSO:
  - households.go, policy.go, progress.go: the queries
  - store/memory: in-memory implementation of the same interfaces
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// timeLayout is fixed width so TEXT columns sort chronologically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// Store implements all storage interfaces on one database handle.
type Store struct {
	db     *sqlx.DB
	driver string
	mu     sync.RWMutex
}

// Open connects to the database and migrates the schema.
// driver is DriverSQLite or DriverPostgres; for SQLite, dsn is a file path
// or ":memory:".
func Open(driver, dsn string) (*Store, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = sqlx.Open("sqlite3", dsn+"?_foreign_keys=on&_journal_mode=WAL")
		if err == nil {
			// One connection: ":memory:" databases are per connection and
			// SQLite has a single writer anyway.
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		db, err = sqlx.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// OpenSQLite is Open(DriverSQLite, path).
func OpenSQLite(path string) (*Store, error) {
	return Open(DriverSQLite, path)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Driver() string {
	return s.driver
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema := `
	CREATE TABLE IF NOT EXISTS households (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_households_owner_name
		ON households(owner_id, name);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL REFERENCES households(id),
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		role TEXT NOT NULL,
		employment_type TEXT NOT NULL,
		start_date TEXT,
		salary TEXT,
		pay_frequency TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_household
		ON employees(household_id);

	CREATE TABLE IF NOT EXISTS invitations (
		code TEXT PRIMARY KEY,
		household_id TEXT NOT NULL REFERENCES households(id),
		email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		expires_at TEXT NOT NULL,
		accepted_by TEXT,
		accepted_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invitations_pending_expiry
		ON invitations(expires_at) WHERE status = 'pending';

	CREATE TABLE IF NOT EXISTS holiday_rules (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL REFERENCES households(id),
		source TEXT NOT NULL,
		preset_id TEXT NOT NULL DEFAULT '',
		rule_type TEXT NOT NULL,
		interval_value INTEGER NOT NULL,
		interval_unit TEXT NOT NULL,
		repeat_on_days_of_week TEXT NOT NULL DEFAULT '[]',
		repeat_on_day_of_month INTEGER,
		days_per_month INTEGER,
		ends_type TEXT NOT NULL,
		ends_date TEXT,
		ends_occurrences INTEGER,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- At most one preset rule per household; custom rules are additive.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holiday_rules_preset
		ON holiday_rules(household_id) WHERE source = 'preset';
	CREATE INDEX IF NOT EXISTS idx_holiday_rules_household
		ON holiday_rules(household_id, created_at);

	CREATE TABLE IF NOT EXISTS attendance_settings (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL UNIQUE REFERENCES households(id),
		tracking_method TEXT NOT NULL,
		preset_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS onboarding_progress (
		user_id TEXT PRIMARY KEY,
		current_step_index INTEGER NOT NULL,
		total_steps INTEGER NOT NULL,
		is_completed INTEGER NOT NULL DEFAULT 0,
		last_saved_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS onboarding_step_data (
		user_id TEXT NOT NULL,
		step_index INTEGER NOT NULL,
		data_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, step_index)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Reset deletes all rows. Used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"onboarding_step_data",
		"onboarding_progress",
		"attendance_settings",
		"holiday_rules",
		"invitations",
		"employees",
		"households",
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, v)
	}
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t := parseTime(v.String)
	return &t
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
