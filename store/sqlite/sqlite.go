/*
Package sqlite provides a SQLite-backed implementation of the
persistence collaborator.

PURPOSE:
  Implements engine.SnapshotStore (protocols, injections, settings)
  using SQLite. The engine consumes full-replace snapshots and
  recomputes from scratch, so the store's job is simple durable CRUD
  plus the exclusive-activation invariant.

KEY TABLES:
  protocols:   Dosing rules, soft-deleted via is_trashed
  injections:  Log events, soft-deleted via is_trashed
  settings:    Single-row visibility map + focus flag

EXCLUSIVE ACTIVATION:
  SetActiveProtocol flips is_active for the whole table inside one
  database transaction, so at most one non-trashed protocol is ever
  active regardless of interleaving.

DECIMALS:
  Interval and dose columns are stored as TEXT and parsed with
  shopspring/decimal to avoid floating-point drift.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency; sync.RWMutex guards multi-statement operations.

USAGE:
  store, err := sqlite.New("./data/doses.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/dose-engine/engine"
)

// Store implements engine.SnapshotStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ engine.SnapshotStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS protocols (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		interval_days TEXT NOT NULL,
		dose_ml TEXT NOT NULL,
		concentration_mg_per_ml TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 0,
		is_trashed INTEGER NOT NULL DEFAULT 0,
		theme_key TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS injections (
		id TEXT PRIMARY KEY,
		protocol_id TEXT NOT NULL,
		date TEXT NOT NULL,
		dose_ml TEXT NOT NULL,
		concentration_mg_per_ml TEXT NOT NULL,
		dose_mg TEXT NOT NULL,
		notes TEXT,
		is_trashed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_injections_protocol
		ON injections(protocol_id);
	CREATE INDEX IF NOT EXISTS idx_injections_date
		ON injections(date);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		visibility_json TEXT NOT NULL DEFAULT '{}',
		focus_active_only INTEGER NOT NULL DEFAULT 0
	);
	INSERT OR IGNORE INTO settings (id) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PROTOCOLS
// =============================================================================

func (s *Store) SaveProtocol(ctx context.Context, p engine.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	created := now
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC().Format(time.RFC3339)
	}

	var endDate any
	if p.EndDate != nil {
		endDate = engine.FormatDay(*p.EndDate)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO protocols
			(id, name, start_date, end_date, interval_days, dose_ml,
			 concentration_mg_per_ml, is_active, is_trashed, theme_key,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			interval_days = excluded.interval_days,
			dose_ml = excluded.dose_ml,
			concentration_mg_per_ml = excluded.concentration_mg_per_ml,
			is_active = excluded.is_active,
			is_trashed = excluded.is_trashed,
			theme_key = excluded.theme_key,
			updated_at = excluded.updated_at`,
		string(p.ID), p.Name, engine.FormatDay(p.StartDate), endDate,
		p.IntervalDays.String(), p.DoseMl.String(), p.ConcentrationMgPerMl.String(),
		boolToInt(p.IsActive), boolToInt(p.IsTrashed), p.ThemeKey,
		created, now)
	return err
}

func (s *Store) ListProtocols(ctx context.Context) ([]engine.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, interval_days, dose_ml,
		       concentration_mg_per_ml, is_active, is_trashed, theme_key,
		       created_at, updated_at
		FROM protocols ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var protocols []engine.Protocol
	for rows.Next() {
		p, err := scanProtocol(rows)
		if err != nil {
			return nil, err
		}
		protocols = append(protocols, p)
	}
	return protocols, rows.Err()
}

func (s *Store) GetProtocol(ctx context.Context, id engine.ProtocolID) (*engine.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, interval_days, dose_ml,
		       concentration_mg_per_ml, is_active, is_trashed, theme_key,
		       created_at, updated_at
		FROM protocols WHERE id = ?`, string(id))

	p, err := scanProtocol(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrProtocolNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetActiveProtocol activates one protocol and deactivates all others
// atomically.
func (s *Store) SetActiveProtocol(ctx context.Context, id engine.ProtocolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE protocols SET is_active = 1, updated_at = ? WHERE id = ? AND is_trashed = 0`,
		time.Now().UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return engine.ErrProtocolNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE protocols SET is_active = 0 WHERE id != ?`, string(id)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) TrashProtocol(ctx context.Context, id engine.ProtocolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE protocols SET is_trashed = 1, is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return engine.ErrProtocolNotFound
	}
	return nil
}

// =============================================================================
// INJECTIONS
// =============================================================================

func (s *Store) SaveInjection(ctx context.Context, inj engine.Injection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	created := now
	if !inj.CreatedAt.IsZero() {
		created = inj.CreatedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO injections
			(id, protocol_id, date, dose_ml, concentration_mg_per_ml,
			 dose_mg, notes, is_trashed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			protocol_id = excluded.protocol_id,
			date = excluded.date,
			dose_ml = excluded.dose_ml,
			concentration_mg_per_ml = excluded.concentration_mg_per_ml,
			dose_mg = excluded.dose_mg,
			notes = excluded.notes,
			is_trashed = excluded.is_trashed,
			updated_at = excluded.updated_at`,
		string(inj.ID), string(inj.ProtocolID), engine.FormatDay(inj.Date),
		inj.DoseMl.String(), inj.ConcentrationMgPerMl.String(), inj.DoseMg.String(),
		inj.Notes, boolToInt(inj.IsTrashed), created, now)
	return err
}

func (s *Store) ListInjections(ctx context.Context) ([]engine.Injection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, protocol_id, date, dose_ml, concentration_mg_per_ml,
		       dose_mg, notes, is_trashed, created_at, updated_at
		FROM injections ORDER BY date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var injections []engine.Injection
	for rows.Next() {
		inj, err := scanInjection(rows)
		if err != nil {
			return nil, err
		}
		injections = append(injections, inj)
	}
	return injections, rows.Err()
}

func (s *Store) GetInjection(ctx context.Context, id engine.InjectionID) (*engine.Injection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, protocol_id, date, dose_ml, concentration_mg_per_ml,
		       dose_mg, notes, is_trashed, created_at, updated_at
		FROM injections WHERE id = ?`, string(id))

	inj, err := scanInjection(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrInjectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inj, nil
}

func (s *Store) TrashInjection(ctx context.Context, id engine.InjectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE injections SET is_trashed = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return engine.ErrInjectionNotFound
	}
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSettings(ctx context.Context) (engine.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var visibilityJSON string
	var focus int
	err := s.db.QueryRowContext(ctx,
		`SELECT visibility_json, focus_active_only FROM settings WHERE id = 1`).
		Scan(&visibilityJSON, &focus)
	if err != nil {
		return engine.Settings{}, err
	}

	settings := engine.Settings{
		Visibility:      engine.VisibilityMap{},
		FocusActiveOnly: focus != 0,
	}
	if err := json.Unmarshal([]byte(visibilityJSON), &settings.Visibility); err != nil {
		return engine.Settings{}, fmt.Errorf("corrupt visibility map: %w", err)
	}
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings engine.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.Visibility == nil {
		settings.Visibility = engine.VisibilityMap{}
	}
	visibilityJSON, err := json.Marshal(settings.Visibility)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE settings SET visibility_json = ?, focus_active_only = ? WHERE id = 1`,
		string(visibilityJSON), boolToInt(settings.FocusActiveOnly))
	return err
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset drops all records. Used by the demo scenario loader.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM injections;
		DELETE FROM protocols;
		UPDATE settings SET visibility_json = '{}', focus_active_only = 0 WHERE id = 1;`)
	return err
}

// =============================================================================
// ROW SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProtocol(row rowScanner) (engine.Protocol, error) {
	var p engine.Protocol
	var id, startDate, intervalDays, doseMl, concentration, createdAt, updatedAt string
	var endDate, themeKey sql.NullString
	var isActive, isTrashed int

	err := row.Scan(&id, &p.Name, &startDate, &endDate, &intervalDays,
		&doseMl, &concentration, &isActive, &isTrashed, &themeKey,
		&createdAt, &updatedAt)
	if err != nil {
		return engine.Protocol{}, err
	}

	p.ID = engine.ProtocolID(id)
	if p.StartDate, err = engine.ParseDay(startDate); err != nil {
		return engine.Protocol{}, fmt.Errorf("corrupt start_date: %w", err)
	}
	if endDate.Valid {
		end, err := engine.ParseDay(endDate.String)
		if err != nil {
			return engine.Protocol{}, fmt.Errorf("corrupt end_date: %w", err)
		}
		p.EndDate = &end
	}
	if p.IntervalDays, err = decimal.NewFromString(intervalDays); err != nil {
		return engine.Protocol{}, fmt.Errorf("corrupt interval_days: %w", err)
	}
	if p.DoseMl, err = decimal.NewFromString(doseMl); err != nil {
		return engine.Protocol{}, fmt.Errorf("corrupt dose_ml: %w", err)
	}
	if p.ConcentrationMgPerMl, err = decimal.NewFromString(concentration); err != nil {
		return engine.Protocol{}, fmt.Errorf("corrupt concentration: %w", err)
	}
	p.IsActive = isActive != 0
	p.IsTrashed = isTrashed != 0
	p.ThemeKey = themeKey.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

func scanInjection(row rowScanner) (engine.Injection, error) {
	var inj engine.Injection
	var id, protocolID, date, doseMl, concentration, doseMg, createdAt, updatedAt string
	var notes sql.NullString
	var isTrashed int

	err := row.Scan(&id, &protocolID, &date, &doseMl, &concentration,
		&doseMg, &notes, &isTrashed, &createdAt, &updatedAt)
	if err != nil {
		return engine.Injection{}, err
	}

	inj.ID = engine.InjectionID(id)
	inj.ProtocolID = engine.ProtocolID(protocolID)
	if inj.Date, err = engine.ParseDay(date); err != nil {
		return engine.Injection{}, fmt.Errorf("corrupt date: %w", err)
	}
	if inj.DoseMl, err = decimal.NewFromString(doseMl); err != nil {
		return engine.Injection{}, fmt.Errorf("corrupt dose_ml: %w", err)
	}
	if inj.ConcentrationMgPerMl, err = decimal.NewFromString(concentration); err != nil {
		return engine.Injection{}, fmt.Errorf("corrupt concentration: %w", err)
	}
	if inj.DoseMg, err = decimal.NewFromString(doseMg); err != nil {
		return engine.Injection{}, fmt.Errorf("corrupt dose_mg: %w", err)
	}
	inj.Notes = notes.String
	inj.IsTrashed = isTrashed != 0
	inj.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	inj.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return inj, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
