// Package storage persists timeline events and per-tick metrics to SQLite.
// Writes are best-effort from the simulation's point of view; a failed insert
// is logged by the caller and the run continues.
package storage

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	tick       INTEGER NOT NULL,
	type       TEXT NOT NULL,
	actor_id   TEXT,
	target_id  TEXT,
	message    TEXT,
	meta       TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_session_tick ON events(session_id, tick);

CREATE TABLE IF NOT EXISTS metrics (
	session_id              TEXT NOT NULL,
	tick                    INTEGER NOT NULL,
	confusion               REAL,
	rumor_spread            REAL,
	official_reach          REAL,
	vulnerable_reach        REAL,
	panic_index             REAL,
	trust_index             REAL,
	misinfo_belief          REAL,
	resource_misallocation  REAL,
	stability_score         REAL,
	created_at              TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (session_id, tick)
);
`

// EventRow is one timeline event as stored.
type EventRow struct {
	ID        string `db:"id"`
	SessionID string `db:"session_id"`
	Tick      int64  `db:"tick"`
	Type      string `db:"type"`
	ActorID   string `db:"actor_id"`
	TargetID  string `db:"target_id"`
	Message   string `db:"message"`
	Meta      string `db:"meta"`
}

// MetricsRow is one tick's indicator snapshot as stored.
type MetricsRow struct {
	SessionID             string  `db:"session_id"`
	Tick                  int64   `db:"tick"`
	Confusion             float64 `db:"confusion"`
	RumorSpread           float64 `db:"rumor_spread"`
	OfficialReach         float64 `db:"official_reach"`
	VulnerableReach       float64 `db:"vulnerable_reach"`
	PanicIndex            float64 `db:"panic_index"`
	TrustIndex            float64 `db:"trust_index"`
	MisinfoBelief         float64 `db:"misinfo_belief"`
	ResourceMisallocation float64 `db:"resource_misallocation"`
	StabilityScore        float64 `db:"stability_score"`
}

// Store wraps the SQLite handle.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database file, enables WAL and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; SQLite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// InsertEvent stores one timeline event.
func (s *Store) InsertEvent(row EventRow) error {
	_, err := s.db.NamedExec(`
		INSERT INTO events (id, session_id, tick, type, actor_id, target_id, message, meta)
		VALUES (:id, :session_id, :tick, :type, :actor_id, :target_id, :message, :meta)`,
		row)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// InsertMetrics stores one tick's indicator snapshot. Re-running a tick
// replaces the old row, which keeps restarts idempotent.
func (s *Store) InsertMetrics(row MetricsRow) error {
	_, err := s.db.NamedExec(`
		INSERT OR REPLACE INTO metrics (
			session_id, tick, confusion, rumor_spread, official_reach,
			vulnerable_reach, panic_index, trust_index,
			misinfo_belief, resource_misallocation, stability_score)
		VALUES (
			:session_id, :tick, :confusion, :rumor_spread, :official_reach,
			:vulnerable_reach, :panic_index, :trust_index,
			:misinfo_belief, :resource_misallocation, :stability_score)`,
		row)
	if err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}
	return nil
}

// EventsForSession returns a session's events ordered by tick, for debugging
// and post-run analysis.
func (s *Store) EventsForSession(sessionID string, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 500
	}
	var rows []EventRow
	err := s.db.Select(&rows, `
		SELECT id, session_id, tick, type, actor_id, target_id, message, meta
		FROM events WHERE session_id = ? ORDER BY tick ASC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	return rows, nil
}

// MetricsSeries returns a session's full indicator history ordered by tick.
func (s *Store) MetricsSeries(sessionID string) ([]MetricsRow, error) {
	var rows []MetricsRow
	err := s.db.Select(&rows, `
		SELECT session_id, tick, confusion, rumor_spread, official_reach,
		       vulnerable_reach, panic_index, trust_index,
		       misinfo_belief, resource_misallocation, stability_score
		FROM metrics WHERE session_id = ? ORDER BY tick ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("select metrics: %w", err)
	}
	return rows, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
