// ABOUTME: SQLite-backed session history
// ABOUTME: One row per session with preset, mode, timing, cue counts and outcome
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/resonance-audio/resonance/internal/affirm"
	"github.com/resonance-audio/resonance/internal/session"
)

// Record is one finished or running session
type Record struct {
	ID         string
	Preset     string
	Mode       string
	OutPath    string
	StartedAt  time.Time
	EndedAt    time.Time // zero while running
	Audio      time.Duration
	Frames     int64
	CuesPlayed int64
	CuesMissed int64
	Outcome    string
	Error      string
}

// Store wraps the history database
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Open creates or opens the history database at path
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    preset TEXT NOT NULL,
    mode TEXT NOT NULL,
    out_path TEXT,
    started_ns INTEGER NOT NULL,
    ended_ns INTEGER,
    audio_ms INTEGER NOT NULL DEFAULT 0,
    frames INTEGER NOT NULL DEFAULT 0,
    cues_played INTEGER NOT NULL DEFAULT 0,
    cues_missed INTEGER NOT NULL DEFAULT 0,
    outcome TEXT NOT NULL,
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_ns);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records a session as running
func (s *Store) Begin(ctx context.Context, st session.Status) error {
	started := st.Started
	if started.IsZero() {
		started = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, preset, mode, out_path, started_ns, outcome)
		 VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET started_ns=excluded.started_ns, outcome=excluded.outcome`,
		st.ID, st.Preset, string(st.Mode), st.OutPath, started.UnixNano(), string(session.OutcomePending))
	if err != nil {
		return fmt.Errorf("record session start: %w", err)
	}
	return nil
}

// Finish records how a session ended
func (s *Store) Finish(ctx context.Context, st session.Status, runErr error) error {
	ended := st.Ended
	if ended.IsZero() {
		ended = s.clock()
	}
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_ns=?, audio_ms=?, frames=?, cues_played=?, cues_missed=?, outcome=?, error=?
		 WHERE session_id=?`,
		ended.UnixNano(), st.Elapsed.Milliseconds(), st.Position, st.Cues.Played, st.Cues.Missed,
		string(st.Outcome), errText, st.ID)
	if err != nil {
		return fmt.Errorf("record session end: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s was never started", st.ID)
	}
	return nil
}

// Recent returns up to limit sessions, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, preset, mode, COALESCE(out_path, ''), started_ns, COALESCE(ended_ns, 0),
		        audio_ms, frames, cues_played, cues_missed, outcome, COALESCE(error, '')
		 FROM sessions ORDER BY started_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r                  Record
			startedNS, endedNS int64
			audioMS            int64
		)
		if err := rows.Scan(&r.ID, &r.Preset, &r.Mode, &r.OutPath, &startedNS, &endedNS,
			&audioMS, &r.Frames, &r.CuesPlayed, &r.CuesMissed, &r.Outcome, &r.Error); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		r.StartedAt = time.Unix(0, startedNS)
		if endedNS != 0 {
			r.EndedAt = time.Unix(0, endedNS)
		}
		r.Audio = time.Duration(audioMS) * time.Millisecond
		records = append(records, r)
	}
	return records, rows.Err()
}

// Started implements session.Hooks
func (s *Store) Started(st session.Status) {
	if err := s.Begin(context.Background(), st); err != nil {
		log.Printf("History: %v", err)
	}
}

// Cue implements session.Hooks
func (s *Store) Cue(session.Status, affirm.Cue) {}

// Stopped implements session.Hooks
func (s *Store) Stopped(st session.Status, err error) {
	if ferr := s.Finish(context.Background(), st, err); ferr != nil {
		log.Printf("History: %v", ferr)
	}
}
