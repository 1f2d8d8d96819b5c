// Package db persists tracking sessions and their readings to SQLite so
// recorded drives can be analysed and replayed later.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Kalpa111334/GPS-TUNNEL/internal/track"
)

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the SQLite database at path and brings
// the schema up to date.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Session is one recorded tracking run.
type Session struct {
	ID        string     `json:"id"`
	Preset    string     `json:"preset"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

// CreateSession inserts a new session row and returns it.
func (db *DB) CreateSession(preset string, startedAt time.Time) (Session, error) {
	s := Session{
		ID:        uuid.NewString(),
		Preset:    preset,
		StartedAt: startedAt.UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO sessions (id, preset, started_at_ms) VALUES (?, ?, ?)`,
		s.ID, s.Preset, s.StartedAt.UnixMilli(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// StopSession marks the session as finished.
func (db *DB) StopSession(id string, stoppedAt time.Time) error {
	res, err := db.Exec(
		`UPDATE sessions SET stopped_at_ms = ? WHERE id = ?`,
		stoppedAt.UTC().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("stop session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("stop session: no session %s", id)
	}
	return nil
}

// Sessions returns all sessions, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(
		`SELECT id, preset, started_at_ms, stopped_at_ms FROM sessions ORDER BY started_at_ms DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var startedMs int64
		var stoppedMs sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Preset, &startedMs, &stoppedMs); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.StartedAt = time.UnixMilli(startedMs).UTC()
		if stoppedMs.Valid {
			t := time.UnixMilli(stoppedMs.Int64).UTC()
			s.StoppedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReadingRow is one persisted reading: the raw sample plus what the engine
// made of it. Stable coordinates are nil for rejected readings.
type ReadingRow struct {
	SessionID       string
	TimestampMillis uint64
	RawLat          float64
	RawLng          float64
	StableLat       *float64
	StableLng       *float64
	AccuracyMeters  float64
	Confidence      *float64
	SignalQuality   track.SignalQuality
	Locked          bool
	Accepted        bool
	RejectReason    track.RejectReason
}

// RecordReading appends one reading to a session.
func (db *DB) RecordReading(row ReadingRow) error {
	_, err := db.Exec(`
		INSERT INTO readings (
			session_id, timestamp_ms, raw_lat, raw_lng, stable_lat, stable_lng,
			accuracy_m, confidence, signal_quality, locked, accepted, reject_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.SessionID, row.TimestampMillis, row.RawLat, row.RawLng,
		row.StableLat, row.StableLng, row.AccuracyMeters, row.Confidence,
		string(row.SignalQuality), row.Locked, row.Accepted, string(row.RejectReason),
	)
	if err != nil {
		return fmt.Errorf("record reading: %w", err)
	}
	return nil
}

// SessionReadings returns a session's readings in timestamp order.
func (db *DB) SessionReadings(sessionID string) ([]ReadingRow, error) {
	rows, err := db.Query(`
		SELECT session_id, timestamp_ms, raw_lat, raw_lng, stable_lat, stable_lng,
		       accuracy_m, confidence, signal_quality, locked, accepted, reject_reason
		FROM readings WHERE session_id = ? ORDER BY timestamp_ms`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("session readings: %w", err)
	}
	defer rows.Close()

	var out []ReadingRow
	for rows.Next() {
		var r ReadingRow
		var quality, reason string
		if err := rows.Scan(
			&r.SessionID, &r.TimestampMillis, &r.RawLat, &r.RawLng,
			&r.StableLat, &r.StableLng, &r.AccuracyMeters, &r.Confidence,
			&quality, &r.Locked, &r.Accepted, &reason,
		); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		r.SignalQuality = track.SignalQuality(quality)
		r.RejectReason = track.RejectReason(reason)
		out = append(out, r)
	}
	return out, rows.Err()
}
