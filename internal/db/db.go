// Package db records sensor sessions to SQLite: one row per session, one row
// per tick with the raw and filtered readings, the current breadcrumb trail
// and every pose correction applied.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/robot.sensors/internal/sensors"
	_ "modernc.org/sqlite"
)

// ErrUnknownSession is returned when a write refers to a session that was
// never started.
var ErrUnknownSession = errors.New("unknown session")

type DB struct {
	*sql.DB
}

// dsn enables foreign keys and a busy timeout on every pooled connection.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// OpenDB opens the database without touching the schema.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &DB{db}, nil
}

// NewDB opens the database and applies every pending migration.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SessionRecord is one recorded session.
type SessionRecord struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	CompassBaseline float64    `json:"compass_baseline"`
	Ticks           int        `json:"ticks"`
}

// TickRecord is one recorded tick. Breadcrumbs are stored separately.
type TickRecord struct {
	SessionID  string             `json:"session_id"`
	Raw        sensors.RawReading `json:"raw"`
	Filtered   sensors.Snapshot   `json:"filtered"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// StartSession inserts a session row.
func (db *DB) StartSession(id string, startedAt time.Time, compassBaseline float64) error {
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, started_at, compass_baseline) VALUES (?, ?, ?)`,
		id, startedAt.UnixNano(), compassBaseline,
	)
	if err != nil {
		return fmt.Errorf("start session %s: %w", id, err)
	}
	return nil
}

// EndSession stamps the end time of a session.
func (db *DB) EndSession(id string, endedAt time.Time) error {
	res, err := db.Exec(`UPDATE sessions SET ended_at = ? WHERE session_id = ?`, endedAt.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrUnknownSession)
	}
	return nil
}

// RecordTick stores the raw reading and filtered snapshot of one tick. A
// tick recorded twice for the same session replaces the earlier row.
func (db *DB) RecordTick(sessionID string, raw sensors.RawReading, filt sensors.Snapshot, at time.Time) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO ticks (
			session_id, tick, mode,
			raw_front, raw_left, raw_right, raw_ground, raw_compass,
			raw_x, raw_y, raw_theta, raw_battery,
			filt_front, filt_left, filt_right, filt_ground, filt_compass,
			filt_x, filt_y, filt_theta, filt_battery,
			beacon_visible, beacon_direction, at_beacon_area, direction_to_start,
			recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, raw.Tick, raw.Mode.String(),
		raw.Obstacles.Front, raw.Obstacles.Left, raw.Obstacles.Right, raw.Ground, raw.Compass,
		raw.Pose.X, raw.Pose.Y, raw.Pose.Theta, raw.BatteryVoltage,
		filt.Obstacles.Front, filt.Obstacles.Left, filt.Obstacles.Right, filt.Ground, filt.Compass,
		filt.Pose.X, filt.Pose.Y, filt.Pose.Theta, filt.BatteryVoltage,
		filt.Beacon.Visible, filt.Beacon.RelativeDirection, filt.AtBeaconArea, filt.DirectionToStart,
		at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record tick %d: %w", raw.Tick, err)
	}
	return nil
}

// RecentTicks returns up to limit of the newest ticks of a session, oldest
// first.
func (db *DB) RecentTicks(sessionID string, limit int) ([]TickRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := db.Query(`
		SELECT tick, mode,
			raw_front, raw_left, raw_right, raw_ground, raw_compass,
			raw_x, raw_y, raw_theta, raw_battery,
			filt_front, filt_left, filt_right, filt_ground, filt_compass,
			filt_x, filt_y, filt_theta, filt_battery,
			beacon_visible, beacon_direction, at_beacon_area, direction_to_start,
			recorded_at
		FROM (
			SELECT * FROM ticks WHERE session_id = ? ORDER BY tick DESC LIMIT ?
		) ORDER BY tick ASC`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TickRecord
	for rows.Next() {
		var (
			rec        TickRecord
			mode       string
			recordedAt int64
		)
		r, f := &rec.Raw, &rec.Filtered
		if err := rows.Scan(
			&r.Tick, &mode,
			&r.Obstacles.Front, &r.Obstacles.Left, &r.Obstacles.Right, &r.Ground, &r.Compass,
			&r.Pose.X, &r.Pose.Y, &r.Pose.Theta, &r.BatteryVoltage,
			&f.Obstacles.Front, &f.Obstacles.Left, &f.Obstacles.Right, &f.Ground, &f.Compass,
			&f.Pose.X, &f.Pose.Y, &f.Pose.Theta, &f.BatteryVoltage,
			&f.Beacon.Visible, &f.Beacon.RelativeDirection, &f.AtBeaconArea, &f.DirectionToStart,
			&recordedAt,
		); err != nil {
			return nil, err
		}
		if m, err := sensors.ParseMode(mode); err == nil {
			r.Mode = m
		}
		f.Tick = r.Tick
		r.Beacon = f.Beacon
		r.AtBeaconArea = f.AtBeaconArea
		r.DirectionToStart = f.DirectionToStart
		rec.SessionID = sessionID
		rec.RecordedAt = time.Unix(0, recordedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ReplaceBreadcrumbs overwrites the stored trail of a session.
func (db *DB) ReplaceBreadcrumbs(sessionID string, poses []sensors.Pose) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM breadcrumbs WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear breadcrumbs: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO breadcrumbs (session_id, idx, x, y, theta) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, p := range poses {
		if _, err := stmt.Exec(sessionID, i, p.X, p.Y, p.Theta); err != nil {
			return fmt.Errorf("insert breadcrumb %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Breadcrumbs returns the stored trail of a session in sample order.
func (db *DB) Breadcrumbs(sessionID string) ([]sensors.Pose, error) {
	rows, err := db.Query(`SELECT x, y, theta FROM breadcrumbs WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sensors.Pose
	for rows.Next() {
		var p sensors.Pose
		if err := rows.Scan(&p.X, &p.Y, &p.Theta); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecordCorrection stores one applied pose correction.
func (db *DB) RecordCorrection(sessionID string, c sensors.Correction, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO corrections (
			session_id, tick, source, dx, dy, dtheta,
			offset_x, offset_y, offset_theta, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, c.Tick, c.Source, c.Delta.DX, c.Delta.DY, c.Delta.DTheta,
		c.Offset.DX, c.Offset.DY, c.Offset.DTheta, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record correction: %w", err)
	}
	return nil
}

// Corrections returns the corrections of a session in the order applied.
func (db *DB) Corrections(sessionID string) ([]sensors.Correction, error) {
	rows, err := db.Query(`
		SELECT tick, source, dx, dy, dtheta, offset_x, offset_y, offset_theta
		FROM corrections WHERE session_id = ? ORDER BY correction_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sensors.Correction
	for rows.Next() {
		var c sensors.Correction
		if err := rows.Scan(
			&c.Tick, &c.Source, &c.Delta.DX, &c.Delta.DY, &c.Delta.DTheta,
			&c.Offset.DX, &c.Offset.DY, &c.Offset.DTheta,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Sessions lists every recorded session, newest first.
func (db *DB) Sessions() ([]SessionRecord, error) {
	rows, err := db.Query(`
		SELECT s.session_id, s.started_at, s.ended_at, s.compass_baseline,
			(SELECT COUNT(*) FROM ticks t WHERE t.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			rec       SessionRecord
			startedAt int64
			endedAt   sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &startedAt, &endedAt, &rec.CompassBaseline, &rec.Ticks); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(0, startedAt)
		if endedAt.Valid {
			t := time.Unix(0, endedAt.Int64)
			rec.EndedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
