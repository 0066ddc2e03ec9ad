package store

import (
	"database/sql"
	"math"
	"time"
)

// DefaultReadingLimit caps List when no limit is given.
const DefaultReadingLimit = 100

// Reading is one recorded gesture metric value.
type Reading struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Value      string    `json:"value"`
	Distance   *float64  `json:"distance"`
	Hand       int       `json:"hand"`
	Label      string    `json:"label"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ReadingRepository provides access to metric readings.
type ReadingRepository struct {
	db *sql.DB
}

// Readings returns the reading repository for this store.
func (s *Store) Readings() *ReadingRepository {
	return &ReadingRepository{db: s.db}
}

// Add records a reading. A non-finite distance is stored as NULL.
func (r *ReadingRepository) Add(sessionID, value string, distance float64, hand int, label string) (*Reading, error) {
	rd := &Reading{
		SessionID:  sessionID,
		Value:      value,
		Hand:       hand,
		Label:      label,
		RecordedAt: time.Now(),
	}

	var d sql.NullFloat64
	if !math.IsNaN(distance) && !math.IsInf(distance, 0) {
		d = sql.NullFloat64{Float64: distance, Valid: true}
		rd.Distance = &distance
	}

	res, err := r.db.Exec(
		`INSERT INTO readings (session_id, value, distance, hand, label, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rd.SessionID, rd.Value, d, rd.Hand, rd.Label, rd.RecordedAt,
	)
	if err != nil {
		return nil, err
	}
	if rd.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return rd, nil
}

// List returns up to limit readings, newest first. An empty sessionID lists
// across all sessions; a limit <= 0 uses DefaultReadingLimit.
func (r *ReadingRepository) List(sessionID string, limit int) ([]*Reading, error) {
	if limit <= 0 {
		limit = DefaultReadingLimit
	}

	query := `SELECT id, session_id, value, distance, hand, label, recorded_at FROM readings`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := []*Reading{}
	for rows.Next() {
		rd := &Reading{}
		var d sql.NullFloat64
		if err := rows.Scan(&rd.ID, &rd.SessionID, &rd.Value, &d, &rd.Hand, &rd.Label, &rd.RecordedAt); err != nil {
			return nil, err
		}
		if d.Valid {
			v := d.Float64
			rd.Distance = &v
		}
		readings = append(readings, rd)
	}
	return readings, rows.Err()
}

// Count returns the number of readings recorded for a session.
func (r *ReadingRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM readings WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
