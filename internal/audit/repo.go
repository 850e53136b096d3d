// Package audit persists per-face recognition decisions to Postgres for
// reporting. The trail is advisory; the file-backed ledger stays the
// source of truth for attendance.
package audit

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event is one recognition decision for one face.
type Event struct {
	ID         string    `json:"id"`
	StudentID  *string   `json:"student_id"`
	Recognized bool      `json:"recognized"`
	IsLive     bool      `json:"is_live"`
	Confidence float64   `json:"confidence"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists recognition events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertEvent writes a new event.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO recognition_events (id, student_id, recognized, is_live, confidence, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, evt.ID, evt.StudentID, evt.Recognized, evt.IsLive, evt.Confidence, evt.OccurredAt)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// ListEvents returns recent events, optionally filtered by student.
func (r *Repository) ListEvents(ctx context.Context, studentID string, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, student_id, recognized, is_live, confidence, occurred_at, created_at
		FROM recognition_events`
	args := []any{}
	if studentID != "" {
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	}
	query += ` ORDER BY occurred_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.StudentID, &evt.Recognized, &evt.IsLive, &evt.Confidence, &evt.OccurredAt, &evt.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

func itoa(i int) string { return strconv.Itoa(i) }
