package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

// EventRepo implements storage.EscalationEventRepository on PostgreSQL.
// It archives escalation events only; task state is never persisted.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new PostgreSQL escalation event repository.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Append(ctx context.Context, event *domain.Event) error {
	var metadata []byte
	if len(event.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode event metadata: %w", err)
		}
	}

	query := `
		INSERT INTO escalation_events (id, task_id, level, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.TaskID,
		int(event.Level),
		event.Message,
		metadata,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append escalation event: %w", err)
	}
	return nil
}

func (r *EventRepo) Recent(ctx context.Context, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, task_id, level, message, metadata, created_at
		FROM escalation_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

func (r *EventRepo) Since(ctx context.Context, cutoff time.Time) ([]*domain.Event, error) {
	query := `
		SELECT id, task_id, level, message, metadata, created_at
		FROM escalation_events
		WHERE created_at >= $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query events since %s: %w", cutoff, err)
	}
	defer func() { _ = rows.Close() }()
	return scanEvents(rows)
}

func (r *EventRepo) CountSince(
	ctx context.Context,
	cutoff time.Time,
	min domain.Level,
) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM escalation_events
		WHERE created_at >= $1 AND level >= $2
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, cutoff, int(min)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *EventRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM escalation_events`); err != nil {
		return fmt.Errorf("failed to clear escalation events: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]*domain.Event, error) {
	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		var level int
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.TaskID, &level, &e.Message, &metadata, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Level = domain.Level(level)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode event metadata: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
