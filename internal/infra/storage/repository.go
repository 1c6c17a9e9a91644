package storage

import (
	"context"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

// EscalationEventRepository handles the append-only escalation history.
// Implementations must be safe for concurrent use.
type EscalationEventRepository interface {
	// Append records one escalation event
	Append(ctx context.Context, event *domain.Event) error

	// Recent returns up to limit events, most-recent-first
	Recent(ctx context.Context, limit int) ([]*domain.Event, error)

	// Since returns all events recorded at or after cutoff, most-recent-first
	Since(ctx context.Context, cutoff time.Time) ([]*domain.Event, error)

	// CountSince counts events at or after cutoff with level >= min
	CountSince(ctx context.Context, cutoff time.Time, min domain.Level) (int, error)

	// Clear drops the recorded history
	Clear(ctx context.Context) error
}
