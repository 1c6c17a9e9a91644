// Package escalate classifies persistent task failures and performs the
// side effects appropriate to their severity.
package escalate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/notify"
	"github.com/vietddude/healer/internal/infra/storage"
	"github.com/vietddude/healer/internal/orchestrate/metrics"
)

// Config holds escalation thresholds.
type Config struct {
	// BaseThreshold is T in the classification thresholds.
	BaseThreshold int
	// HealthWindow is the look-back used by PerformHealthCheck.
	HealthWindow time.Duration
	// HealthThreshold is the number of Error-or-worse events tolerated
	// inside the window before a system-wide degradation is raised.
	HealthThreshold int
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	BaseThreshold:   5,
	HealthWindow:    15 * time.Minute,
	HealthThreshold: 10,
}

// Ladder records escalation events and routes them to the configured
// channels. It owns the event history and a per-task failure index used for
// health aggregation; it knows nothing about retries or queueing.
type Ladder struct {
	cfg    Config
	events storage.EscalationEventRepository

	// Delivery channels per severity. Any of these may be nil.
	ops     notify.Notifier // Error and above
	pager   notify.Notifier // Critical and above
	tickets notify.Notifier // HumanIntervention

	mu       sync.Mutex
	failures map[string]int

	now func() time.Time
}

// NewLadder creates a ladder writing events to the given repository.
func NewLadder(
	cfg Config,
	events storage.EscalationEventRepository,
	ops, pager, tickets notify.Notifier,
) *Ladder {
	if cfg.BaseThreshold <= 0 {
		cfg.BaseThreshold = DefaultConfig.BaseThreshold
	}
	if cfg.HealthWindow <= 0 {
		cfg.HealthWindow = DefaultConfig.HealthWindow
	}
	if cfg.HealthThreshold <= 0 {
		cfg.HealthThreshold = DefaultConfig.HealthThreshold
	}
	return &Ladder{
		cfg:      cfg,
		events:   events,
		ops:      ops,
		pager:    pager,
		tickets:  tickets,
		failures: make(map[string]int),
		now:      time.Now,
	}
}

// Classify maps a cumulative failure count onto the severity ladder. With
// base threshold T:
//
//	count == 0           -> Info
//	0 < count < T/2      -> Warning
//	T/2 <= count < T     -> Error
//	T <= count < 2T      -> Critical
//	count >= 2T          -> HumanIntervention
//
// The function is pure and monotonic non-decreasing in count.
func (l *Ladder) Classify(identity string, count int) domain.Level {
	t := l.cfg.BaseThreshold
	switch {
	case count <= 0:
		return domain.LevelInfo
	case 2*count < t:
		return domain.LevelWarning
	case count < t:
		return domain.LevelError
	case count < 2*t:
		return domain.LevelCritical
	default:
		return domain.LevelHumanIntervention
	}
}

// Escalate records an event at the given level and performs the
// level-specific side effects: Info and Warning log only; Error additionally
// notifies the operations channel; Critical additionally pages; Human
// Intervention additionally opens a tracking ticket. Side effects are
// best-effort and never propagate failures to the caller.
func (l *Ladder) Escalate(
	ctx context.Context,
	identity string,
	level domain.Level,
	message string,
	metadata map[string]string,
) {
	event := &domain.Event{
		ID:        uuid.NewString(),
		TaskID:    identity,
		Level:     level,
		Message:   message,
		Timestamp: l.now(),
		Metadata:  metadata,
	}

	l.logEvent(event)
	metrics.EscalationsTotal.WithLabelValues(level.String()).Inc()

	if level <= domain.LevelInfo {
		return
	}

	if err := l.events.Append(ctx, event); err != nil {
		slog.Error("failed to record escalation event", "event_id", event.ID, "error", err)
	}

	l.mu.Lock()
	l.failures[identity]++
	l.mu.Unlock()

	if level >= domain.LevelError {
		l.deliver(ctx, l.ops, event)
	}
	if level >= domain.LevelCritical {
		l.deliver(ctx, l.pager, event)
	}
	if level >= domain.LevelHumanIntervention {
		l.deliver(ctx, l.tickets, event)
	}
}

// PerformHealthCheck scans recent history for Error-or-worse events and
// raises a synthetic Warning-level escalation when the count exceeds the
// configured threshold. It is independent of any single task.
func (l *Ladder) PerformHealthCheck(ctx context.Context) {
	cutoff := l.now().Add(-l.cfg.HealthWindow)
	count, err := l.events.CountSince(ctx, cutoff, domain.LevelError)
	if err != nil {
		slog.Error("health check sweep failed", "error", err)
		return
	}

	slog.Debug("health check sweep",
		"window", l.cfg.HealthWindow,
		"error_events", count,
		"threshold", l.cfg.HealthThreshold,
	)

	if count > l.cfg.HealthThreshold {
		l.Escalate(ctx, "system", domain.LevelWarning,
			fmt.Sprintf(
				"system degraded: %d error-level events in the last %s",
				count, l.cfg.HealthWindow,
			),
			nil,
		)
	}
}

// History returns up to limit recorded events, most-recent-first.
func (l *Ladder) History(ctx context.Context, limit int) ([]*domain.Event, error) {
	return l.events.Recent(ctx, limit)
}

// RecentErrorCount counts Error-or-worse events inside the health window,
// for health reporting.
func (l *Ladder) RecentErrorCount(ctx context.Context) (int, error) {
	return l.events.CountSince(ctx, l.now().Add(-l.cfg.HealthWindow), domain.LevelError)
}

// FailureCounts returns a copy of the cumulative escalation count per task
// identity, for health aggregation. Unlike Summarize it is not bounded by a
// window and survives history truncation.
func (l *Ladder) FailureCounts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]int, len(l.failures))
	for identity, count := range l.failures {
		out[identity] = count
	}
	return out
}

// Reset clears the failure index and the recorded history.
func (l *Ladder) Reset(ctx context.Context) error {
	l.mu.Lock()
	l.failures = make(map[string]int)
	l.mu.Unlock()
	return l.events.Clear(ctx)
}

func (l *Ladder) logEvent(event *domain.Event) {
	args := []any{
		"task_id", event.TaskID,
		"level", event.Level.String(),
		"message", event.Message,
	}
	switch {
	case event.Level >= domain.LevelError:
		slog.Error("escalation", args...)
	case event.Level >= domain.LevelWarning:
		slog.Warn("escalation", args...)
	default:
		slog.Info("escalation", args...)
	}
}

// deliver pushes the event through a notifier with a short bounded retry.
// Failures are logged and counted, never returned.
func (l *Ladder) deliver(ctx context.Context, n notify.Notifier, event *domain.Event) {
	if n == nil {
		return
	}
	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(n.Notify(ctx, event))
	})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues(n.Name()).Inc()
		slog.Error("notification delivery failed",
			"channel", n.Name(),
			"event_id", event.ID,
			"error", err,
		)
	}
}
