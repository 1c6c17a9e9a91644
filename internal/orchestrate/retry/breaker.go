package retry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/healer/internal/orchestrate/metrics"
)

// record tracks consecutive failures for one task identity.
// openedAt is zero while the circuit is closed.
type record struct {
	consecutiveFailures int
	openedAt            time.Time
}

// Breaker is a per-identity circuit breaker with a polling half-open check:
// once the cool-down window elapses, checked against the wall clock on each
// Allow call, the circuit closes but the failure count is retained. A failure
// recorded after that re-trips the circuit immediately; only a success clears
// the record. There is no explicit half-open probe state.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	coolDown  time.Duration
	records   map[string]*record
	now       func() time.Time
}

// NewBreaker creates a breaker that trips after threshold consecutive
// failures and stays open for the cool-down window.
func NewBreaker(threshold int, coolDown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		coolDown:  coolDown,
		records:   make(map[string]*record),
		now:       time.Now,
	}
}

// Allow reports whether a real attempt may run for the identity. An open
// circuit whose cool-down has elapsed closes and the attempt is permitted,
// but the failure count stays: one more failure re-trips the circuit.
func (b *Breaker) Allow(identity string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[identity]
	if !ok || rec.openedAt.IsZero() {
		return true
	}
	if b.now().Sub(rec.openedAt) >= b.coolDown {
		slog.Info("circuit breaker cool-down elapsed, permitting a probe", "identity", identity)
		rec.openedAt = time.Time{}
		return true
	}
	return false
}

// RecordFailure counts one failure against the identity, tripping the
// circuit open once the threshold is reached. Failures recorded while the
// circuit is already open do not refresh openedAt.
func (b *Breaker) RecordFailure(identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[identity]
	if !ok {
		rec = &record{}
		b.records[identity] = rec
	}
	rec.consecutiveFailures++
	if rec.consecutiveFailures >= b.threshold && rec.openedAt.IsZero() {
		rec.openedAt = b.now()
		metrics.BreakerTrips.Inc()
		slog.Error("circuit breaker open",
			"identity", identity,
			"failures", rec.consecutiveFailures,
			"threshold", b.threshold,
		)
	}
}

// RecordSuccess clears the record for the identity entirely.
func (b *Breaker) RecordSuccess(identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rec, ok := b.records[identity]; ok {
		if !rec.openedAt.IsZero() {
			slog.Info("circuit breaker closed", "identity", identity)
		}
		delete(b.records, identity)
	}
}

// OpenCount returns the number of currently open circuits, for health
// reporting.
func (b *Breaker) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	count := 0
	for _, rec := range b.records {
		if !rec.openedAt.IsZero() && now.Sub(rec.openedAt) < b.coolDown {
			count++
		}
	}
	return count
}
