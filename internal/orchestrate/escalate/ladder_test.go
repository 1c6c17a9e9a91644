package escalate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/storage/memory"
)

type mockNotifier struct {
	mu     sync.Mutex
	name   string
	err    error
	events []*domain.Event
}

func (n *mockNotifier) Name() string { return n.name }

func (n *mockNotifier) Notify(ctx context.Context, event *domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *mockNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func newTestLadder(cfg Config) (*Ladder, *mockNotifier, *mockNotifier, *mockNotifier) {
	ops := &mockNotifier{name: "ops"}
	pager := &mockNotifier{name: "pager"}
	tickets := &mockNotifier{name: "tickets"}
	l := NewLadder(cfg, memory.NewEventStore(0), ops, pager, tickets)
	return l, ops, pager, tickets
}

func TestClassify_Thresholds(t *testing.T) {
	l, _, _, _ := newTestLadder(Config{BaseThreshold: 5})

	tests := []struct {
		count    int
		expected domain.Level
	}{
		{0, domain.LevelInfo},
		{1, domain.LevelWarning},
		{2, domain.LevelWarning},
		{3, domain.LevelError},
		{4, domain.LevelError},
		{5, domain.LevelCritical},
		{9, domain.LevelCritical},
		{10, domain.LevelHumanIntervention},
		{25, domain.LevelHumanIntervention},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("count=%d", tt.count), func(t *testing.T) {
			if got := l.Classify("task-1", tt.count); got != tt.expected {
				t.Errorf("Classify(%d) = %s, want %s", tt.count, got, tt.expected)
			}
		})
	}
}

func TestClassify_Monotonic(t *testing.T) {
	l, _, _, _ := newTestLadder(Config{BaseThreshold: 5})

	prev := domain.LevelInfo
	for count := 0; count <= 30; count++ {
		level := l.Classify("task-1", count)
		if level < prev {
			t.Fatalf("classification decreased at count %d: %s < %s", count, level, prev)
		}
		prev = level
	}
}

func TestEscalate_SideEffectRouting(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		level       domain.Level
		ops         int
		pager       int
		tickets     int
		eventStored bool
	}{
		{domain.LevelInfo, 0, 0, 0, false},
		{domain.LevelWarning, 0, 0, 0, true},
		{domain.LevelError, 1, 0, 0, true},
		{domain.LevelCritical, 1, 1, 0, true},
		{domain.LevelHumanIntervention, 1, 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			l, ops, pager, tickets := newTestLadder(Config{BaseThreshold: 5})
			l.Escalate(ctx, "task-1", tt.level, "boom", nil)

			if got := ops.count(); got != tt.ops {
				t.Errorf("ops notifications: got %d, want %d", got, tt.ops)
			}
			if got := pager.count(); got != tt.pager {
				t.Errorf("pager notifications: got %d, want %d", got, tt.pager)
			}
			if got := tickets.count(); got != tt.tickets {
				t.Errorf("ticket notifications: got %d, want %d", got, tt.tickets)
			}

			events, err := l.History(ctx, 10)
			if err != nil {
				t.Fatalf("History failed: %v", err)
			}
			if tt.eventStored && len(events) != 1 {
				t.Errorf("expected 1 stored event, got %d", len(events))
			}
			if !tt.eventStored && len(events) != 0 {
				t.Errorf("expected no stored event, got %d", len(events))
			}
		})
	}
}

func TestEscalate_NotificationFailureNotPropagated(t *testing.T) {
	l, ops, _, _ := newTestLadder(Config{BaseThreshold: 5})
	ops.err = errors.New("smtp down")

	// Must not panic or surface the delivery error.
	l.Escalate(context.Background(), "task-1", domain.LevelError, "boom", nil)

	// Initial attempt plus two bounded retries.
	if got := ops.count(); got != 3 {
		t.Errorf("expected 3 delivery attempts, got %d", got)
	}

	events, _ := l.History(context.Background(), 10)
	if len(events) != 1 {
		t.Errorf("event should be recorded despite delivery failure, got %d", len(events))
	}
}

func TestEscalate_NilNotifiersSkipped(t *testing.T) {
	l := NewLadder(Config{BaseThreshold: 5}, memory.NewEventStore(0), nil, nil, nil)

	// Should log only, without panicking.
	l.Escalate(context.Background(), "task-1", domain.LevelHumanIntervention, "boom", nil)

	events, _ := l.History(context.Background(), 10)
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

func TestHistory_MostRecentFirst(t *testing.T) {
	l, _, _, _ := newTestLadder(Config{BaseThreshold: 5})
	ctx := context.Background()

	base := time.Now()
	seq := 0
	l.now = func() time.Time {
		seq++
		return base.Add(time.Duration(seq) * time.Millisecond)
	}

	for i := 0; i < 20; i++ {
		l.Escalate(ctx, fmt.Sprintf("task-%d", i), domain.LevelWarning, fmt.Sprintf("event %d", i), nil)
	}

	events, err := l.History(ctx, 5)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected exactly 5 events, got %d", len(events))
	}
	// Most-recent-first: the head is the last escalation.
	for i, e := range events {
		want := fmt.Sprintf("event %d", 19-i)
		if e.Message != want {
			t.Errorf("position %d: got %q, want %q", i, e.Message, want)
		}
	}
}

func TestPerformHealthCheck_RaisesSystemDegradation(t *testing.T) {
	l, _, _, _ := newTestLadder(Config{
		BaseThreshold:   5,
		HealthWindow:    15 * time.Minute,
		HealthThreshold: 10,
	})
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		l.Escalate(ctx, "task-1", domain.LevelError, "boom", nil)
	}

	l.PerformHealthCheck(ctx)

	events, _ := l.History(ctx, 1)
	if len(events) != 1 {
		t.Fatal("expected a synthetic event")
	}
	if events[0].TaskID != "system" {
		t.Errorf("expected system-wide event, got task %q", events[0].TaskID)
	}
	if events[0].Level != domain.LevelWarning {
		t.Errorf("expected Warning level, got %s", events[0].Level)
	}
}

func TestPerformHealthCheck_QuietBelowThreshold(t *testing.T) {
	l, _, _, _ := newTestLadder(Config{
		BaseThreshold:   5,
		HealthWindow:    15 * time.Minute,
		HealthThreshold: 10,
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		l.Escalate(ctx, "task-1", domain.LevelError, "boom", nil)
	}

	l.PerformHealthCheck(ctx)

	count, _ := l.events.CountSince(ctx, time.Time{}, domain.LevelInfo)
	if count != 10 {
		t.Errorf("expected no synthetic event at the threshold, got %d events", count)
	}
}

func TestSummarize(t *testing.T) {
	l, _, _, _ := newTestLadder(Config{BaseThreshold: 5, HealthWindow: 15 * time.Minute})
	ctx := context.Background()

	l.Escalate(ctx, "task-1", domain.LevelWarning, "w", nil)
	l.Escalate(ctx, "task-1", domain.LevelError, "e", nil)
	l.Escalate(ctx, "task-2", domain.LevelError, "e", nil)

	s, err := l.Summarize(ctx, 0)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.Total != 3 {
		t.Errorf("expected 3 events, got %d", s.Total)
	}
	if s.ByLevel["error"] != 2 || s.ByLevel["warning"] != 1 {
		t.Errorf("unexpected level counts: %v", s.ByLevel)
	}
	if s.ByTask["task-1"] != 2 || s.ByTask["task-2"] != 1 {
		t.Errorf("unexpected task counts: %v", s.ByTask)
	}
}

func TestFailureCounts(t *testing.T) {
	l, _, _, _ := newTestLadder(Config{BaseThreshold: 5})
	ctx := context.Background()

	l.Escalate(ctx, "task-1", domain.LevelWarning, "w", nil)
	l.Escalate(ctx, "task-1", domain.LevelError, "e", nil)
	l.Escalate(ctx, "task-2", domain.LevelWarning, "w", nil)
	// Info is not recorded and must not count.
	l.Escalate(ctx, "task-3", domain.LevelInfo, "i", nil)

	counts := l.FailureCounts()
	if counts["task-1"] != 2 || counts["task-2"] != 1 {
		t.Errorf("unexpected failure counts: %v", counts)
	}
	if _, ok := counts["task-3"]; ok {
		t.Error("info escalations must not be counted")
	}

	// The returned map is a copy.
	counts["task-1"] = 99
	if l.FailureCounts()["task-1"] != 2 {
		t.Error("FailureCounts must not expose the internal index")
	}
}

func TestReset(t *testing.T) {
	l, _, _, _ := newTestLadder(Config{BaseThreshold: 5})
	ctx := context.Background()

	l.Escalate(ctx, "task-1", domain.LevelWarning, "w", nil)
	if err := l.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	events, _ := l.History(ctx, 10)
	if len(events) != 0 {
		t.Errorf("expected empty history after reset, got %d", len(events))
	}
	if len(l.failures) != 0 {
		t.Errorf("expected empty failure index after reset, got %d", len(l.failures))
	}
}
