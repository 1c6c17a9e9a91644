package escalate

import (
	"context"
	"time"
)

// Summary aggregates recent escalation activity for the status API.
type Summary struct {
	Window  string         `json:"window"`
	Total   int            `json:"total"`
	ByLevel map[string]int `json:"by_level"`
	ByTask  map[string]int `json:"by_task"`
}

// Summarize counts events by level and by task identity over the given
// look-back window (the health window when zero).
func (l *Ladder) Summarize(ctx context.Context, window time.Duration) (*Summary, error) {
	if window <= 0 {
		window = l.cfg.HealthWindow
	}
	events, err := l.events.Since(ctx, l.now().Add(-window))
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Window:  window.String(),
		Total:   len(events),
		ByLevel: make(map[string]int),
		ByTask:  make(map[string]int),
	}
	for _, e := range events {
		s.ByLevel[e.Level.String()]++
		s.ByTask[e.TaskID]++
	}
	return s, nil
}
