package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/orchestrate/escalate"
	"github.com/vietddude/healer/internal/orchestrate/queue"
	"github.com/vietddude/healer/internal/orchestrate/retry"
)

// Thresholds for status evaluation.
const (
	criticalErrorEvents = 10
	degradedFailedTasks = 1
)

// Monitor aggregates health status from the queue, the circuit breaker and
// the escalation history.
type Monitor struct {
	queue   *queue.Queue
	breaker *retry.Breaker
	ladder  *escalate.Ladder

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *Report
}

// NewMonitor creates a new health monitor.
func NewMonitor(q *queue.Queue, breaker *retry.Breaker, ladder *escalate.Ladder) *Monitor {
	return &Monitor{queue: q, breaker: breaker, ladder: ladder}
}

// Check builds a health report. Results are cached for a few seconds to keep
// the endpoint cheap under polling.
func (m *Monitor) Check(ctx context.Context) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && time.Since(m.lastCheck) < 5*time.Second {
		return m.lastReport
	}

	stats := m.queue.Statistics()
	counts := make(map[string]int, len(stats))
	for status, n := range stats {
		counts[string(status)] = n
	}

	report := &Report{
		Status:       StatusHealthy,
		CheckedAt:    time.Now(),
		TaskCounts:   counts,
		OpenBreakers: m.breaker.OpenCount(),
		FailureIndex: m.ladder.FailureCounts(),
	}

	if n, err := m.ladder.RecentErrorCount(ctx); err == nil {
		report.RecentErrors = n
	}

	if n := stats[domain.TaskStatusEscalated]; n > 0 {
		report.Issues = append(report.Issues, Issue{
			Type: "escalated_tasks", Severity: "critical", Count: n,
		})
	}
	if report.RecentErrors > criticalErrorEvents {
		report.Issues = append(report.Issues, Issue{
			Type: "high_error_rate", Severity: "critical", Count: report.RecentErrors,
		})
	}
	if n := stats[domain.TaskStatusFailed]; n >= degradedFailedTasks {
		report.Issues = append(report.Issues, Issue{
			Type: "failed_tasks", Severity: "warning", Count: n,
		})
	}
	if report.OpenBreakers > 0 {
		report.Issues = append(report.Issues, Issue{
			Type: "open_breakers", Severity: "warning", Count: report.OpenBreakers,
		})
	}

	// Worst issue severity wins.
	for _, issue := range report.Issues {
		if issue.Severity == "critical" {
			report.Status = StatusCritical
			break
		}
		report.Status = StatusDegraded
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
