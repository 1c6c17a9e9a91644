package queue

import (
	"sort"

	"github.com/vietddude/healer/internal/core/domain"
)

// Get returns a snapshot of the task, or ErrTaskNotFound.
func (q *Queue) Get(id string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	snapshot := *task
	return &snapshot, nil
}

// ListActive returns snapshots of pending and running tasks, sorted by
// descending priority then creation time.
func (q *Queue) ListActive() []*domain.Task {
	return q.list(func(s domain.TaskStatus) bool {
		return s == domain.TaskStatusPending || s == domain.TaskStatusRunning
	})
}

// ListFailed returns snapshots of failed and escalated tasks, sorted by
// descending priority then creation time.
func (q *Queue) ListFailed() []*domain.Task {
	return q.list(func(s domain.TaskStatus) bool {
		return s == domain.TaskStatusFailed || s == domain.TaskStatusEscalated
	})
}

// Statistics returns the current task count per status.
func (q *Queue) Statistics() map[domain.TaskStatus]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := make(map[domain.TaskStatus]int)
	for _, task := range q.tasks {
		stats[task.Status]++
	}
	return stats
}

// PendingSnapshot returns the current pending ordering, head first. Intended
// for inspection and tests.
func (q *Queue) PendingSnapshot() []*domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*domain.Task, 0, len(q.pending))
	for _, task := range q.pending {
		snapshot := *task
		out = append(out, &snapshot)
	}
	return out
}

func (q *Queue) list(match func(domain.TaskStatus) bool) []*domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*domain.Task
	for _, task := range q.tasks {
		if match(task.Status) {
			snapshot := *task
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
