// Package queue owns task records and drives at most one task at a time
// through the retry controller, consulting the escalation ladder once a
// task's attempt budget is exhausted.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/orchestrate/escalate"
	"github.com/vietddude/healer/internal/orchestrate/metrics"
	"github.com/vietddude/healer/internal/orchestrate/retry"
)

// Handler executes one unit of work for a task. The handler is expected to
// complete within bounded wall-clock time; the queue enforces no timeout.
type Handler func(ctx context.Context, task *domain.Task) error

// Categorizer derives the error category used for strategy selection from a
// task type. The default uses the task type itself as the category.
type Categorizer func(taskType string) string

// Queue is the root orchestration component. All task records are owned by
// it; the pending list is kept sorted by descending priority with ties in
// insertion order.
type Queue struct {
	mu      sync.Mutex
	tasks   map[string]*domain.Task
	pending []*domain.Task

	// running guards the single-flight property: at most one cycle may be
	// in flight, and concurrent RunNextCycle calls are no-ops.
	running atomic.Bool

	controller *retry.Controller
	ladder     *escalate.Ladder
	handler    Handler
	categorize Categorizer

	now func() time.Time
}

// New creates a queue executing tasks through the given handler.
func New(
	controller *retry.Controller,
	ladder *escalate.Ladder,
	handler Handler,
	categorize Categorizer,
) *Queue {
	if categorize == nil {
		categorize = func(taskType string) string { return taskType }
	}
	return &Queue{
		tasks:      make(map[string]*domain.Task),
		controller: controller,
		ladder:     ladder,
		handler:    handler,
		categorize: categorize,
		now:        time.Now,
	}
}

// Enqueue constructs a pending task and inserts it into the priority
// ordering. It never fails and never blocks on execution.
func (q *Queue) Enqueue(
	taskType string,
	priority int,
	maxAttempts int,
	metadata map[string]string,
) *domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	now := q.now()
	task := &domain.Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		Status:      domain.TaskStatusPending,
		Priority:    priority,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata:    metadata,
	}
	q.tasks[task.ID] = task
	q.push(task)

	metrics.TasksEnqueued.WithLabelValues(taskType).Inc()
	metrics.TasksByStatus.WithLabelValues(string(domain.TaskStatusPending)).Inc()
	slog.Debug("task enqueued",
		"task_id", task.ID,
		"type", taskType,
		"priority", priority,
		"max_attempts", maxAttempts,
	)

	snapshot := *task
	return &snapshot
}

// RunNextCycle pops the highest-priority pending task and drives it through
// one execution cycle. It is an idempotent no-op when a cycle is already in
// flight or the pending list is empty.
func (q *Queue) RunNextCycle(ctx context.Context) {
	if !q.running.CompareAndSwap(false, true) {
		metrics.CyclesTotal.WithLabelValues("busy").Inc()
		return
	}
	defer q.running.Store(false)

	task := q.dequeue()
	if task == nil {
		metrics.CyclesTotal.WithLabelValues("empty").Inc()
		return
	}

	category := q.categorize(task.Type)
	strategies := q.controller.SequenceFor(category)
	result := q.controller.Execute(ctx, task.ID, func(ctx context.Context) error {
		return q.handler(ctx, task)
	}, strategies)

	q.settle(ctx, task, result)
}

// dequeue pops the head of the pending list and marks it running.
func (q *Queue) dequeue() *domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	task := q.pending[0]
	q.pending = q.pending[1:]
	q.transition(task, domain.TaskStatusRunning)
	return task
}

// settle applies the state-machine decision after one execution cycle.
func (q *Queue) settle(ctx context.Context, task *domain.Task, result retry.Result) {
	q.mu.Lock()

	task.Attempts++
	task.UpdatedAt = q.now()

	if result.Success {
		task.LastError = ""
		q.transition(task, domain.TaskStatusCompleted)
		q.mu.Unlock()

		metrics.CyclesTotal.WithLabelValues("completed").Inc()
		slog.Info("task completed",
			"task_id", task.ID,
			"type", task.Type,
			"attempts", task.Attempts,
			"strategy", result.Strategy,
		)
		return
	}

	task.LastError = result.Err.Error()

	if task.Attempts < task.MaxAttempts {
		q.transition(task, domain.TaskStatusPending)
		q.push(task)
		q.mu.Unlock()

		metrics.CyclesTotal.WithLabelValues("requeued").Inc()
		slog.Warn("task failed, re-enqueued",
			"task_id", task.ID,
			"type", task.Type,
			"attempts", task.Attempts,
			"max_attempts", task.MaxAttempts,
			"error", result.Err,
		)
		return
	}

	// Budget exhausted: classification decides between Failed and Escalated.
	level := q.ladder.Classify(task.ID, task.Attempts)
	if level >= domain.LevelHumanIntervention {
		q.transition(task, domain.TaskStatusEscalated)
	} else {
		q.transition(task, domain.TaskStatusFailed)
	}
	attempts := task.Attempts
	metadata := task.Metadata
	status := task.Status
	q.mu.Unlock()

	metrics.CyclesTotal.WithLabelValues(string(status)).Inc()
	slog.Error("task exhausted attempt budget",
		"task_id", task.ID,
		"type", task.Type,
		"attempts", attempts,
		"level", level.String(),
		"error", result.Err,
	)
	q.ladder.Escalate(ctx, task.ID, level,
		fmt.Sprintf("task %s failed after %d attempts: %v", task.Type, attempts, result.Err),
		metadata,
	)
}

// push inserts the task into the pending list and restores the priority
// ordering. sort.SliceStable keeps equal-priority tasks in insertion order.
func (q *Queue) push(task *domain.Task) {
	q.pending = append(q.pending, task)
	sort.SliceStable(q.pending, func(i, j int) bool {
		return q.pending[i].Priority > q.pending[j].Priority
	})
}

// transition moves a task between statuses, keeping the status gauge
// consistent. Callers hold q.mu.
func (q *Queue) transition(task *domain.Task, next domain.TaskStatus) {
	metrics.TasksByStatus.WithLabelValues(string(task.Status)).Dec()
	metrics.TasksByStatus.WithLabelValues(string(next)).Inc()
	task.Status = next
	task.UpdatedAt = q.now()
}
