package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/healer/internal/core/domain"
)

// Registry maps task types to handlers. The embedding system registers one
// handler per task type; dispatch happens inside the execution cycle.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a task type, replacing any previous binding.
func (r *Registry) Register(taskType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[taskType] = h
}

// Handle dispatches the task to its registered handler. Unknown task types
// fail the attempt.
func (r *Registry) Handle(ctx context.Context, task *domain.Task) error {
	r.mu.RLock()
	h, ok := r.handlers[task.Type]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no handler registered for task type %q", task.Type)
	}
	return h(ctx, task)
}
