package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/orchestrate/queue"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		Server: config.ServerConfig{Port: 0}, // random port
		Queue: config.QueueConfig{
			CycleInterval:      time.Second,
			DefaultMaxAttempts: 3,
		},
		Retry: config.RetryConfig{
			MaxAttempts: 1,
			BaseDelay:   time.Millisecond,
			MaxDelay:    time.Millisecond,
		},
		Breaker: config.BreakerConfig{Threshold: 100, CoolDown: time.Minute},
		Escalation: config.EscalationConfig{
			BaseThreshold:   5,
			HealthWindow:    15 * time.Minute,
			HealthThreshold: 10,
			HealthInterval:  time.Minute,
		},
	}
}

func TestOrchestrator_Lifecycle(t *testing.T) {
	registry := queue.NewRegistry()
	done := make(chan string, 8)
	registry.Register("ping", func(ctx context.Context, task *domain.Task) error {
		done <- task.ID
		return nil
	})

	o, err := NewOrchestrator(testConfig(), registry.Handle, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}

	ctx := context.Background()
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	submitted := o.Submit("ping", 0, 0, nil)
	if submitted.MaxAttempts != 3 {
		t.Errorf("expected default attempt budget 3, got %d", submitted.MaxAttempts)
	}

	select {
	case id := <-done:
		if id != submitted.ID {
			t.Errorf("handler ran for task %s, want %s", id, submitted.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("task was not executed before the deadline")
	}

	// The cycle settles the task after the handler returns; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		task, err := o.Queue().Get(submitted.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if task.Status == domain.TaskStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task never completed, status %s", task.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestOrchestrator_UnknownTaskTypeFails(t *testing.T) {
	registry := queue.NewRegistry()

	o, err := NewOrchestrator(testConfig(), registry.Handle, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}

	submitted := o.Submit("unregistered", 0, 1, nil)

	// Drive one cycle directly instead of waiting on the scheduler.
	o.Queue().RunNextCycle(context.Background())

	task, err := o.Queue().Get(submitted.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if task.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed, got %s", task.Status)
	}
	if task.LastError == "" {
		t.Error("expected last error to name the missing handler")
	}
}

func TestOrchestrator_GetUnknownTask(t *testing.T) {
	o, err := NewOrchestrator(testConfig(), queue.NewRegistry().Handle, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}

	if _, err := o.Queue().Get("missing"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}
