// Package control wires the orchestrator components together and manages
// their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"
	"github.com/robfig/cron/v3"

	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/notify"
	redisclient "github.com/vietddude/healer/internal/infra/redis"
	"github.com/vietddude/healer/internal/infra/storage"
	"github.com/vietddude/healer/internal/infra/storage/memory"
	"github.com/vietddude/healer/internal/infra/storage/postgres"
	"github.com/vietddude/healer/internal/orchestrate/escalate"
	"github.com/vietddude/healer/internal/orchestrate/health"
	"github.com/vietddude/healer/internal/orchestrate/queue"
	"github.com/vietddude/healer/internal/orchestrate/retry"
)

// Orchestrator is the main application struct that manages the task
// execution lifecycle.
type Orchestrator struct {
	cfg config.AppConfig

	queue        *queue.Queue
	controller   *retry.Controller
	ladder       *escalate.Ladder
	healthMon    *health.Monitor
	healthServer *health.Server
	cron         *cron.Cron

	redisClient *redisclient.Client
	db          *postgres.DB
}

// NewOrchestrator creates an orchestrator with all dependencies initialized.
// The handler executes tasks; categorize maps task types onto retry
// categories (nil uses the task type itself).
func NewOrchestrator(
	cfg config.AppConfig,
	handler queue.Handler,
	categorize queue.Categorizer,
) (*Orchestrator, error) {
	// 1. Event history storage
	var events storage.EscalationEventRepository
	var db *postgres.DB
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}
		events = postgres.NewEventRepo(db)
		slog.Info("Using PostgreSQL escalation archive")
	} else {
		events = memory.NewEventStore(memory.DefaultCapacity)
		slog.Info("Using in-memory escalation history")
	}

	// 2. Notification channels
	var redisClient *redisclient.Client
	var ops notify.Notifier = &notify.LogNotifier{Channel: "ops"}
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		channel := cfg.Notifiers.OpsChannel
		if channel == "" {
			channel = cfg.Redis.Channel
		}
		ops = notify.NewOpsChannel(redisClient, channel)
	}

	var pager notify.Notifier = &notify.LogNotifier{Channel: "pager"}
	if cfg.Notifiers.PagerURL != "" {
		pager = notify.NewWebhook("pager", cfg.Notifiers.PagerURL)
	}
	var tickets notify.Notifier = &notify.LogNotifier{Channel: "tickets"}
	if cfg.Notifiers.TicketURL != "" {
		tickets = notify.NewWebhook("tickets", cfg.Notifiers.TicketURL)
	}

	// 3. Core components, leaf to root
	ladder := escalate.NewLadder(escalate.Config{
		BaseThreshold:   cfg.Escalation.BaseThreshold,
		HealthWindow:    cfg.Escalation.HealthWindow,
		HealthThreshold: cfg.Escalation.HealthThreshold,
	}, events, ops, pager, tickets)

	breaker := retry.NewBreaker(cfg.Breaker.Threshold, cfg.Breaker.CoolDown)
	controller := retry.NewController(retry.Config{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		BaseDelay:    cfg.Retry.BaseDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		JitterFactor: cfg.Retry.JitterFactor,
	}, retry.DefaultTable(), breaker)

	q := queue.New(controller, ladder, handler, categorize)

	monitor := health.NewMonitor(q, breaker, ladder)
	server := health.NewServer(monitor, q, ladder, cfg.Server.Port)

	return &Orchestrator{
		cfg:          cfg,
		queue:        q,
		controller:   controller,
		ladder:       ladder,
		healthMon:    monitor,
		healthServer: server,
		cron:         cron.New(),
		redisClient:  redisClient,
		db:           db,
	}, nil
}

// Queue exposes the task queue for embedding callers.
func (o *Orchestrator) Queue() *queue.Queue { return o.queue }

// Ladder exposes the escalation ladder for embedding callers.
func (o *Orchestrator) Ladder() *escalate.Ladder { return o.ladder }

// Submit enqueues a task, applying the configured default attempt budget
// when none is given.
func (o *Orchestrator) Submit(
	taskType string,
	priority int,
	maxAttempts int,
	metadata map[string]string,
) *domain.Task {
	if maxAttempts <= 0 {
		maxAttempts = o.cfg.Queue.DefaultMaxAttempts
	}
	return o.queue.Enqueue(taskType, priority, maxAttempts, metadata)
}

// Start registers the periodic triggers and starts the HTTP server. It
// returns immediately; ctx bounds the lifetime of cycle executions.
func (o *Orchestrator) Start(ctx context.Context) error {
	_, err := o.cron.AddFunc(
		fmt.Sprintf("@every %s", o.cfg.Queue.CycleInterval),
		func() { o.queue.RunNextCycle(ctx) },
	)
	if err != nil {
		return fmt.Errorf("failed to schedule cycle trigger: %w", err)
	}
	_, err = o.cron.AddFunc(
		fmt.Sprintf("@every %s", o.cfg.Escalation.HealthInterval),
		func() { o.ladder.PerformHealthCheck(ctx) },
	)
	if err != nil {
		return fmt.Errorf("failed to schedule health sweep: %w", err)
	}
	o.cron.Start()

	go func() {
		slog.Info("Health server listening", "port", o.cfg.Server.Port)
		if err := o.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server stopped", "error", err)
		}
	}()

	slog.Info("Orchestrator started",
		"cycle_interval", o.cfg.Queue.CycleInterval,
		"health_interval", o.cfg.Escalation.HealthInterval,
	)
	return nil
}

// Stop halts the triggers and shuts everything down gracefully.
func (o *Orchestrator) Stop(ctx context.Context) error {
	cronCtx := o.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	if err := o.healthServer.Stop(ctx); err != nil {
		slog.Warn("Health server shutdown failed", "error", err)
	}
	if o.redisClient != nil {
		if err := o.redisClient.Close(); err != nil {
			slog.Warn("Redis close failed", "error", err)
		}
	}
	if o.db != nil {
		if err := o.db.Close(); err != nil {
			slog.Warn("Database close failed", "error", err)
		}
	}

	slog.Info("Orchestrator stopped")
	return nil
}
