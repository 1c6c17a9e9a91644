package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TasksEnqueued tracks tasks accepted by the queue per type
	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_tasks_enqueued_total",
			Help: "Total number of tasks enqueued",
		},
		[]string{"type"},
	)

	// CyclesTotal tracks execution cycles by outcome
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_cycles_total",
			Help: "Total number of execution cycles run",
		},
		[]string{"outcome"},
	)

	// AttemptsTotal tracks real execution attempts per strategy
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_attempts_total",
			Help: "Total number of execution attempts",
		},
		[]string{"strategy", "result"},
	)

	// BreakerTrips tracks circuit breaker open transitions
	BreakerTrips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healer_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
	)

	// BreakerSkips tracks attempts short-circuited by an open breaker
	BreakerSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "healer_breaker_skips_total",
			Help: "Total number of attempts skipped by an open circuit breaker",
		},
	)

	// EscalationsTotal tracks escalation events per level
	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_escalations_total",
			Help: "Total number of escalation events",
		},
		[]string{"level"},
	)

	// NotificationFailures tracks best-effort notification deliveries that
	// ultimately failed
	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_notification_failures_total",
			Help: "Total number of failed notification deliveries",
		},
		[]string{"channel"},
	)

	// TasksByStatus tracks the current number of tasks per status
	TasksByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "healer_tasks_by_status",
			Help: "Current number of tasks per status",
		},
		[]string{"status"},
	)
)
