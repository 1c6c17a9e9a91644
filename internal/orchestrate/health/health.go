// Package health provides system health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the orchestrator.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Issue describes one detected health problem.
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// Report contains the full health report.
type Report struct {
	Status       SystemStatus   `json:"status"`
	CheckedAt    time.Time      `json:"checked_at"`
	Issues       []Issue        `json:"issues"`
	TaskCounts   map[string]int `json:"task_counts"`
	OpenBreakers int            `json:"open_breakers"`
	RecentErrors int            `json:"recent_errors"`
	FailureIndex map[string]int `json:"failure_index,omitempty"`
}
