package domain

import "time"

// Level is the escalation severity ladder. Higher levels widen the blast
// radius of the side effects performed when a failure is escalated.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
	LevelCritical
	LevelHumanIntervention
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	case LevelHumanIntervention:
		return "human_intervention"
	default:
		return "unknown"
	}
}

// Event is one entry in the append-only escalation history.
type Event struct {
	ID        string            `json:"id"`
	TaskID    string            `json:"task_id"`
	Level     Level             `json:"level"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
