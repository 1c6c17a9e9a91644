package domain

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound is returned by queue lookups for unknown task IDs.
var ErrTaskNotFound = errors.New("task not found")

// BreakerOpenError reports that a retry attempt was skipped because the
// circuit for the task identity is open. It is not a real execution failure.
type BreakerOpenError struct {
	Identity string
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open for %s", e.Identity)
}

// ExhaustedError reports that every strategy in the sequence was exhausted
// without a successful execution. It is terminal for the current cycle.
type ExhaustedError struct {
	Identity string
	Attempts int
	Strategy string
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf(
		"all strategies exhausted for %s after %d attempts (last strategy %s): %v",
		e.Identity, e.Attempts, e.Strategy, e.Last,
	)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
