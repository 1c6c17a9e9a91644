package retry

import (
	"math"
	"time"
)

// Kind identifies one backoff/retry policy.
type Kind string

const (
	KindExponential Kind = "exponential"
	KindLinear      Kind = "linear"
	KindImmediate   Kind = "immediate"
	KindBreaker     Kind = "circuit_breaker"
	KindAlternative Kind = "alternative"
)

// Config bounds a single strategy pass.
type Config struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxAttempts:  3,
	BaseDelay:    1 * time.Second,
	MaxDelay:     60 * time.Second,
	JitterFactor: 0.2,
}

// Delay computes the pre-jitter delay after the given attempt (0-indexed).
//
//   - exponential: min(base * 2^attempt, max)
//   - linear:      min(base * (attempt+1), max)
//   - immediate:   0
//   - circuit_breaker / alternative carry no intrinsic backoff and reuse the
//     base delay flat.
func (k Kind) Delay(attempt int, cfg Config) time.Duration {
	var delay float64
	switch k {
	case KindExponential:
		delay = float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	case KindLinear:
		delay = float64(cfg.BaseDelay) * float64(attempt+1)
	case KindImmediate:
		return 0
	default:
		delay = float64(cfg.BaseDelay)
	}
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// Table maps an error category to the ordered strategy sequence tried for it.
// It is injected at controller construction so callers can extend categories
// without touching the controller.
type Table map[string][]Kind

// DefaultTable returns the built-in category mapping.
func DefaultTable() Table {
	return Table{
		"network":    {KindExponential, KindLinear, KindBreaker},
		"rate_limit": {KindLinear, KindExponential},
		"transient":  {KindImmediate, KindExponential},
	}
}

// Sequence returns the strategy sequence for a category. The lookup is total:
// unclassified categories fall back to {exponential, alternative}.
func (t Table) Sequence(category string) []Kind {
	if seq, ok := t[category]; ok && len(seq) > 0 {
		return seq
	}
	return []Kind{KindExponential, KindAlternative}
}
