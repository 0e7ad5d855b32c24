// Package schedule computes retry timestamps for failed deliveries. It owns
// no timer: callers ask for the next eligible time and persist it.
package schedule

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxAttempts is the delivery budget per request. Once spent, a
	// failed or timed-out request stays terminal until an operator requeues it.
	DefaultMaxAttempts = 20

	// DefaultGrowth is the geometric factor between consecutive delays.
	DefaultGrowth = 1.52

	DefaultBaseDelay = time.Second
	DefaultJitter    = time.Second
)

type Policy struct {
	MaxAttempts int
	Growth      float64
	BaseDelay   time.Duration
	Jitter      time.Duration
}

func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Growth:      DefaultGrowth,
		BaseDelay:   DefaultBaseDelay,
		Jitter:      DefaultJitter,
	}
}

// Exhausted reports whether a request with attempts recorded deliveries has
// used its budget.
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

// Delay returns the wait before the next delivery, given how many attempts
// exist already. The first retry waits BaseDelay; each later one grows
// geometrically, with jitter spreading retry herds apart. Past the budget
// the series is pinned to its last in-budget value and served flat, without
// jitter.
func (p Policy) Delay(attempts int) time.Duration {
	n := attempts - 1
	if n < 0 {
		n = 0
	}

	if n >= p.MaxAttempts {
		return time.Duration(math.Round(math.Pow(p.Growth, float64(p.MaxAttempts-1)) * float64(p.BaseDelay)))
	}

	delay := time.Duration(math.Round(math.Pow(p.Growth, float64(n)) * float64(p.BaseDelay)))

	if p.Jitter > 0 {
		delay += time.Duration(rand.Int64N(int64(p.Jitter)))
	}

	return delay
}

// NextRetryAt is Delay anchored to a wall-clock instant.
func (p Policy) NextRetryAt(now time.Time, attempts int) time.Time {
	return now.Add(p.Delay(attempts))
}
