package entity

import "fmt"

// State is the lifecycle position of a request. The integer codes are part
// of the management API contract and must not be reordered.
type State int8

const (
	// StateReceived - raw capture persisted, not yet normalized.
	StateReceived State = iota
	// StateCreated - dispatchable request exists, not yet queued.
	StateCreated
	// StateEnqueued - eligible for claim once retry_ms_at (if set) has passed.
	StateEnqueued
	// StateActive - claimed by exactly one worker, attempt in flight.
	StateActive
	// StateCompleted - origin answered with a success status.
	StateCompleted
	// StateFailed - origin answered with a non-success status.
	StateFailed
	// StatePanic - internal fault during dispatch, never retried automatically.
	StatePanic
	// StateTimeout - origin produced no response within its deadline.
	StateTimeout
	// StateSkipped - no origin configured for the hostname.
	StateSkipped
)

var stateNames = map[State]string{
	StateReceived:  "received",
	StateCreated:   "created",
	StateEnqueued:  "enqueued",
	StateActive:    "active",
	StateCompleted: "completed",
	StateFailed:    "failed",
	StatePanic:     "panic",
	StateTimeout:   "timeout",
	StateSkipped:   "skipped",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int8(s))
}

func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// ParseState converts the wire code used by the management API.
func ParseState(code int) (State, error) {
	s := State(code)
	if !s.Valid() {
		return 0, fmt.Errorf("unknown request state code %d", code)
	}
	return s, nil
}

// Retryable reports whether the state may re-enter the queue automatically.
// Panic is deliberately excluded: it marks a configuration or programming
// defect that an operator has to resolve first.
func (s State) Retryable() bool {
	return s == StateFailed || s == StateTimeout
}

// Terminal reports whether the dispatcher will take no further action on its
// own. Failed and Timeout are terminal only once the attempt budget is gone,
// which the scheduler decides, so they are not listed here.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StatePanic || s == StateSkipped
}

// CanTransition enumerates the legal moves of the lifecycle machine.
func (s State) CanTransition(to State) bool {
	switch s {
	case StateReceived:
		return to == StateCreated || to == StateSkipped
	case StateCreated:
		return to == StateEnqueued
	case StateEnqueued:
		return to == StateActive
	case StateActive:
		// Enqueued is the crash-recovery path for stranded in-flight rows.
		return to == StateCompleted || to == StateFailed ||
			to == StatePanic || to == StateTimeout || to == StateSkipped ||
			to == StateEnqueued
	case StateFailed, StateTimeout:
		return to == StateEnqueued
	default:
		return false
	}
}
