package entity

import "testing"

func TestParseState(t *testing.T) {
	for code := 0; code <= 8; code++ {
		state, err := ParseState(code)
		if err != nil {
			t.Fatalf("ParseState(%d): %v", code, err)
		}
		if int(state) != code {
			t.Fatalf("ParseState(%d) = %d", code, state)
		}
	}

	if _, err := ParseState(9); err == nil {
		t.Fatal("ParseState(9) must fail")
	}
	if _, err := ParseState(-1); err == nil {
		t.Fatal("ParseState(-1) must fail")
	}
}

func TestRetryableStates(t *testing.T) {
	retryable := map[State]bool{
		StateFailed:  true,
		StateTimeout: true,
	}

	for code := 0; code <= 8; code++ {
		state := State(code)
		if got := state.Retryable(); got != retryable[state] {
			t.Errorf("%v.Retryable() = %v", state, got)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := map[State]bool{
		StateCompleted: true,
		StatePanic:     true,
		StateSkipped:   true,
	}

	for code := 0; code <= 8; code++ {
		state := State(code)
		if got := state.Terminal(); got != terminal[state] {
			t.Errorf("%v.Terminal() = %v", state, got)
		}
	}
}

func TestTransitions(t *testing.T) {
	allowed := []struct {
		from, to State
	}{
		{StateReceived, StateCreated},
		{StateReceived, StateSkipped},
		{StateCreated, StateEnqueued},
		{StateEnqueued, StateActive},
		{StateActive, StateCompleted},
		{StateActive, StateFailed},
		{StateActive, StatePanic},
		{StateActive, StateTimeout},
		{StateActive, StateSkipped},
		{StateActive, StateEnqueued},
		{StateFailed, StateEnqueued},
		{StateTimeout, StateEnqueued},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("%v -> %v must be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to State
	}{
		{StateCompleted, StateEnqueued},
		{StatePanic, StateEnqueued},
		{StateSkipped, StateEnqueued},
		{StateReceived, StateActive},
		{StateEnqueued, StateCompleted},
		{StateCreated, StateActive},
	}
	for _, tc := range denied {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("%v -> %v must be denied", tc.from, tc.to)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateEnqueued.String() != "enqueued" {
		t.Fatalf("StateEnqueued.String() = %q", StateEnqueued.String())
	}
	if State(42).String() != "state(42)" {
		t.Fatalf("State(42).String() = %q", State(42).String())
	}
}
