package schedule

import (
	"testing"
	"time"
)

func TestPolicy_DelayGrows(t *testing.T) {
	p := Default()
	p.Jitter = 0

	prev := time.Duration(0)
	for attempts := 0; attempts < p.MaxAttempts; attempts++ {
		d := p.Delay(attempts)
		if d < prev {
			t.Fatalf("delay shrank at attempt %d: %v < %v", attempts, d, prev)
		}
		prev = d
	}
}

func TestPolicy_DelayFirstRetry(t *testing.T) {
	p := Default()
	p.Jitter = 0

	// One recorded attempt means the first retry: it waits the base delay.
	if got := p.Delay(1); got != time.Second {
		t.Fatalf("delay(1) = %v, want 1s", got)
	}
	if got := p.Delay(0); got != time.Second {
		t.Fatalf("delay(0) = %v, want 1s", got)
	}
}

func TestPolicy_DelayCapped(t *testing.T) {
	p := Default()

	flat := p
	flat.Jitter = 0
	cap := flat.Delay(flat.MaxAttempts)

	// The last in-budget retry is still jittered.
	if got := p.Delay(p.MaxAttempts); got < cap || got >= cap+p.Jitter {
		t.Fatalf("delay(%d) = %v, outside [%v, %v)", p.MaxAttempts, got, cap, cap+p.Jitter)
	}

	// Anything past the budget sits flat on the cap, no jitter.
	for _, attempts := range []int{p.MaxAttempts + 1, p.MaxAttempts + 5, 100} {
		if got := p.Delay(attempts); got != cap {
			t.Fatalf("delay(%d) = %v, want flat cap %v", attempts, got, cap)
		}
	}
}

func TestPolicy_JitterBounds(t *testing.T) {
	p := Default()

	base := p.Delay(3) // includes jitter
	p.Jitter = 0
	floor := p.Delay(3)

	if base < floor || base >= floor+DefaultJitter {
		t.Fatalf("jittered delay %v outside [%v, %v)", base, floor, floor+DefaultJitter)
	}
}

func TestPolicy_Exhausted(t *testing.T) {
	p := Default()

	if p.Exhausted(p.MaxAttempts - 1) {
		t.Fatal("budget should not be exhausted with one attempt left")
	}
	if !p.Exhausted(p.MaxAttempts) {
		t.Fatal("budget should be exhausted at MaxAttempts")
	}
}

func TestPolicy_NextRetryAtInFuture(t *testing.T) {
	p := Default()
	now := time.Now()

	at := p.NextRetryAt(now, 0)
	if !at.After(now) {
		t.Fatalf("next retry %v not after %v", at, now)
	}
}
