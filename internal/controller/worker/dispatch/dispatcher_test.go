package dispatch

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andrsolo/Request-Relay/internal/dto"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/infrastructure"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
	"github.com/google/uuid"
)

type stubRelay struct {
	mu       sync.Mutex
	due      []*entity.Request
	outcomes []usecase.Outcome
	recorded chan usecase.Outcome
}

func newStubRelay(due ...*entity.Request) *stubRelay {
	return &stubRelay{due: due, recorded: make(chan usecase.Outcome, len(due)+1)}
}

func (s *stubRelay) ClaimNextDue(context.Context) (*entity.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.due) == 0 {
		return nil, nil
	}
	req := s.due[0]
	s.due = s.due[1:]
	return req, nil
}

func (s *stubRelay) RecordOutcome(_ context.Context, _ *entity.Request, _ *entity.Origin, outcome usecase.Outcome) (entity.State, error) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, outcome)
	s.mu.Unlock()
	s.recorded <- outcome
	return outcome.State, nil
}

func (s *stubRelay) Capture(context.Context, dto.Capture) (*entity.Request, error) { return nil, nil }
func (s *stubRelay) Requeue(context.Context, uuid.UUID) (*entity.Request, error)   { return nil, nil }
func (s *stubRelay) Resubmit(context.Context, uuid.UUID, dto.RequestEdit) (*entity.Request, error) {
	return nil, nil
}
func (s *stubRelay) RecoverStale(context.Context, time.Duration) (int64, error) { return 0, nil }
func (s *stubRelay) ArchiveExpired(context.Context, time.Duration, int) (int, error) {
	return 0, nil
}
func (s *stubRelay) GetRequest(context.Context, uuid.UUID) (*entity.Request, error) {
	return nil, errs.ErrRecordNotFound
}
func (s *stubRelay) ListRequests(context.Context, repo.Page, repo.RequestFilter) ([]*entity.Request, int64, error) {
	return nil, 0, nil
}
func (s *stubRelay) GetAttempt(context.Context, uuid.UUID) (*entity.Attempt, error) {
	return nil, errs.ErrRecordNotFound
}
func (s *stubRelay) ListAttempts(context.Context, repo.Page, *uuid.UUID) ([]*entity.Attempt, int64, error) {
	return nil, 0, nil
}

type stubOrigins struct {
	origins map[string]*entity.Origin
}

func (s *stubOrigins) Resolve(hostname string) (*entity.Origin, bool) {
	o, ok := s.origins[hostname]
	return o, ok
}

func (s *stubOrigins) Create(context.Context, *entity.Origin) error { return nil }
func (s *stubOrigins) GetByID(context.Context, uuid.UUID) (*entity.Origin, error) {
	return nil, errs.ErrRecordNotFound
}
func (s *stubOrigins) Update(context.Context, *entity.Origin) error { return nil }
func (s *stubOrigins) Delete(context.Context, uuid.UUID) error      { return nil }
func (s *stubOrigins) List(context.Context, repo.Page) ([]*entity.Origin, int64, error) {
	return nil, 0, nil
}
func (s *stubOrigins) Refresh(context.Context) error { return nil }

type stubDeliverer struct {
	result *infrastructure.DeliveryResult
	err    error
	panics bool
}

func (s *stubDeliverer) Deliver(context.Context, *entity.Request, *entity.Origin) (*infrastructure.DeliveryResult, error) {
	if s.panics {
		panic("deliverer blew up")
	}
	return s.result, s.err
}

type nopLogger struct{}

func (nopLogger) Debug(interface{}, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})       {}
func (nopLogger) Warn(string, ...interface{})       {}
func (nopLogger) Error(interface{}, ...interface{}) {}
func (nopLogger) Fatal(interface{}, ...interface{}) {}

func runOne(t *testing.T, relay *stubRelay, origins *stubOrigins, dlv *stubDeliverer) usecase.Outcome {
	t.Helper()

	d := New(relay, origins, dlv, nopLogger{},
		5*time.Millisecond,  // poll
		time.Hour,           // recover
		time.Hour,           // stale after
		time.Hour,           // retention interval
		0,                   // retention disabled
		100, 1,
	)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		d.Shutdown(ctx)
	}()

	select {
	case outcome := <-relay.recorded:
		return outcome
	case <-time.After(2 * time.Second):
		t.Fatal("no outcome recorded")
		return usecase.Outcome{}
	}
}

func dueRequest(hostname string) *entity.Request {
	return &entity.Request{
		ID:       uuid.New(),
		Method:   "POST",
		Hostname: hostname,
		URI:      "/v1/orders",
		State:    entity.StateActive,
	}
}

func knownOrigins() *stubOrigins {
	return &stubOrigins{origins: map[string]*entity.Origin{
		"api.example.com": {ID: uuid.New(), Domain: "api.example.com", OriginURI: "http://origin:8080"},
	}}
}

func TestDispatchSuccess(t *testing.T) {
	status := 200
	outcome := runOne(t,
		newStubRelay(dueRequest("api.example.com")),
		knownOrigins(),
		&stubDeliverer{result: &infrastructure.DeliveryResult{Status: status, Body: []byte("ok")}},
	)

	if outcome.State != entity.StateCompleted {
		t.Fatalf("state = %v, want %v", outcome.State, entity.StateCompleted)
	}
	if outcome.ResponseStatus == nil || *outcome.ResponseStatus != status {
		t.Fatalf("status = %v, want %d", outcome.ResponseStatus, status)
	}
}

func TestDispatchErrorStatus(t *testing.T) {
	outcome := runOne(t,
		newStubRelay(dueRequest("api.example.com")),
		knownOrigins(),
		&stubDeliverer{result: &infrastructure.DeliveryResult{Status: 502}},
	)

	if outcome.State != entity.StateFailed {
		t.Fatalf("state = %v, want %v", outcome.State, entity.StateFailed)
	}
}

func TestDispatchUnreachableOrigin(t *testing.T) {
	outcome := runOne(t,
		newStubRelay(dueRequest("api.example.com")),
		knownOrigins(),
		&stubDeliverer{err: errs.ErrOriginUnreachable},
	)

	if outcome.State != entity.StateTimeout {
		t.Fatalf("state = %v, want %v", outcome.State, entity.StateTimeout)
	}
	if outcome.ResponseStatus != nil {
		t.Fatalf("timeout outcome has a status: %v", *outcome.ResponseStatus)
	}
}

func TestDispatchOriginRemoved(t *testing.T) {
	outcome := runOne(t,
		newStubRelay(dueRequest("gone.example.com")),
		knownOrigins(),
		&stubDeliverer{},
	)

	if outcome.State != entity.StateSkipped {
		t.Fatalf("state = %v, want %v", outcome.State, entity.StateSkipped)
	}
}

func TestDispatchPanicRecovered(t *testing.T) {
	outcome := runOne(t,
		newStubRelay(dueRequest("api.example.com")),
		knownOrigins(),
		&stubDeliverer{panics: true},
	)

	if outcome.State != entity.StatePanic {
		t.Fatalf("state = %v, want %v", outcome.State, entity.StatePanic)
	}
	if !strings.Contains(string(outcome.ResponseBody), "deliverer blew up") {
		t.Fatalf("diagnostic body = %q", outcome.ResponseBody)
	}
}

func TestDispatcherDoubleStart(t *testing.T) {
	d := New(newStubRelay(), knownOrigins(), &stubDeliverer{}, nopLogger{},
		time.Hour, time.Hour, time.Hour, time.Hour, 0, 100, 1)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
