package relay

import (
	"context"
	"testing"
	"time"

	"github.com/andrsolo/Request-Relay/internal/dto"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/internal/usecase/schedule"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
	"github.com/google/uuid"
)

type stubRequestRepo struct {
	requests map[uuid.UUID]*entity.Request

	dispositions []disposition
	reenqueued   int64
	deleted      []uuid.UUID
	completed    []*entity.Request
}

type disposition struct {
	id      uuid.UUID
	state   entity.State
	retryAt *time.Time
}

func newStubRequestRepo() *stubRequestRepo {
	return &stubRequestRepo{requests: map[uuid.UUID]*entity.Request{}}
}

func (s *stubRequestRepo) Create(_ context.Context, r *entity.Request) error {
	s.requests[r.ID] = r
	return nil
}

func (s *stubRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Request, error) {
	r, ok := s.requests[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}
	return r, nil
}

func (s *stubRequestRepo) List(context.Context, repo.Page, repo.RequestFilter) ([]*entity.Request, int64, error) {
	return nil, 0, nil
}

func (s *stubRequestRepo) UpdateState(_ context.Context, id uuid.UUID, state entity.State) error {
	s.requests[id].State = state
	return nil
}

func (s *stubRequestRepo) SetDisposition(_ context.Context, id uuid.UUID, state entity.State, retryAt *time.Time) error {
	s.dispositions = append(s.dispositions, disposition{id: id, state: state, retryAt: retryAt})
	if r, ok := s.requests[id]; ok {
		r.State = state
		r.RetryAt = retryAt
	}
	return nil
}

func (s *stubRequestRepo) ClaimNextDue(context.Context, time.Time) (*entity.Request, error) {
	return nil, nil
}

func (s *stubRequestRepo) ReenqueueStale(context.Context, time.Time) (int64, error) {
	return s.reenqueued, nil
}

func (s *stubRequestRepo) ListCompletedBefore(context.Context, time.Time, int) ([]*entity.Request, error) {
	return s.completed, nil
}

func (s *stubRequestRepo) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	delete(s.requests, id)
	return nil
}

type stubAttemptRepo struct {
	attempts []*entity.Attempt
}

func (s *stubAttemptRepo) Create(_ context.Context, a *entity.Attempt) error {
	s.attempts = append(s.attempts, a)
	return nil
}

func (s *stubAttemptRepo) GetByID(context.Context, uuid.UUID) (*entity.Attempt, error) {
	return nil, errs.ErrRecordNotFound
}

func (s *stubAttemptRepo) CountByRequest(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, a := range s.attempts {
		if a.RequestID == id {
			n++
		}
	}
	return n, nil
}

func (s *stubAttemptRepo) ListByRequest(_ context.Context, id uuid.UUID) ([]*entity.Attempt, error) {
	var out []*entity.Attempt
	for _, a := range s.attempts {
		if a.RequestID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubAttemptRepo) List(context.Context, repo.Page, *uuid.UUID) ([]*entity.Attempt, int64, error) {
	return nil, 0, nil
}

type stubTransactor struct{}

func (stubTransactor) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return f(ctx)
}

type stubResolver struct {
	origins map[string]*entity.Origin
}

func (s *stubResolver) Resolve(hostname string) (*entity.Origin, bool) {
	o, ok := s.origins[hostname]
	return o, ok
}

func (s *stubResolver) Create(context.Context, *entity.Origin) error          { return nil }
func (s *stubResolver) GetByID(context.Context, uuid.UUID) (*entity.Origin, error) {
	return nil, errs.ErrRecordNotFound
}
func (s *stubResolver) Update(context.Context, *entity.Origin) error { return nil }
func (s *stubResolver) Delete(context.Context, uuid.UUID) error      { return nil }
func (s *stubResolver) List(context.Context, repo.Page) ([]*entity.Origin, int64, error) {
	return nil, 0, nil
}
func (s *stubResolver) Refresh(context.Context) error { return nil }

type stubAlerts struct {
	published []entity.Alert
}

func (s *stubAlerts) Publish(_ context.Context, alert entity.Alert) error {
	s.published = append(s.published, alert)
	return nil
}

func (s *stubAlerts) Close() error { return nil }

type stubArchive struct {
	stored map[string][]byte
}

func (s *stubArchive) Store(_ context.Context, key string, data []byte) error {
	if s.stored == nil {
		s.stored = map[string][]byte{}
	}
	s.stored[key] = data
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(interface{}, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})       {}
func (nopLogger) Warn(string, ...interface{})       {}
func (nopLogger) Error(interface{}, ...interface{}) {}
func (nopLogger) Fatal(interface{}, ...interface{}) {}

type fixture struct {
	uc       *RelayUseCase
	requests *stubRequestRepo
	attempts *stubAttemptRepo
	alerts   *stubAlerts
	archive  *stubArchive
	resolver *stubResolver
}

func newFixture(origins map[string]*entity.Origin) *fixture {
	f := &fixture{
		requests: newStubRequestRepo(),
		attempts: &stubAttemptRepo{},
		alerts:   &stubAlerts{},
		archive:  &stubArchive{},
		resolver: &stubResolver{origins: origins},
	}
	f.uc = New(
		f.requests,
		f.attempts,
		stubTransactor{},
		f.resolver,
		schedule.Default(),
		f.alerts,
		f.archive,
		nopLogger{},
	)
	return f
}

func testOrigin(domain string) *entity.Origin {
	return &entity.Origin{
		ID:        uuid.New(),
		Domain:    domain,
		OriginURI: "http://origin.internal:8080",
		Timeout:   30 * time.Second,
	}
}

func TestCaptureMatchedOriginEnqueues(t *testing.T) {
	f := newFixture(map[string]*entity.Origin{"api.example.com": testOrigin("api.example.com")})

	req, err := f.uc.Capture(context.Background(), dto.Capture{
		Method:   "POST",
		Protocol: "https",
		Hostname: "api.example.com",
		URI:      "/v1/orders?source=web",
		Headers:  []entity.Header{{Name: "Content-Type", Value: "application/json"}},
		Body:     []byte(`{"id":1}`),
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if req.State != entity.StateEnqueued {
		t.Fatalf("state = %v, want %v", req.State, entity.StateEnqueued)
	}
	stored := f.requests.requests[req.ID]
	if stored == nil || stored.State != entity.StateEnqueued {
		t.Fatalf("stored request not enqueued: %+v", stored)
	}
}

func TestCaptureUnknownHostnameSkips(t *testing.T) {
	f := newFixture(nil)

	req, err := f.uc.Capture(context.Background(), dto.Capture{
		Method:   "GET",
		Protocol: "http",
		Hostname: "unknown.example.com",
		URI:      "/",
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	if req.State != entity.StateSkipped {
		t.Fatalf("state = %v, want %v", req.State, entity.StateSkipped)
	}
	if len(f.attempts.attempts) != 0 {
		t.Fatalf("skipped capture recorded %d attempts", len(f.attempts.attempts))
	}
}

func TestRecordOutcomeCompletedIsTerminal(t *testing.T) {
	f := newFixture(nil)
	req := &entity.Request{ID: uuid.New(), Hostname: "api.example.com", State: entity.StateActive}
	f.requests.requests[req.ID] = req

	status := 200
	state, err := f.uc.RecordOutcome(context.Background(), req, testOrigin("api.example.com"), usecase.Outcome{
		State:          entity.StateCompleted,
		ResponseStatus: &status,
		ResponseBody:   []byte("ok"),
	})
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	if state != entity.StateCompleted {
		t.Fatalf("state = %v, want %v", state, entity.StateCompleted)
	}
	if len(f.attempts.attempts) != 1 {
		t.Fatalf("attempts recorded = %d, want 1", len(f.attempts.attempts))
	}
	d := f.requests.dispositions[len(f.requests.dispositions)-1]
	if d.retryAt != nil {
		t.Fatalf("completed request got a retry time: %v", d.retryAt)
	}
}

func TestRecordOutcomeFailureReschedules(t *testing.T) {
	f := newFixture(nil)
	req := &entity.Request{ID: uuid.New(), Hostname: "api.example.com", State: entity.StateActive}
	f.requests.requests[req.ID] = req

	status := 503
	before := time.Now()
	state, err := f.uc.RecordOutcome(context.Background(), req, testOrigin("api.example.com"), usecase.Outcome{
		State:          entity.StateFailed,
		ResponseStatus: &status,
	})
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	if state != entity.StateEnqueued {
		t.Fatalf("state = %v, want %v", state, entity.StateEnqueued)
	}
	d := f.requests.dispositions[len(f.requests.dispositions)-1]
	if d.retryAt == nil {
		t.Fatal("rescheduled request has no retry time")
	}
	if !d.retryAt.After(before) {
		t.Fatalf("retry time %v not in the future", d.retryAt)
	}
}

func TestRecordOutcomeExhaustedBudgetSettlesFailed(t *testing.T) {
	f := newFixture(nil)
	req := &entity.Request{ID: uuid.New(), Hostname: "api.example.com", State: entity.StateActive}
	f.requests.requests[req.ID] = req

	policy := schedule.Default()
	for i := 0; i < policy.MaxAttempts-1; i++ {
		f.attempts.attempts = append(f.attempts.attempts, &entity.Attempt{ID: uuid.New(), RequestID: req.ID})
	}

	state, err := f.uc.RecordOutcome(context.Background(), req, testOrigin("api.example.com"), usecase.Outcome{
		State: entity.StateFailed,
	})
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	if state != entity.StateFailed {
		t.Fatalf("state = %v, want %v", state, entity.StateFailed)
	}
	d := f.requests.dispositions[len(f.requests.dispositions)-1]
	if d.retryAt != nil {
		t.Fatalf("exhausted request got a retry time: %v", d.retryAt)
	}
}

func TestRecordOutcomePanicIsTerminalAndAlerts(t *testing.T) {
	f := newFixture(nil)
	req := &entity.Request{ID: uuid.New(), Hostname: "api.example.com", State: entity.StateActive}
	f.requests.requests[req.ID] = req

	state, err := f.uc.RecordOutcome(context.Background(), req, testOrigin("api.example.com"), usecase.Outcome{
		State: entity.StatePanic,
	})
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	if state != entity.StatePanic {
		t.Fatalf("state = %v, want %v", state, entity.StatePanic)
	}
	if len(f.alerts.published) != 1 {
		t.Fatalf("alerts published = %d, want 1", len(f.alerts.published))
	}
	if f.alerts.published[0].RequestID != req.ID {
		t.Fatalf("alert for wrong request: %v", f.alerts.published[0].RequestID)
	}
}

func TestRecordOutcomeAlertsOnThreshold(t *testing.T) {
	f := newFixture(nil)
	req := &entity.Request{ID: uuid.New(), Hostname: "api.example.com", State: entity.StateActive}
	f.requests.requests[req.ID] = req

	threshold := 3
	origin := testOrigin("api.example.com")
	origin.AlertThreshold = &threshold

	for i := 0; i < 3; i++ {
		if _, err := f.uc.RecordOutcome(context.Background(), req, origin, usecase.Outcome{
			State: entity.StateTimeout,
		}); err != nil {
			t.Fatalf("RecordOutcome #%d: %v", i+1, err)
		}
	}

	if len(f.alerts.published) != 1 {
		t.Fatalf("alerts published = %d, want 1 (only at threshold)", len(f.alerts.published))
	}
	if f.alerts.published[0].Attempts != threshold {
		t.Fatalf("alert attempts = %d, want %d", f.alerts.published[0].Attempts, threshold)
	}
}

func TestRecordOutcomeSkippedWritesNoAttempt(t *testing.T) {
	f := newFixture(nil)
	req := &entity.Request{ID: uuid.New(), Hostname: "gone.example.com", State: entity.StateActive}
	f.requests.requests[req.ID] = req

	state, err := f.uc.RecordOutcome(context.Background(), req, nil, usecase.Outcome{State: entity.StateSkipped})
	if err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	if state != entity.StateSkipped {
		t.Fatalf("state = %v, want %v", state, entity.StateSkipped)
	}
	if len(f.attempts.attempts) != 0 {
		t.Fatalf("skipped outcome recorded %d attempts", len(f.attempts.attempts))
	}
}

func TestRequeueCreatesLineageRow(t *testing.T) {
	f := newFixture(nil)
	original := &entity.Request{
		ID:       uuid.New(),
		Method:   "POST",
		Hostname: "api.example.com",
		URI:      "/v1/orders",
		State:    entity.StateFailed,
		Body:     []byte("payload"),
	}
	f.requests.requests[original.ID] = original

	retry, err := f.uc.Requeue(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("Requeue: %v", err)
	}

	if retry.ID == original.ID {
		t.Fatal("requeue reused the original row")
	}
	if retry.FromRequestID == nil || *retry.FromRequestID != original.ID {
		t.Fatalf("lineage pointer = %v, want %v", retry.FromRequestID, original.ID)
	}
	if retry.State != entity.StateEnqueued {
		t.Fatalf("state = %v, want %v", retry.State, entity.StateEnqueued)
	}
	if retry.RetryAt != nil {
		t.Fatal("manual retry must be due immediately")
	}
	if f.requests.requests[original.ID].State != entity.StateFailed {
		t.Fatal("original row was mutated")
	}
}

func TestResubmitAppliesEdits(t *testing.T) {
	f := newFixture(nil)
	original := &entity.Request{
		ID:       uuid.New(),
		Method:   "POST",
		Hostname: "api.example.com",
		URI:      "/v1/orders",
		State:    entity.StateFailed,
	}
	f.requests.requests[original.ID] = original

	retry, err := f.uc.Resubmit(context.Background(), original.ID, dto.RequestEdit{
		Method:  "PUT",
		URI:     "/v2/orders",
		Headers: []entity.Header{{Name: "X-Retry", Value: "manual"}},
		Body:    []byte("edited"),
	})
	if err != nil {
		t.Fatalf("Resubmit: %v", err)
	}

	if retry.Method != "PUT" || retry.URI != "/v2/orders" || string(retry.Body) != "edited" {
		t.Fatalf("edits not applied: %+v", retry)
	}
	if retry.Hostname != original.Hostname {
		t.Fatalf("hostname changed: %s", retry.Hostname)
	}
	if retry.FromRequestID == nil || *retry.FromRequestID != original.ID {
		t.Fatalf("lineage pointer = %v, want %v", retry.FromRequestID, original.ID)
	}
}

func TestRequeueUnknownRequest(t *testing.T) {
	f := newFixture(nil)

	if _, err := f.uc.Requeue(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown request")
	}
}

func TestArchiveExpiredStoresAndDeletes(t *testing.T) {
	f := newFixture(nil)
	req := &entity.Request{
		ID:        uuid.New(),
		Hostname:  "api.example.com",
		State:     entity.StateCompleted,
		CreatedAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	f.requests.requests[req.ID] = req
	f.requests.completed = []*entity.Request{req}
	f.attempts.attempts = []*entity.Attempt{{ID: uuid.New(), RequestID: req.ID}}

	purged, err := f.uc.ArchiveExpired(context.Background(), 30*24*time.Hour, 100)
	if err != nil {
		t.Fatalf("ArchiveExpired: %v", err)
	}

	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
	if len(f.archive.stored) != 1 {
		t.Fatalf("archived objects = %d, want 1", len(f.archive.stored))
	}
	wantKey := "requests/2026/03/" + req.ID.String() + ".json"
	if _, ok := f.archive.stored[wantKey]; !ok {
		t.Fatalf("archive key missing, stored: %v", f.archive.stored)
	}
	if len(f.requests.deleted) != 1 || f.requests.deleted[0] != req.ID {
		t.Fatalf("deleted = %v, want [%v]", f.requests.deleted, req.ID)
	}
}
