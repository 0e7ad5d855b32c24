package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andrsolo/Request-Relay/internal/dto"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/infrastructure"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/andrsolo/Request-Relay/internal/usecase"
	"github.com/andrsolo/Request-Relay/internal/usecase/schedule"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/google/uuid"
)

// RelayUseCase drives the request lifecycle: capture and normalization,
// queueing, outcome recording with retry scheduling, recovery and retention.
type RelayUseCase struct {
	requestRepo repo.RequestRepo
	attemptRepo repo.AttemptRepo
	transactor  repo.Transactor

	resolver usecase.OriginUseCase
	policy   schedule.Policy

	alerts   infrastructure.AlertPublisher // optional
	archiver repo.ArchiveRepo              // optional

	logger logger.Interface
}

func New(
	requestRepo repo.RequestRepo,
	attemptRepo repo.AttemptRepo,
	transactor repo.Transactor,
	resolver usecase.OriginUseCase,
	policy schedule.Policy,
	alerts infrastructure.AlertPublisher,
	archiver repo.ArchiveRepo,
	l logger.Interface,
) *RelayUseCase {
	return &RelayUseCase{
		requestRepo: requestRepo,
		attemptRepo: attemptRepo,
		transactor:  transactor,
		resolver:    resolver,
		policy:      policy,
		alerts:      alerts,
		archiver:    archiver,
		logger:      l,
	}
}

func (uc *RelayUseCase) Capture(ctx context.Context, capture dto.Capture) (*entity.Request, error) {
	req := &entity.Request{
		ID:        uuid.New(),
		Method:    capture.Method,
		Protocol:  capture.Protocol,
		Hostname:  capture.Hostname,
		URI:       capture.URI,
		Headers:   capture.Headers,
		Body:      capture.Body,
		State:     entity.StateReceived,
		CreatedAt: time.Now(),
	}

	_, matched := uc.resolver.Resolve(req.Hostname)

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.requestRepo.Create(ctx, req); err != nil {
			return fmt.Errorf("uc.requestRepo.Create: %w", err)
		}

		if !matched {
			if err := uc.requestRepo.UpdateState(ctx, req.ID, entity.StateSkipped); err != nil {
				return fmt.Errorf("uc.requestRepo.UpdateState: %w", err)
			}
			req.State = entity.StateSkipped

			return nil
		}

		if err := uc.requestRepo.UpdateState(ctx, req.ID, entity.StateCreated); err != nil {
			return fmt.Errorf("uc.requestRepo.UpdateState: %w", err)
		}
		if err := uc.requestRepo.UpdateState(ctx, req.ID, entity.StateEnqueued); err != nil {
			return fmt.Errorf("uc.requestRepo.UpdateState: %w", err)
		}
		req.State = entity.StateEnqueued

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("RelayUseCase - Capture - uc.transactor.WithinTransaction: %w", err)
	}

	return req, nil
}

func (uc *RelayUseCase) Requeue(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
	original, err := uc.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("RelayUseCase - Requeue - uc.requestRepo.GetByID: %w", err)
	}

	retry := original.Clone()

	if err := uc.enqueueClone(ctx, retry); err != nil {
		return nil, fmt.Errorf("RelayUseCase - Requeue: %w", err)
	}

	return retry, nil
}

func (uc *RelayUseCase) Resubmit(ctx context.Context, id uuid.UUID, edit dto.RequestEdit) (*entity.Request, error) {
	original, err := uc.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("RelayUseCase - Resubmit - uc.requestRepo.GetByID: %w", err)
	}

	retry := original.Clone()
	retry.Method = edit.Method
	retry.URI = edit.URI
	retry.Headers = edit.Headers
	retry.Body = edit.Body

	if err := uc.enqueueClone(ctx, retry); err != nil {
		return nil, fmt.Errorf("RelayUseCase - Resubmit: %w", err)
	}

	return retry, nil
}

// enqueueClone inserts a lineage row and puts it straight on the queue.
// Manual retries skip backoff: retry_ms_at stays unset so the row is due
// immediately.
func (uc *RelayUseCase) enqueueClone(ctx context.Context, retry *entity.Request) error {
	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := uc.requestRepo.Create(ctx, retry); err != nil {
			return fmt.Errorf("uc.requestRepo.Create: %w", err)
		}

		if err := uc.requestRepo.UpdateState(ctx, retry.ID, entity.StateEnqueued); err != nil {
			return fmt.Errorf("uc.requestRepo.UpdateState: %w", err)
		}
		retry.State = entity.StateEnqueued

		return nil
	})
	if err != nil {
		return fmt.Errorf("uc.transactor.WithinTransaction: %w", err)
	}

	return nil
}

func (uc *RelayUseCase) ClaimNextDue(ctx context.Context) (*entity.Request, error) {
	req, err := uc.requestRepo.ClaimNextDue(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("RelayUseCase - ClaimNextDue - uc.requestRepo.ClaimNextDue: %w", err)
	}

	return req, nil
}

func (uc *RelayUseCase) RecordOutcome(
	ctx context.Context,
	req *entity.Request,
	origin *entity.Origin,
	outcome usecase.Outcome,
) (entity.State, error) {
	// Origin miss: no attempt was made, so nothing to record beyond state.
	if outcome.State == entity.StateSkipped {
		if err := uc.requestRepo.SetDisposition(ctx, req.ID, entity.StateSkipped, nil); err != nil {
			return 0, fmt.Errorf("RelayUseCase - RecordOutcome - uc.requestRepo.SetDisposition: %w", err)
		}

		return entity.StateSkipped, nil
	}

	var (
		finalState entity.State
		attempts   int
	)

	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		attempt := &entity.Attempt{
			ID:             uuid.New(),
			RequestID:      req.ID,
			ResponseStatus: outcome.ResponseStatus,
			ResponseBody:   outcome.ResponseBody,
			CreatedAt:      time.Now(),
		}
		if err := uc.attemptRepo.Create(ctx, attempt); err != nil {
			return fmt.Errorf("uc.attemptRepo.Create: %w", err)
		}

		count, err := uc.attemptRepo.CountByRequest(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("uc.attemptRepo.CountByRequest: %w", err)
		}
		attempts = count

		finalState = outcome.State
		var retryAt *time.Time

		if outcome.State.Retryable() && !uc.policy.Exhausted(count) {
			at := uc.policy.NextRetryAt(time.Now(), count)
			retryAt = &at
			finalState = entity.StateEnqueued
		}

		if err := uc.requestRepo.SetDisposition(ctx, req.ID, finalState, retryAt); err != nil {
			return fmt.Errorf("uc.requestRepo.SetDisposition: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("RelayUseCase - RecordOutcome - uc.transactor.WithinTransaction: %w", err)
	}

	uc.maybeAlert(ctx, req, origin, outcome.State, attempts)

	return finalState, nil
}

// maybeAlert raises an operator alert on every panic and whenever failure
// count reaches the origin's threshold. Alerting is best-effort: a publish
// failure never affects the recorded outcome.
func (uc *RelayUseCase) maybeAlert(
	ctx context.Context,
	req *entity.Request,
	origin *entity.Origin,
	state entity.State,
	attempts int,
) {
	if uc.alerts == nil {
		return
	}

	// Threshold alerts fire once, at the crossing, not on every failure after.
	raise := state == entity.StatePanic
	if !raise && state.Retryable() && origin != nil && origin.AlertThreshold != nil {
		raise = attempts == *origin.AlertThreshold
	}
	if !raise {
		return
	}

	alert := entity.Alert{
		RequestID: req.ID,
		Hostname:  req.Hostname,
		State:     state,
		Attempts:  attempts,
		RaisedAt:  time.Now(),
	}

	if err := uc.alerts.Publish(ctx, alert); err != nil {
		uc.logger.Error(err, "RelayUseCase - maybeAlert - uc.alerts.Publish")
	}
}

func (uc *RelayUseCase) RecoverStale(ctx context.Context, staleAfter time.Duration) (int64, error) {
	n, err := uc.requestRepo.ReenqueueStale(ctx, time.Now().Add(-staleAfter))
	if err != nil {
		return 0, fmt.Errorf("RelayUseCase - RecoverStale - uc.requestRepo.ReenqueueStale: %w", err)
	}

	return n, nil
}

// archivedRequest is the cold-storage layout: the full request next to its
// complete attempt history.
type archivedRequest struct {
	Request  *entity.Request   `json:"request"`
	Attempts []*entity.Attempt `json:"attempts"`
}

func (uc *RelayUseCase) ArchiveExpired(ctx context.Context, retention time.Duration, batch int) (int, error) {
	cutoff := time.Now().Add(-retention)

	expired, err := uc.requestRepo.ListCompletedBefore(ctx, cutoff, batch)
	if err != nil {
		return 0, fmt.Errorf("RelayUseCase - ArchiveExpired - uc.requestRepo.ListCompletedBefore: %w", err)
	}

	purged := 0
	for _, req := range expired {
		if uc.archiver != nil {
			attempts, err := uc.attemptRepo.ListByRequest(ctx, req.ID)
			if err != nil {
				return purged, fmt.Errorf("RelayUseCase - ArchiveExpired - uc.attemptRepo.ListByRequest: %w", err)
			}

			data, err := json.Marshal(archivedRequest{Request: req, Attempts: attempts})
			if err != nil {
				return purged, fmt.Errorf("RelayUseCase - ArchiveExpired - json.Marshal: %w", err)
			}

			key := fmt.Sprintf("requests/%s/%s.json", req.CreatedAt.Format("2006/01"), req.ID)
			if err := uc.archiver.Store(ctx, key, data); err != nil {
				return purged, fmt.Errorf("RelayUseCase - ArchiveExpired - uc.archiver.Store: %w", err)
			}
		}

		// Attempts go with the request by cascade.
		if err := uc.requestRepo.Delete(ctx, req.ID); err != nil {
			return purged, fmt.Errorf("RelayUseCase - ArchiveExpired - uc.requestRepo.Delete: %w", err)
		}
		purged++
	}

	return purged, nil
}

func (uc *RelayUseCase) GetRequest(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
	req, err := uc.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("RelayUseCase - GetRequest - uc.requestRepo.GetByID: %w", err)
	}

	return req, nil
}

func (uc *RelayUseCase) ListRequests(
	ctx context.Context,
	page repo.Page,
	filter repo.RequestFilter,
) ([]*entity.Request, int64, error) {
	list, total, err := uc.requestRepo.List(ctx, page, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("RelayUseCase - ListRequests - uc.requestRepo.List: %w", err)
	}

	return list, total, nil
}

func (uc *RelayUseCase) GetAttempt(ctx context.Context, id uuid.UUID) (*entity.Attempt, error) {
	attempt, err := uc.attemptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("RelayUseCase - GetAttempt - uc.attemptRepo.GetByID: %w", err)
	}

	return attempt, nil
}

func (uc *RelayUseCase) ListAttempts(
	ctx context.Context,
	page repo.Page,
	requestID *uuid.UUID,
) ([]*entity.Attempt, int64, error) {
	list, total, err := uc.attemptRepo.List(ctx, page, requestID)
	if err != nil {
		return nil, 0, fmt.Errorf("RelayUseCase - ListAttempts - uc.attemptRepo.List: %w", err)
	}

	return list, total, nil
}
