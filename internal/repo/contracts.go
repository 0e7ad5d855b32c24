package repo

import (
	"context"
	"time"

	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/google/uuid"
)

// Page is the windowed-listing contract of the management API.
type Page struct {
	Start int
	End   int
	Sort  string
	Order string
}

// RequestFilter narrows management listings.
type RequestFilter struct {
	States []entity.State
	IDs    []uuid.UUID
}

type (
	RequestRepo interface {
		Create(ctx context.Context, req *entity.Request) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Request, error)
		List(ctx context.Context, page Page, filter RequestFilter) ([]*entity.Request, int64, error)

		// UpdateState moves a request without touching its schedule.
		UpdateState(ctx context.Context, id uuid.UUID, state entity.State) error

		// SetDisposition records the outcome of an attempt: the new state
		// plus the retry schedule (nil retryAt clears it).
		SetDisposition(ctx context.Context, id uuid.UUID, state entity.State, retryAt *time.Time) error

		// ClaimNextDue atomically moves the oldest-due enqueued request to
		// Active and returns it. Returns (nil, nil) when nothing is due.
		ClaimNextDue(ctx context.Context, now time.Time) (*entity.Request, error)

		// ReenqueueStale returns Active rows older than the staleness window
		// to the queue. Closes the crash-during-Active liveness gap.
		ReenqueueStale(ctx context.Context, olderThan time.Time) (int64, error)

		ListCompletedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entity.Request, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	AttemptRepo interface {
		Create(ctx context.Context, attempt *entity.Attempt) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Attempt, error)
		CountByRequest(ctx context.Context, requestID uuid.UUID) (int, error)
		ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entity.Attempt, error)
		List(ctx context.Context, page Page, requestID *uuid.UUID) ([]*entity.Attempt, int64, error)
	}

	OriginRepo interface {
		Create(ctx context.Context, origin *entity.Origin) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Origin, error)
		Update(ctx context.Context, origin *entity.Origin) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, page Page) ([]*entity.Origin, int64, error)
		ListAll(ctx context.Context) ([]*entity.Origin, error)
	}

	// ArchiveRepo stores purged request histories in cold storage.
	ArchiveRepo interface {
		Store(ctx context.Context, key string, data []byte) error
	}

	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)
