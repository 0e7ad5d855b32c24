package usecase

import (
	"context"
	"time"

	"github.com/andrsolo/Request-Relay/internal/dto"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/google/uuid"
)

// Outcome is the classified result of one delivery attempt, handed to the
// relay use case for recording. Exactly one attempt row is written per
// outcome, except Skipped.
type Outcome struct {
	State          entity.State
	ResponseStatus *int
	ResponseBody   []byte
}

type (
	RelayUseCase interface {
		// Capture persists a raw inbound request and normalizes it:
		// Received, then Created and Enqueued when an origin matches the
		// hostname, Skipped otherwise.
		Capture(ctx context.Context, capture dto.Capture) (*entity.Request, error)

		// Requeue re-executes a stored request as a new lineage row,
		// bypassing backoff. The original and its attempts stay untouched.
		Requeue(ctx context.Context, id uuid.UUID) (*entity.Request, error)

		// Resubmit is Requeue with operator-edited payload fields.
		Resubmit(ctx context.Context, id uuid.UUID, edit dto.RequestEdit) (*entity.Request, error)

		// ClaimNextDue hands the oldest due request to a worker, or nil.
		ClaimNextDue(ctx context.Context) (*entity.Request, error)

		// RecordOutcome writes the attempt and the state transition in one
		// transaction and applies the retry schedule. Returns the state the
		// request settled in (Enqueued when rescheduled).
		RecordOutcome(ctx context.Context, req *entity.Request, origin *entity.Origin, outcome Outcome) (entity.State, error)

		// RecoverStale re-enqueues Active rows untouched for longer than
		// staleAfter, closing the crash-while-Active liveness gap.
		RecoverStale(ctx context.Context, staleAfter time.Duration) (int64, error)

		// ArchiveExpired archives and deletes Completed requests older than
		// retention. Reports how many were purged.
		ArchiveExpired(ctx context.Context, retention time.Duration, batch int) (int, error)

		GetRequest(ctx context.Context, id uuid.UUID) (*entity.Request, error)
		ListRequests(ctx context.Context, page repo.Page, filter repo.RequestFilter) ([]*entity.Request, int64, error)
		GetAttempt(ctx context.Context, id uuid.UUID) (*entity.Attempt, error)
		ListAttempts(ctx context.Context, page repo.Page, requestID *uuid.UUID) ([]*entity.Attempt, int64, error)
	}

	OriginUseCase interface {
		Create(ctx context.Context, origin *entity.Origin) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.Origin, error)
		Update(ctx context.Context, origin *entity.Origin) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, page repo.Page) ([]*entity.Origin, int64, error)

		// Resolve maps a captured hostname to its configured origin. A miss
		// is not an error; it is the documented reason for Skipped.
		Resolve(hostname string) (*entity.Origin, bool)

		// Refresh reloads the in-memory domain cache from the store.
		Refresh(ctx context.Context) error
	}
)
