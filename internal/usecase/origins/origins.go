package origins

import (
	"context"
	"fmt"
	"time"

	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/andrsolo/Request-Relay/pkg/logger"
	"github.com/google/uuid"
)

// OriginUseCase owns origin configuration and the hostname -> origin lookup
// used by capture and dispatch. Mutations write through to the store and
// refresh the cache, so a changed origin_uri or timeout applies to the next
// attempt, never retroactively.
type OriginUseCase struct {
	originRepo repo.OriginRepo
	cache      *cache

	logger logger.Interface
}

func New(originRepo repo.OriginRepo, l logger.Interface) *OriginUseCase {
	return &OriginUseCase{
		originRepo: originRepo,
		cache:      newCache(),
		logger:     l,
	}
}

func (uc *OriginUseCase) Create(ctx context.Context, origin *entity.Origin) error {
	origin.ID = uuid.New()
	origin.CreatedAt = time.Now()
	origin.UpdatedAt = origin.CreatedAt

	if err := uc.originRepo.Create(ctx, origin); err != nil {
		return fmt.Errorf("OriginUseCase - Create - uc.originRepo.Create: %w", err)
	}

	if err := uc.Refresh(ctx); err != nil {
		uc.logger.Error(err, "OriginUseCase - Create - uc.Refresh")
	}

	return nil
}

func (uc *OriginUseCase) GetByID(ctx context.Context, id uuid.UUID) (*entity.Origin, error) {
	origin, err := uc.originRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("OriginUseCase - GetByID - uc.originRepo.GetByID: %w", err)
	}

	return origin, nil
}

func (uc *OriginUseCase) Update(ctx context.Context, origin *entity.Origin) error {
	if err := uc.originRepo.Update(ctx, origin); err != nil {
		return fmt.Errorf("OriginUseCase - Update - uc.originRepo.Update: %w", err)
	}

	if err := uc.Refresh(ctx); err != nil {
		uc.logger.Error(err, "OriginUseCase - Update - uc.Refresh")
	}

	return nil
}

func (uc *OriginUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	if err := uc.originRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("OriginUseCase - Delete - uc.originRepo.Delete: %w", err)
	}

	if err := uc.Refresh(ctx); err != nil {
		uc.logger.Error(err, "OriginUseCase - Delete - uc.Refresh")
	}

	return nil
}

func (uc *OriginUseCase) List(ctx context.Context, page repo.Page) ([]*entity.Origin, int64, error) {
	list, total, err := uc.originRepo.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("OriginUseCase - List - uc.originRepo.List: %w", err)
	}

	return list, total, nil
}

func (uc *OriginUseCase) Resolve(hostname string) (*entity.Origin, bool) {
	return uc.cache.get(hostname)
}

func (uc *OriginUseCase) Refresh(ctx context.Context) error {
	list, err := uc.originRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("OriginUseCase - Refresh - uc.originRepo.ListAll: %w", err)
	}

	uc.cache.refresh(list)

	return nil
}
