package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/repo"
	"github.com/andrsolo/Request-Relay/pkg/postgres"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	// Table
	originsTable = "origins"

	// Columns
	orgIDColumn        = "id"
	orgDomainColumn    = "domain"
	orgURIColumn       = "origin_uri"
	orgTimeoutColumn   = "timeout_ms"
	orgThresholdColumn = "alert_threshold"
	orgCreatedAtColumn = "created_at"
	orgUpdatedAtColumn = "updated_at"
)

var originColumns = []string{
	orgIDColumn,
	orgDomainColumn,
	orgURIColumn,
	orgTimeoutColumn,
	orgThresholdColumn,
	orgCreatedAtColumn,
	orgUpdatedAtColumn,
}

var originSortable = map[string]bool{
	orgIDColumn:        true,
	orgDomainColumn:    true,
	orgTimeoutColumn:   true,
	orgCreatedAtColumn: true,
	orgUpdatedAtColumn: true,
}

type OriginRepo struct {
	*postgres.Postgres
}

func NewOriginRepo(pg *postgres.Postgres) *OriginRepo {
	return &OriginRepo{pg}
}

func (r *OriginRepo) Create(ctx context.Context, origin *entity.Origin) error {
	sql, args, err := r.Builder.
		Insert(originsTable).
		Columns(
			orgIDColumn,
			orgDomainColumn,
			orgURIColumn,
			orgTimeoutColumn,
			orgThresholdColumn,
			orgCreatedAtColumn,
			orgUpdatedAtColumn,
		).
		Values(
			origin.ID,
			origin.Domain,
			origin.OriginURI,
			origin.Timeout.Milliseconds(),
			origin.AlertThreshold,
			origin.CreatedAt,
			origin.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("OriginRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OriginRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *OriginRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Origin, error) {
	sql, args, err := r.Builder.
		Select(originColumns...).
		From(originsTable).
		Where(squirrel.Eq{orgIDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OriginRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	origin, err := scanOrigin(executor.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("OriginRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("OriginRepo - GetByID - executor.QueryRow: %w", err)
	}

	return origin, nil
}

func (r *OriginRepo) Update(ctx context.Context, origin *entity.Origin) error {
	sql, args, err := r.Builder.
		Update(originsTable).
		Set(orgDomainColumn, origin.Domain).
		Set(orgURIColumn, origin.OriginURI).
		Set(orgTimeoutColumn, origin.Timeout.Milliseconds()).
		Set(orgThresholdColumn, origin.AlertThreshold).
		Set(orgUpdatedAtColumn, time.Now()).
		Where(squirrel.Eq{orgIDColumn: origin.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("OriginRepo - Update - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OriginRepo - Update - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OriginRepo - Update: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *OriginRepo) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.Builder.
		Delete(originsTable).
		Where(squirrel.Eq{orgIDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("OriginRepo - Delete - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("OriginRepo - Delete - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("OriginRepo - Delete: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *OriginRepo) List(ctx context.Context, page repo.Page) ([]*entity.Origin, int64, error) {
	cols := append(append([]string{}, originColumns...), "COUNT(*) OVER() AS total")

	builder := orderAndWindow(
		r.Builder.Select(cols...).From(originsTable),
		page,
		originSortable,
		orgDomainColumn,
	)

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("OriginRepo - List - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("OriginRepo - List - executor.Query: %w", err)
	}
	defer rows.Close()

	var total int64
	origins := make([]*entity.Origin, 0)

	for rows.Next() {
		var (
			origin    entity.Origin
			timeoutMS int64
		)
		err = rows.Scan(
			&origin.ID,
			&origin.Domain,
			&origin.OriginURI,
			&timeoutMS,
			&origin.AlertThreshold,
			&origin.CreatedAt,
			&origin.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("OriginRepo - List - rows.Scan: %w", err)
		}
		origin.Timeout = time.Duration(timeoutMS) * time.Millisecond
		origins = append(origins, &origin)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("OriginRepo - List - rows.Err: %w", err)
	}

	return origins, total, nil
}

func (r *OriginRepo) ListAll(ctx context.Context) ([]*entity.Origin, error) {
	sql, args, err := r.Builder.
		Select(originColumns...).
		From(originsTable).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("OriginRepo - ListAll - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("OriginRepo - ListAll - executor.Query: %w", err)
	}
	defer rows.Close()

	origins := make([]*entity.Origin, 0)
	for rows.Next() {
		origin, err := scanOrigin(rows)
		if err != nil {
			return nil, fmt.Errorf("OriginRepo - ListAll - rows.Scan: %w", err)
		}
		origins = append(origins, origin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("OriginRepo - ListAll - rows.Err: %w", err)
	}

	return origins, nil
}

func scanOrigin(row pgx.Row) (*entity.Origin, error) {
	var (
		origin    entity.Origin
		timeoutMS int64
	)

	err := row.Scan(
		&origin.ID,
		&origin.Domain,
		&origin.OriginURI,
		&timeoutMS,
		&origin.AlertThreshold,
		&origin.CreatedAt,
		&origin.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	origin.Timeout = time.Duration(timeoutMS) * time.Millisecond

	return &origin, nil
}
