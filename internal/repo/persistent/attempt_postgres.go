package persistent

import (
	"context"
	"errors"
	"fmt"

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
	attemptsTable = "attempts"

	// Columns
	attIDColumn        = "id"
	attRequestIDColumn = "request_id"
	attStatusColumn    = "response_status"
	attBodyColumn      = "response_body"
	attCreatedAtColumn = "created_at"
)

var attemptColumns = []string{
	attIDColumn,
	attRequestIDColumn,
	attStatusColumn,
	attBodyColumn,
	attCreatedAtColumn,
}

var attemptSortable = map[string]bool{
	attIDColumn:        true,
	attRequestIDColumn: true,
	attStatusColumn:    true,
	attCreatedAtColumn: true,
}

// AttemptRepo is append-only: attempts are never updated or deleted except
// by cascade when a request is purged.
type AttemptRepo struct {
	*postgres.Postgres
}

func NewAttemptRepo(pg *postgres.Postgres) *AttemptRepo {
	return &AttemptRepo{pg}
}

func (r *AttemptRepo) Create(ctx context.Context, attempt *entity.Attempt) error {
	sql, args, err := r.Builder.
		Insert(attemptsTable).
		Columns(
			attIDColumn,
			attRequestIDColumn,
			attStatusColumn,
			attBodyColumn,
			attCreatedAtColumn,
		).
		Values(
			attempt.ID,
			attempt.RequestID,
			attempt.ResponseStatus,
			attempt.ResponseBody,
			attempt.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("AttemptRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("AttemptRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *AttemptRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Attempt, error) {
	sql, args, err := r.Builder.
		Select(attemptColumns...).
		From(attemptsTable).
		Where(squirrel.Eq{attIDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("AttemptRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var attempt entity.Attempt
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&attempt.ID,
		&attempt.RequestID,
		&attempt.ResponseStatus,
		&attempt.ResponseBody,
		&attempt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("AttemptRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("AttemptRepo - GetByID - executor.QueryRow: %w", err)
	}

	return &attempt, nil
}

func (r *AttemptRepo) CountByRequest(ctx context.Context, requestID uuid.UUID) (int, error) {
	sql, args, err := r.Builder.
		Select("COUNT(*)").
		From(attemptsTable).
		Where(squirrel.Eq{attRequestIDColumn: requestID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("AttemptRepo - CountByRequest - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var count int
	err = executor.QueryRow(ctx, sql, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("AttemptRepo - CountByRequest - executor.QueryRow: %w", err)
	}

	return count, nil
}

func (r *AttemptRepo) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*entity.Attempt, error) {
	sql, args, err := r.Builder.
		Select(attemptColumns...).
		From(attemptsTable).
		Where(squirrel.Eq{attRequestIDColumn: requestID}).
		OrderBy(attCreatedAtColumn + " ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("AttemptRepo - ListByRequest - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("AttemptRepo - ListByRequest - executor.Query: %w", err)
	}
	defer rows.Close()

	attempts := make([]*entity.Attempt, 0)
	for rows.Next() {
		var attempt entity.Attempt
		err = rows.Scan(
			&attempt.ID,
			&attempt.RequestID,
			&attempt.ResponseStatus,
			&attempt.ResponseBody,
			&attempt.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("AttemptRepo - ListByRequest - rows.Scan: %w", err)
		}
		attempts = append(attempts, &attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("AttemptRepo - ListByRequest - rows.Err: %w", err)
	}

	return attempts, nil
}

func (r *AttemptRepo) List(
	ctx context.Context,
	page repo.Page,
	requestID *uuid.UUID,
) ([]*entity.Attempt, int64, error) {
	cols := append(append([]string{}, attemptColumns...), "COUNT(*) OVER() AS total")

	builder := r.Builder.
		Select(cols...).
		From(attemptsTable)

	if requestID != nil {
		builder = builder.Where(squirrel.Eq{attRequestIDColumn: *requestID})
	}

	builder = orderAndWindow(builder, page, attemptSortable, attCreatedAtColumn)

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("AttemptRepo - List - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("AttemptRepo - List - executor.Query: %w", err)
	}
	defer rows.Close()

	var total int64
	attempts := make([]*entity.Attempt, 0)

	for rows.Next() {
		var attempt entity.Attempt
		err = rows.Scan(
			&attempt.ID,
			&attempt.RequestID,
			&attempt.ResponseStatus,
			&attempt.ResponseBody,
			&attempt.CreatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("AttemptRepo - List - rows.Scan: %w", err)
		}
		attempts = append(attempts, &attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("AttemptRepo - List - rows.Err: %w", err)
	}

	return attempts, total, nil
}
