package persistent

import (
	"context"
	"encoding/json"
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
	requestsTable = "requests"

	// Columns
	reqIDColumn        = "id"
	reqMethodColumn    = "method"
	reqProtocolColumn  = "protocol"
	reqHostnameColumn  = "hostname"
	reqURIColumn       = "uri"
	reqHeadersColumn   = "headers"
	reqBodyColumn      = "body"
	reqStateColumn     = "state"
	reqFromIDColumn    = "from_request_id"
	reqRetryAtColumn   = "retry_ms_at"
	reqCreatedAtColumn = "created_at"
	reqUpdatedAtColumn = "updated_at"
)

var requestColumns = []string{
	reqIDColumn,
	reqMethodColumn,
	reqProtocolColumn,
	reqHostnameColumn,
	reqURIColumn,
	reqHeadersColumn,
	reqBodyColumn,
	reqStateColumn,
	reqFromIDColumn,
	reqRetryAtColumn,
	reqCreatedAtColumn,
	reqUpdatedAtColumn,
}

// requestSortable guards ORDER BY input from the management API.
var requestSortable = map[string]bool{
	reqIDColumn:        true,
	reqStateColumn:     true,
	reqHostnameColumn:  true,
	reqRetryAtColumn:   true,
	reqCreatedAtColumn: true,
	reqUpdatedAtColumn: true,
}

type RequestRepo struct {
	*postgres.Postgres
}

func NewRequestRepo(pg *postgres.Postgres) *RequestRepo {
	return &RequestRepo{pg}
}

func (r *RequestRepo) Create(ctx context.Context, req *entity.Request) error {
	headers, err := json.Marshal(req.Headers)
	if err != nil {
		return fmt.Errorf("RequestRepo - Create - json.Marshal: %w", err)
	}

	sql, args, err := r.Builder.
		Insert(requestsTable).
		Columns(
			reqIDColumn,
			reqMethodColumn,
			reqProtocolColumn,
			reqHostnameColumn,
			reqURIColumn,
			reqHeadersColumn,
			reqBodyColumn,
			reqStateColumn,
			reqFromIDColumn,
			reqRetryAtColumn,
			reqCreatedAtColumn,
			reqUpdatedAtColumn,
		).
		Values(
			req.ID,
			req.Method,
			req.Protocol,
			req.Hostname,
			req.URI,
			headers,
			req.Body,
			req.State,
			req.FromRequestID,
			req.RetryAt,
			req.CreatedAt,
			req.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("RequestRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("RequestRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Request, error) {
	sql, args, err := r.Builder.
		Select(requestColumns...).
		From(requestsTable).
		Where(squirrel.Eq{reqIDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("RequestRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	req, err := scanRequest(executor.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("RequestRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("RequestRepo - GetByID - executor.QueryRow: %w", err)
	}

	return req, nil
}

func (r *RequestRepo) List(
	ctx context.Context,
	page repo.Page,
	filter repo.RequestFilter,
) ([]*entity.Request, int64, error) {
	cols := append(append([]string{}, requestColumns...), "COUNT(*) OVER() AS total")

	builder := r.Builder.
		Select(cols...).
		From(requestsTable)

	if len(filter.States) > 0 {
		builder = builder.Where(squirrel.Eq{reqStateColumn: filter.States})
	}
	if len(filter.IDs) > 0 {
		builder = builder.Where(squirrel.Eq{reqIDColumn: filter.IDs})
	}

	builder = orderAndWindow(builder, page, requestSortable, reqCreatedAtColumn)

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("RequestRepo - List - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("RequestRepo - List - executor.Query: %w", err)
	}
	defer rows.Close()

	var total int64
	requests := make([]*entity.Request, 0)

	for rows.Next() {
		req, err := scanRequestWithTotal(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("RequestRepo - List - rows.Scan: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("RequestRepo - List - rows.Err: %w", err)
	}

	return requests, total, nil
}

func (r *RequestRepo) UpdateState(ctx context.Context, id uuid.UUID, state entity.State) error {
	sql, args, err := r.Builder.
		Update(requestsTable).
		Set(reqStateColumn, state).
		Set(reqUpdatedAtColumn, time.Now()).
		Where(squirrel.Eq{reqIDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("RequestRepo - UpdateState - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("RequestRepo - UpdateState - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("RequestRepo - UpdateState: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *RequestRepo) SetDisposition(
	ctx context.Context,
	id uuid.UUID,
	state entity.State,
	retryAt *time.Time,
) error {
	sql, args, err := r.Builder.
		Update(requestsTable).
		Set(reqStateColumn, state).
		Set(reqRetryAtColumn, retryAt).
		Set(reqUpdatedAtColumn, time.Now()).
		Where(squirrel.Eq{reqIDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("RequestRepo - SetDisposition - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("RequestRepo - SetDisposition - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("RequestRepo - SetDisposition: %w", errs.ErrRecordNotFound)
	}

	return nil
}

// claimSQL is the single serialization point of the dispatch engine: only
// one worker can move a given row out of Enqueued. SKIP LOCKED keeps
// concurrent claimers from blocking on each other's candidate row.
const claimSQL = `
UPDATE requests
SET state = $1, updated_at = now()
WHERE id = (
    SELECT id
    FROM requests
    WHERE state = $2
        AND (retry_ms_at IS NULL OR retry_ms_at <= $3)
    ORDER BY retry_ms_at ASC NULLS FIRST, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING id, method, protocol, hostname, uri, headers, body, state,
    from_request_id, retry_ms_at, created_at, updated_at
`

func (r *RequestRepo) ClaimNextDue(ctx context.Context, now time.Time) (*entity.Request, error) {
	executor := r.GetExecutor(ctx)

	req, err := scanRequest(executor.QueryRow(ctx, claimSQL, entity.StateActive, entity.StateEnqueued, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("RequestRepo - ClaimNextDue - executor.QueryRow: %w", err)
	}

	return req, nil
}

func (r *RequestRepo) ReenqueueStale(ctx context.Context, olderThan time.Time) (int64, error) {
	sql, args, err := r.Builder.
		Update(requestsTable).
		Set(reqStateColumn, entity.StateEnqueued).
		Set(reqRetryAtColumn, time.Now()).
		Set(reqUpdatedAtColumn, time.Now()).
		Where(squirrel.And{
			squirrel.Eq{reqStateColumn: entity.StateActive},
			squirrel.Lt{reqUpdatedAtColumn: olderThan},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("RequestRepo - ReenqueueStale - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("RequestRepo - ReenqueueStale - executor.Exec: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *RequestRepo) ListCompletedBefore(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*entity.Request, error) {
	sql, args, err := r.Builder.
		Select(requestColumns...).
		From(requestsTable).
		Where(squirrel.And{
			squirrel.Eq{reqStateColumn: entity.StateCompleted},
			squirrel.Lt{reqCreatedAtColumn: cutoff},
		}).
		OrderBy(reqCreatedAtColumn + " ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("RequestRepo - ListCompletedBefore - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("RequestRepo - ListCompletedBefore - executor.Query: %w", err)
	}
	defer rows.Close()

	requests := make([]*entity.Request, 0, limit)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("RequestRepo - ListCompletedBefore - rows.Scan: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("RequestRepo - ListCompletedBefore - rows.Err: %w", err)
	}

	return requests, nil
}

func (r *RequestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	sql, args, err := r.Builder.
		Delete(requestsTable).
		Where(squirrel.Eq{reqIDColumn: id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("RequestRepo - Delete - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("RequestRepo - Delete - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("RequestRepo - Delete: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func scanRequest(row pgx.Row) (*entity.Request, error) {
	var (
		req     entity.Request
		headers []byte
	)

	err := row.Scan(
		&req.ID,
		&req.Method,
		&req.Protocol,
		&req.Hostname,
		&req.URI,
		&headers,
		&req.Body,
		&req.State,
		&req.FromRequestID,
		&req.RetryAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(headers, &req.Headers); err != nil {
		return nil, fmt.Errorf("headers unmarshal: %w", err)
	}

	return &req, nil
}

func scanRequestWithTotal(row pgx.Row, total *int64) (*entity.Request, error) {
	var (
		req     entity.Request
		headers []byte
	)

	err := row.Scan(
		&req.ID,
		&req.Method,
		&req.Protocol,
		&req.Hostname,
		&req.URI,
		&headers,
		&req.Body,
		&req.State,
		&req.FromRequestID,
		&req.RetryAt,
		&req.CreatedAt,
		&req.UpdatedAt,
		total,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(headers, &req.Headers); err != nil {
		return nil, fmt.Errorf("headers unmarshal: %w", err)
	}

	return &req, nil
}

// orderAndWindow applies the management API listing window. Sort fields are
// checked against an allow list; anything else falls back to the default.
func orderAndWindow(
	builder squirrel.SelectBuilder,
	page repo.Page,
	sortable map[string]bool,
	defaultSort string,
) squirrel.SelectBuilder {
	sort := page.Sort
	if !sortable[sort] {
		sort = defaultSort
	}

	order := "ASC"
	if page.Order == "DESC" || page.Order == "desc" {
		order = "DESC"
	}

	limit := page.End - page.Start + 1
	if limit <= 0 {
		limit = 25
	}

	return builder.
		OrderBy(sort + " " + order).
		Limit(uint64(limit)).
		Offset(uint64(page.Start))
}
