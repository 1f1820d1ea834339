package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

type GenerationRequestRepository struct {
	BaseRepository
}

func NewGenerationRequestRepository(pool *pgxpool.Pool) *GenerationRequestRepository {
	return &GenerationRequestRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const requestColumns = `id, entity_type, status, requested_count, generated_count,
		failed_count, requested_at, started_at, completed_at, constraints,
		metadata, error_message`

func (r *GenerationRequestRepository) Create(ctx context.Context, request *models.GenerationRequest) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	constraints, err := marshalJSONField(request.Constraints)
	if err != nil {
		return fmt.Errorf("failed to marshal constraints: %w", err)
	}
	var metadata []byte
	if request.Metadata != nil {
		metadata, err = json.Marshal(request.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	query := `
		INSERT INTO conjugo_generation_requests (
			id, entity_type, status, requested_count, generated_count,
			failed_count, requested_at, constraints, metadata
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		request.ID,
		request.EntityType,
		request.Status,
		request.RequestedCount,
		request.GeneratedCount,
		request.FailedCount,
		request.RequestedAt,
		constraints,
		metadata,
	)

	return mapError(err)
}

func (r *GenerationRequestRepository) GetByID(ctx context.Context, id string) (*models.GenerationRequest, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + requestColumns + ` FROM conjugo_generation_requests WHERE id = $1`

	request, err := r.scanRequest(r.conn(ctx).QueryRow(ctx, query, id))
	if err == domain.ErrNotFound {
		return nil, domain.ErrRequestNotFound
	}
	return request, err
}

func (r *GenerationRequestRepository) List(ctx context.Context, filter ports.RequestListFilter) ([]*models.GenerationRequest, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var conditions []string
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", len(args)))
	}

	query := `SELECT ` + requestColumns + ` FROM conjugo_generation_requests`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY requested_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRequests(rows)
}

// MarkProcessing advances pending to processing and stamps started_at. Any
// other current status leaves the row untouched, which makes redeliveries
// harmless.
func (r *GenerationRequestRepository) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE conjugo_generation_requests
		SET status = $2, started_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4`

	_, err := r.conn(ctx).Exec(ctx, query, id, models.RequestStatusProcessing, at, models.RequestStatusPending)
	return err
}

func (r *GenerationRequestRepository) IncrementGenerated(ctx context.Context, id string) (ports.RequestCounts, error) {
	return r.increment(ctx, id, "generated_count")
}

func (r *GenerationRequestRepository) IncrementFailed(ctx context.Context, id string) (ports.RequestCounts, error) {
	return r.increment(ctx, id, "failed_count")
}

// increment is a single-statement read-modify-write; the RETURNING clause
// gives the caller a consistent counter snapshot for finalization checks.
func (r *GenerationRequestRepository) increment(ctx context.Context, id, column string) (ports.RequestCounts, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		UPDATE conjugo_generation_requests
		SET %s = %s + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING requested_count, generated_count, failed_count`, column, column)

	var counts ports.RequestCounts
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(&counts.Requested, &counts.Generated, &counts.Failed)
	if err != nil {
		if err := mapError(err); err == domain.ErrNotFound {
			return counts, domain.ErrRequestNotFound
		}
		return counts, err
	}
	return counts, nil
}

func (r *GenerationRequestRepository) Finalize(ctx context.Context, id string, status models.RequestStatus, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE conjugo_generation_requests
		SET status = $2, completed_at = $3
		WHERE id = $1 AND status IN ($4, $5)`

	_, err := r.conn(ctx).Exec(ctx, query, id, status, at,
		models.RequestStatusPending, models.RequestStatusProcessing)
	return err
}

// ExpireStale moves non-terminal requests to expired when nothing has touched
// them since the cutoff. The filter is on updated_at, which every counter
// increment bumps, so a large batch still making progress is left alone.
func (r *GenerationRequestRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE conjugo_generation_requests
		SET status = $1, completed_at = NOW(), error_message = 'expired before completion'
		WHERE status IN ($2, $3) AND updated_at < $4`

	result, err := r.conn(ctx).Exec(ctx, query,
		models.RequestStatusExpired,
		models.RequestStatusPending,
		models.RequestStatusProcessing,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// DeleteOlderThan removes terminal requests created before the cutoff. The
// problems they produced survive; the FK nulls their back-reference.
func (r *GenerationRequestRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		DELETE FROM conjugo_generation_requests
		WHERE requested_at < $1 AND status IN ($2, $3, $4, $5)`

	result, err := r.conn(ctx).Exec(ctx, query, cutoff,
		models.RequestStatusCompleted,
		models.RequestStatusPartial,
		models.RequestStatusFailed,
		models.RequestStatusExpired,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Delete removes one request outright. Used when publishing failed before any
// slot was enqueued, so no record of the aborted batch remains.
func (r *GenerationRequestRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM conjugo_generation_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *GenerationRequestRepository) scanRequest(row pgx.Row) (*models.GenerationRequest, error) {
	var req models.GenerationRequest
	var startedAt, completedAt sql.NullTime
	var constraints, metadata []byte
	var errorMessage sql.NullString

	err := row.Scan(
		&req.ID,
		&req.EntityType,
		&req.Status,
		&req.RequestedCount,
		&req.GeneratedCount,
		&req.FailedCount,
		&req.RequestedAt,
		&startedAt,
		&completedAt,
		&constraints,
		&metadata,
		&errorMessage,
	)
	if err != nil {
		return nil, mapError(err)
	}

	req.Constraints, err = unmarshalJSONPointer[models.GenerationConstraints](constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal constraints: %w", err)
	}
	if err := unmarshalJSONField(metadata, &req.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	req.StartedAt = getTimePtr(startedAt)
	req.CompletedAt = getTimePtr(completedAt)
	req.ErrorMessage = getString(errorMessage)
	return &req, nil
}

func (r *GenerationRequestRepository) scanRequests(rows pgx.Rows) ([]*models.GenerationRequest, error) {
	var requests []*models.GenerationRequest

	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}
