package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
)

type APIKeyRepository struct {
	BaseRepository
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

const apiKeyColumns = `id, secret_hash, salt, prefix, name, active, permissions,
		allowed_ips, rate_limit, usage_count, created_at, updated_at, last_used_at`

func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO conjugo_api_keys (
			id, secret_hash, salt, prefix, name, active, permissions,
			allowed_ips, rate_limit, usage_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		key.ID,
		key.SecretHash,
		key.Salt,
		key.Prefix,
		key.Name,
		key.Active,
		permissionsToStrings(key.Permissions),
		key.AllowedIPs,
		key.RateLimit,
		key.UsageCount,
		key.CreatedAt,
		key.UpdatedAt,
	)

	return mapError(err)
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + apiKeyColumns + ` FROM conjugo_api_keys WHERE id = $1`

	key, err := r.scanKey(r.conn(ctx).QueryRow(ctx, query, id))
	if err == domain.ErrNotFound {
		return nil, domain.ErrAPIKeyNotFound
	}
	return key, err
}

func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + apiKeyColumns + ` FROM conjugo_api_keys WHERE prefix = $1`

	key, err := r.scanKey(r.conn(ctx).QueryRow(ctx, query, prefix))
	if err == domain.ErrNotFound {
		return nil, domain.ErrAPIKeyNotFound
	}
	return key, err
}

func (r *APIKeyRepository) List(ctx context.Context, limit, offset int) ([]*models.APIKey, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + apiKeyColumns + ` FROM conjugo_api_keys
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanKeys(rows)
}

func (r *APIKeyRepository) Update(ctx context.Context, key *models.APIKey) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE conjugo_api_keys SET
			name = $2,
			active = $3,
			permissions = $4,
			allowed_ips = $5,
			rate_limit = $6,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.conn(ctx).Exec(ctx, query,
		key.ID,
		key.Name,
		key.Active,
		permissionsToStrings(key.Permissions),
		key.AllowedIPs,
		key.RateLimit,
	)
	if err != nil {
		return mapError(err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.conn(ctx).Exec(ctx, `DELETE FROM conjugo_api_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

func (r *APIKeyRepository) IncrementUsage(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE conjugo_api_keys
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE id = $1`

	_, err := r.conn(ctx).Exec(ctx, query, id, at)
	return err
}

func (r *APIKeyRepository) scanKey(row pgx.Row) (*models.APIKey, error) {
	var key models.APIKey
	var permissions []string
	var lastUsedAt sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.SecretHash,
		&key.Salt,
		&key.Prefix,
		&key.Name,
		&key.Active,
		&permissions,
		&key.AllowedIPs,
		&key.RateLimit,
		&key.UsageCount,
		&key.CreatedAt,
		&key.UpdatedAt,
		&lastUsedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	key.Permissions = make([]models.Permission, len(permissions))
	for i, p := range permissions {
		key.Permissions[i] = models.Permission(p)
	}
	key.LastUsedAt = getTimePtr(lastUsedAt)
	return &key, nil
}

func (r *APIKeyRepository) scanKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey

	for rows.Next() {
		key, err := r.scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

func permissionsToStrings(perms []models.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
