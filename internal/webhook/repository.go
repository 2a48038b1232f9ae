// Package webhook accepts contacts from web forms and chat platforms under
// tenant API keys and feeds them into lead intake.
package webhook

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const keySelect = `
	SELECT id, organization_id, name, key_hash, key_prefix, allowed_domains,
	       is_active, created_at, updated_at
	FROM webhook_api_keys`

// Repository stores API keys in webhook_api_keys.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, key APIKey) (APIKey, error) {
	row := r.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO webhook_api_keys (organization_id, name, key_hash, key_prefix, allowed_domains, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		)
		SELECT id, organization_id, name, key_hash, key_prefix, allowed_domains,
		       is_active, created_at, updated_at
		FROM inserted`,
		key.TenantID, key.Name, key.KeyHash, key.KeyPrefix, key.AllowedDomains, key.IsActive)
	return collectKey(row)
}

func (r *Repository) FindActiveByHash(ctx context.Context, keyHash string) (APIKey, error) {
	key, err := collectKey(r.pool.QueryRow(ctx, keySelect+` WHERE key_hash = $1 AND is_active`, keyHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrAPIKeyNotFound
	}
	return key, err
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx, keySelect+` WHERE organization_id = $1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (APIKey, error) {
		return collectKey(row)
	})
}

func (r *Repository) Deactivate(ctx context.Context, tenantID, keyID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_api_keys SET is_active = false, updated_at = now()
		WHERE organization_id = $1 AND id = $2 AND is_active`, tenantID, keyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

func collectKey(row pgx.Row) (APIKey, error) {
	var k APIKey
	err := row.Scan(&k.ID, &k.TenantID, &k.Name, &k.KeyHash, &k.KeyPrefix,
		&k.AllowedDomains, &k.IsActive, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

var _ KeyStore = (*Repository)(nil)
