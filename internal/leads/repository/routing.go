package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"crm_backend/internal/leads/domain"
	"crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrRoutingConfigNotFound = errors.New("location routing config not found")

const routingColumns = `organization_id, is_active, locations, assigned_users, created_at, updated_at`

func scanRoutingConfig(row pgx.Row) (domain.RoutingConfig, error) {
	var cfg domain.RoutingConfig
	var locations, users []byte
	if err := row.Scan(&cfg.TenantID, &cfg.Active, &locations, &users, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RoutingConfig{}, ErrRoutingConfigNotFound
		}
		return domain.RoutingConfig{}, err
	}

	cfg.Locations = map[string]domain.RoutedLocation{}
	if len(locations) > 0 {
		if err := json.Unmarshal(locations, &cfg.Locations); err != nil {
			return domain.RoutingConfig{}, fmt.Errorf("decode locations: %w", err)
		}
	}
	cfg.AssignedUsers = []domain.RoutedUser{}
	if len(users) > 0 {
		if err := json.Unmarshal(users, &cfg.AssignedUsers); err != nil {
			return domain.RoutingConfig{}, fmt.Errorf("decode assigned users: %w", err)
		}
	}
	return cfg, nil
}

func encodeRoutingConfig(cfg domain.RoutingConfig) ([]byte, []byte, error) {
	locations := cfg.Locations
	if locations == nil {
		locations = map[string]domain.RoutedLocation{}
	}
	users := cfg.AssignedUsers
	if users == nil {
		users = []domain.RoutedUser{}
	}
	locJSON, err := json.Marshal(locations)
	if err != nil {
		return nil, nil, err
	}
	usersJSON, err := json.Marshal(users)
	if err != nil {
		return nil, nil, err
	}
	return locJSON, usersJSON, nil
}

// GetRoutingConfig loads the tenant's routing document.
func (r *Repository) GetRoutingConfig(ctx context.Context, tenantID uuid.UUID) (domain.RoutingConfig, error) {
	return scanRoutingConfig(r.pool.QueryRow(ctx, `
		SELECT `+routingColumns+`
		FROM location_routing_configs
		WHERE organization_id = $1
	`, tenantID))
}

// SaveRoutingConfig upserts the whole document. Callers that read, modify and
// save without UpdateRoutingConfig can lose a concurrent writer's changes.
func (r *Repository) SaveRoutingConfig(ctx context.Context, cfg domain.RoutingConfig) error {
	locations, users, err := encodeRoutingConfig(cfg)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO location_routing_configs (organization_id, is_active, locations, assigned_users)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id) DO UPDATE
		SET is_active = EXCLUDED.is_active,
			locations = EXCLUDED.locations,
			assigned_users = EXCLUDED.assigned_users,
			updated_at = now()
	`, cfg.TenantID, cfg.Active, locations, users)
	return err
}

// UpdateRoutingConfig applies fn to the tenant's document under a row lock and
// persists the result. The document is created on demand.
func (r *Repository) UpdateRoutingConfig(ctx context.Context, tenantID uuid.UUID, fn func(*domain.RoutingConfig) error) (domain.RoutingConfig, error) {
	var result domain.RoutingConfig

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO location_routing_configs (organization_id)
			VALUES ($1)
			ON CONFLICT (organization_id) DO NOTHING
		`, tenantID); err != nil {
			return err
		}

		cfg, err := scanRoutingConfig(tx.QueryRow(ctx, `
			SELECT `+routingColumns+`
			FROM location_routing_configs
			WHERE organization_id = $1
			FOR UPDATE
		`, tenantID))
		if err != nil {
			return err
		}

		if err := fn(&cfg); err != nil {
			return err
		}

		locations, users, err := encodeRoutingConfig(cfg)
		if err != nil {
			return err
		}
		result, err = scanRoutingConfig(tx.QueryRow(ctx, `
			UPDATE location_routing_configs
			SET is_active = $2, locations = $3, assigned_users = $4, updated_at = now()
			WHERE organization_id = $1
			RETURNING `+routingColumns,
			tenantID, cfg.Active, locations, users,
		))
		return err
	})
	if err != nil {
		return domain.RoutingConfig{}, err
	}
	return result, nil
}
