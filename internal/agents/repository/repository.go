// Package repository reads the tenant user directory used for lead routing.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// User is a directory entry. Role is the user's routing role within the tenant.
type User struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Email      string
	FirstName  *string
	LastName   *string
	Role       string
	Branch     *string
	Department *string
	Active     bool
}

// ListFilter narrows ListUsers. Empty Roles matches every role.
type ListFilter struct {
	Roles      []string
	ActiveOnly bool
	Branch     *string
}

const userColumns = `id, organization_id, email, first_name, last_name, role, branch, department, is_active`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.Branch, &u.Department, &u.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// ListUsers returns the tenant's users in creation order.
func (r *Repository) ListUsers(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]User, error) {
	var roles []string
	if len(filter.Roles) > 0 {
		roles = filter.Roles
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE organization_id = $1
			AND ($2::text[] IS NULL OR role = ANY($2::text[]))
			AND (NOT $3::boolean OR is_active)
			AND ($4::text IS NULL OR branch = $4::text)
		ORDER BY created_at, id
	`, tenantID, roles, filter.ActiveOnly, filter.Branch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return users, nil
}

func (r *Repository) GetUser(ctx context.Context, tenantID, userID uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE organization_id = $1 AND id = $2
	`, tenantID, userID))
}
