package inapp

import (
	"context"
	"errors"
	"time"

	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	notificationColumns = `id, organization_id, user_id, title, content, resource_id, resource_type, category, is_read, created_at`

	pgForeignKeyViolation = "23503"
)

type Notification struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TenantID     uuid.UUID  `json:"-" db:"organization_id"`
	UserID       uuid.UUID  `json:"userId" db:"user_id"`
	Title        string     `json:"title" db:"title"`
	Content      string     `json:"content" db:"content"`
	ResourceID   *uuid.UUID `json:"resourceId,omitempty" db:"resource_id"`
	ResourceType *string    `json:"resourceType,omitempty" db:"resource_type"`
	Category     string     `json:"category" db:"category"`
	IsRead       bool       `json:"isRead" db:"is_read"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
}

// Inbox scopes every read and write to one user in one tenant.
type Inbox struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
}

// Store persists notifications. MarkRead with no ids marks the whole inbox.
type Store interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	Page(ctx context.Context, inbox Inbox, limit, offset int) ([]Notification, int, error)
	Unread(ctx context.Context, inbox Inbox) (int, error)
	MarkRead(ctx context.Context, inbox Inbox, ids ...uuid.UUID) (int64, error)
	Remove(ctx context.Context, inbox Inbox, id uuid.UUID) (bool, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) (Notification, error) {
	rows, err := r.pool.Query(ctx, `
		INSERT INTO in_app_notifications
			(organization_id, user_id, title, content, resource_id, resource_type, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+notificationColumns,
		n.TenantID, n.UserID, n.Title, n.Content, n.ResourceID, n.ResourceType, n.Category)
	if err != nil {
		return Notification{}, insertError(err)
	}
	saved, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Notification])
	if err != nil {
		return Notification{}, insertError(err)
	}
	return saved, nil
}

func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return apperr.Validation("unknown tenant or recipient").WithOp("inapp.Insert")
	}
	return apperr.Wrap(apperr.KindInternal, "insert notification", err).WithOp("inapp.Insert")
}

// Page returns one page newest first and the inbox total, read in a single
// query with a window count.
func (r *Repository) Page(ctx context.Context, inbox Inbox, limit, offset int) ([]Notification, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`, count(*) OVER () AS total
		FROM in_app_notifications
		WHERE organization_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, inbox.TenantID, inbox.UserID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list notifications", err).WithOp("inapp.Page")
	}

	type pageRow struct {
		Notification
		Total int `db:"total"`
	}
	page, err := pgx.CollectRows(rows, pgx.RowToStructByName[pageRow])
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "scan notifications", err).WithOp("inapp.Page")
	}

	items := make([]Notification, len(page))
	total := 0
	for i, row := range page {
		items[i] = row.Notification
		total = row.Total
	}
	if len(page) == 0 && offset > 0 {
		err = r.pool.QueryRow(ctx, `SELECT count(*) FROM in_app_notifications WHERE organization_id = $1 AND user_id = $2`,
			inbox.TenantID, inbox.UserID).Scan(&total)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "count notifications", err).WithOp("inapp.Page")
		}
	}
	return items, total, nil
}

func (r *Repository) Unread(ctx context.Context, inbox Inbox) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM in_app_notifications
		WHERE organization_id = $1 AND user_id = $2 AND NOT is_read`,
		inbox.TenantID, inbox.UserID).Scan(&n)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "count unread notifications", err).WithOp("inapp.Unread")
	}
	return n, nil
}

func (r *Repository) MarkRead(ctx context.Context, inbox Inbox, ids ...uuid.UUID) (int64, error) {
	query := `
		UPDATE in_app_notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, now())
		WHERE organization_id = $1 AND user_id = $2`
	args := []any{inbox.TenantID, inbox.UserID}
	if len(ids) > 0 {
		query += ` AND id = ANY($3)`
		args = append(args, ids)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "mark notifications read", err).WithOp("inapp.MarkRead")
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Remove(ctx context.Context, inbox Inbox, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM in_app_notifications
		WHERE organization_id = $1 AND user_id = $2 AND id = $3`,
		inbox.TenantID, inbox.UserID, id)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "delete notification", err).WithOp("inapp.Remove")
	}
	return tag.RowsAffected() > 0, nil
}

var _ Store = (*Repository)(nil)
