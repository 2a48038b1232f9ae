// Package repository is the Postgres persistence of the leads context: leads and
// their lifecycle facts, the location routing document and import jobs.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_backend/internal/leads/domain"
	"crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, organization_id, external_contact_id, name, phone, phone_key,
	secondary_phone, secondary_phone_key, email, city, assigned_agent_id, branch, department,
	status, activity_status, source, lead_type, next_follow_up_at, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	var source string
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.ExternalContactID, &lead.Name, &lead.Phone, &lead.PhoneKey,
		&lead.SecondaryPhone, &lead.SecondaryPhoneKey, &lead.Email, &lead.City, &lead.AssignedAgentID,
		&lead.Branch, &lead.Department, &lead.Status, &lead.ActivityStatus, &source, &lead.LeadType,
		&lead.NextFollowUpAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, ErrNotFound
		}
		return domain.Lead{}, err
	}
	lead.Source = domain.Source(source)
	return lead, nil
}

// CreateLeadParams carries a fully defaulted lead row.
type CreateLeadParams struct {
	TenantID          uuid.UUID
	ExternalContactID *string
	Name              string
	Phone             string
	PhoneKey          string
	SecondaryPhone    *string
	SecondaryPhoneKey *string
	Email             *string
	City              *string
	Department        *string
	Status            string
	ActivityStatus    string
	Source            domain.Source
	LeadType          *string
	NextFollowUpAt    time.Time
	Now               time.Time
}

// AssignmentParams stamps the chosen agent (or none) onto a lead. KeepBranch
// leaves the stored branch untouched.
type AssignmentParams struct {
	TenantID        uuid.UUID
	LeadID          uuid.UUID
	AssignedAgentID *uuid.UUID
	Branch          *string
	Department      *string
	KeepBranch      bool
}

func (r *Repository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1 AND id = $2
	`, tenantID, id))
}

func (r *Repository) FindByExternalContactID(ctx context.Context, tenantID uuid.UUID, externalID string) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1 AND external_contact_id = $2
	`, tenantID, externalID))
}

// FindLatestByPhoneKey returns the newest lead whose primary or secondary phone
// reduces to key.
func (r *Repository) FindLatestByPhoneKey(ctx context.Context, tenantID uuid.UUID, key string) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1 AND (phone_key = $2 OR secondary_phone_key = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`, tenantID, key))
}

// SetExternalContactID records the channel's contact reference on a lead.
// updated is false when another lead of the tenant already owns the reference;
// nothing is written then.
func (r *Repository) SetExternalContactID(ctx context.Context, tenantID, leadID uuid.UUID, externalID string) (updated bool, err error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET external_contact_id = $3, updated_at = now()
		WHERE organization_id = $1 AND id = $2
	`, tenantID, leadID, externalID)
	if err != nil {
		if db.IsUniqueViolation(err, "uq_leads_org_external_contact") {
			return false, nil
		}
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, ErrNotFound
	}
	return true, nil
}

// CreateWithLifecycle inserts the lead and its open lifecycle fact in one
// transaction. When any tenant uniqueness key is already taken the existing lead
// is returned with created=false and nothing is written.
func (r *Repository) CreateWithLifecycle(ctx context.Context, params CreateLeadParams) (domain.Lead, bool, error) {
	var lead domain.Lead
	created := false

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		inserted, err := scanLead(tx.QueryRow(ctx, `
			INSERT INTO leads (
				organization_id, external_contact_id, name, phone, phone_key, secondary_phone,
				secondary_phone_key, email, city, department, status, activity_status, source,
				lead_type, next_follow_up_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
			ON CONFLICT DO NOTHING
			RETURNING `+leadColumns,
			params.TenantID, params.ExternalContactID, params.Name, params.Phone, params.PhoneKey,
			params.SecondaryPhone, params.SecondaryPhoneKey, params.Email, params.City, params.Department,
			params.Status, params.ActivityStatus, string(params.Source), params.LeadType,
			params.NextFollowUpAt, params.Now,
		))
		if errors.Is(err, ErrNotFound) {
			existing, err := findConflicting(ctx, tx, params)
			if err != nil {
				return fmt.Errorf("resolve conflicting lead: %w", err)
			}
			lead = existing
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_lifecycle_events (organization_id, lead_id, kind, source, occurred_at)
			VALUES ($1, $2, $3, $4, $5)
		`, params.TenantID, inserted.ID, domain.LifecycleOpen, string(params.Source), params.Now); err != nil {
			return fmt.Errorf("insert lifecycle event: %w", err)
		}

		lead = inserted
		created = true
		return nil
	})
	if err != nil {
		return domain.Lead{}, false, err
	}
	return lead, created, nil
}

func findConflicting(ctx context.Context, tx pgx.Tx, params CreateLeadParams) (domain.Lead, error) {
	return scanLead(tx.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE organization_id = $1
			AND (
				($2::text IS NOT NULL AND external_contact_id = $2)
				OR phone_key = $3
				OR secondary_phone_key = $3
				OR ($4::text IS NOT NULL AND (phone_key = $4 OR secondary_phone_key = $4))
			)
		ORDER BY created_at DESC
		LIMIT 1
	`, params.TenantID, params.ExternalContactID, params.PhoneKey, params.SecondaryPhoneKey))
}

// UpdateAssignment overwrites the assignee, branch and department of a lead.
func (r *Repository) UpdateAssignment(ctx context.Context, params AssignmentParams) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET assigned_agent_id = $3,
			branch = CASE WHEN $6::boolean THEN branch ELSE $4::text END,
			department = $5,
			updated_at = now()
		WHERE organization_id = $1 AND id = $2
		RETURNING `+leadColumns,
		params.TenantID, params.LeadID, params.AssignedAgentID, params.Branch, params.Department, params.KeepBranch,
	))
}

// ListPhoneKeys returns every primary and secondary phone key of the tenant.
func (r *Repository) ListPhoneKeys(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT phone_key FROM leads WHERE organization_id = $1 AND phone_key <> ''
		UNION
		SELECT secondary_phone_key FROM leads WHERE organization_id = $1 AND secondary_phone_key IS NOT NULL
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return keys, nil
}

// CountAssignedLeads returns the number of leads assigned to each agent within
// the tenant. Agents without leads are present with zero.
func (r *Repository) CountAssignedLeads(ctx context.Context, tenantID uuid.UUID, agentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(agentIDs))
	for _, id := range agentIDs {
		counts[id] = 0
	}
	if len(agentIDs) == 0 {
		return counts, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT assigned_agent_id, COUNT(*)
		FROM leads
		WHERE organization_id = $1 AND assigned_agent_id = ANY($2::uuid[])
		GROUP BY assigned_agent_id
	`, tenantID, agentIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}
