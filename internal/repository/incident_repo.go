package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vendorica-api/internal/domain"
)

// IncidentRepository define el contrato de persistencia para incidentes.
// Todas las operaciones reciben la organizacion del llamador y la aplican
// como filtro.
type IncidentRepository interface {
	List(ctx context.Context, orgID string, filter domain.IncidentFilter) ([]domain.Incident, error)
	GetByID(ctx context.Context, orgID, id string) (domain.Incident, error)
	Create(ctx context.Context, incident domain.Incident) error
	Update(ctx context.Context, orgID, id string, patch domain.IncidentPatch, updatedAt time.Time) (domain.Incident, error)
	Delete(ctx context.Context, orgID, id string) error
}

// PgIncidentRepository implementa IncidentRepository con squirrel sobre pgxpool.
type PgIncidentRepository struct {
	pool *pgxpool.Pool
}

func NewPgIncidentRepository(pool *pgxpool.Pool) *PgIncidentRepository {
	return &PgIncidentRepository{pool: pool}
}

var (
	psql            = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	incidentColumns = []string{
		"id", "organization_id", "title", "description", "priority", "status",
		"vendor_id", "assigned_to", "due_date", "created_by", "created_at", "updated_at",
	}
)

func listIncidentsQuery(orgID string, filter domain.IncidentFilter) sq.SelectBuilder {
	q := psql.Select(incidentColumns...).
		From("incidents").
		Where(sq.Eq{"organization_id": orgID}).
		OrderBy("created_at DESC")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Priority != "" {
		q = q.Where(sq.Eq{"priority": filter.Priority})
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	return q
}

func getIncidentQuery(orgID, id string) sq.SelectBuilder {
	return psql.Select(incidentColumns...).
		From("incidents").
		Where(sq.Eq{"id": id, "organization_id": orgID})
}

func updateIncidentQuery(orgID, id string, patch domain.IncidentPatch, updatedAt time.Time) sq.UpdateBuilder {
	q := psql.Update("incidents").
		Set("updated_at", updatedAt).
		Where(sq.Eq{"id": id, "organization_id": orgID})
	if patch.Title != nil {
		q = q.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		q = q.Set("description", *patch.Description)
	}
	if patch.Priority != nil {
		q = q.Set("priority", *patch.Priority)
	}
	if patch.Status != nil {
		q = q.Set("status", *patch.Status)
	}
	if patch.VendorID != nil {
		q = q.Set("vendor_id", *patch.VendorID)
	}
	if patch.AssignedTo != nil {
		q = q.Set("assigned_to", *patch.AssignedTo)
	}
	if patch.DueDate != nil {
		q = q.Set("due_date", *patch.DueDate)
	}
	return q.Suffix("RETURNING " + strings.Join(incidentColumns, ", "))
}

func deleteIncidentQuery(orgID, id string) sq.DeleteBuilder {
	return psql.Delete("incidents").Where(sq.Eq{"id": id, "organization_id": orgID})
}

func (r *PgIncidentRepository) List(ctx context.Context, orgID string, filter domain.IncidentFilter) ([]domain.Incident, error) {
	query, args, err := listIncidentsQuery(orgID, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list incidents: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return incidents, nil
}

func (r *PgIncidentRepository) GetByID(ctx context.Context, orgID, id string) (domain.Incident, error) {
	query, args, err := getIncidentQuery(orgID, id).ToSql()
	if err != nil {
		return domain.Incident{}, fmt.Errorf("build get incident: %w", err)
	}
	return scanIncident(r.pool.QueryRow(ctx, query, args...))
}

func (r *PgIncidentRepository) Create(ctx context.Context, inc domain.Incident) error {
	query, args, err := psql.Insert("incidents").
		Columns(incidentColumns...).
		Values(
			inc.ID, inc.OrganizationID, inc.Title, inc.Description, inc.Priority, inc.Status,
			inc.VendorID, inc.AssignedTo, inc.DueDate, inc.CreatedBy, inc.CreatedAt, inc.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create incident: %w", err)
	}
	_, err = r.pool.Exec(ctx, query, args...)
	return mapPgError(err)
}

func (r *PgIncidentRepository) Update(ctx context.Context, orgID, id string, patch domain.IncidentPatch, updatedAt time.Time) (domain.Incident, error) {
	query, args, err := updateIncidentQuery(orgID, id, patch, updatedAt).ToSql()
	if err != nil {
		return domain.Incident{}, fmt.Errorf("build update incident: %w", err)
	}
	inc, err := scanIncident(r.pool.QueryRow(ctx, query, args...))
	return inc, mapPgError(err)
}

func (r *PgIncidentRepository) Delete(ctx context.Context, orgID, id string) error {
	query, args, err := deleteIncidentQuery(orgID, id).ToSql()
	if err != nil {
		return fmt.Errorf("build delete incident: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanIncident(row pgx.Row) (domain.Incident, error) {
	var inc domain.Incident
	err := row.Scan(
		&inc.ID,
		&inc.OrganizationID,
		&inc.Title,
		&inc.Description,
		&inc.Priority,
		&inc.Status,
		&inc.VendorID,
		&inc.AssignedTo,
		&inc.DueDate,
		&inc.CreatedBy,
		&inc.CreatedAt,
		&inc.UpdatedAt,
	)
	return inc, err
}
