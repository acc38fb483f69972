package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"vendorica-api/internal/domain"
)

// OrganizationRepository resuelve organizaciones y roles de alta.
type OrganizationRepository interface {
	GetOrCreateByName(ctx context.Context, org domain.Organization) (domain.Organization, error)
}

// RoleRepository resuelve roles por nombre.
type RoleRepository interface {
	GetOrCreateByName(ctx context.Context, role domain.Role) (domain.Role, error)
}

type PgOrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewPgOrganizationRepository(pool *pgxpool.Pool) *PgOrganizationRepository {
	return &PgOrganizationRepository{pool: pool}
}

// GetOrCreateByName es seguro frente a altas concurrentes: el upsert no-op
// devuelve la fila existente.
func (r *PgOrganizationRepository) GetOrCreateByName(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	const query = `
		INSERT INTO organizations (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description, created_at
	`
	var o domain.Organization
	err := r.pool.QueryRow(ctx, query, org.Name, org.Description).Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt)
	return o, mapPgError(err)
}

type PgRoleRepository struct {
	pool *pgxpool.Pool
}

func NewPgRoleRepository(pool *pgxpool.Pool) *PgRoleRepository {
	return &PgRoleRepository{pool: pool}
}

func (r *PgRoleRepository) GetOrCreateByName(ctx context.Context, role domain.Role) (domain.Role, error) {
	const query = `
		INSERT INTO roles (name, display_name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, display_name, description, created_at
	`
	var out domain.Role
	err := r.pool.QueryRow(ctx, query, role.Name, role.DisplayName, role.Description).
		Scan(&out.ID, &out.Name, &out.DisplayName, &out.Description, &out.CreatedAt)
	return out, mapPgError(err)
}
