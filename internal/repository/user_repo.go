package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vendorica-api/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetActiveByEmail(ctx context.Context, email string) (domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userSelect = `
	SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.status,
	       u.organization_id, u.role_id, u.last_login, u.created_at, u.updated_at,
	       o.id, o.name, r.id, r.name, r.display_name
	FROM users u
	LEFT JOIN organizations o ON o.id = u.organization_id
	LEFT JOIN roles r ON r.id = u.role_id
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (id, email, password_hash, first_name, last_name, status,
		                   organization_id, role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::uuid, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Status,
		user.OrganizationID,
		user.RoleID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return mapPgError(err)
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
}

func (r *PgUserRepository) GetActiveByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE lower(u.email) = lower($1) AND u.status = 'active'`, email))
}

func (r *PgUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`
	var exists bool
	err := r.pool.QueryRow(ctx, query, email).Scan(&exists)
	return exists, err
}

func (r *PgUserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u            domain.User
		passwordHash *string
		roleID       *string
		orgID        *string
		orgName      *string
		roleRowID    *string
		roleName     *string
		roleDisplay  *string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&passwordHash,
		&u.FirstName,
		&u.LastName,
		&u.Status,
		&u.OrganizationID,
		&roleID,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
		&orgID,
		&orgName,
		&roleRowID,
		&roleName,
		&roleDisplay,
	)
	if err != nil {
		return domain.User{}, err
	}
	if passwordHash != nil {
		u.PasswordHash = *passwordHash
	}
	if roleID != nil {
		u.RoleID = *roleID
	}
	if orgID != nil {
		u.Organization = &domain.Organization{ID: *orgID, Name: deref(orgName)}
	}
	if roleRowID != nil {
		u.Role = &domain.Role{ID: *roleRowID, Name: deref(roleName), DisplayName: deref(roleDisplay)}
	}
	return u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
