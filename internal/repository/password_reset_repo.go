package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vendorica-api/internal/domain"
)

// PasswordResetRepository persiste tokens de reseteo (solo hashes).
type PasswordResetRepository interface {
	Create(ctx context.Context, token domain.PasswordResetToken) error
	GetByHash(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error)
	// Consume marca el token como usado y actualiza el password del usuario en
	// una sola transaccion. Devuelve ErrResetTokenConsumed si el update
	// condicional no encontro un token vigente.
	Consume(ctx context.Context, tokenHash, passwordHash string, at time.Time) (string, error)
}

type PgPasswordResetRepository struct {
	pool *pgxpool.Pool
}

func NewPgPasswordResetRepository(pool *pgxpool.Pool) *PgPasswordResetRepository {
	return &PgPasswordResetRepository{pool: pool}
}

func (r *PgPasswordResetRepository) Create(ctx context.Context, token domain.PasswordResetToken) error {
	const query = `
		INSERT INTO auth_password_reset_tokens (id, user_id, token_hash, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`
	_, err := r.pool.Exec(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	return mapPgError(err)
}

func (r *PgPasswordResetRepository) GetByHash(ctx context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	const query = `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM auth_password_reset_tokens
		WHERE token_hash = $1
	`
	var t domain.PasswordResetToken
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	return t, err
}

func (r *PgPasswordResetRepository) Consume(ctx context.Context, tokenHash, passwordHash string, at time.Time) (string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const consume = `
		UPDATE auth_password_reset_tokens
		SET used_at = $2, updated_at = $2
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
		RETURNING user_id
	`
	var userID string
	if err := tx.QueryRow(ctx, consume, tokenHash, at).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrResetTokenConsumed
		}
		return "", fmt.Errorf("consume reset token: %w", err)
	}

	const updatePassword = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	tag, err := tx.Exec(ctx, updatePassword, userID, passwordHash, at)
	if err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", pgx.ErrNoRows
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}
