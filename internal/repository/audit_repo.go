package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"vendorica-api/internal/domain"
)

// AuditRepository persiste el audit trail (append-only).
type AuditRepository interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
	ListByRecord(ctx context.Context, tableName, recordID string, limit int) ([]domain.AuditEntry, error)
}

type PgAuditRepository struct {
	pool *pgxpool.Pool
}

func NewPgAuditRepository(pool *pgxpool.Pool) *PgAuditRepository {
	return &PgAuditRepository{pool: pool}
}

func (r *PgAuditRepository) Insert(ctx context.Context, entry domain.AuditEntry) error {
	const query = `
		INSERT INTO audit_trail (id, user_id, action, table_name, record_id, changes, timestamp)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Action,
		entry.TableName,
		entry.RecordID,
		entry.Changes,
		entry.Timestamp,
	)
	return err
}

func (r *PgAuditRepository) ListByRecord(ctx context.Context, tableName, recordID string, limit int) ([]domain.AuditEntry, error) {
	const query = `
		SELECT id, COALESCE(user_id::text, ''), action, table_name, record_id, changes, timestamp
		FROM audit_trail
		WHERE table_name = $1 AND record_id = $2
		ORDER BY timestamp DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, tableName, recordID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.TableName, &e.RecordID, &e.Changes, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
