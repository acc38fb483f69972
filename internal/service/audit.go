package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vendorica-api/internal/domain"
	"vendorica-api/internal/repository"
)

const (
	auditTableUsers     = "users"
	auditTableIncidents = "incidents"
)

// AuditRecorder escribe el audit trail en modo best-effort: una falla se
// registra en el log y nunca llega al llamador.
type AuditRecorder struct {
	logger *zap.Logger
	repo   repository.AuditRepository
	now    func() time.Time
}

func NewAuditRecorder(logger *zap.Logger, repo repository.AuditRepository) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRecorder{logger: logger, repo: repo, now: time.Now}
}

// Record inserta una entrada. No reintenta.
func (a *AuditRecorder) Record(ctx context.Context, userID, action, table, recordID string, changes map[string]any) {
	if a == nil || a.repo == nil {
		return
	}
	entry := domain.AuditEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		TableName: table,
		RecordID:  recordID,
		Changes:   changes,
		Timestamp: a.now().UTC(),
	}
	if err := a.repo.Insert(ctx, entry); err != nil {
		a.logger.Warn("audit write failed",
			zap.String("action", action),
			zap.String("table", table),
			zap.String("record_id", recordID),
			zap.Error(err),
		)
	}
}

// History devuelve las ultimas entradas de un registro.
func (a *AuditRecorder) History(ctx context.Context, table, recordID string, limit int) ([]domain.AuditEntry, error) {
	if a == nil || a.repo == nil {
		return []domain.AuditEntry{}, nil
	}
	return a.repo.ListByRecord(ctx, table, recordID, limit)
}
