package domain

import "time"

const (
	AuditActionLogin                  = "login"
	AuditActionLogout                 = "logout"
	AuditActionRegister               = "register"
	AuditActionPasswordResetRequested = "password_reset_requested"
	AuditActionPasswordUpdated        = "password_updated"
	AuditActionCreate                 = "create"
	AuditActionUpdate                 = "update"
	AuditActionDelete                 = "delete"
)

// AuditEntry es una fila append-only del audit trail.
type AuditEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	TableName string         `json:"table_name"`
	RecordID  string         `json:"record_id"`
	Changes   map[string]any `json:"changes,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
