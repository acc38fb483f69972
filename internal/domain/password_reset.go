package domain

import "time"

// PasswordResetToken guarda solo el hash del token enviado por email.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
