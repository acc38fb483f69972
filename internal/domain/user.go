package domain

import "time"

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusPending  = "pending"
)

// User es el registro de credenciales de un usuario dentro de una organizacion.
type User struct {
	ID             string        `json:"id"`
	Email          string        `json:"email"`
	PasswordHash   string        `json:"-"`
	FirstName      string        `json:"first_name,omitempty"`
	LastName       string        `json:"last_name,omitempty"`
	Status         string        `json:"status"`
	OrganizationID string        `json:"organization_id"`
	RoleID         string        `json:"role_id,omitempty"`
	LastLogin      *time.Time    `json:"last_login,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Organization   *Organization `json:"organization,omitempty"`
	Role           *Role         `json:"role,omitempty"`
}

// IsActive indica si el usuario puede autenticarse.
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}

// Identity es la identidad resuelta por request a partir de un token valido.
// Nunca se persiste.
type Identity struct {
	UserID         string `json:"id"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
}
