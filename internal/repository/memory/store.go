// Package memory implementa los repositorios en memoria. Lo usan los tests de
// servicios y handlers.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"vendorica-api/internal/domain"
	"vendorica-api/internal/repository"
)

var (
	_ repository.UserRepository          = (*Store)(nil)
	_ repository.AuditRepository         = (*Store)(nil)
	_ repository.IncidentRepository      = incidentRepo{}
	_ repository.PasswordResetRepository = resetRepo{}
)

// Store guarda todo en mapas protegidos por un mutex.
type Store struct {
	mu            sync.Mutex
	users         map[string]domain.User
	organizations map[string]domain.Organization
	roles         map[string]domain.Role
	incidents     map[string]domain.Incident
	audit         []domain.AuditEntry
	resetTokens   map[string]domain.PasswordResetToken
}

func NewStore() *Store {
	return &Store{
		users:         make(map[string]domain.User),
		organizations: make(map[string]domain.Organization),
		roles:         make(map[string]domain.Role),
		incidents:     make(map[string]domain.Incident),
		resetTokens:   make(map[string]domain.PasswordResetToken),
	}
}

// Organizations devuelve un OrganizationRepository respaldado por el store.
func (s *Store) Organizations() repository.OrganizationRepository { return orgRepo{s} }

// Roles devuelve un RoleRepository respaldado por el store.
func (s *Store) Roles() repository.RoleRepository { return roleRepo{s} }

// Incidents devuelve un IncidentRepository respaldado por el store.
func (s *Store) Incidents() repository.IncidentRepository { return incidentRepo{s} }

// PasswordResets devuelve un PasswordResetRepository respaldado por el store.
func (s *Store) PasswordResets() repository.PasswordResetRepository { return resetRepo{s} }

// Users

func (s *Store) Create(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return s.withRelations(u), nil
}

func (s *Store) GetActiveByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) && u.IsActive() {
			return s.withRelations(u), nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *Store) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.LastLogin = &at
	u.UpdatedAt = at
	s.users[id] = u
	return nil
}

// PutUser inserta o reemplaza un usuario sin validaciones.
func (s *Store) PutUser(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// PutOrganization inserta o reemplaza una organizacion.
func (s *Store) PutOrganization(org domain.Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[org.ID] = org
}

func (s *Store) withRelations(u domain.User) domain.User {
	if org, ok := s.organizations[u.OrganizationID]; ok {
		o := org
		u.Organization = &o
	}
	for _, r := range s.roles {
		if r.ID == u.RoleID {
			role := r
			u.Role = &role
		}
	}
	return u
}

type orgRepo struct{ s *Store }

func (r orgRepo) GetOrCreateByName(_ context.Context, org domain.Organization) (domain.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.organizations {
		if o.Name == org.Name {
			return o, nil
		}
	}
	org.ID = uuid.NewString()
	org.CreatedAt = time.Now().UTC()
	r.s.organizations[org.ID] = org
	return org, nil
}

type roleRepo struct{ s *Store }

func (r roleRepo) GetOrCreateByName(_ context.Context, role domain.Role) (domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.roles[role.Name]; ok {
		return existing, nil
	}
	role.ID = uuid.NewString()
	role.CreatedAt = time.Now().UTC()
	r.s.roles[role.Name] = role
	return role, nil
}

type incidentRepo struct{ s *Store }

func (r incidentRepo) List(_ context.Context, orgID string, filter domain.IncidentFilter) ([]domain.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Incident, 0)
	for _, inc := range r.s.incidents {
		if inc.OrganizationID != orgID {
			continue
		}
		if filter.Status != "" && inc.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && inc.Priority != filter.Priority {
			continue
		}
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 {
		start := min(int(filter.Offset), len(out))
		end := min(start+int(filter.Limit), len(out))
		out = out[start:end]
	}
	return out, nil
}

func (r incidentRepo) GetByID(_ context.Context, orgID, id string) (domain.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inc, ok := r.s.incidents[id]
	if !ok || inc.OrganizationID != orgID {
		return domain.Incident{}, pgx.ErrNoRows
	}
	return inc, nil
}

func (r incidentRepo) Create(_ context.Context, inc domain.Incident) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.incidents[inc.ID]; ok {
		return repository.ErrDuplicate
	}
	r.s.incidents[inc.ID] = inc
	return nil
}

func (r incidentRepo) Update(_ context.Context, orgID, id string, patch domain.IncidentPatch, updatedAt time.Time) (domain.Incident, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inc, ok := r.s.incidents[id]
	if !ok || inc.OrganizationID != orgID {
		return domain.Incident{}, pgx.ErrNoRows
	}
	if patch.Title != nil {
		inc.Title = *patch.Title
	}
	if patch.Description != nil {
		inc.Description = *patch.Description
	}
	if patch.Priority != nil {
		inc.Priority = *patch.Priority
	}
	if patch.Status != nil {
		inc.Status = *patch.Status
	}
	if patch.VendorID != nil {
		inc.VendorID = patch.VendorID
	}
	if patch.AssignedTo != nil {
		inc.AssignedTo = patch.AssignedTo
	}
	if patch.DueDate != nil {
		inc.DueDate = patch.DueDate
	}
	inc.UpdatedAt = updatedAt
	r.s.incidents[id] = inc
	return inc, nil
}

func (r incidentRepo) Delete(_ context.Context, orgID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inc, ok := r.s.incidents[id]
	if !ok || inc.OrganizationID != orgID {
		return pgx.ErrNoRows
	}
	delete(r.s.incidents, id)
	return nil
}

// Audit

func (s *Store) Insert(_ context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) ListByRecord(_ context.Context, tableName, recordID string, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, 0)
	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if e.TableName == tableName && e.RecordID == recordID {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// AuditEntries devuelve una copia del audit trail.
func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.audit...)
}

type resetRepo struct{ s *Store }

func (r resetRepo) Create(_ context.Context, token domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.resetTokens[token.TokenHash]; ok {
		return repository.ErrDuplicate
	}
	r.s.resetTokens[token.TokenHash] = token
	return nil
}

func (r resetRepo) GetByHash(_ context.Context, tokenHash string) (domain.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resetTokens[tokenHash]
	if !ok {
		return domain.PasswordResetToken{}, pgx.ErrNoRows
	}
	return t, nil
}

func (r resetRepo) Consume(_ context.Context, tokenHash, passwordHash string, at time.Time) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resetTokens[tokenHash]
	if !ok || t.UsedAt != nil || !t.ExpiresAt.After(at) {
		return "", repository.ErrResetTokenConsumed
	}
	u, ok := r.s.users[t.UserID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	t.UsedAt = &at
	r.s.resetTokens[tokenHash] = t
	u.PasswordHash = passwordHash
	u.UpdatedAt = at
	r.s.users[u.ID] = u
	return u.ID, nil
}

// ResetTokens devuelve una copia de los tokens guardados.
func (s *Store) ResetTokens() []domain.PasswordResetToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.PasswordResetToken, 0, len(s.resetTokens))
	for _, t := range s.resetTokens {
		out = append(out, t)
	}
	return out
}
