package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vendorica-api/internal/domain"
	"vendorica-api/internal/repository/memory"
)

const (
	testEmail    = "test@vendorica.com"
	testPassword = "password123"
)

type testEnv struct {
	store  *memory.Store
	clock  *fakeClock
	tokens *TokenService
	audit  *AuditRecorder
	auth   *AuthService
	orgA   domain.Organization
	orgB   domain.Organization
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	clock := newFakeClock()
	tokens := NewTokenService(StaticSecret("test-secret"), time.Hour, WithClock(clock.Now))
	audit := NewAuditRecorder(zap.NewNop(), store)
	audit.now = clock.Now
	auth := NewAuthService(zap.NewNop(), store, store.Organizations(), store.Roles(), tokens, audit)
	auth.now = clock.Now

	orgA := domain.Organization{ID: uuid.NewString(), Name: "Acme"}
	orgB := domain.Organization{ID: uuid.NewString(), Name: "Globex"}
	store.PutOrganization(orgA)
	store.PutOrganization(orgB)

	return &testEnv{store: store, clock: clock, tokens: tokens, audit: audit, auth: auth, orgA: orgA, orgB: orgB}
}

func (e *testEnv) seedUser(t *testing.T, emailAddr, password, orgID string) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := domain.User{
		ID:             uuid.NewString(),
		Email:          emailAddr,
		PasswordHash:   string(hash),
		FirstName:      "Test",
		Status:         domain.UserStatusActive,
		OrganizationID: orgID,
		CreatedAt:      e.clock.Now(),
		UpdatedAt:      e.clock.Now(),
	}
	e.store.PutUser(user)
	return user
}

func (e *testEnv) identity(u domain.User) domain.Identity {
	return domain.Identity{UserID: u.ID, Email: u.Email, OrganizationID: u.OrganizationID}
}

func (e *testEnv) auditActions() []string {
	var actions []string
	for _, entry := range e.store.AuditEntries() {
		actions = append(actions, entry.Action)
	}
	return actions
}

type failingAuditRepo struct{}

func (failingAuditRepo) Insert(context.Context, domain.AuditEntry) error {
	return errors.New("audit table unavailable")
}

func (failingAuditRepo) ListByRecord(context.Context, string, string, int) ([]domain.AuditEntry, error) {
	return nil, errors.New("audit table unavailable")
}

type failingUserRepo struct {
	*memory.Store
	err error
}

func (f failingUserRepo) GetByID(context.Context, string) (domain.User, error) {
	return domain.User{}, f.err
}
