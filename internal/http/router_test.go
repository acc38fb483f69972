package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vendorica-api/internal/config"
	"vendorica-api/internal/domain"
	"vendorica-api/internal/email"
	"vendorica-api/internal/repository/memory"
	"vendorica-api/internal/service"
)

const (
	testEmail    = "test@vendorica.com"
	testPassword = "password123"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []email.Message
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return "email-" + uuid.NewString(), nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router  *gin.Engine
	store   *memory.Store
	secrets *config.SecretStore
	sender  *recordingSender
	orgA    domain.Organization
	orgB    domain.Organization
}

type testServerOptions struct {
	env       string
	authLimit int
	dbErr     error
}

func newTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.env == "" {
		opts.env = config.EnvTest
	}
	if opts.authLimit == 0 {
		opts.authLimit = 100
	}

	logger := zap.NewNop()
	store := memory.NewStore()
	secrets := config.NewSecretStore("test-secret")
	sender := &recordingSender{}
	templates, err := email.NewTemplates()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	mailer := email.NewMailer(sender, templates)
	cfg := &config.Config{
		Env:         opts.env,
		Version:     "test",
		APIPrefix:   "/internal",
		FrontendURL: "http://localhost:3000",
		JWTSecret:   "test-secret",
	}

	tokens := service.NewTokenService(secrets, time.Hour)
	audit := service.NewAuditRecorder(logger, store)
	authSvc := service.NewAuthService(logger, store, store.Organizations(), store.Roles(), tokens, audit)
	passwordSvc := service.NewPasswordService(logger, store, store.PasswordResets(), mailer, nil, audit, cfg.FrontendURL)
	incidentSvc := service.NewIncidentService(logger, store.Incidents(), store, audit)
	inviteSvc := service.NewInvitationService(logger, store, mailer, cfg.FrontendURL)
	healthSvc := service.NewHealthService(logger, fakePinger{err: opts.dbErr}, service.HealthConfig{
		Version:         cfg.Version,
		Environment:     cfg.Env,
		EmailConfigured: true,
	})

	router := NewRouter(
		logger,
		RouterConfig{APIPrefix: cfg.APIPrefix, AuthRateLimitPerMinute: opts.authLimit},
		authSvc,
		NewAuthHandler(logger, authSvc),
		NewPasswordHandler(logger, passwordSvc),
		NewInvitationHandler(logger, inviteSvc),
		NewIncidentHandler(logger, incidentSvc),
		NewHealthHandler(logger, healthSvc, cfg, secrets),
		NewMetrics(),
	)

	orgA := domain.Organization{ID: uuid.NewString(), Name: "Acme"}
	orgB := domain.Organization{ID: uuid.NewString(), Name: "Globex"}
	store.PutOrganization(orgA)
	store.PutOrganization(orgB)

	return &testServer{router: router, store: store, secrets: secrets, sender: sender, orgA: orgA, orgB: orgB}
}

func (s *testServer) seedUser(t *testing.T, emailAddr, orgID string) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:             uuid.NewString(),
		Email:          emailAddr,
		PasswordHash:   string(hash),
		Status:         domain.UserStatusActive,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.store.PutUser(user)
	return user
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, emailAddr string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/internal/auth/login", gin.H{"email": emailAddr, "password": testPassword}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeEnvelope(t, rec).Token
}

type testEnvelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Token     string          `json:"token"`
	User      json.RawMessage `json:"user"`
	Error     string          `json:"error"`
	Code      string          `json:"code"`
	Details   json.RawMessage `json:"details"`
	Timestamp string          `json:"timestamp"`
	RequestID string          `json:"requestId"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestLoginThenMeReturnsSameUser(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	user := srv.seedUser(t, testEmail, srv.orgA.ID)

	rec := srv.do(t, http.MethodPost, "/internal/auth/login", gin.H{"email": testEmail, "password": testPassword}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Token == "" {
		t.Fatalf("expected success with token, got %+v", env)
	}
	var loggedIn domain.User
	if err := json.Unmarshal(env.User, &loggedIn); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if loggedIn.Email != testEmail {
		t.Fatalf("expected user email %s, got %s", testEmail, loggedIn.Email)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password data: %s", rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, "/internal/auth/me", nil, env.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var me domain.User
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.ID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, me.ID)
	}
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, testEmail, srv.orgA.ID)

	wrong := srv.do(t, http.MethodPost, "/internal/auth/login", gin.H{"email": testEmail, "password": "nope-nope"}, "")
	unknown := srv.do(t, http.MethodPost, "/internal/auth/login", gin.H{"email": "ghost@vendorica.com", "password": testPassword}, "")

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		env := decodeEnvelope(t, rec)
		if env.Code != "INVALID_CREDENTIALS" || env.Error != "Invalid login credentials" {
			t.Fatalf("unexpected error envelope: %+v", env)
		}
	}
}

func TestRegisterReturnsCreatedWithToken(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})

	rec := srv.do(t, http.MethodPost, "/internal/auth/register", gin.H{"email": "New.User@Vendorica.com", "password": testPassword}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Token == "" {
		t.Fatalf("expected token in envelope")
	}

	rec = srv.do(t, http.MethodPost, "/internal/auth/register", gin.H{"email": "new.user@vendorica.com", "password": testPassword}, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
	if code := decodeEnvelope(t, rec).Code; code != "EMAIL_ALREADY_REGISTERED" {
		t.Fatalf("expected EMAIL_ALREADY_REGISTERED, got %s", code)
	}
}

func TestRequireAuthMissingToken(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})

	rec := srv.do(t, http.MethodGet, "/internal/auth/me", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := decodeEnvelope(t, rec).Error; msg != "Authorization token required" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRequireAuthRejectionsShareOneMessage(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	user := srv.seedUser(t, testEmail, srv.orgA.ID)
	token := srv.login(t, testEmail)

	other := service.NewTokenService(service.StaticSecret("another-secret"), time.Hour)
	foreign, err := other.Issue(service.TokenSubject{UserID: user.ID, Email: user.Email, OrganizationID: user.OrganizationID})
	if err != nil {
		t.Fatalf("issue foreign token: %v", err)
	}

	cases := map[string]string{
		"malformed":    "not-a-jwt",
		"wrong secret": foreign.Token,
	}
	for name, tok := range cases {
		rec := srv.do(t, http.MethodGet, "/internal/auth/me", nil, tok)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
		if msg := decodeEnvelope(t, rec).Error; msg != "Invalid or expired token" {
			t.Fatalf("%s: unexpected message %q", name, msg)
		}
	}

	user.Status = domain.UserStatusInactive
	srv.store.PutUser(user)
	rec := srv.do(t, http.MethodGet, "/internal/auth/me", nil, token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated: expected 401, got %d", rec.Code)
	}
	if msg := decodeEnvelope(t, rec).Error; msg != "Invalid or expired token" {
		t.Fatalf("deactivated: unexpected message %q", msg)
	}
}

func TestRequireAuthAcceptsLowercaseScheme(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, testEmail, srv.orgA.ID)
	token := srv.login(t, testEmail)

	req := httptest.NewRequest(http.MethodGet, "/internal/auth/me", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMissingSigningSecretIsConfigurationError(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, testEmail, srv.orgA.ID)
	token := srv.login(t, testEmail)

	srv.secrets.Set("")

	rec := srv.do(t, http.MethodGet, "/internal/auth/me", nil, token)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := decodeEnvelope(t, rec).Code; code != "CONFIGURATION_ERROR" {
		t.Fatalf("expected CONFIGURATION_ERROR, got %s", code)
	}

	rec = srv.do(t, http.MethodPost, "/internal/auth/login", gin.H{"email": testEmail, "password": testPassword}, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("login: expected 503, got %d", rec.Code)
	}
}

func TestRefreshAndValidate(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	user := srv.seedUser(t, testEmail, srv.orgA.ID)
	token := srv.login(t, testEmail)

	rec := srv.do(t, http.MethodPost, "/internal/auth/refresh", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var refreshed tokenData
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &refreshed); err != nil {
		t.Fatalf("decode refresh: %v", err)
	}
	if refreshed.Token == "" || refreshed.TokenType != "Bearer" || refreshed.User.UserID != user.ID {
		t.Fatalf("unexpected refresh data: %+v", refreshed)
	}

	rec = srv.do(t, http.MethodPost, "/internal/auth/validate", nil, refreshed.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d", rec.Code)
	}
	var validated validateData
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &validated); err != nil {
		t.Fatalf("decode validate: %v", err)
	}
	if !validated.Valid || validated.User.OrganizationID != srv.orgA.ID || validated.ExpiresAt == nil {
		t.Fatalf("unexpected validate data: %+v", validated)
	}
}

func TestLogoutWithoutTokenSucceeds(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})

	rec := srv.do(t, http.MethodPost, "/internal/auth/logout", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLogoutIgnoresNonBearerHeader(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/internal/auth/logout", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if env := decodeEnvelope(t, rec); !env.Success || env.Message != "Logout successful" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestLogoutSucceedsWithTokenFromRotatedSecret(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, testEmail, srv.orgA.ID)
	token := srv.login(t, testEmail)

	srv.secrets.Set("rotated-secret")

	rec := srv.do(t, http.MethodPost, "/internal/auth/logout", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	for _, entry := range srv.store.AuditEntries() {
		if entry.Action == domain.AuditActionLogout {
			t.Fatalf("stale token must not be audited as a logout: %+v", entry)
		}
	}

	// Con el secreto rotado el mismo token sigue sin valer en rutas protegidas.
	if rec := srv.do(t, http.MethodGet, "/internal/auth/me", nil, token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me: expected 401, got %d", rec.Code)
	}
}

func TestLogoutWithMissingSecretIsUnavailable(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, testEmail, srv.orgA.ID)
	token := srv.login(t, testEmail)

	srv.secrets.Set("")

	rec := srv.do(t, http.MethodPost, "/internal/auth/logout", nil, token)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := decodeEnvelope(t, rec).Code; code != "CONFIGURATION_ERROR" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestIncidentsAreIsolatedPerOrganization(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, "alice@acme.test", srv.orgA.ID)
	srv.seedUser(t, "bob@globex.test", srv.orgB.ID)
	alice := srv.login(t, "alice@acme.test")
	bob := srv.login(t, "bob@globex.test")

	rec := srv.do(t, http.MethodPost, "/internal/incidents", gin.H{"title": "Vendor breach", "priority": "high"}, alice)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Incident
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &created); err != nil {
		t.Fatalf("decode incident: %v", err)
	}
	if created.OrganizationID != srv.orgA.ID {
		t.Fatalf("incident stored under org %s", created.OrganizationID)
	}

	path := "/internal/incidents/" + created.ID
	if rec := srv.do(t, http.MethodGet, path, nil, bob); rec.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant get: expected 404, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodPut, path, gin.H{"status": "closed"}, bob); rec.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant update: expected 404, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodDelete, path, nil, bob); rec.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant delete: expected 404, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodGet, "/internal/incidents", nil, bob)
	var bobList []domain.Incident
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &bobList); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(bobList) != 0 {
		t.Fatalf("expected empty list for other org, got %d", len(bobList))
	}

	rec = srv.do(t, http.MethodGet, path, nil, alice)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get: expected 200, got %d", rec.Code)
	}
}

func TestIncidentLifecycle(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, testEmail, srv.orgA.ID)
	token := srv.login(t, testEmail)

	rec := srv.do(t, http.MethodPost, "/internal/incidents", gin.H{"title": "SOC2 report expired", "due_date": "2026-12-01"}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Incident
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &created); err != nil {
		t.Fatalf("decode incident: %v", err)
	}
	path := "/internal/incidents/" + created.ID

	rec = srv.do(t, http.MethodPut, path, gin.H{"status": "in_progress"}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, path+"/enriched", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("enriched: expected 200, got %d", rec.Code)
	}
	var enriched domain.EnrichedIncident
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &enriched); err != nil {
		t.Fatalf("decode enriched: %v", err)
	}
	if enriched.Status != "in_progress" || len(enriched.History) != 2 {
		t.Fatalf("unexpected enriched incident: status=%s history=%d", enriched.Status, len(enriched.History))
	}

	if rec := srv.do(t, http.MethodDelete, path, nil, token); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if rec := srv.do(t, http.MethodGet, path, nil, token); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestCreateIncidentValidation(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, testEmail, srv.orgA.ID)
	token := srv.login(t, testEmail)

	rec := srv.do(t, http.MethodPost, "/internal/incidents", gin.H{"priority": "urgent"}, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != "VALIDATION_ERROR" || len(env.Details) == 0 {
		t.Fatalf("expected validation error with details, got %+v", env)
	}
}

func TestResetPasswordDoesNotRevealAccounts(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.seedUser(t, testEmail, srv.orgA.ID)

	known := srv.do(t, http.MethodPost, "/internal/auth/reset-password", gin.H{"email": testEmail}, "")
	unknown := srv.do(t, http.MethodPost, "/internal/auth/reset-password", gin.H{"email": "ghost@vendorica.com"}, "")

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200 for both, got %d and %d", known.Code, unknown.Code)
	}
	if a, b := decodeEnvelope(t, known).Message, decodeEnvelope(t, unknown).Message; a != b || a != service.PasswordResetSentMessage {
		t.Fatalf("messages differ: %q vs %q", a, b)
	}
	if srv.sender.count() != 1 {
		t.Fatalf("expected exactly one email, got %d", srv.sender.count())
	}
}

func TestUpdatePasswordWithUnknownToken(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})

	rec := srv.do(t, http.MethodPost, "/internal/auth/update-password", gin.H{"token": "deadbeef", "password": "new-password-1"}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := decodeEnvelope(t, rec).Code; code != "INVALID_RESET_TOKEN" {
		t.Fatalf("expected INVALID_RESET_TOKEN, got %s", code)
	}
}

func TestLoginIsRateLimitedPerIP(t *testing.T) {
	srv := newTestServer(t, testServerOptions{authLimit: 2})

	for i := 0; i < 2; i++ {
		rec := srv.do(t, http.MethodPost, "/internal/auth/login", gin.H{"email": testEmail, "password": "wrong-pass"}, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	rec := srv.do(t, http.MethodPost, "/internal/auth/login", gin.H{"email": testEmail, "password": "wrong-pass"}, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestUnknownRouteReturnsNotFoundEnvelope(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})

	rec := srv.do(t, http.MethodGet, "/internal/vendors", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Code != "NOT_FOUND" || env.RequestID == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})

	req := httptest.NewRequest(http.MethodGet, "/internal/auth/me", nil)
	req.Header.Set(requestIDHeader, "req_from_client")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req_from_client" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if got := decodeEnvelope(t, rec).RequestID; got != "req_from_client" {
		t.Fatalf("expected request id in body, got %q", got)
	}

	rec = srv.do(t, http.MethodGet, "/internal/auth/me", nil, "")
	if got := rec.Header().Get(requestIDHeader); !strings.HasPrefix(got, "req_") {
		t.Fatalf("expected generated request id, got %q", got)
	}
}

func TestHealthReportsUnhealthyDatabase(t *testing.T) {
	srv := newTestServer(t, testServerOptions{dbErr: errors.New("connection refused")})

	for _, path := range []string{"/health", "/internal/health/detailed"} {
		rec := srv.do(t, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", path, rec.Code)
		}
		var status service.HealthStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decode health: %v", err)
		}
		if status.Status != service.HealthUnhealthy || status.Services.Database != service.ServiceDown {
			t.Fatalf("%s: unexpected status %+v", path, status)
		}
	}
}

func TestDiagnosticsOnlyInDevelopment(t *testing.T) {
	prod := newTestServer(t, testServerOptions{env: config.EnvProduction})
	if rec := prod.do(t, http.MethodGet, "/internal/health/diagnostics", nil, ""); rec.Code != http.StatusForbidden {
		t.Fatalf("production: expected 403, got %d", rec.Code)
	}

	dev := newTestServer(t, testServerOptions{env: config.EnvDevelopment})
	rec := dev.do(t, http.MethodGet, "/internal/health/diagnostics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("development: expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "test-secret") {
		t.Fatalf("diagnostics leaks the signing secret")
	}
	var report diagnosticsReport
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &report); err != nil {
		t.Fatalf("decode diagnostics: %v", err)
	}
	if !report.SigningSecretPresent {
		t.Fatalf("expected signing secret to be reported present")
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	srv := newTestServer(t, testServerOptions{})
	srv.do(t, http.MethodGet, "/health", nil, "")

	rec := srv.do(t, http.MethodGet, "/metrics", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`) {
		t.Fatalf("expected health request in metrics output")
	}
}
