package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vendorica-api/internal/apperr"
	"vendorica-api/internal/domain"
	"vendorica-api/internal/repository"
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
)

var (
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthorized, "INVALID_CREDENTIALS", "Invalid login credentials")
	ErrUnauthenticated    = apperr.New(apperr.ErrUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
	ErrEmailTaken         = apperr.New(apperr.ErrConflict, "EMAIL_ALREADY_REGISTERED", "User with this email already exists")
	ErrInvalidEmail       = apperr.New(apperr.ErrValidation, "", "A valid email address is required")
	ErrWeakPassword       = apperr.New(apperr.ErrValidation, "", "Password must be at least 8 characters long")
	ErrUserNotFound       = apperr.New(apperr.ErrNotFound, "", "User not found")
)

// AuthResult es la respuesta de login y registro.
type AuthResult struct {
	User  domain.User
	Token IssuedToken
}

// AuthService verifica credenciales y resuelve identidades a partir de tokens.
type AuthService struct {
	logger *zap.Logger
	users  repository.UserRepository
	orgs   repository.OrganizationRepository
	roles  repository.RoleRepository
	tokens *TokenService
	audit  *AuditRecorder
	now    func() time.Time
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	orgs repository.OrganizationRepository,
	roles repository.RoleRepository,
	tokens *TokenService,
	audit *AuditRecorder,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		logger: logger,
		users:  users,
		orgs:   orgs,
		roles:  roles,
		tokens: tokens,
		audit:  audit,
		now:    time.Now,
	}
}

// Login valida email y password. Usuario inexistente, inactivo o password
// incorrecto devuelven el mismo ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (AuthResult, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetActiveByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Igualar el tiempo de respuesta con el de un password incorrecto.
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash(), []byte(password))
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}
	if user.PasswordHash == "" {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(subjectFor(user))
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	s.audit.Record(ctx, user.ID, domain.AuditActionLogin, auditTableUsers, user.ID, map[string]any{
		"login_method": "password",
	})

	return AuthResult{User: user, Token: token}, nil
}

var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("vendorica-dummy-password"), bcryptCost)
	return hash
})

// Register da de alta un usuario activo en la organizacion por defecto.
func (s *AuthService) Register(ctx context.Context, emailAddr, password string) (AuthResult, error) {
	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return AuthResult{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return AuthResult{}, ErrWeakPassword
	}

	exists, err := s.users.ExistsByEmail(ctx, emailAddr)
	if err != nil {
		return AuthResult{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return AuthResult{}, ErrEmailTaken
	}

	org, err := s.orgs.GetOrCreateByName(ctx, domain.Organization{
		Name:        domain.DefaultOrganizationName,
		Description: "Default organization for new users",
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("resolve default organization: %w", err)
	}
	role, err := s.roles.GetOrCreateByName(ctx, domain.Role{
		Name:        domain.DefaultRoleName,
		DisplayName: "User",
		Description: "Standard user role",
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("resolve default role: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now().UTC()
	user := domain.User{
		ID:             uuid.NewString(),
		Email:          emailAddr,
		PasswordHash:   string(hash),
		FirstName:      strings.SplitN(emailAddr, "@", 2)[0],
		Status:         domain.UserStatusActive,
		OrganizationID: org.ID,
		RoleID:         role.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Sin secreto de firma no se crea el usuario.
	token, err := s.tokens.Issue(subjectFor(user))
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}
	user.Organization = &org
	user.Role = &role

	s.audit.Record(ctx, user.ID, domain.AuditActionRegister, auditTableUsers, user.ID, map[string]any{
		"email":           user.Email,
		"organization_id": user.OrganizationID,
	})

	return AuthResult{User: user, Token: token}, nil
}

// Authenticate resuelve un bearer token en una identidad con alcance de
// organizacion. Cualquier rechazo devuelve ErrUnauthenticated, salvo la falta
// de configuracion del secreto.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (domain.Identity, Claims, error) {
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		if errors.Is(err, apperr.ErrConfiguration) {
			return domain.Identity{}, Claims{}, err
		}
		s.logger.Debug("token rejected", zap.Error(err))
		return domain.Identity{}, Claims{}, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Debug("token user not found", zap.String("user_id", claims.UserID))
			return domain.Identity{}, Claims{}, ErrUnauthenticated
		}
		return domain.Identity{}, Claims{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive() {
		s.logger.Debug("token user not active", zap.String("user_id", user.ID), zap.String("status", user.Status))
		return domain.Identity{}, Claims{}, ErrUnauthenticated
	}
	if user.OrganizationID != claims.OrganizationID {
		s.logger.Debug("token organization mismatch", zap.String("user_id", user.ID))
		return domain.Identity{}, Claims{}, ErrUnauthenticated
	}

	return domain.Identity{
		UserID:         user.ID,
		Email:          user.Email,
		OrganizationID: user.OrganizationID,
	}, claims, nil
}

// Refresh emite un token nuevo para un token vigente.
func (s *AuthService) Refresh(rawToken string) (IssuedToken, error) {
	return s.tokens.Refresh(rawToken)
}

// Me devuelve el usuario autenticado con organizacion y rol.
func (s *AuthService) Me(ctx context.Context, identity domain.Identity) (domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// Logout solo deja rastro en el audit trail: los tokens no se revocan.
func (s *AuthService) Logout(ctx context.Context, identity *domain.Identity) {
	if identity == nil {
		return
	}
	s.audit.Record(ctx, identity.UserID, domain.AuditActionLogout, auditTableUsers, identity.UserID, map[string]any{
		"logout_time": s.now().UTC().Format(time.RFC3339),
	})
}

func subjectFor(user domain.User) TokenSubject {
	return TokenSubject{UserID: user.ID, Email: user.Email, OrganizationID: user.OrganizationID}
}
