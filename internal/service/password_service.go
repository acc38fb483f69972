package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vendorica-api/internal/apperr"
	"vendorica-api/internal/domain"
	"vendorica-api/internal/email"
	"vendorica-api/internal/repository"
)

const (
	resetTokenBytes = 32
	resetTokenTTL   = time.Hour

	// PasswordResetSentMessage es identico exista o no la cuenta.
	PasswordResetSentMessage = "If an account with that email exists, a password reset link has been sent."
)

var (
	ErrResetTokenInvalid = apperr.New(apperr.ErrValidation, "INVALID_RESET_TOKEN", "Invalid or expired reset token")
	ErrResetTokenExpired = apperr.New(apperr.ErrValidation, "RESET_TOKEN_EXPIRED", "Reset token has expired")
	ErrResetTokenUsed    = apperr.New(apperr.ErrValidation, "RESET_TOKEN_USED", "Reset token has already been used")
	ErrRateLimited       = apperr.New(apperr.ErrRateLimited, "", "Too many password reset requests, please try again later")
	ErrEmailDelivery     = apperr.New(apperr.ErrUnavailable, "EMAIL_DELIVERY_FAILED", "Failed to send password reset email")
)

// PasswordService emite y canjea tokens de reseteo de password.
type PasswordService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	resets      repository.PasswordResetRepository
	mailer      *email.Mailer
	limiter     RequestLimiter
	audit       *AuditRecorder
	frontendURL string
	now         func() time.Time
}

func NewPasswordService(
	logger *zap.Logger,
	users repository.UserRepository,
	resets repository.PasswordResetRepository,
	mailer *email.Mailer,
	limiter RequestLimiter,
	audit *AuditRecorder,
	frontendURL string,
) *PasswordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = NewMemoryLimiter(time.Hour, 5)
	}
	return &PasswordService{
		logger:      logger,
		users:       users,
		resets:      resets,
		mailer:      mailer,
		limiter:     limiter,
		audit:       audit,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// RequestReset envia un link de reseteo si la cuenta existe y esta activa.
// La respuesta al cliente no distingue ambos casos.
func (s *PasswordService) RequestReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return ErrInvalidEmail
	}
	if !s.limiter.Allow(ctx, emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetActiveByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	rawToken, tokenHash, err := newResetToken()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if err := s.resets.Create(ctx, domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	emailID, err := s.mailer.SendPasswordReset(ctx, user.Email, email.PasswordResetData{
		FirstName: user.FirstName,
		ResetURL:  s.resetURL(rawToken),
		ExpiresIn: "1 hour",
	})
	if err != nil {
		s.logger.Error("password reset email failed", zap.String("user_id", user.ID), zap.Error(err))
		return ErrEmailDelivery.Wrap(err)
	}

	s.audit.Record(ctx, user.ID, domain.AuditActionPasswordResetRequested, auditTableUsers, user.ID, map[string]any{
		"email_id": emailID,
	})
	return nil
}

// ValidateResetToken comprueba el token sin canjearlo.
func (s *PasswordService) ValidateResetToken(ctx context.Context, rawToken string) error {
	_, err := s.lookup(ctx, rawToken)
	return err
}

// UpdatePassword canjea el token y fija el password nuevo. Un token se canjea
// a lo sumo una vez, aun con solicitudes concurrentes.
func (s *PasswordService) UpdatePassword(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	token, err := s.lookup(ctx, rawToken)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return err
	}
	userID, err := s.resets.Consume(ctx, token.TokenHash, string(hash), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenConsumed) {
			return ErrResetTokenUsed
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	s.audit.Record(ctx, userID, domain.AuditActionPasswordUpdated, auditTableUsers, userID, map[string]any{
		"method": "reset_token",
	})
	return nil
}

// lookup aplica los chequeos en orden: existencia, expiracion, uso previo.
func (s *PasswordService) lookup(ctx context.Context, rawToken string) (domain.PasswordResetToken, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.PasswordResetToken{}, ErrResetTokenInvalid
	}
	token, err := s.resets.GetByHash(ctx, hashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PasswordResetToken{}, ErrResetTokenInvalid
		}
		return domain.PasswordResetToken{}, fmt.Errorf("load reset token: %w", err)
	}
	if !token.ExpiresAt.After(s.now().UTC()) {
		return domain.PasswordResetToken{}, ErrResetTokenExpired
	}
	if token.UsedAt != nil {
		return domain.PasswordResetToken{}, ErrResetTokenUsed
	}
	return token, nil
}

func (s *PasswordService) resetURL(rawToken string) string {
	return s.frontendURL + "/reset-password?token=" + url.QueryEscape(rawToken)
}

func newResetToken() (string, string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	return raw, hashResetToken(raw), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
