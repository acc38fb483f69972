package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vendorica-api/internal/apperr"
)

const (
	TokenIssuer   = "vendorica-api"
	TokenAudience = "vendorica-client"

	defaultTokenTTL = 7 * 24 * time.Hour
)

// SecretSource provee el secreto de firma vigente. Se consulta en cada
// operacion del codec.
type SecretSource interface {
	SigningSecret() string
}

// StaticSecret es un SecretSource fijo.
type StaticSecret string

func (s StaticSecret) SigningSecret() string { return string(s) }

// TokenService emite, valida y refresca tokens de identidad HS256.
type TokenService struct {
	secrets SecretSource
	ttl     time.Duration
	now     func() time.Time
}

// TokenSubject son los datos de identidad firmados en el token.
type TokenSubject struct {
	UserID         string
	Email          string
	OrganizationID string
}

type Claims struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	jwt.RegisteredClaims
}

// TokenSubject devuelve los datos de identidad sin timestamps.
func (c Claims) TokenSubject() TokenSubject {
	return TokenSubject{UserID: c.UserID, Email: c.Email, OrganizationID: c.OrganizationID}
}

// IssuedToken es un token firmado junto con su ventana de validez.
type IssuedToken struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

var (
	ErrTokenInvalid         = apperr.New(apperr.ErrUnauthorized, "INVALID_TOKEN", "Invalid token")
	ErrTokenExpired         = apperr.New(apperr.ErrUnauthorized, "TOKEN_EXPIRED", "Token has expired")
	ErrSigningSecretMissing = apperr.New(apperr.ErrConfiguration, "CONFIGURATION_ERROR", "Authentication service temporarily unavailable")
)

type TokenOption func(*TokenService)

// WithClock reemplaza el reloj usado para emitir y validar.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewTokenService(secrets SecretSource, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	s := &TokenService{
		secrets: secrets,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL devuelve la duracion de los tokens emitidos.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(subject TokenSubject) (IssuedToken, error) {
	secret, err := s.secret()
	if err != nil {
		return IssuedToken{}, err
	}
	if strings.TrimSpace(subject.UserID) == "" || strings.TrimSpace(subject.OrganizationID) == "" {
		return IssuedToken{}, ErrTokenInvalid
	}

	// Los timestamps JWT tienen resolucion de segundos.
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		UserID:         subject.UserID,
		Email:          subject.Email,
		OrganizationID: subject.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			Subject:   subject.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, IssuedAt: now, ExpiresAt: expiresAt}, nil
}

func (s *TokenService) Verify(tokenString string) (Claims, error) {
	secret, err := s.secret()
	if err != nil {
		return Claims{}, err
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrTokenInvalid
	}

	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	_, err = parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired.Wrap(err)
		}
		return Claims{}, ErrTokenInvalid.Wrap(err)
	}
	if !isValidClaims(claims) {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// Refresh emite un token nuevo con la misma identidad que uno valido.
func (s *TokenService) Refresh(tokenString string) (IssuedToken, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return IssuedToken{}, err
	}
	return s.Issue(claims.TokenSubject())
}

func (s *TokenService) secret() ([]byte, error) {
	if s == nil || s.secrets == nil {
		return nil, ErrSigningSecretMissing
	}
	secret := strings.TrimSpace(s.secrets.SigningSecret())
	if secret == "" {
		return nil, ErrSigningSecretMissing
	}
	return []byte(secret), nil
}

func isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.OrganizationID) == "" {
		return false
	}
	return claims.Subject == claims.UserID
}
