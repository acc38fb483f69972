package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vendorica-api/internal/apperr"
	"vendorica-api/internal/domain"
	"vendorica-api/internal/service"
)

const (
	authIdentityKey = "auth_identity"
	authClaimsKey   = "auth_claims"
	authTokenKey    = "auth_token"
)

// Authenticator resuelve un bearer token en una identidad.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (domain.Identity, service.Claims, error)
}

// RequireAuth valida el bearer token y guarda identidad y claims en el contexto.
func RequireAuth(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization token required", nil)
			return
		}
		if !authenticate(c, auth, logger, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth resuelve la identidad si el request trae un bearer token
// valido. Un header ausente, sin esquema bearer o con un token rechazado deja
// el request sin identidad; solo las fallas de configuracion o del store
// cortan la cadena.
func OptionalAuth(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}
		identity, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, apperr.ErrUnauthorized) {
				respondError(c, logger, err)
				return
			}
			logger.Debug("optional auth ignored rejected token", zap.String("request_id", RequestID(c)))
			c.Next()
			return
		}
		setAuth(c, identity, claims, token)
		c.Next()
	}
}

func authenticate(c *gin.Context, auth Authenticator, logger *zap.Logger, token string) bool {
	identity, claims, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		respondError(c, logger, err)
		return false
	}
	setAuth(c, identity, claims, token)
	return true
}

func setAuth(c *gin.Context, identity domain.Identity, claims service.Claims, token string) {
	c.Set(authIdentityKey, identity)
	c.Set(authClaimsKey, claims)
	c.Set(authTokenKey, token)
}

// bearerToken extrae el token de "Authorization: Bearer <token>". El esquema
// no distingue mayusculas.
func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetIdentity obtiene la identidad autenticada desde el contexto.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	val, ok := c.Get(authIdentityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}

func authToken(c *gin.Context) string {
	return c.GetString(authTokenKey)
}
