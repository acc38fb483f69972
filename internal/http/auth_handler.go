package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vendorica-api/internal/apperr"
	"vendorica-api/internal/domain"
	"vendorica-api/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de autenticacion.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{logger: logger, auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenData struct {
	Token     string          `json:"token"`
	TokenType string          `json:"tokenType"`
	User      domain.Identity `json:"user"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

type validateData struct {
	Valid     bool            `json:"valid"`
	User      domain.Identity `json:"user"`
	IssuedAt  *time.Time      `json:"issuedAt"`
	ExpiresAt *time.Time      `json:"expiresAt"`
}

// Login maneja POST /auth/login.
//
//	@Summary	Log in with email and password
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		credentialsRequest	true	"Credentials"
//	@Success	200		{object}	envelope
//	@Failure	400		{object}	envelope
//	@Failure	401		{object}	envelope
//	@Failure	429		{object}	envelope
//	@Failure	503		{object}	envelope
//	@Router		/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		respondError(c, h.logger, apperr.Validation("Email and password are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{
		Token:   result.Token.Token,
		User:    result.User,
		Message: "Login successful",
	})
}

// Register maneja POST /auth/register.
//
//	@Summary	Register a new account
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		credentialsRequest	true	"Credentials"
//	@Success	201		{object}	envelope
//	@Failure	400		{object}	envelope
//	@Failure	409		{object}	envelope
//	@Failure	429		{object}	envelope
//	@Failure	503		{object}	envelope
//	@Router		/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		respondError(c, h.logger, apperr.Validation("Email and password are required"))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, envelope{
		Token:   result.Token.Token,
		User:    result.User,
		Message: "Registration successful",
	})
}

// Me maneja GET /auth/me.
//
//	@Summary	Current user
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	envelope
//	@Failure	401	{object}	envelope
//	@Security	BearerAuth
//	@Router		/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, _ := GetIdentity(c)
	user, err := h.auth.Me(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{Data: user, Message: "User retrieved successfully"})
}

// Logout maneja POST /auth/logout. El token sigue siendo valido hasta expirar.
//
//	@Summary	Log out
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	envelope
//	@Security	BearerAuth
//	@Router		/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if identity, ok := GetIdentity(c); ok {
		h.auth.Logout(c.Request.Context(), &identity)
	}
	respondMessage(c, "Logout successful")
}

// Refresh maneja POST /auth/refresh.
//
//	@Summary	Refresh the bearer token
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	envelope{data=tokenData}
//	@Failure	401	{object}	envelope
//	@Failure	503	{object}	envelope
//	@Security	BearerAuth
//	@Router		/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	identity, _ := GetIdentity(c)
	issued, err := h.auth.Refresh(authToken(c))
	if err != nil {
		if !errors.Is(err, apperr.ErrConfiguration) {
			err = service.ErrUnauthenticated
		}
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{
		Data: tokenData{
			Token:     issued.Token,
			TokenType: "Bearer",
			User:      identity,
			ExpiresAt: issued.ExpiresAt,
		},
		Message: "Token refreshed successfully",
	})
}

// Validate maneja POST /auth/validate.
//
//	@Summary	Validate the bearer token
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	envelope{data=validateData}
//	@Failure	401	{object}	envelope
//	@Security	BearerAuth
//	@Router		/auth/validate [post]
func (h *AuthHandler) Validate(c *gin.Context) {
	identity, _ := GetIdentity(c)
	claims, _ := GetAuthClaims(c)
	data := validateData{Valid: true, User: identity}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.UTC()
		data.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.UTC()
		data.ExpiresAt = &t
	}
	respond(c, http.StatusOK, envelope{Data: data, Message: "Token is valid"})
}
