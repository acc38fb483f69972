package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vendorica-api/internal/apperr"
	"vendorica-api/internal/service"
)

// PasswordHandler atiende el flujo de reseteo de password.
type PasswordHandler struct {
	logger    *zap.Logger
	passwords *service.PasswordService
}

func NewPasswordHandler(logger *zap.Logger, passwords *service.PasswordService) *PasswordHandler {
	return &PasswordHandler{logger: logger, passwords: passwords}
}

type resetPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type updatePasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type resetTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// RequestReset maneja POST /auth/reset-password. La respuesta es la misma
// exista o no la cuenta.
//
//	@Summary	Request a password reset email
//	@Tags		Password
//	@Accept		json
//	@Produce	json
//	@Param		body	body		resetPasswordRequest	true	"Account email"
//	@Success	200		{object}	envelope
//	@Failure	400		{object}	envelope
//	@Failure	429		{object}	envelope
//	@Failure	503		{object}	envelope
//	@Router		/auth/reset-password [post]
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Validation("Email is required"))
		return
	}
	if err := h.passwords.RequestReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondMessage(c, service.PasswordResetSentMessage)
}

// UpdatePassword maneja POST /auth/update-password.
//
//	@Summary	Set a new password with a reset token
//	@Tags		Password
//	@Accept		json
//	@Produce	json
//	@Param		body	body		updatePasswordRequest	true	"Reset token and new password"
//	@Success	200		{object}	envelope
//	@Failure	400		{object}	envelope
//	@Router		/auth/update-password [post]
func (h *PasswordHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Validation("Reset token and new password are required"))
		return
	}
	if err := h.passwords.UpdatePassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondMessage(c, "Password updated successfully")
}

// ValidateResetToken maneja POST /auth/validate-reset-token.
//
//	@Summary	Check a reset token without redeeming it
//	@Tags		Password
//	@Accept		json
//	@Produce	json
//	@Param		body	body		resetTokenRequest	true	"Reset token"
//	@Success	200		{object}	envelope
//	@Failure	400		{object}	envelope
//	@Router		/auth/validate-reset-token [post]
func (h *PasswordHandler) ValidateResetToken(c *gin.Context) {
	var req resetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Validation("Reset token is required"))
		return
	}
	if err := h.passwords.ValidateResetToken(c.Request.Context(), req.Token); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{Data: gin.H{"valid": true}, Message: "Reset token is valid"})
}
