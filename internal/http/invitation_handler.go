package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vendorica-api/internal/service"
)

type InvitationHandler struct {
	logger      *zap.Logger
	invitations *service.InvitationService
}

func NewInvitationHandler(logger *zap.Logger, invitations *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{logger: logger, invitations: invitations}
}

// Invite maneja POST /auth/invite.
//
//	@Summary	Invite a user to the caller's organization
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		service.InviteInput	true	"Invitation"
//	@Success	200		{object}	envelope
//	@Failure	400		{object}	envelope
//	@Failure	401		{object}	envelope
//	@Failure	503		{object}	envelope
//	@Security	BearerAuth
//	@Router		/auth/invite [post]
func (h *InvitationHandler) Invite(c *gin.Context) {
	var req service.InviteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}
	identity, _ := GetIdentity(c)
	emailID, err := h.invitations.Send(c.Request.Context(), identity, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{
		Data:    gin.H{"emailId": emailID},
		Message: "Invitation sent successfully",
	})
}
