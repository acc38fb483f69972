package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vendorica-api/internal/apperr"
	"vendorica-api/internal/domain"
	"vendorica-api/internal/email"
	"vendorica-api/internal/repository"
)

var (
	ErrInvitationDelivery = apperr.New(apperr.ErrUnavailable, "EMAIL_DELIVERY_FAILED", "Failed to send invitation email")
	ErrInviteURLInvalid   = apperr.New(apperr.ErrValidation, "", "inviteUrl must point to the Vendorica frontend")
)

type InviteInput struct {
	RecipientEmail string `json:"recipientEmail" validate:"required,email"`
	FirstName      string `json:"firstName" validate:"max=100"`
	LastName       string `json:"lastName" validate:"max=100"`
	InviteURL      string `json:"inviteUrl" validate:"omitempty,url"`
}

// InvitationService envia invitaciones en nombre de la organizacion del llamador.
type InvitationService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	mailer      *email.Mailer
	frontendURL string
}

func NewInvitationService(logger *zap.Logger, users repository.UserRepository, mailer *email.Mailer, frontendURL string) *InvitationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvitationService{
		logger:      logger,
		users:       users,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Send devuelve el id del correo asignado por el proveedor.
func (s *InvitationService) Send(ctx context.Context, identity domain.Identity, input InviteInput) (string, error) {
	input.RecipientEmail = normalizeEmail(input.RecipientEmail)
	if err := validate.Struct(input); err != nil {
		return "", apperr.Validation("Invalid invitation").WithDetails(fieldErrors(err))
	}
	inviteURL, err := s.inviteURL(input)
	if err != nil {
		return "", err
	}

	inviter, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("load inviter: %w", err)
	}
	orgName := domain.DefaultOrganizationName
	if inviter.Organization != nil && inviter.Organization.Name != "" {
		orgName = inviter.Organization.Name
	}

	id, err := s.mailer.SendInvitation(ctx, input.RecipientEmail, email.InvitationData{
		FirstName:        strings.TrimSpace(input.FirstName),
		InviterName:      displayName(inviter),
		OrganizationName: orgName,
		InviteURL:        inviteURL,
	})
	if err != nil {
		s.logger.Error("invitation email failed", zap.String("inviter_id", inviter.ID), zap.Error(err))
		return "", ErrInvitationDelivery.Wrap(err)
	}
	return id, nil
}

func (s *InvitationService) inviteURL(input InviteInput) (string, error) {
	if input.InviteURL == "" {
		return s.frontendURL + "/accept-invitation?email=" + url.QueryEscape(input.RecipientEmail), nil
	}
	if !strings.HasPrefix(input.InviteURL, s.frontendURL+"/") {
		return "", ErrInviteURLInvalid
	}
	return input.InviteURL, nil
}

func displayName(u domain.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
