package email

import (
	"context"
	"fmt"
)

type PasswordResetData struct {
	FirstName string
	ResetURL  string
	ExpiresIn string
}

type InvitationData struct {
	FirstName        string
	InviterName      string
	OrganizationName string
	InviteURL        string
}

// Mailer compone templates y Sender para los correos transaccionales.
type Mailer struct {
	sender    Sender
	templates *Templates
}

func NewMailer(sender Sender, templates *Templates) *Mailer {
	return &Mailer{sender: sender, templates: templates}
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to string, data PasswordResetData) (string, error) {
	return m.send(ctx, to, "Reset your Vendorica password", TemplatePasswordReset, data)
}

func (m *Mailer) SendInvitation(ctx context.Context, to string, data InvitationData) (string, error) {
	subject := fmt.Sprintf("You're invited to join %s on Vendorica", data.OrganizationName)
	return m.send(ctx, to, subject, TemplateUserInvitation, data)
}

func (m *Mailer) send(ctx context.Context, to, subject, templateName string, data any) (string, error) {
	if m == nil || m.sender == nil || m.templates == nil {
		return "", fmt.Errorf("mailer not configured")
	}
	html, err := m.templates.Render(templateName, data)
	if err != nil {
		return "", err
	}
	return m.sender.Send(ctx, Message{
		To:       to,
		Subject:  subject,
		HTML:     html,
		Category: templateName,
	})
}
