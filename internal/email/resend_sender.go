package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendSender envia correos con la API de Resend.
type ResendSender struct {
	emails resendEmails
	from   string
}

func NewResendSender(apiKey, from string) (*ResendSender, error) {
	if !strings.HasPrefix(strings.TrimSpace(apiKey), "re_") {
		return nil, fmt.Errorf("resend api key is missing or malformed")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("email from is required")
	}
	client := resend.NewClient(strings.TrimSpace(apiKey))
	return &ResendSender{emails: client.Emails, from: from}, nil
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	if strings.TrimSpace(msg.To) == "" {
		return "", fmt.Errorf("to email is required")
	}
	req := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if msg.Category != "" {
		req.Tags = []resend.Tag{{Name: "category", Value: msg.Category}}
	}
	sent, err := s.emails.SendWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("resend send: %w", err)
	}
	return sent.Id, nil
}
