package email

//go:generate mockgen -source=sender.go -destination=mock_sender.go -package=email

import (
	"context"
	"errors"
)

// Message es un correo HTML listo para enviar.
type Message struct {
	To       string
	Subject  string
	HTML     string
	Category string
}

// Sender define la interfaz del proveedor de email. Devuelve el id asignado
// por el proveedor.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ Message) (string, error) {
	if s.reason == "" {
		return "", errors.New("email sender disabled")
	}
	return "", errors.New(s.reason)
}
