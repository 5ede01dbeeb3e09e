package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envio de correos de verificacion de cuenta.
type Sender interface {
	SendVerificationEmail(ctx context.Context, toEmail, name, link string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationEmail(_ context.Context, _, _, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
