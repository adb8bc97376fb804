package notifications

import (
	"context"
	"fmt"

	"github.com/mehadihasan/bazarly-backend/pkg/logger"
	"github.com/mehadihasan/bazarly-backend/pkg/mail"
)

type sender interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Service delivers account emails. Delivery is fire-and-forget: failures are
// logged and never bubble up to the flow that triggered them.
type Service interface {
	SendVerificationCode(ctx context.Context, email, name, code string)
	SendPasswordResetCode(ctx context.Context, email, name, code string)
}

type service struct {
	mailer sender
	from   string
	log    *logger.Logger
}

func NewService(mailer sender, from string, log *logger.Logger) (Service, error) {
	if mailer == nil {
		return nil, fmt.Errorf("mail client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{mailer: mailer, from: from, log: log}, nil
}

func (s *service) SendVerificationCode(ctx context.Context, email, name, code string) {
	msg := mail.Message{
		To:      email,
		From:    s.from,
		Subject: "Verify your Bazarly account",
		PlainBody: fmt.Sprintf(
			"Hi %s,\n\nYour Bazarly verification code is %s.\n\nIf you did not create this account, ignore this email.\n",
			name, code,
		),
	}
	s.deliver(ctx, "verification", msg)
}

func (s *service) SendPasswordResetCode(ctx context.Context, email, name, code string) {
	msg := mail.Message{
		To:      email,
		From:    s.from,
		Subject: "Reset your Bazarly password",
		PlainBody: fmt.Sprintf(
			"Hi %s,\n\nYour Bazarly password reset code is %s.\n\nIf you did not request a reset, ignore this email.\n",
			name, code,
		),
	}
	s.deliver(ctx, "password_reset", msg)
}

func (s *service) deliver(ctx context.Context, kind string, msg mail.Message) {
	ctx = s.log.WithFields(ctx, map[string]any{
		"email_kind": kind,
		"recipient":  msg.To,
	})
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Error(ctx, "email delivery failed", err)
		return
	}
	s.log.Info(ctx, "email delivered")
}
