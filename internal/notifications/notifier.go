package notifications

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jansathi/portal/pkg/logger"
	"github.com/jansathi/portal/pkg/mail"
)

// Notifier delivers out-of-band messages (OTP codes, verification mails) to a
// single recipient. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailNotifier sends notifications through the configured SMTP mailer.
type EmailNotifier struct {
	mailer mail.Mailer
	log    *zap.Logger
}

// NewEmailNotifier wraps a mailer as a Notifier.
func NewEmailNotifier(mailer mail.Mailer) (*EmailNotifier, error) {
	if mailer == nil {
		return nil, errors.New("notifications: mailer is required")
	}
	return &EmailNotifier{
		mailer: mailer,
		log:    logger.WithModule("notifications"),
	}, nil
}

// Send delivers a message to one recipient. The body is never logged; OTP
// codes travel through here.
func (n *EmailNotifier) Send(ctx context.Context, to, subject, body string) error {
	err := n.mailer.Send(ctx, mail.Message{
		To:      []string{to},
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		if errors.Is(err, mail.ErrSMTPDisabled) {
			n.log.Debug("mail delivery disabled, dropping notification", zap.String("subject", subject))
			return nil
		}
		n.log.Warn("notification delivery failed", zap.String("subject", subject), zap.Error(err))
		return err
	}
	return nil
}

// NopNotifier drops every message. Used when no delivery channel is
// configured and in tests.
type NopNotifier struct{}

func (NopNotifier) Send(ctx context.Context, to, subject, body string) error { return nil }
