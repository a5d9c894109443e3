package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-account-api/internal/domain"
)

// Notifier delivers a verification token out-of-band to the channel target.
type Notifier interface {
	Send(ctx context.Context, ch domain.Channel, token string) error
}

type emailSender interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type notifier struct {
	mailer emailSender
	sms    smsSender
	users  userLookup
}

// NewNotifier routes tokens per channel: email via SMTP, phone via SMS, and
// username to the registered email address of that account. A nil transport
// degrades to an explicit log stub rather than a silent skip.
func NewNotifier(mailer emailSender, sms smsSender, users userLookup) Notifier {
	return &notifier{mailer: mailer, sms: sms, users: users}
}

const (
	mailSubject = "Your verification code"
	mailBodyFmt = "Your verification code is %s. It expires in 10 minutes."
	smsMessage  = "Your verification code is %s"
)

func (n *notifier) Send(ctx context.Context, ch domain.Channel, token string) error {
	switch ch.Kind {
	case domain.ChannelEmail:
		return n.sendMail(ch.Value, token)
	case domain.ChannelPhone:
		if n.sms == nil {
			stub(ch, token)
			return nil
		}
		if err := n.sms.SendSMS(ctx, ch.Value, fmt.Sprintf(smsMessage, token)); err != nil {
			return fmt.Errorf("%w: %v", ErrDelivery, err)
		}
		return nil
	case domain.ChannelUsername:
		u, err := n.users.GetByUsername(ctx, ch.Value)
		if err != nil {
			// Unknown username: swallow so a caller cannot probe which
			// usernames exist through delivery errors.
			slog.Info("verification requested for unknown username", "username", ch.Value)
			return nil
		}
		return n.sendMail(u.Email, token)
	default:
		return fmt.Errorf("unknown channel kind %q: %w", ch.Kind, domain.ErrInvariant)
	}
}

func (n *notifier) sendMail(to, token string) error {
	if n.mailer == nil {
		stub(domain.Channel{Kind: domain.ChannelEmail, Value: to}, token)
		return nil
	}
	if err := n.mailer.SendEmail(to, mailSubject, fmt.Sprintf(mailBodyFmt, token)); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// stub logs the token instead of delivering it. Development only.
func stub(ch domain.Channel, token string) {
	slog.Info("verification token issued (delivery stub)", "channel", ch.String(), "token", token)
}

// LogNotifier logs every token instead of delivering it. Used when no
// delivery transport is configured at all.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, ch domain.Channel, token string) error {
	stub(ch, token)
	return nil
}

// ErrDelivery marks a transport failure while sending a token.
var ErrDelivery = errors.New("delivery failed")
