package notifier

import (
	"context"

	"github.com/wneessen/go-mail"

	"darkroom/internal/config"
	"darkroom/internal/services"
)

// Mailer is the capability the notification stage needs from a mail
// transport.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer implements Mailer over SMTP. TLS is opportunistic so plain
// development relays work without configuration.
type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
}

// NewSMTPMailer builds a mailer from the SMTP section of cfg.
func NewSMTPMailer(cfg config.SMTP) (*SMTPMailer, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "notifier", "connect", cfg.Host, err)
	}
	return &SMTPMailer{client: client, from: cfg.From, fromName: cfg.FromName}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return services.Wrap(services.ErrTransient, "notifier", "send", "invalid sender "+m.from, err)
	}
	if err := msg.To(to); err != nil {
		return services.Wrap(services.ErrTransient, "notifier", "send", "invalid recipient "+to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return services.Wrap(services.ErrTransient, "notifier", "send", to, err)
	}
	return nil
}
