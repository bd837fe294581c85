package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/core/port"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
)

const defaultSMTPTimeout = 15 * time.Second

type mailDialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailSender delivers codes through an SMTP relay.
type EmailSender struct {
	client mailDialer
	from   string
	now    func() time.Time
}

// NewEmailSender builds a sender from the email settings. PLAIN auth is used when a username is set.
func NewEmailSender(cfg config.EmailSettings) (*EmailSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("notify: smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("notify: smtp from address is required")
	}

	opts := []mail.Option{
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(defaultSMTPTimeout),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp client: %w", err)
	}

	return &EmailSender{
		client: client,
		from:   cfg.From,
		now:    time.Now,
	}, nil
}

// Send implements port.NotificationSender.
func (s *EmailSender) Send(ctx context.Context, n domain.Notification) error {
	msg, err := s.compose(n)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}

func (s *EmailSender) compose(n domain.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, fmt.Errorf("notify: invalid from address: %w", err)
	}
	if err := msg.To(n.Destination); err != nil {
		return nil, fmt.Errorf("notify: invalid email destination: %w", err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(s.now())
	msg.SetBodyString(mail.TypeTextPlain, body(n, s.now()))
	return msg, nil
}

var _ port.NotificationSender = (*EmailSender)(nil)
