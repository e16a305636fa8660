package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SMTPNotifier sends messages as plain-text e-mail.
type SMTPNotifier struct {
	cfg  SMTPConfig
	from string
	send func(ctx context.Context, m *mail.Msg) error
}

// NewSMTPNotifier creates a notifier that sends from the given address.
func NewSMTPNotifier(cfg SMTPConfig, from string) *SMTPNotifier {
	n := &SMTPNotifier{cfg: cfg, from: from}
	n.send = n.dialAndSend
	return n
}

// Notify sends msg. Cancelling ctx aborts the SMTP session.
func (n *SMTPNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := buildMessage(n.from, msg)
	if err != nil {
		return err
	}
	if err := n.send(ctx, m); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	c, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, m)
}

// buildMessage composes a UTF-8 plain-text message with Date and Message-ID
// headers. Non-ASCII subjects are RFC 2047 encoded and the body is sent
// quoted-printable.
func buildMessage(from string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg(mail.WithCharset(mail.CharsetUTF8), mail.WithEncoding(mail.EncodingQP))
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(sanitizeHeader(msg.Subject))
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
