package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/fastygo/reminders/internal/config"
)

// Message is a rendered multipart email ready for delivery.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message once. Implementations must honour ctx.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	from    string
	timeout time.Duration
	options []gomail.Option
	host    string
}

// NewSMTPSender validates cfg and prepares the go-mail client options.
// A connection is opened per Send so an idle relay never holds a socket.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp: host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp: sender address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(timeout),
	}
	switch cfg.TLSMode {
	case "tls":
		opts = append(opts, gomail.WithSSL())
	case "opportunistic":
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	case "none":
		opts = append(opts, gomail.WithTLSPolicy(gomail.NoTLS))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	return &SMTPSender{
		from:    cfg.From,
		timeout: timeout,
		options: opts,
		host:    cfg.Host,
	}, nil
}

// Send builds a plain-text message with an HTML alternative and delivers it.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("smtp: from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("smtp: to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}

	client, err := gomail.NewClient(s.host, s.options...)
	if err != nil {
		return fmt.Errorf("smtp: client: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := client.DialAndSendWithContext(sendCtx, m); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}
	return nil
}
