package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/korospace/BE-WA-blaster/types"
)

// SMTPConfig configures the SMTP notifier.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string `yaml:"host"`

	// Port is the SMTP server port.
	Port int `yaml:"port"`

	// Username authenticates against the SMTP server. Empty disables auth.
	Username string `yaml:"username"`

	// Password authenticates against the SMTP server.
	Password string `yaml:"password"`

	// From is the sender address.
	From string `yaml:"from"`
}

// SMTPNotifier implements types.Notifier over plain SMTP.
//
// Alerts are best-effort by contract: the caller logs failures and never
// retries, so the notifier does not retry either.
type SMTPNotifier struct {
	cfg SMTPConfig
}

var _ types.Notifier = (*SMTPNotifier)(nil)

// NewSMTP creates an SMTP-backed notifier.
func NewSMTP(cfg SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// Send delivers one alert mail.
func (n *SMTPNotifier) Send(_ context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		n.cfg.From, to, subject, body)

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("%w: smtp send to %s: %w", types.ErrNotification, to, err)
	}

	return nil
}
