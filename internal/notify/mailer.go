package notify

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/MikohMick/SEO-MACHINE/pkg/config"
	apperrors "github.com/MikohMick/SEO-MACHINE/pkg/errors"
)

// Mailer sends notifications over SMTP. Credentials are optional; an open
// relay on a private network needs none.
type Mailer struct {
	cfg      config.NotifyConfig
	username string
	password string
	logger   *slog.Logger
}

// NewMailer creates a Mailer. username and password may be empty for
// unauthenticated relays.
func NewMailer(cfg config.NotifyConfig, username, password string) *Mailer {
	return &Mailer{
		cfg:      cfg,
		username: username,
		password: password,
		logger:   slog.Default().With("component", "mailer"),
	}
}

// Send delivers one notification to every configured recipient.
func (m *Mailer) Send(n Notification) error {
	if m.cfg.SMTPHost == "" || m.cfg.From == "" || len(m.cfg.To) == 0 {
		return fmt.Errorf("mailer: %w", apperrors.ErrMissingCredential)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", n.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(n.Body)
	if !n.EmittedAt.IsZero() {
		fmt.Fprintf(&b, "\r\n\r\nEmitted at %s", n.EmittedAt.Format("2006-01-02 15:04:05 MST"))
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, m.cfg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("send notification mail: %w", err)
	}
	m.logger.Info("notification mailed", "subject", n.Subject, "recipients", len(m.cfg.To))
	return nil
}
