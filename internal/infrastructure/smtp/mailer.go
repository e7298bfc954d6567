package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/go-otp-api/internal/config"
)

// Mailer delivers one-time passcodes over email.
type Mailer interface {
	SendCode(ctx context.Context, to, code, subject string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
	validity time.Duration
}

// NewMailer builds an SMTP-backed mailer. validity is only used in the
// message copy ("valid for N minutes") and must match the cache TTL.
func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		validity: cfg.OTP.CacheTTL,
	}
}

func (m *mailer) SendCode(_ context.Context, to, code, subject string) error {
	if subject == "" {
		subject = "Your One-Time Password (OTP) is " + code
	}

	body := emailBody(code, int(m.validity.Minutes()))
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

func emailBody(code string, validMinutes int) string {
	return fmt.Sprintf(`<html><body style="font-family:Arial,sans-serif">
<h2>OTP Verification</h2>
<p>Use the following code to complete your verification:</p>
<p style="font-size:32px;letter-spacing:8px;font-weight:bold">%s</p>
<p>This code is valid for <strong>%d minutes</strong>.</p>
<p style="color:#dc3545">Never share this code with anyone. Our team will never ask for your OTP.</p>
</body></html>`, code, validMinutes)
}
