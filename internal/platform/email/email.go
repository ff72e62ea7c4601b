// Package email sends the service's transactional mail over SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ems/internal/platform/config"
)

// Mailer delivers plain-text mail. Password reset links are its only caller.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type noopMailer struct{}

func (noopMailer) Send(context.Context, string, string, string, string) error {
	return nil
}

type smtpMailer struct {
	host     string
	addr     string
	user     string
	password string
	startTLS bool
	timeout  time.Duration
}

// New returns a no-op Mailer unless EMAIL_ENABLED is set with an SMTP_HOST.
func New(cfg config.Config) Mailer {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopMailer{}
	}
	return &smtpMailer{
		host:     cfg.SMTPHost,
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		startTLS: cfg.SMTPUseTLS,
		timeout:  10 * time.Second,
	}
}

func (s *smtpMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}

	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if s.startTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.user != "" {
		if err := client.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMessage(from, to, subject, body, time.Now())); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// buildMessage strips line breaks from header values so a crafted subject
// or address cannot add headers.
func buildMessage(from, to, subject, body string, now time.Time) []byte {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}
	var b strings.Builder
	for _, h := range [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", subject},
		{"Date", now.UTC().Format(time.RFC1123Z)},
		{"Message-ID", "<" + uuid.NewString() + "@" + domain + ">"},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="UTF-8"`},
	} {
		b.WriteString(h[0] + ": " + headerValue(h[1]) + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

func headerValue(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
