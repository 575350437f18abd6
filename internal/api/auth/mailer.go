package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
)

// Mailer delivers password-reset codes. Delivery is best effort; the
// service never fails a reset request on a mail error.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string) error
}

// SMTPMailer sends over plain SMTP with AUTH PLAIN. The password comes
// from SMTP_PASSWORD so credentials stay out of config files.
type SMTPMailer struct {
	server   string
	port     int
	from     string
	username string
	logger   *slog.Logger
}

func NewSMTPMailer(server string, port int, from, username string, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		server:   server,
		port:     port,
		from:     from,
		username: username,
		logger:   logger,
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Your password reset code\r\n\r\n"+
		"Your one-time password reset code is: %s\r\n\r\nIt expires in 10 minutes.\r\n", m.from, to, code)

	auth := smtp.PlainAuth("", m.username, os.Getenv("SMTP_PASSWORD"), m.server)
	addr := fmt.Sprintf("%s:%d", m.server, m.port)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send otp mail: %w", err)
	}
	m.logger.InfoContext(ctx, "OTP mail sent", slog.String("to", to))
	return nil
}

// LogMailer writes the code to the log instead of sending mail. Used when
// no SMTP server is configured, which is the normal state in development.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOTP(ctx context.Context, to, code string) error {
	m.logger.InfoContext(ctx, "OTP issued (mail disabled)", slog.String("to", to), slog.String("otp", code))
	return nil
}
