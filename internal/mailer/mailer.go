// Package mailer delivers the verification and password reset emails.
package mailer

import (
	"context" // Request scoped cancellation
	"fmt"     // Error formatting

	"coupon_tracker/internal/config" // Application configuration

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Mailer sends a plain text email
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New builds the mailer selected by MAIL_PROVIDER
func New(cfg *config.Config) (Mailer, error) {
	switch cfg.MailProvider {
	case config.MailSMTP:
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFromEmail, cfg.SMTPUseTLS), nil
	case config.MailSendGrid:
		return NewSendGridMailer(cfg.SendGridAPIKey, cfg.SMTPFromEmail), nil
	case config.MailLog:
		return LogMailer{}, nil
	}
	return nil, fmt.Errorf("unsupported mail provider %q", cfg.MailProvider)
}

// LogMailer writes mails to the log instead of sending them. Development only.
type LogMailer struct{}

// Send logs the mail
func (LogMailer) Send(_ context.Context, to, subject, body string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,      // Recipient
		"subject": subject, // Subject line
		"body":    body,    // Message text
	}).Warn("Mail not sent, MAIL_PROVIDER=log")
	return nil
}
