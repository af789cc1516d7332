package mailer

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping

	mail "github.com/wneessen/go-mail" // SMTP client
)

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	host     string // SMTP server host
	port     int    // SMTP server port
	user     string // Login user, empty disables auth
	password string // Login password
	from     string // Sender address
	useTLS   bool   // Require STARTTLS
}

// NewSMTPMailer creates an SMTP mailer
func NewSMTPMailer(host string, port int, user, password, from string, useTLS bool) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, password: password, from: from, useTLS: useTLS}
}

// Send delivers a plain text message
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{mail.WithPort(m.port)}
	if m.useTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	// Authenticate only when credentials are configured
	if m.user != "" && m.password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.user),
			mail.WithPassword(m.password),
		)
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
