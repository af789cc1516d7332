package mailer

import (
	"context" // Request scoped cancellation
	"fmt"     // Error formatting
	"html"    // Escaping the HTML part

	"github.com/sendgrid/sendgrid-go"                     // SendGrid client
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail" // SendGrid message helpers
)

// SendGridMailer sends mail through the SendGrid v3 API
type SendGridMailer struct {
	client *sendgrid.Client // API client
	from   string           // Sender address
}

// NewSendGridMailer creates a SendGrid mailer
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), from: from}
}

// Send delivers the message as plain text with an escaped HTML alternative
func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	htmlContent := "<p>" + html.EscapeString(body) + "</p>"
	message := sgmail.NewSingleEmail(
		sgmail.NewEmail("DRS App", m.from), // Sender
		subject,                            // Subject line
		sgmail.NewEmail("", to),            // Recipient
		body,                               // Plain text
		htmlContent,                        // HTML
	)
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
