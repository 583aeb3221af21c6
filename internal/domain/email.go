package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// InvitationEmailData holds data for the event invitation email. OpenURL is
// the tracking pixel endpoint and ClickURL the tracked event link, both keyed
// by the invitation's opaque tracking token.
type InvitationEmailData struct {
	Email       string
	EventTitle  string
	EventDate   string
	InviterName string
	OpenURL     string
	ClickURL    string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendInvitation(ctx context.Context, data *InvitationEmailData) error
}
