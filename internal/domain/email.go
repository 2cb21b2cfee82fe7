package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// PurchaseInvitationEmailData holds data for a participant invitation email.
type PurchaseInvitationEmailData struct {
	Email       string
	PaymentLink string
	CreatorName string
	LineItems   []LineItem
	TotalAmount float64
	ShareAmount float64
	Deadline    time.Time
	PaymentURL  string
}

// CreatorConfirmationEmailData holds data for the creator's confirmation email.
type CreatorConfirmationEmailData struct {
	Email             string
	ParticipantEmails []string
	LineItems         []LineItem
	TotalAmount       float64
	ShareAmount       float64
	Deadline          time.Time
	DashboardURL      string
}

// CompletionEmailData holds data for the order-placed notification.
type CompletionEmailData struct {
	Emails      []string
	OrderID     string
	LineItems   []LineItem
	TotalAmount float64
}

// CancellationEmailData holds data for the cancellation notification.
type CancellationEmailData struct {
	Emails    []string
	LineItems []LineItem
}

// EmailService defines the domain-level notifications of the collaborative
// purchase flow. Calls are fire-and-forget from the caller's point of view:
// failures are logged, never propagated to the triggering request.
type EmailService interface {
	SendPurchaseInvitation(ctx context.Context, data *PurchaseInvitationEmailData) error
	SendCreatorConfirmation(ctx context.Context, data *CreatorConfirmationEmailData) error
	SendCompletionNotice(ctx context.Context, data *CompletionEmailData) error
	SendCancellationNotice(ctx context.Context, data *CancellationEmailData) error
}
