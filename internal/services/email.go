package services

import (
	"context"
	"fmt"
	"log"

	"bestwishes/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendPurchaseInvitation sends a participant their payment invitation using the
// "purchase_invitation" template.
func (s *emailService) SendPurchaseInvitation(ctx context.Context, data *domain.PurchaseInvitationEmailData) error {
	if data == nil {
		return fmt.Errorf("purchase invitation data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("purchase_invitation", data)
	if err != nil {
		return fmt.Errorf("failed to render purchase_invitation template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}
	log.Printf("[EMAIL] Purchase invitation sent to %s", data.Email)
	return nil
}

// SendCreatorConfirmation sends the creator the "purchase_created" confirmation.
func (s *emailService) SendCreatorConfirmation(ctx context.Context, data *domain.CreatorConfirmationEmailData) error {
	if data == nil {
		return fmt.Errorf("creator confirmation data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("purchase_created", data)
	if err != nil {
		return fmt.Errorf("failed to render purchase_created template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send creator confirmation email: %w", err)
	}
	log.Printf("[EMAIL] Creator confirmation sent to %s", data.Email)
	return nil
}

// SendCompletionNotice notifies the creator and every participant that the
// order was placed. Sending continues past individual failures; the first
// error is returned.
func (s *emailService) SendCompletionNotice(ctx context.Context, data *domain.CompletionEmailData) error {
	if data == nil {
		return fmt.Errorf("completion notice data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("purchase_completed", data)
	if err != nil {
		return fmt.Errorf("failed to render purchase_completed template: %w", err)
	}
	var firstErr error
	for _, email := range data.Emails {
		if err := s.mailer.Send(email, subject, htmlBody, textBody); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to send completion notice to %s: %w", email, err)
			}
			continue
		}
		log.Printf("[EMAIL] Completion notice sent to %s", email)
	}
	return firstErr
}

// SendCancellationNotice notifies everyone that the purchase was cancelled.
func (s *emailService) SendCancellationNotice(ctx context.Context, data *domain.CancellationEmailData) error {
	if data == nil {
		return fmt.Errorf("cancellation notice data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("purchase_cancelled", data)
	if err != nil {
		return fmt.Errorf("failed to render purchase_cancelled template: %w", err)
	}
	var firstErr error
	for _, email := range data.Emails {
		if err := s.mailer.Send(email, subject, htmlBody, textBody); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to send cancellation notice to %s: %w", email, err)
			}
			continue
		}
		log.Printf("[EMAIL] Cancellation notice sent to %s", email)
	}
	return firstErr
}
