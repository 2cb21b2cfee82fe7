package domain

import "context"

// PaymentProcessor is the port to the external payment provider. Charge
// confirms a client-created payment intent; Refund reverses a captured one.
// Implementations must be safe to retry.
type PaymentProcessor interface {
	Charge(ctx context.Context, paymentIntentID string, amount float64) error
	Refund(ctx context.Context, paymentIntentID string, amount float64) (refundID string, err error)
}

// PaymentAttemptStore deduplicates payment submissions before they reach the
// database. BeginAttempt returns false when the same payment intent was
// already submitted for the link recently.
type PaymentAttemptStore interface {
	BeginAttempt(ctx context.Context, paymentLink, paymentIntentID string) (first bool, err error)
}
