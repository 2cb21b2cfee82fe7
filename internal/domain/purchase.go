package domain

import (
	"context"
	"math"
	"strings"
	"time"
)

// Purchase lifecycle states. Processing is the only non-terminal state; once a
// purchase leaves it, it never returns.
const (
	PurchaseStatusProcessing = "processing"
	PurchaseStatusCompleted  = "completed"
	PurchaseStatusCancelled  = "cancelled"
	PurchaseStatusExpired    = "expired"
	PurchaseStatusRefunded   = "refunded"
)

// Participant payment states.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusDeclined = "declined"
	PaymentStatusRefunded = "refunded"
)

// ShippingCost is the flat shipping fee added once per collaborative purchase.
const ShippingCost = 10.0

// PurchaseDeadline is how long participants have to pay their shares.
const PurchaseDeadline = 3 * 24 * time.Hour

// MaxParticipants is the maximum number of invited participants (creator excluded).
const MaxParticipants = 3

// LineItem is one product entry of a collaborative purchase. A legacy
// single-product purchase is a line-item list of length one.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

// Participant is one invited payer of a collaborative purchase.
// swagger:model Participant
type Participant struct {
	ID              string     `json:"id"`
	PurchaseID      string     `json:"purchase_id"`
	Email           string     `json:"email"`
	PaymentLink     string     `json:"payment_link"`
	PaymentStatus   string     `json:"payment_status"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	RefundID        string     `json:"refund_id,omitempty"`
}

// CollaborativePurchase is a single order whose cost is split between a
// creator and up to three invited participants.
// swagger:model CollaborativePurchase
type CollaborativePurchase struct {
	ID             string         `json:"id"`
	CreatedBy      string         `json:"created_by"`
	LineItems      []LineItem     `json:"line_items"`
	IsMultiProduct bool           `json:"is_multi_product"`
	TotalAmount    float64        `json:"total_amount"`
	ShareAmount    float64        `json:"share_amount"`
	Participants   []*Participant `json:"participants"`
	Status         string         `json:"status"`
	Deadline       time.Time      `json:"deadline"`
	OrderID        string         `json:"order_id,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CancelledAt    *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ParticipantCount is the number of payers: invited participants plus the creator.
func (p *CollaborativePurchase) ParticipantCount() int {
	return len(p.Participants) + 1
}

// AllPaid reports whether every invited participant has paid their share.
func (p *CollaborativePurchase) AllPaid() bool {
	for _, pt := range p.Participants {
		if pt.PaymentStatus != PaymentStatusPaid {
			return false
		}
	}
	return true
}

// ParticipantByLink returns the participant holding the given payment link.
func (p *CollaborativePurchase) ParticipantByLink(link string) *Participant {
	for _, pt := range p.Participants {
		if pt.PaymentLink == link {
			return pt
		}
	}
	return nil
}

// CreatorShare is the creator's portion: the total minus the rounded shares of
// the invited participants. The creator absorbs the rounding residue so the
// shares always reconcile with the total.
func (p *CollaborativePurchase) CreatorShare() float64 {
	return Round2(p.TotalAmount - p.ShareAmount*float64(len(p.Participants)))
}

// Round2 rounds a currency amount to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeShare returns the total and per-payer share for the given line items,
// shipping cost, and payer count. It is pure and deterministic.
func ComputeShare(items []LineItem, shippingCost float64, participantCount int) (totalAmount, shareAmount float64, err error) {
	if len(items) == 0 || shippingCost < 0 || participantCount < 2 {
		return 0, 0, ErrInvalidInput
	}
	subtotal := 0.0
	for _, it := range items {
		if it.UnitPrice < 0 || it.Quantity < 1 {
			return 0, 0, ErrInvalidInput
		}
		subtotal += it.UnitPrice * float64(it.Quantity)
	}
	totalAmount = subtotal + shippingCost
	shareAmount = Round2(totalAmount / float64(participantCount))
	return totalAmount, shareAmount, nil
}

// NormalizeEmail trims surrounding whitespace and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidParticipantEmail reports whether an email is acceptable for an
// invitation: non-empty after trimming and containing an @.
func ValidParticipantEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && strings.Contains(email, "@")
}

// CreatePurchaseItem is one requested product of a new collaborative purchase.
type CreatePurchaseItem struct {
	ProductID string
	Quantity  int
}

// CreatePurchaseInput is the normalized input for creating a collaborative
// purchase. Legacy single-product requests arrive as a one-item list.
type CreatePurchaseInput struct {
	Items             []CreatePurchaseItem
	ParticipantEmails []string
	IsMultiProduct    bool
}

// PurchaseRepository defines storage operations for collaborative purchases.
// Mutating operations on a single purchase are conditional updates so that
// concurrent requests against the same record serialize at the database.
type PurchaseRepository interface {
	Create(ctx context.Context, p *CollaborativePurchase) error
	GetByID(ctx context.Context, id string) (*CollaborativePurchase, error)
	GetByPaymentLink(ctx context.Context, link string) (*CollaborativePurchase, error)
	// ListByUser returns purchases the user created or participates in by
	// email, newest first.
	ListByUser(ctx context.Context, userID, email string, params PaginationParams) ([]*CollaborativePurchase, int, error)
	PaymentLinkExists(ctx context.Context, link string) (bool, error)
	// MarkParticipantPaid flips a participant from pending to paid. Returns
	// ErrAlreadyPaid when the participant is not pending.
	MarkParticipantPaid(ctx context.Context, participantID, paymentIntentID string, paidAt time.Time) error
	// MarkParticipantDeclined flips a participant from pending to declined.
	// Returns ErrAlreadyPaid when the participant is no longer pending; a paid
	// decliner keeps their paid status until the refund pass releases it.
	MarkParticipantDeclined(ctx context.Context, participantID string) error
	MarkParticipantRefunded(ctx context.Context, participantID, refundID string) error
	// TransitionStatus moves a purchase from one status to another as a single
	// conditional update. Returns false when the purchase was not in the
	// expected status.
	TransitionStatus(ctx context.Context, purchaseID, from, to string, at time.Time) (bool, error)
	// CompleteIfAllPaid atomically completes the purchase and materializes the
	// order in one transaction, only when the purchase is still processing and
	// every participant has paid. Exactly one of N concurrent callers observes
	// completed == true.
	CompleteIfAllPaid(ctx context.Context, purchaseID string, order *Order, at time.Time) (completed bool, err error)
	// ListExpiredProcessing returns purchases still processing past their
	// deadline, for the expiry sweep.
	ListExpiredProcessing(ctx context.Context, now time.Time, limit int) ([]*CollaborativePurchase, error)
}

// PurchaseService defines the collaborative purchase workflow.
type PurchaseService interface {
	Create(ctx context.Context, userID string, in *CreatePurchaseInput) (*CollaborativePurchase, error)
	GetByID(ctx context.Context, id string) (*CollaborativePurchase, error)
	// GetByPaymentLink returns the purchase, the participant owning the link,
	// and the time remaining before the deadline (clamped at zero).
	GetByPaymentLink(ctx context.Context, link string) (*CollaborativePurchase, *Participant, time.Duration, error)
	// ProcessPayment records a participant's payment. allPaid is true when this
	// payment completed the purchase and the order was placed.
	ProcessPayment(ctx context.Context, link, paymentIntentID string) (p *CollaborativePurchase, allPaid bool, err error)
	// Decline cancels the whole purchase on behalf of one participant and
	// refunds everyone who already paid, the decliner included.
	Decline(ctx context.Context, link string) (*CollaborativePurchase, error)
	ListForUser(ctx context.Context, userID, email string, params PaginationParams) ([]*CollaborativePurchase, int, error)
	// Cancel is the creator-initiated cancellation. Only the creator may cancel.
	Cancel(ctx context.Context, purchaseID, userID string) (*CollaborativePurchase, error)
	// CheckAndExpire expires processing purchases whose deadline has passed and
	// refunds their paid participants. Returns the number of purchases expired.
	CheckAndExpire(ctx context.Context, now time.Time) (int, error)
}
