package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bestwishes/internal/domain"
)

const (
	maxLinkAttempts = 5
	sweepBatchSize  = 100
)

type purchaseService struct {
	purchaseRepo   domain.PurchaseRepository
	productRepo    domain.ProductRepository
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	processor      domain.PaymentProcessor
	attempts       domain.PaymentAttemptStore
	logger         *slog.Logger
	frontendURL    string
	contextTimeout time.Duration
}

// NewPurchaseService creates a PurchaseService with the given repositories and
// collaborator ports. attempts may be nil; payment deduplication then relies on
// the database alone.
func NewPurchaseService(
	purchaseRepo domain.PurchaseRepository,
	productRepo domain.ProductRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	processor domain.PaymentProcessor,
	attempts domain.PaymentAttemptStore,
	logger *slog.Logger,
	frontendURL string,
	timeout time.Duration,
) domain.PurchaseService {
	return &purchaseService{
		purchaseRepo:   purchaseRepo,
		productRepo:    productRepo,
		userRepo:       userRepo,
		emailService:   emailService,
		processor:      processor,
		attempts:       attempts,
		logger:         logger,
		frontendURL:    frontendURL,
		contextTimeout: timeout,
	}
}

func (s *purchaseService) Create(ctx context.Context, userID string, in *domain.CreatePurchaseInput) (*domain.CollaborativePurchase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if userID == "" {
		return nil, fmt.Errorf("%w: purchase creator is required", domain.ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: either a product id or a products array is required", domain.ErrInvalidInput)
	}
	if len(in.ParticipantEmails) == 0 || len(in.ParticipantEmails) > domain.MaxParticipants {
		return nil, fmt.Errorf("%w: participants must be a list of 1-%d emails", domain.ErrInvalidInput, domain.MaxParticipants)
	}
	for _, email := range in.ParticipantEmails {
		if !domain.ValidParticipantEmail(email) {
			return nil, fmt.Errorf("%w: invalid participant email: %s", domain.ErrInvalidInput, email)
		}
	}

	lineItems, err := s.resolveLineItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	participantCount := len(in.ParticipantEmails) + 1 // creator pays a share too
	totalAmount, shareAmount, err := domain.ComputeShare(lineItems, domain.ShippingCost, participantCount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	purchase := &domain.CollaborativePurchase{
		CreatedBy:      userID,
		LineItems:      lineItems,
		IsMultiProduct: in.IsMultiProduct,
		TotalAmount:    totalAmount,
		ShareAmount:    shareAmount,
		Status:         domain.PurchaseStatusProcessing,
		Deadline:       now.Add(domain.PurchaseDeadline),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, email := range in.ParticipantEmails {
		link, err := s.newPaymentLink(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate payment link: %w", err)
		}
		purchase.Participants = append(purchase.Participants, &domain.Participant{
			Email:         domain.NormalizeEmail(email),
			PaymentLink:   link,
			PaymentStatus: domain.PaymentStatusPending,
		})
	}

	if err := s.purchaseRepo.Create(ctx, purchase); err != nil {
		return nil, fmt.Errorf("create collaborative purchase: %w", err)
	}

	s.sendCreationEmails(ctx, purchase)
	return purchase, nil
}

// resolveLineItems looks up each requested product and builds the normalized
// line-item list with effective prices.
func (s *purchaseService) resolveLineItems(ctx context.Context, items []domain.CreatePurchaseItem) ([]domain.LineItem, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidInput)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
		}
		ids = append(ids, it.ProductID)
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lineItems := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		product, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, it.ProductID)
		}
		lineItems = append(lineItems, domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.EffectivePrice(),
			Quantity:  it.Quantity,
			Image:     product.FirstImage(),
		})
	}
	return lineItems, nil
}

func (s *purchaseService) newPaymentLink(ctx context.Context) (string, error) {
	for i := 0; i < maxLinkAttempts; i++ {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}
		link := hex.EncodeToString(b)
		exists, err := s.purchaseRepo.PaymentLinkExists(ctx, link)
		if err != nil {
			return "", err
		}
		if !exists {
			return link, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique payment link after %d attempts", maxLinkAttempts)
}

func (s *purchaseService) GetByID(ctx context.Context, id string) (*domain.CollaborativePurchase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	purchase, err := s.purchaseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get collaborative purchase: %w", err)
	}
	return purchase, nil
}

func (s *purchaseService) GetByPaymentLink(ctx context.Context, link string) (*domain.CollaborativePurchase, *domain.Participant, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	purchase, err := s.purchaseRepo.GetByPaymentLink(ctx, link)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, 0, domain.ErrNotFound
		}
		return nil, nil, 0, fmt.Errorf("get purchase by payment link: %w", err)
	}
	participant := purchase.ParticipantByLink(link)
	if participant == nil {
		return nil, nil, 0, domain.ErrNotFound
	}
	remaining := time.Until(purchase.Deadline)
	if remaining < 0 {
		remaining = 0
	}
	return purchase, participant, remaining, nil
}

func (s *purchaseService) ProcessPayment(ctx context.Context, link, paymentIntentID string) (*domain.CollaborativePurchase, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if paymentIntentID == "" {
		return nil, false, fmt.Errorf("%w: payment_intent_id is required", domain.ErrInvalidInput)
	}

	// First-line dedupe. The database guards are authoritative; a broken
	// attempt store must not block payments.
	if s.attempts != nil {
		first, err := s.attempts.BeginAttempt(ctx, link, paymentIntentID)
		if err != nil {
			s.logger.WarnContext(ctx, "payment attempt store unavailable", "err", err)
		} else if !first {
			return nil, false, domain.ErrDuplicatePayment
		}
	}

	purchase, err := s.purchaseRepo.GetByPaymentLink(ctx, link)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, domain.ErrNotFound
		}
		return nil, false, fmt.Errorf("get purchase by payment link: %w", err)
	}
	participant := purchase.ParticipantByLink(link)
	if participant == nil {
		return nil, false, domain.ErrNotFound
	}
	if participant.PaymentStatus == domain.PaymentStatusPaid {
		return nil, false, domain.ErrAlreadyPaid
	}
	if purchase.Status != domain.PurchaseStatusProcessing {
		return nil, false, domain.ErrPurchaseNotActive
	}

	now := time.Now()
	if now.After(purchase.Deadline) {
		if err := s.expire(ctx, purchase, now); err != nil {
			s.logger.ErrorContext(ctx, "expire purchase", "purchase_id", purchase.ID, "err", err)
		}
		return nil, false, domain.ErrDeadlinePassed
	}

	if err := s.processor.Charge(ctx, paymentIntentID, purchase.ShareAmount); err != nil {
		return nil, false, fmt.Errorf("charge payment intent: %w", err)
	}

	if err := s.purchaseRepo.MarkParticipantPaid(ctx, participant.ID, paymentIntentID, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyPaid) {
			// A concurrent submission recorded first. Release this charge so
			// the share is not captured twice.
			if _, rerr := s.processor.Refund(ctx, paymentIntentID, purchase.ShareAmount); rerr != nil {
				s.logger.ErrorContext(ctx, "refund superseded charge", "purchase_id", purchase.ID, "participant_id", participant.ID, "err", rerr)
			}
			return nil, false, domain.ErrAlreadyPaid
		}
		return nil, false, fmt.Errorf("mark participant paid: %w", err)
	}
	participant.PaymentStatus = domain.PaymentStatusPaid
	participant.PaidAt = &now
	participant.PaymentIntentID = paymentIntentID

	// Always attempt completion: with concurrent payers the local snapshot may
	// be stale, and CompleteIfAllPaid is a no-op while shares remain unpaid.
	order := domain.NewOrderFromPurchase(purchase, now)
	completed, err := s.purchaseRepo.CompleteIfAllPaid(ctx, purchase.ID, order, now)
	if err != nil {
		return nil, false, fmt.Errorf("complete purchase: %w", err)
	}
	if completed {
		purchase.Status = domain.PurchaseStatusCompleted
		purchase.OrderID = order.ID
		purchase.CompletedAt = &now
		s.sendCompletionEmails(ctx, purchase, order)
	}
	return purchase, completed, nil
}

func (s *purchaseService) Decline(ctx context.Context, link string) (*domain.CollaborativePurchase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	purchase, err := s.purchaseRepo.GetByPaymentLink(ctx, link)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get purchase by payment link: %w", err)
	}
	participant := purchase.ParticipantByLink(link)
	if participant == nil {
		return nil, domain.ErrNotFound
	}
	if purchase.Status != domain.PurchaseStatusProcessing {
		return nil, domain.ErrPurchaseNotActive
	}

	// A participant who already paid may still back out; their captured share
	// is released by the refund pass below, so only pending participants get
	// the declined mark.
	if participant.PaymentStatus == domain.PaymentStatusPending {
		err := s.purchaseRepo.MarkParticipantDeclined(ctx, participant.ID)
		switch {
		case errors.Is(err, domain.ErrAlreadyPaid):
			// The participant's own payment landed between the read and the
			// decline. Reload so the refund pass sees the captured intent.
			purchase, err = s.purchaseRepo.GetByPaymentLink(ctx, link)
			if err != nil {
				return nil, fmt.Errorf("get purchase by payment link: %w", err)
			}
			if purchase.Status != domain.PurchaseStatusProcessing {
				return nil, domain.ErrPurchaseNotActive
			}
		case err != nil:
			return nil, fmt.Errorf("mark participant declined: %w", err)
		default:
			participant.PaymentStatus = domain.PaymentStatusDeclined
		}
	}

	// A single decline cancels the whole purchase for everyone.
	if err := s.cancelAndRefund(ctx, purchase, time.Now()); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *purchaseService) ListForUser(ctx context.Context, userID, email string, params domain.PaginationParams) ([]*domain.CollaborativePurchase, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	purchases, total, err := s.purchaseRepo.ListByUser(ctx, userID, domain.NormalizeEmail(email), params)
	if err != nil {
		return nil, 0, fmt.Errorf("list collaborative purchases: %w", err)
	}
	if purchases == nil {
		purchases = []*domain.CollaborativePurchase{}
	}
	return purchases, total, nil
}

func (s *purchaseService) Cancel(ctx context.Context, purchaseID, userID string) (*domain.CollaborativePurchase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	purchase, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get collaborative purchase: %w", err)
	}
	if purchase.CreatedBy != userID {
		return nil, domain.ErrForbidden
	}
	if purchase.Status != domain.PurchaseStatusProcessing {
		return nil, domain.ErrInvalidState
	}

	if err := s.cancelAndRefund(ctx, purchase, time.Now()); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (s *purchaseService) CheckAndExpire(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	stale, err := s.purchaseRepo.ListExpiredProcessing(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired purchases: %w", err)
	}
	expired := 0
	for _, purchase := range stale {
		if err := s.expire(ctx, purchase, now); err != nil {
			s.logger.ErrorContext(ctx, "expire purchase", "purchase_id", purchase.ID, "err", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// expire moves a processing purchase to expired and refunds any shares that
// were already paid. No order is created.
func (s *purchaseService) expire(ctx context.Context, purchase *domain.CollaborativePurchase, now time.Time) error {
	ok, err := s.purchaseRepo.TransitionStatus(ctx, purchase.ID, domain.PurchaseStatusProcessing, domain.PurchaseStatusExpired, now)
	if err != nil {
		return fmt.Errorf("transition to expired: %w", err)
	}
	if !ok {
		// Lost the race to another transition; nothing left to do.
		return nil
	}
	purchase.Status = domain.PurchaseStatusExpired
	purchase.CancelledAt = &now
	s.refundPaid(ctx, purchase)
	return nil
}

// cancelAndRefund runs the cancellation transition, the refund pass over paid
// participants, and the cancellation notifications. When at least one refund
// was issued the purchase ends refunded instead of cancelled.
func (s *purchaseService) cancelAndRefund(ctx context.Context, purchase *domain.CollaborativePurchase, now time.Time) error {
	ok, err := s.purchaseRepo.TransitionStatus(ctx, purchase.ID, domain.PurchaseStatusProcessing, domain.PurchaseStatusCancelled, now)
	if err != nil {
		return fmt.Errorf("transition to cancelled: %w", err)
	}
	if !ok {
		return domain.ErrInvalidState
	}
	purchase.Status = domain.PurchaseStatusCancelled
	purchase.CancelledAt = &now

	if refunded := s.refundPaid(ctx, purchase); refunded > 0 {
		ok, err := s.purchaseRepo.TransitionStatus(ctx, purchase.ID, domain.PurchaseStatusCancelled, domain.PurchaseStatusRefunded, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "mark purchase refunded", "purchase_id", purchase.ID, "err", err)
		} else if ok {
			purchase.Status = domain.PurchaseStatusRefunded
		}
	}

	s.sendCancellationEmails(ctx, purchase)
	return nil
}

// refundPaid refunds every participant whose share was captured and returns
// the number of refunds issued. Individual refund failures are logged and do
// not stop the pass.
func (s *purchaseService) refundPaid(ctx context.Context, purchase *domain.CollaborativePurchase) int {
	refunded := 0
	for _, participant := range purchase.Participants {
		if participant.PaymentStatus != domain.PaymentStatusPaid {
			continue
		}
		refundID, err := s.processor.Refund(ctx, participant.PaymentIntentID, purchase.ShareAmount)
		if err != nil {
			s.logger.ErrorContext(ctx, "refund participant", "purchase_id", purchase.ID, "participant_id", participant.ID, "err", err)
			continue
		}
		if err := s.purchaseRepo.MarkParticipantRefunded(ctx, participant.ID, refundID); err != nil {
			s.logger.ErrorContext(ctx, "mark participant refunded", "purchase_id", purchase.ID, "participant_id", participant.ID, "err", err)
			continue
		}
		participant.PaymentStatus = domain.PaymentStatusRefunded
		participant.RefundID = refundID
		refunded++
	}
	return refunded
}

func (s *purchaseService) creatorEmail(ctx context.Context, purchase *domain.CollaborativePurchase) (email, name string) {
	creator, err := s.userRepo.GetByID(ctx, purchase.CreatedBy)
	if err != nil || creator == nil {
		s.logger.WarnContext(ctx, "lookup purchase creator", "purchase_id", purchase.ID, "err", err)
		return "", "The purchase creator"
	}
	return creator.Email, creator.DisplayName()
}

func (s *purchaseService) sendCreationEmails(ctx context.Context, purchase *domain.CollaborativePurchase) {
	creatorEmail, creatorName := s.creatorEmail(ctx, purchase)

	for _, participant := range purchase.Participants {
		data := &domain.PurchaseInvitationEmailData{
			Email:       participant.Email,
			PaymentLink: participant.PaymentLink,
			CreatorName: creatorName,
			LineItems:   purchase.LineItems,
			TotalAmount: purchase.TotalAmount,
			ShareAmount: purchase.ShareAmount,
			Deadline:    purchase.Deadline,
			PaymentURL:  s.frontendURL + "/collaborative-payment/" + participant.PaymentLink,
		}
		if err := s.emailService.SendPurchaseInvitation(ctx, data); err != nil {
			s.logger.ErrorContext(ctx, "send invitation email", "purchase_id", purchase.ID, "to", participant.Email, "err", err)
		}
	}

	if creatorEmail == "" {
		return
	}
	emails := make([]string, 0, len(purchase.Participants))
	for _, participant := range purchase.Participants {
		emails = append(emails, participant.Email)
	}
	data := &domain.CreatorConfirmationEmailData{
		Email:             creatorEmail,
		ParticipantEmails: emails,
		LineItems:         purchase.LineItems,
		TotalAmount:       purchase.TotalAmount,
		ShareAmount:       purchase.ShareAmount,
		Deadline:          purchase.Deadline,
		DashboardURL:      s.frontendURL + "/dashboard/collaborative-purchases",
	}
	if err := s.emailService.SendCreatorConfirmation(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "send creator confirmation email", "purchase_id", purchase.ID, "to", creatorEmail, "err", err)
	}
}

func (s *purchaseService) recipientEmails(ctx context.Context, purchase *domain.CollaborativePurchase) []string {
	var emails []string
	if creatorEmail, _ := s.creatorEmail(ctx, purchase); creatorEmail != "" {
		emails = append(emails, creatorEmail)
	}
	for _, participant := range purchase.Participants {
		emails = append(emails, participant.Email)
	}
	return emails
}

func (s *purchaseService) sendCompletionEmails(ctx context.Context, purchase *domain.CollaborativePurchase, order *domain.Order) {
	data := &domain.CompletionEmailData{
		Emails:      s.recipientEmails(ctx, purchase),
		OrderID:     order.ID,
		LineItems:   purchase.LineItems,
		TotalAmount: purchase.TotalAmount,
	}
	if err := s.emailService.SendCompletionNotice(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "send completion notice", "purchase_id", purchase.ID, "err", err)
	}
}

func (s *purchaseService) sendCancellationEmails(ctx context.Context, purchase *domain.CollaborativePurchase) {
	data := &domain.CancellationEmailData{
		Emails:    s.recipientEmails(ctx, purchase),
		LineItems: purchase.LineItems,
	}
	if err := s.emailService.SendCancellationNotice(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "send cancellation notice", "purchase_id", purchase.ID, "err", err)
	}
}
