package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bestwishes/internal/domain"
)

type purchaseRepository struct {
	DB *sql.DB
}

// NewPurchaseRepository returns a PurchaseRepository backed by Postgres.
func NewPurchaseRepository(db *sql.DB) domain.PurchaseRepository {
	return &purchaseRepository{
		DB: db,
	}
}

func (r *purchaseRepository) Create(ctx context.Context, p *domain.CollaborativePurchase) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO collaborative_purchases
			(created_by, is_multi_product, total_amount, share_amount, status, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		p.CreatedBy, p.IsMultiProduct, p.TotalAmount, p.ShareAmount,
		p.Status, p.Deadline, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}

	itemQuery := `
		INSERT INTO purchase_line_items (purchase_id, product_id, name, unit_price, quantity, image, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, li := range p.LineItems {
		if _, err := tx.ExecContext(ctx, itemQuery, p.ID, li.ProductID, li.Name, li.UnitPrice, li.Quantity, li.Image, i); err != nil {
			return fmt.Errorf("insert line item %d: %w", i, err)
		}
	}

	participantQuery := `
		INSERT INTO purchase_participants (purchase_id, email, payment_link, payment_status, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for i, pt := range p.Participants {
		if err := tx.QueryRowContext(ctx, participantQuery, p.ID, pt.Email, pt.PaymentLink, pt.PaymentStatus, i).Scan(&pt.ID); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
		pt.PurchaseID = p.ID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *purchaseRepository) getByID(ctx context.Context, q querier, id string) (*domain.CollaborativePurchase, error) {
	query := `
		SELECT id, created_by, is_multi_product, total_amount, share_amount, status,
		       deadline, order_id, completed_at, cancelled_at, created_at, updated_at
		FROM collaborative_purchases
		WHERE id = $1
	`
	p := &domain.CollaborativePurchase{}
	var orderID sql.NullString
	err := q.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.CreatedBy, &p.IsMultiProduct, &p.TotalAmount, &p.ShareAmount, &p.Status,
		&p.Deadline, &orderID, &p.CompletedAt, &p.CancelledAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.OrderID = orderID.String

	if p.LineItems, err = r.lineItems(ctx, q, p.ID); err != nil {
		return nil, err
	}
	if p.Participants, err = r.participants(ctx, q, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *purchaseRepository) lineItems(ctx context.Context, q querier, purchaseID string) ([]domain.LineItem, error) {
	query := `
		SELECT product_id, name, unit_price, quantity, image
		FROM purchase_line_items
		WHERE purchase_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ProductID, &li.Name, &li.UnitPrice, &li.Quantity, &li.Image); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *purchaseRepository) participants(ctx context.Context, q querier, purchaseID string) ([]*domain.Participant, error) {
	query := `
		SELECT id, purchase_id, email, payment_link, payment_status, paid_at, payment_intent_id, refund_id
		FROM purchase_participants
		WHERE purchase_id = $1
		ORDER BY position
	`
	rows, err := q.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		pt := &domain.Participant{}
		var intentID, refundID sql.NullString
		if err := rows.Scan(&pt.ID, &pt.PurchaseID, &pt.Email, &pt.PaymentLink, &pt.PaymentStatus, &pt.PaidAt, &intentID, &refundID); err != nil {
			return nil, err
		}
		pt.PaymentIntentID = intentID.String
		pt.RefundID = refundID.String
		participants = append(participants, pt)
	}
	return participants, rows.Err()
}

func (r *purchaseRepository) GetByID(ctx context.Context, id string) (*domain.CollaborativePurchase, error) {
	return r.getByID(ctx, r.DB, id)
}

func (r *purchaseRepository) GetByPaymentLink(ctx context.Context, link string) (*domain.CollaborativePurchase, error) {
	query := `
		SELECT purchase_id FROM purchase_participants WHERE payment_link = $1
	`
	var purchaseID string
	err := r.DB.QueryRowContext(ctx, query, link).Scan(&purchaseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return r.getByID(ctx, r.DB, purchaseID)
}

func (r *purchaseRepository) ListByUser(ctx context.Context, userID, email string, params domain.PaginationParams) ([]*domain.CollaborativePurchase, int, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM collaborative_purchases cp
		WHERE cp.created_by = $1
		   OR EXISTS (
			SELECT 1 FROM purchase_participants pp
			WHERE pp.purchase_id = cp.id AND pp.email = $2
		   )
	`
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, userID, email).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT cp.id
		FROM collaborative_purchases cp
		WHERE cp.created_by = $1
		   OR EXISTS (
			SELECT 1 FROM purchase_participants pp
			WHERE pp.purchase_id = cp.id AND pp.email = $2
		   )
		ORDER BY cp.created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.DB.QueryContext(ctx, query, userID, email, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	purchases := make([]*domain.CollaborativePurchase, 0, len(ids))
	for _, id := range ids {
		p, err := r.getByID(ctx, r.DB, id)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, p)
	}
	return purchases, total, nil
}

func (r *purchaseRepository) PaymentLinkExists(ctx context.Context, link string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM purchase_participants WHERE payment_link = $1)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, link).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *purchaseRepository) MarkParticipantPaid(ctx context.Context, participantID, paymentIntentID string, paidAt time.Time) error {
	query := `
		UPDATE purchase_participants
		SET payment_status = 'paid', paid_at = $2, payment_intent_id = $3
		WHERE id = $1 AND payment_status = 'pending'
	`
	res, err := r.DB.ExecContext(ctx, query, participantID, paidAt, paymentIntentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAlreadyPaid
	}
	return nil
}

func (r *purchaseRepository) MarkParticipantDeclined(ctx context.Context, participantID string) error {
	query := `
		UPDATE purchase_participants
		SET payment_status = 'declined'
		WHERE id = $1 AND payment_status = 'pending'
	`
	res, err := r.DB.ExecContext(ctx, query, participantID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrAlreadyPaid
	}
	return nil
}

func (r *purchaseRepository) MarkParticipantRefunded(ctx context.Context, participantID, refundID string) error {
	query := `
		UPDATE purchase_participants
		SET payment_status = 'refunded', refund_id = $2
		WHERE id = $1 AND payment_status = 'paid'
	`
	res, err := r.DB.ExecContext(ctx, query, participantID, refundID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *purchaseRepository) TransitionStatus(ctx context.Context, purchaseID, from, to string, at time.Time) (bool, error) {
	query := `
		UPDATE collaborative_purchases
		SET status = $3,
		    cancelled_at = CASE WHEN $3 IN ('cancelled', 'expired') THEN $4 ELSE cancelled_at END,
		    updated_at = $4
		WHERE id = $1 AND status = $2
	`
	res, err := r.DB.ExecContext(ctx, query, purchaseID, from, to, at)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CompleteIfAllPaid serializes completion on the purchase row. The row lock
// plus the status re-check guarantee that concurrent last-payment requests
// materialize at most one order.
func (r *purchaseRepository) CompleteIfAllPaid(ctx context.Context, purchaseID string, order *domain.Order, at time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM collaborative_purchases WHERE id = $1 FOR UPDATE`,
		purchaseID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	if status != domain.PurchaseStatusProcessing {
		return false, nil
	}

	var unpaid int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase_participants WHERE purchase_id = $1 AND payment_status <> 'paid'`,
		purchaseID,
	).Scan(&unpaid)
	if err != nil {
		return false, err
	}
	if unpaid > 0 {
		return false, nil
	}

	orderQuery := `
		INSERT INTO orders
			(user_id, total_amount, status, payment_status,
			 shipping_street, shipping_city, shipping_state, shipping_zip_code, shipping_country,
			 collaborative_purchase_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	addr := order.ShippingAddress
	err = tx.QueryRowContext(ctx, orderQuery,
		order.UserID, order.TotalAmount, order.Status, order.PaymentStatus,
		addr.Street, addr.City, addr.State, addr.ZipCode, addr.Country,
		order.PurchaseID, order.CreatedAt,
	).Scan(&order.ID)
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
	`
	for i, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery, order.ID, item.ProductID, item.Quantity, item.Price); err != nil {
			return false, fmt.Errorf("insert order item %d: %w", i, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE collaborative_purchases
		SET status = 'completed', order_id = $2, completed_at = $3, updated_at = $3
		WHERE id = $1
	`, purchaseID, order.ID, at)
	if err != nil {
		return false, fmt.Errorf("complete purchase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

func (r *purchaseRepository) ListExpiredProcessing(ctx context.Context, now time.Time, limit int) ([]*domain.CollaborativePurchase, error) {
	query := `
		SELECT id FROM collaborative_purchases
		WHERE status = 'processing' AND deadline < $1
		ORDER BY deadline
		LIMIT $2
	`
	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var purchases []*domain.CollaborativePurchase
	for _, id := range ids {
		p, err := r.getByID(ctx, r.DB, id)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, nil
}
