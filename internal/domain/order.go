package domain

import "time"

// Order states used by materialized collaborative-purchase orders.
const (
	OrderStatusConfirmed = "confirmed"
	OrderPaymentPaid     = "paid"
)

// OrderItem is one product line of an order.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// ShippingAddress is the delivery address of an order.
type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// Order is the real order materialized once every share of a collaborative
// purchase is paid.
// swagger:model Order
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     float64         `json:"total_amount"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	PurchaseID      string          `json:"collaborative_purchase_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PlaceholderShippingAddress is used when no address was collected from the
// creator. Known limitation: collecting a real address is a separate flow.
func PlaceholderShippingAddress() ShippingAddress {
	return ShippingAddress{
		Street:  "Default Address",
		City:    "Default City",
		State:   "Default State",
		ZipCode: "00000",
		Country: "Default Country",
	}
}

// NewOrderFromPurchase builds the order aggregate for a fully paid
// collaborative purchase. The order is confirmed and marked paid; the creator
// is the ordering user.
func NewOrderFromPurchase(p *CollaborativePurchase, at time.Time) *Order {
	items := make([]OrderItem, 0, len(p.LineItems))
	for _, li := range p.LineItems {
		items = append(items, OrderItem{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			Price:     li.UnitPrice,
		})
	}
	return &Order{
		UserID:          p.CreatedBy,
		Items:           items,
		TotalAmount:     p.TotalAmount,
		Status:          OrderStatusConfirmed,
		PaymentStatus:   OrderPaymentPaid,
		ShippingAddress: PlaceholderShippingAddress(),
		PurchaseID:      p.ID,
		CreatedAt:       at,
	}
}
