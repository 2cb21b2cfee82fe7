package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeShare(t *testing.T) {
	tests := []struct {
		name      string
		items     []LineItem
		shipping  float64
		count     int
		wantTotal float64
		wantShare float64
		wantErr   error
	}{
		{
			name: "two products three payers",
			items: []LineItem{
				{UnitPrice: 20, Quantity: 2},
				{UnitPrice: 15, Quantity: 1},
			},
			shipping:  10,
			count:     3,
			wantTotal: 65,
			wantShare: 21.67,
		},
		{
			name:      "single product two payers",
			items:     []LineItem{{UnitPrice: 100, Quantity: 1}},
			shipping:  10,
			count:     2,
			wantTotal: 110,
			wantShare: 55,
		},
		{
			name:      "free product still splits shipping",
			items:     []LineItem{{UnitPrice: 0, Quantity: 1}},
			shipping:  10,
			count:     4,
			wantTotal: 10,
			wantShare: 2.5,
		},
		{
			name:     "empty items",
			items:    nil,
			shipping: 10,
			count:    2,
			wantErr:  ErrInvalidInput,
		},
		{
			name:     "negative price",
			items:    []LineItem{{UnitPrice: -1, Quantity: 1}},
			shipping: 10,
			count:    2,
			wantErr:  ErrInvalidInput,
		},
		{
			name:     "zero quantity",
			items:    []LineItem{{UnitPrice: 5, Quantity: 0}},
			shipping: 10,
			count:    2,
			wantErr:  ErrInvalidInput,
		},
		{
			name:     "creator alone is not collaborative",
			items:    []LineItem{{UnitPrice: 5, Quantity: 1}},
			shipping: 10,
			count:    1,
			wantErr:  ErrInvalidInput,
		},
		{
			name:     "negative shipping",
			items:    []LineItem{{UnitPrice: 5, Quantity: 1}},
			shipping: -1,
			count:    2,
			wantErr:  ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, share, err := ComputeShare(tt.items, tt.shipping, tt.count)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantTotal, total, 1e-9)
			assert.InDelta(t, tt.wantShare, share, 1e-9)
			assert.Greater(t, share, 0.0)
		})
	}
}

func TestCreatorShareAbsorbsRoundingResidue(t *testing.T) {
	items := []LineItem{
		{UnitPrice: 20, Quantity: 2},
		{UnitPrice: 15, Quantity: 1},
	}
	total, share, err := ComputeShare(items, 10, 3)
	require.NoError(t, err)

	p := &CollaborativePurchase{
		TotalAmount: total,
		ShareAmount: share,
		Participants: []*Participant{
			{Email: "a@example.com"},
			{Email: "b@example.com"},
		},
	}
	// 65 total, 21.67 per invited participant, creator covers the rest.
	assert.InDelta(t, 21.66, p.CreatorShare(), 1e-9)
	assert.InDelta(t, p.TotalAmount, p.CreatorShare()+share*2, 1e-9)
}

func TestAllPaid(t *testing.T) {
	p := &CollaborativePurchase{
		Participants: []*Participant{
			{PaymentStatus: PaymentStatusPaid},
			{PaymentStatus: PaymentStatusPending},
		},
	}
	assert.False(t, p.AllPaid())
	p.Participants[1].PaymentStatus = PaymentStatusPaid
	assert.True(t, p.AllPaid())
}

func TestParticipantByLink(t *testing.T) {
	p := &CollaborativePurchase{
		Participants: []*Participant{
			{Email: "a@example.com", PaymentLink: "link-a"},
			{Email: "b@example.com", PaymentLink: "link-b"},
		},
	}
	require.NotNil(t, p.ParticipantByLink("link-b"))
	assert.Equal(t, "b@example.com", p.ParticipantByLink("link-b").Email)
	assert.Nil(t, p.ParticipantByLink("missing"))
}

func TestValidParticipantEmail(t *testing.T) {
	assert.True(t, ValidParticipantEmail("  Friend@Example.COM "))
	assert.False(t, ValidParticipantEmail("   "))
	assert.False(t, ValidParticipantEmail("no-at-sign"))
	assert.Equal(t, "friend@example.com", NormalizeEmail("  Friend@Example.COM "))
}

func TestNewOrderFromPurchase(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &CollaborativePurchase{
		ID:        "cp-1",
		CreatedBy: "user-1",
		LineItems: []LineItem{
			{ProductID: "prod-1", Name: "Mug", UnitPrice: 20, Quantity: 2},
			{ProductID: "prod-2", Name: "Card", UnitPrice: 15, Quantity: 1},
		},
		TotalAmount: 65,
	}
	order := NewOrderFromPurchase(p, now)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, OrderStatusConfirmed, order.Status)
	assert.Equal(t, OrderPaymentPaid, order.PaymentStatus)
	assert.Equal(t, "cp-1", order.PurchaseID)
	assert.InDelta(t, 65.0, order.TotalAmount, 1e-9)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "prod-1", order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.InDelta(t, 20.0, order.Items[0].Price, 1e-9)
	assert.Equal(t, PlaceholderShippingAddress(), order.ShippingAddress)
}
