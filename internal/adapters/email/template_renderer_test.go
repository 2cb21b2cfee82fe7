package email

import (
	"testing"
	"time"

	"bestwishes/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRenderer_PurchaseInvitation(t *testing.T) {
	r := NewTemplateRenderer()

	data := &domain.PurchaseInvitationEmailData{
		Email:       "alice@example.com",
		CreatorName: "Casey",
		LineItems: []domain.LineItem{
			{Name: "Gift Mug", UnitPrice: 20, Quantity: 2},
		},
		TotalAmount: 65,
		ShareAmount: 21.67,
		Deadline:    time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC),
		PaymentURL:  "http://localhost:3000/collaborative-payment/abc123",
	}
	subject, html, text, err := r.Render("purchase_invitation", data)
	require.NoError(t, err)
	assert.Contains(t, subject, "Casey")
	assert.Contains(t, html, "Gift Mug")
	assert.Contains(t, html, "$21.67")
	assert.Contains(t, html, data.PaymentURL)
	assert.Contains(t, text, "$21.67")
	assert.Contains(t, text, data.PaymentURL)
}

func TestTemplateRenderer_AllPurchaseTemplates(t *testing.T) {
	r := NewTemplateRenderer()
	deadline := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		template string
		data     any
	}{
		{
			template: "purchase_created",
			data: &domain.CreatorConfirmationEmailData{
				Email:             "creator@example.com",
				ParticipantEmails: []string{"alice@example.com", "bob@example.com"},
				LineItems:         []domain.LineItem{{Name: "Candle", UnitPrice: 100, Quantity: 1}},
				TotalAmount:       110,
				ShareAmount:       36.67,
				Deadline:          deadline,
				DashboardURL:      "http://localhost:3000/dashboard/collaborative-purchases",
			},
		},
		{
			template: "purchase_completed",
			data: &domain.CompletionEmailData{
				OrderID:     "order-1",
				LineItems:   []domain.LineItem{{Name: "Candle", UnitPrice: 100, Quantity: 1}},
				TotalAmount: 110,
			},
		},
		{
			template: "purchase_cancelled",
			data: &domain.CancellationEmailData{
				LineItems: []domain.LineItem{{Name: "Candle", UnitPrice: 100, Quantity: 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			subject, html, text, err := r.Render(tt.template, tt.data)
			require.NoError(t, err)
			assert.NotEmpty(t, subject)
			assert.Contains(t, html, "Candle")
			assert.Contains(t, text, "Candle")
		})
	}
}

func TestTemplateRenderer_UnknownTemplate(t *testing.T) {
	r := NewTemplateRenderer()
	_, _, _, err := r.Render("no_such_template", nil)
	require.Error(t, err)
}
