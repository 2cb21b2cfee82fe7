package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"bestwishes/internal/delivery/http/helpers"
	"bestwishes/internal/domain"
)

// PaymentPageData is the data object for GET /pay/{paymentLink}. It carries
// everything the payment page needs to render one participant's share.
type PaymentPageData struct {
	Purchase             *domain.CollaborativePurchase `json:"purchase"`
	Participant          *domain.Participant           `json:"participant"`
	ShareAmount          float64                       `json:"share_amount"`
	TimeRemainingSeconds int64                         `json:"time_remaining_seconds"`
}

// PaymentPageSuccessResponse is the success envelope for GET /pay/{paymentLink} (200).
type PaymentPageSuccessResponse struct {
	Data  PaymentPageData   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// SubmitPaymentRequest is the request body for POST /pay/{paymentLink}.
type SubmitPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

// Validate implements Validator.
func (s SubmitPaymentRequest) Validate() []string {
	if strings.TrimSpace(s.PaymentIntentID) == "" {
		return []string{"payment_intent_id is required"}
	}
	return nil
}

// SubmitPaymentData is the data object for POST /pay/{paymentLink}.
type SubmitPaymentData struct {
	Purchase *domain.CollaborativePurchase `json:"purchase"`
	// AllPaid is true when this payment was the last one and the order was placed.
	AllPaid bool `json:"all_paid"`
}

// SubmitPaymentSuccessResponse is the success envelope for POST /pay/{paymentLink} (200).
type SubmitPaymentSuccessResponse struct {
	Data  SubmitPaymentData `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// PaymentController handles the public payment-link endpoints. Participants
// are not registered users, so these routes authenticate by possession of the
// unguessable payment link alone.
type PaymentController struct {
	Logger  *slog.Logger
	Service domain.PurchaseService
}

// NewPaymentController creates a PaymentController with the given logger and service.
func NewPaymentController(logger *slog.Logger, svc domain.PurchaseService) *PaymentController {
	return &PaymentController{
		Logger:  logger,
		Service: svc,
	}
}

// GetByLink godoc
// @Summary Get payment page data
// @Description Fetch the purchase, the participant owning the link, their share, and the time remaining before the deadline (clamped at zero).
// @Tags payments
// @Produce json
// @Param paymentLink path string true "Payment link"
// @Success 200 {object} controllers.PaymentPageSuccessResponse "data contains purchase, participant, share_amount, time_remaining_seconds"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /pay/{paymentLink} [get]
func (c *PaymentController) GetByLink(w http.ResponseWriter, r *http.Request) {
	link := r.PathValue("paymentLink")
	if link == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "payment link is required")
		return
	}
	purchase, participant, remaining, err := c.Service.GetByPaymentLink(r.Context(), link)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "payment link not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, PaymentPageData{
		Purchase:             purchase,
		Participant:          participant,
		ShareAmount:          purchase.ShareAmount,
		TimeRemainingSeconds: int64(remaining.Seconds()),
	})
}

// SubmitPayment godoc
// @Summary Pay a share
// @Description Record a participant's payment for their share. When the last pending share is paid the purchase completes and the order is placed.
// @Tags payments
// @Accept json
// @Produce json
// @Param paymentLink path string true "Payment link"
// @Param body body SubmitPaymentRequest true "Payment data"
// @Success 200 {object} controllers.SubmitPaymentSuccessResponse "data contains the purchase and all_paid"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already paid, duplicate submission, deadline passed, or purchase not active)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /pay/{paymentLink} [post]
func (c *PaymentController) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	link := r.PathValue("paymentLink")
	if link == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "payment link is required")
		return
	}
	var req SubmitPaymentRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	purchase, allPaid, err := c.Service.ProcessPayment(r.Context(), link, strings.TrimSpace(req.PaymentIntentID))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "payment link not found")
		case errors.Is(err, domain.ErrAlreadyPaid):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "share already paid")
		case errors.Is(err, domain.ErrDuplicatePayment):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "payment already being processed")
		case errors.Is(err, domain.ErrDeadlinePassed):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "payment deadline has passed")
		case errors.Is(err, domain.ErrPurchaseNotActive):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "purchase is no longer active")
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SubmitPaymentData{Purchase: purchase, AllPaid: allPaid})
}

// Decline godoc
// @Summary Decline participation
// @Description Decline to pay a share. Declining cancels the whole purchase and refunds everyone who already paid.
// @Tags payments
// @Produce json
// @Param paymentLink path string true "Payment link"
// @Success 200 {object} controllers.PurchaseSuccessResponse "data contains the cancelled purchase"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (purchase not active or share not pending)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /pay/{paymentLink}/decline [post]
func (c *PaymentController) Decline(w http.ResponseWriter, r *http.Request) {
	link := r.PathValue("paymentLink")
	if link == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "payment link is required")
		return
	}
	purchase, err := c.Service.Decline(r.Context(), link)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "payment link not found")
		case errors.Is(err, domain.ErrPurchaseNotActive), errors.Is(err, domain.ErrInvalidState):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "purchase is no longer active")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, purchase)
}
