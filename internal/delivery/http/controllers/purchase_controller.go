package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"bestwishes/internal/delivery/http/helpers"
	"bestwishes/internal/delivery/http/middleware"
	"bestwishes/internal/domain"
)

// CreatePurchaseProduct is one product entry in a multi-product create request.
type CreatePurchaseProduct struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreatePurchaseRequest is the request body for POST /purchases.
// Either product_id+quantity (single product) or products must be set,
// not both.
type CreatePurchaseRequest struct {
	ProductID         string                  `json:"product_id,omitempty"`
	Quantity          int                     `json:"quantity,omitempty"`
	Products          []CreatePurchaseProduct `json:"products,omitempty"`
	ParticipantEmails []string                `json:"participant_emails"`
}

// Validate implements Validator.
func (c CreatePurchaseRequest) Validate() []string {
	var errs []string
	single := strings.TrimSpace(c.ProductID) != ""
	multi := len(c.Products) > 0
	switch {
	case single && multi:
		errs = append(errs, "provide either product_id or products, not both")
	case !single && !multi:
		errs = append(errs, "product_id or products is required")
	case single && c.Quantity < 1:
		errs = append(errs, "quantity must be at least 1")
	case multi:
		for _, p := range c.Products {
			if strings.TrimSpace(p.ProductID) == "" {
				errs = append(errs, "products entries need a product_id")
				break
			}
			if p.Quantity < 1 {
				errs = append(errs, "products entries need quantity of at least 1")
				break
			}
		}
	}
	if len(c.ParticipantEmails) == 0 {
		errs = append(errs, "at least one participant email is required")
	} else if len(c.ParticipantEmails) > domain.MaxParticipants {
		errs = append(errs, "at most 3 participants may be invited")
	}
	for _, e := range c.ParticipantEmails {
		if !domain.ValidParticipantEmail(e) {
			errs = append(errs, "participant emails must be valid email addresses")
			break
		}
	}
	return errs
}

// toInput normalizes the request into the service's create input.
func (c CreatePurchaseRequest) toInput() *domain.CreatePurchaseInput {
	in := &domain.CreatePurchaseInput{
		ParticipantEmails: c.ParticipantEmails,
		IsMultiProduct:    len(c.Products) > 0,
	}
	if in.IsMultiProduct {
		for _, p := range c.Products {
			in.Items = append(in.Items, domain.CreatePurchaseItem{ProductID: p.ProductID, Quantity: p.Quantity})
		}
		return in
	}
	in.Items = []domain.CreatePurchaseItem{{ProductID: c.ProductID, Quantity: c.Quantity}}
	return in
}

// PurchaseSuccessResponse is the success envelope for endpoints returning one purchase.
type PurchaseSuccessResponse struct {
	Data  *domain.CollaborativePurchase `json:"data"`
	Error *helpers.APIError             `json:"error"`
}

// PurchaseListData is the data object for GET /purchases.
type PurchaseListData struct {
	Purchases  []*domain.CollaborativePurchase `json:"purchases"`
	Pagination helpers.PaginationMeta          `json:"pagination"`
}

// PurchaseListSuccessResponse is the success envelope for GET /purchases (200).
type PurchaseListSuccessResponse struct {
	Data  PurchaseListData  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// PurchaseController handles the authenticated collaborative purchase endpoints.
type PurchaseController struct {
	Logger  *slog.Logger
	Service domain.PurchaseService
}

// NewPurchaseController creates a PurchaseController with the given logger and service.
func NewPurchaseController(logger *slog.Logger, svc domain.PurchaseService) *PurchaseController {
	return &PurchaseController{
		Logger:  logger,
		Service: svc,
	}
}

// Create godoc
// @Summary Create a collaborative purchase
// @Description Create a purchase split between the creator and 1-3 invited participants. Accepts a single product (product_id + quantity) or a products list. Sends payment invitations to every participant and a confirmation to the creator.
// @Tags purchases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreatePurchaseRequest true "Purchase data"
// @Success 201 {object} controllers.PurchaseSuccessResponse "data contains the created purchase"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown product)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /purchases [post]
func (c *PurchaseController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var req CreatePurchaseRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	purchase, err := c.Service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "product not found")
		case errors.Is(err, domain.ErrInvalidInput):
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, purchase)
}

// Get godoc
// @Summary Get a collaborative purchase
// @Description Fetch one purchase by id, with line items and participant states.
// @Tags purchases
// @Produce json
// @Security BearerAuth
// @Param purchaseID path string true "Purchase ID"
// @Success 200 {object} controllers.PurchaseSuccessResponse "data contains the purchase"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /purchases/{purchaseID} [get]
func (c *PurchaseController) Get(w http.ResponseWriter, r *http.Request) {
	purchaseID := r.PathValue("purchaseID")
	if purchaseID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "purchase id is required")
		return
	}
	purchase, err := c.Service.GetByID(r.Context(), purchaseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "purchase not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, purchase)
}

// List godoc
// @Summary List my collaborative purchases
// @Description List purchases the authenticated user created or participates in (matched by email), newest first.
// @Tags purchases
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.PurchaseListSuccessResponse "data contains purchases and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /purchases [get]
func (c *PurchaseController) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	email, _ := middleware.UserEmailFromContext(r.Context())
	params := helpers.ParsePagination(r)
	purchases, total, err := c.Service.ListForUser(r.Context(), userID, email, params)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, PurchaseListData{
		Purchases:  purchases,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// Cancel godoc
// @Summary Cancel a collaborative purchase
// @Description Creator-only cancellation. Refunds every participant who already paid; the purchase ends refunded when refunds were issued, otherwise cancelled.
// @Tags purchases
// @Produce json
// @Security BearerAuth
// @Param purchaseID path string true "Purchase ID"
// @Success 200 {object} controllers.PurchaseSuccessResponse "data contains the cancelled purchase"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the creator)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not processing)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /purchases/{purchaseID} [delete]
func (c *PurchaseController) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	purchaseID := r.PathValue("purchaseID")
	if purchaseID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "purchase id is required")
		return
	}
	purchase, err := c.Service.Cancel(r.Context(), purchaseID, userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "purchase not found")
		case errors.Is(err, domain.ErrForbidden):
			helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "only the creator can cancel this purchase")
		case errors.Is(err, domain.ErrInvalidState):
			helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, "purchase is no longer active")
		default:
			c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
			helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		}
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, purchase)
}
