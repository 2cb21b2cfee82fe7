package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"bestwishes/internal/delivery/http/controllers"
	"bestwishes/internal/delivery/http/middleware"
	"bestwishes/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(
	authController *controllers.AuthController,
	purchaseController *controllers.PurchaseController,
	paymentController *controllers.PaymentController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	requireAuth := middleware.RequireAuth(verifier, logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Collaborative purchases
	mux.HandleFunc("POST /purchases", requireAuth(purchaseController.Create))
	mux.HandleFunc("GET /purchases", requireAuth(purchaseController.List))
	mux.HandleFunc("GET /purchases/{purchaseID}", requireAuth(purchaseController.Get))
	mux.HandleFunc("DELETE /purchases/{purchaseID}", requireAuth(purchaseController.Cancel))

	// Payment links (public; possession of the link is the credential)
	mux.HandleFunc("GET /pay/{paymentLink}", paymentController.GetByLink)
	mux.HandleFunc("POST /pay/{paymentLink}", paymentController.SubmitPayment)
	mux.HandleFunc("POST /pay/{paymentLink}/decline", paymentController.Decline)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
