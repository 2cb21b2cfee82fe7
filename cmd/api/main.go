package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"bestwishes/config"
	_ "bestwishes/docs"
	adapterauth "bestwishes/internal/adapters/auth"
	adapteremail "bestwishes/internal/adapters/email"
	"bestwishes/internal/adapters/payments"
	delivery "bestwishes/internal/delivery/http"
	"bestwishes/internal/delivery/http/controllers"
	"bestwishes/internal/delivery/http/middleware"
	"bestwishes/internal/domain"
	"bestwishes/internal/migrate"
	"bestwishes/internal/repository/postgres"
	redisrepo "bestwishes/internal/repository/redis"
	"bestwishes/internal/services"
)

const (
	serviceTimeout     = 10 * time.Second
	expirySweepPeriod  = 5 * time.Minute
	shutdownTimeout    = 30 * time.Second
	sweepStopWaitLimit = 10 * time.Second
)

// @title Best Wishes Collaborative Purchase API
// @version 1.0
// @description Split-payment group purchases: a creator invites up to three participants to share the cost of an order.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := migrate.Apply(ctx, db); err != nil {
		cancel()
		logger.Error("apply migrations", "err", err)
		os.Exit(1)
	}
	cancel()

	var attempts domain.PaymentAttemptStore
	if cfg.RedisAddr != "" {
		client, err := redisrepo.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("connect redis", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		attempts = redisrepo.NewPaymentAttemptStore(client)
	} else {
		logger.Warn("REDIS_ADDR not set; payment deduplication relies on the database alone")
	}

	mailer, err := adapteremail.NewMailer(adapteremail.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: adapteremail.SESConfig{
			Region:             cfg.Email.SESRegion,
			AccessKeyID:        cfg.Email.SESAccessKeyID,
			SecretAccessKey:    cfg.Email.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("create mailer", "err", err)
		os.Exit(1)
	}

	userRepo := postgres.NewUserRepository(db)
	productRepo := postgres.NewProductRepository(db)
	purchaseRepo := postgres.NewPurchaseRepository(db)

	hasher := adapterauth.NewBcryptHasher(bcrypt.DefaultCost)
	issuer := adapterauth.NewJWTIssuer(cfg.JWTSecret)
	verifier := adapterauth.NewJWTVerifier(cfg.JWTSecret)
	processor := payments.NewAcceptingProcessor(logger)
	renderer := adapteremail.NewTemplateRenderer()

	emailService := services.NewEmailService(mailer, renderer)
	authService := services.NewAuthService(userRepo, hasher, issuer, cfg.JWTExpiry)
	purchaseService := services.NewPurchaseService(
		purchaseRepo, productRepo, userRepo,
		emailService, processor, attempts,
		logger, cfg.FrontendURL, serviceTimeout,
	)

	authController := controllers.NewAuthController(logger, authService)
	purchaseController := controllers.NewPurchaseController(logger, purchaseService)
	paymentController := controllers.NewPaymentController(logger, purchaseService)

	mux := delivery.NewRouter(authController, purchaseController, paymentController, verifier, logger)
	handler := middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, mux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	sweepStop := make(chan struct{})
	sweepDone := make(chan struct{})
	go runExpirySweep(purchaseService, logger, sweepStop, sweepDone)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", server.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("server error", "err", err)
		os.Exit(1)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	close(sweepStop)
	select {
	case <-sweepDone:
	case <-time.After(sweepStopWaitLimit):
		logger.Warn("expiry sweep did not stop in time")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		return
	}
	logger.Info("server stopped")
}

// runExpirySweep periodically expires processing purchases whose deadline has
// passed. Expiry is also checked lazily on payment submission; the sweep keeps
// idle purchases from lingering.
func runExpirySweep(svc domain.PurchaseService, logger *slog.Logger, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	sweep := func() {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()
		expired, err := svc.CheckAndExpire(ctx, time.Now())
		if err != nil {
			logger.Error("expiry sweep failed", "err", err)
			return
		}
		if expired > 0 {
			logger.Info("expired purchases", "count", expired)
		}
	}

	sweep()
	ticker := time.NewTicker(expirySweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sweep()
		case <-stop:
			return
		}
	}
}
