package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"farah_app_echo/internal/checkout"
	"farah_app_echo/internal/config"
	"farah_app_echo/internal/handlers"
	appMiddleware "farah_app_echo/internal/middleware"
	"farah_app_echo/internal/services"
	"farah_app_echo/internal/telemetry"
	"farah_app_echo/web"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	if err := telemetry.Init("server", cfg.IsProduction()); err != nil {
		panic(err)
	}
	defer telemetry.Sync()
	logger := telemetry.Logger

	ctx := context.Background()

	// Initialize Firebase
	var tokenVerifier appMiddleware.TokenVerifier
	authClient, err := services.InitFirebase(ctx, cfg.FirebaseCredPath)
	if err != nil {
		logger.Warn("Firebase initialization failed, authenticated routes will answer 503", zap.Error(err))
	} else {
		tokenVerifier = authClient
	}

	// Initialize Database
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := services.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	var locker services.Locker = services.NopLocker{}
	if cfg.RedisURL != "" {
		cache, err := services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, refund locking disabled", zap.Error(err))
		} else {
			defer cache.Close()
			locker = cache
		}
	}

	var events services.EventPublisher = services.NopEventPublisher{}
	if cfg.KafkaBrokers != "" {
		publisher := services.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		events = publisher
	}

	var gateway services.Gateway
	switch cfg.PaymentGateway {
	case config.GatewayMidtrans:
		gateway = services.NewMidtransGateway(cfg.IsProduction())
	default:
		gateway = services.NewMoyasarGateway(cfg.MoyasarBaseURL)
	}
	logger.Info("Payment gateway selected", zap.String("gateway", cfg.PaymentGateway))

	store := services.NewGormBookingStore(db)
	audit := services.NewGormAuditLog(db)
	scheduler := services.NewGormTaskScheduler(db)

	verifier := services.NewPaymentVerifier(gateway, store, audit, events, scheduler)
	refunder := services.NewRefundInitiator(services.RefundInitiatorDeps{
		Gateway:   gateway,
		Store:     store,
		Ledger:    services.NewGormRefundLedger(db),
		Locker:    locker,
		Audit:     audit,
		Events:    events,
		Scheduler: scheduler,
	})
	checkoutService := services.NewCheckoutService(gateway, store, audit, cfg.AppURL)
	bookingService := services.NewBookingService(store)

	renderer, err := web.NewTemplateRenderer()
	if err != nil {
		logger.Fatal("Failed to parse templates", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	requireAuth := appMiddleware.RequireAuth(tokenVerifier)

	// Initialize handlers
	functionsHandler := handlers.NewFunctionsHandler(verifier, refunder)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, cfg.AppURL)
	statusHandler := handlers.NewStatusHandler(checkout.NewStatusPage(verifier))
	bookingHandler := handlers.NewBookingHandler(bookingService, cfg.AppURL)

	// Payment functions; preflight is answered by FunctionCORS before auth
	fnMethods := []string{http.MethodPost, http.MethodOptions}
	fn := e.Group("/functions/v1", appMiddleware.FunctionCORS())
	fn.Match(fnMethods, "/verify-payment", functionsHandler.VerifyPayment)
	fn.Match(fnMethods, "/process-refund", functionsHandler.ProcessRefund, requireAuth)

	// Public pages
	e.GET("/checkout/return", checkoutHandler.MidtransReturn)
	e.GET("/checkout/:type/:id", checkoutHandler.ShowCheckout)
	e.GET("/payment-status", statusHandler.ShowStatus)

	// Requester API
	api := e.Group("/api", requireAuth)
	api.POST("/bookings", bookingHandler.CreateBooking)
	api.GET("/bookings", bookingHandler.ListBookings)
	api.GET("/bookings/:type/:id", bookingHandler.GetBooking)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusTemporaryRedirect, "/payment-status")
	})

	logger.Info("Server starting", zap.String("port", cfg.Port))
	if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
