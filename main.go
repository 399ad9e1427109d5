package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DineLine/config/database"
	"DineLine/config/environment"
	"DineLine/config/logger"
	"DineLine/controllers"
	"DineLine/locales"
	"DineLine/middleware"
	v1 "DineLine/routes/v1"
	"DineLine/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := environment.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogDir, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *environment.Config, log *slog.Logger) error {
	//firebase init
	fb, err := database.InitFirebase(ctx, cfg.FirebaseCredentials, cfg.FirebaseProjectID)
	if err != nil {
		return err
	}
	defer fb.Close()
	log.Info("Firebase initialized")

	pool, err := database.NewPostgresPool(ctx, cfg.DBSource)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("order ledger connected")

	var notices services.NoticePublisher = services.LogNoticePublisher{Logger: log}
	if cfg.RabbitMQURL != "" {
		rabbit, err := services.NewRabbitNoticePublisher(ctx, services.RabbitOptions{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.NoticeExchange,
		}, log)
		if err != nil {
			return err
		}
		notices = rabbit
	}
	defer notices.Close()

	var prices services.PriceSource = services.StaticPriceSource{Rate: cfg.StaticRate}
	if cfg.PriceSourceURL != "" {
		prices = services.NewHTTPPriceSource(cfg.PriceSourceURL, cfg.SettlementAsset, log)
	}

	catalog := locales.Default()
	registry := services.NewMenuRegistry(catalog, log)
	restaurants := services.NewRestaurantService(fb.FirestoreClient, registry, log)
	taxes := services.NewTaxTable(cfg.DefaultTaxRate, log)

	payments, err := services.NewPaymentService(taxes, prices, notices, catalog, services.PaymentConfig{
		Secret:       cfg.PaymentSecret,
		BaseURL:      cfg.PaymentBaseURL,
		Expiry:       cfg.PaymentExpiry,
		Jurisdiction: cfg.TaxJurisdiction,
	}, log)
	if err != nil {
		return err
	}

	ai, err := services.NewAIEngine(services.AIConfig{
		Provider: cfg.AIProvider,
		APIKey:   cfg.OpenAIAPIKey,
		Model:    cfg.OpenAIModel,
	}, registry, catalog, log)
	if err != nil {
		return err
	}

	dialog := services.NewDialogEngine(registry, catalog, taxes, services.DialogConfig{
		UpsellEnabled: cfg.UpsellEnabled,
		MaxErrors:     cfg.MaxErrors,
		ETAMinutes:    cfg.ETAMinutes,
		Jurisdiction:  cfg.TaxJurisdiction,
	}, log)

	sessions := services.NewCallSessionService(services.SessionDeps{
		Dialog:      dialog,
		AI:          ai,
		Calls:       services.NewFirestoreCallStore(fb.FirestoreClient),
		Orders:      services.NewPostgresOrderStore(pool),
		Payments:    payments,
		Restaurants: restaurants,
		Logger:      log,
	})
	verifications := services.NewVerificationService(
		services.NewLRUVerificationStore(cfg.VerificationTTL), notices, catalog, cfg.VerificationTTL, log)

	if err := restaurants.WarmMenus(ctx); err != nil {
		log.Warn("menu warm-up incomplete", "error", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.MetricsMiddleware())

	// Pasang middleware error handler
	r.Use(middleware.ErrorHandlerMiddleware(log))

	// CORS Middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "active_calls": sessions.Active()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Register all routes
	v1.RegisterRoutes(r, v1.Controllers{
		Calls:         controllers.NewCallController(sessions),
		Restaurants:   controllers.NewRestaurantController(restaurants, registry),
		Payments:      controllers.NewPaymentController(payments),
		Verifications: controllers.NewVerificationController(verifications),
		Auth:          middleware.AuthMiddleware(fb.AuthClient),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server running", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
