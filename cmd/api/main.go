package main

import (
	"context"
	"net/http"
	"os"

	"github.com/bahaypares/ordering-backend/api/routes"
	"github.com/bahaypares/ordering-backend/internal/auth"
	"github.com/bahaypares/ordering-backend/internal/cart"
	"github.com/bahaypares/ordering-backend/internal/checkout"
	"github.com/bahaypares/ordering-backend/internal/menu"
	"github.com/bahaypares/ordering-backend/internal/notifications"
	"github.com/bahaypares/ordering-backend/internal/orders"
	"github.com/bahaypares/ordering-backend/internal/payments"
	"github.com/bahaypares/ordering-backend/internal/pricing"
	"github.com/bahaypares/ordering-backend/internal/reports"
	"github.com/bahaypares/ordering-backend/internal/restaurant"
	"github.com/bahaypares/ordering-backend/internal/users"
	"github.com/bahaypares/ordering-backend/pkg/auth/session"
	"github.com/bahaypares/ordering-backend/pkg/bux"
	"github.com/bahaypares/ordering-backend/pkg/config"
	"github.com/bahaypares/ordering-backend/pkg/db"
	"github.com/bahaypares/ordering-backend/pkg/logger"
	"github.com/bahaypares/ordering-backend/pkg/mail"
	"github.com/bahaypares/ordering-backend/pkg/migrate"
	"github.com/bahaypares/ordering-backend/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	// Email delivery is best effort; without SMTP configured notifications
	// are still recorded, just never mailed.
	mailer, err := mail.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		logg.Warn(context.Background(), "smtp not configured, email delivery disabled")
		mailer = nil
	}

	buxClient, err := bux.NewClient(cfg.Bux, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	menuRepo := menu.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	feeRepo := pricing.NewFeeRepository(dbClient.DB())
	restaurantRepo := restaurant.NewRepository(dbClient.DB())

	publisher, err := notifications.NewPublisher(notificationsRepo, mailer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications publisher", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:        usersRepo,
		SessionManager:  sessionManager,
		Limiter:         redisClient,
		JWTConfig:       cfg.JWT,
		PasswordConfig:  cfg.Password,
		RateLimitConfig: cfg.AuthRateLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	menuService, err := menu.NewService(menuRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create menu service", err)
		os.Exit(1)
	}

	restaurantService, err := restaurant.NewService(restaurantRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create restaurant service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, menuRepo, dbClient, restaurantService, cfg.Orders)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	calculator, err := pricing.NewCalculator(feeRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing calculator", err)
		os.Exit(1)
	}

	feeService, err := pricing.NewFeeService(feeRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create fee service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(dbClient, cartRepo, ordersRepo, calculator, usersRepo, buxClient, publisher, cfg.Orders)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, dbClient, publisher, cfg.Orders)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(ordersRepo, dbClient, buxClient, redisClient, publisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:          authService,
			Menu:          menuService,
			Cart:          cartService,
			Checkout:      checkoutService,
			Orders:        ordersService,
			Payments:      paymentsService,
			Notifications: notificationsService,
			Reports:       reportsService,
			Fees:          feeService,
			Restaurant:    restaurantService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
