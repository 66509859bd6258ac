// Package main is the entrypoint for the Maildeck API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/maildeck/maildeck/internal/cache"
	"github.com/maildeck/maildeck/internal/config"
	"github.com/maildeck/maildeck/internal/handler"
	"github.com/maildeck/maildeck/internal/identity"
	"github.com/maildeck/maildeck/internal/mail"
	"github.com/maildeck/maildeck/internal/metrics"
	"github.com/maildeck/maildeck/internal/middleware"
	"github.com/maildeck/maildeck/internal/payment"
	"github.com/maildeck/maildeck/internal/repository"
	"github.com/maildeck/maildeck/internal/server"
	"github.com/maildeck/maildeck/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.MongoURI)),
			slog.String("mongo_uri", redactURL(cfg.MongoURI)),
		)
		os.Exit(1)
	}
	defer repo.Close(ctx)
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Provider adapters
	identityClient := identity.NewClient(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UpstreamTimeout)
	mailAdapter := mail.NewAdapter(identityClient.TokenSource, cfg.UpstreamTimeout)
	paymentClient := payment.NewClient(cfg.StripeSecretKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)

	// Services
	metricsRecorder := metrics.NewNoop()
	accountService := service.NewAccountService(repo, identityClient, cfg.AllowedEmailDomain, cfg.AdminEmail, metricsRecorder)
	workspaceService := service.NewWorkspaceService(repo, mailAdapter, metricsRecorder)
	billingService := service.NewBillingService(repo, paymentClient, cfg.PriceForPlan, metricsRecorder)

	// Handlers
	h := handler.New()
	healthHandler := handler.NewHealthHandler(repo, cacheClient)
	authHandler := handler.NewAuthHandler(accountService, cacheClient, identityClient, handler.AuthConfig{
		CookieName:   cfg.SessionCookieName,
		CookieSecure: cfg.SessionCookieSecure,
		SessionTTL:   cfg.SessionTTL,
		ClientURL:    cfg.ClientURL,
	}, logger)
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService, logger)
	mailHandler := handler.NewMailHandler(workspaceService, logger)
	billingHandler := handler.NewBillingHandler(billingService, cfg.StripeWebhookSecret, logger)
	adminHandler := handler.NewAdminHandler(repo, logger)

	r := setupRouter(h, healthHandler, authHandler, workspaceHandler, mailHandler, billingHandler, adminHandler, cacheClient, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"client_url", cfg.ClientURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	workspaceHandler *handler.WorkspaceHandler,
	mailHandler *handler.MailHandler,
	billingHandler *handler.BillingHandler,
	adminHandler *handler.AdminHandler,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:            logger,
		Cache:             cacheClient,
		Enabled:           cfg.RateLimitEnabled,
		RequestsPerMinute: cfg.RateLimitRPM,
	}

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// Sign-in flow and provider webhook (no session; IP rate limited)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))
		r.Get("/auth/login", authHandler.Login)
		r.Get("/auth/callback", authHandler.Callback)
		r.Post("/payment-webhook", billingHandler.Webhook)
	})

	// Session-authenticated API
	sessionCfg := middleware.SessionConfig{
		Logger:     logger,
		Sessions:   cacheClient,
		CookieName: cfg.SessionCookieName,
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(sessionCfg))

		r.Get("/me", authHandler.Me)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/mail", mailHandler.Inbox)

		r.Route("/workspaces", func(r chi.Router) {
			r.Get("/", workspaceHandler.List)
			r.Post("/", workspaceHandler.Create)
			r.Get("/{name}", workspaceHandler.Get)
			r.Delete("/{name}", workspaceHandler.Delete)
			r.Get("/{name}/emails", workspaceHandler.Emails)
			r.Post("/{name}/lists/{listName}", workspaceHandler.CreateList)
			r.Delete("/{name}/lists/{listName}", workspaceHandler.DeleteList)
		})

		r.Post("/checkout-session", billingHandler.CreateCheckout)

		r.With(middleware.RequireAdmin()).Get("/admin/users", adminHandler.ListUsers)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return msg
}
