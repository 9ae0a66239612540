package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/asmrbible/backend/internal/auth"
	"github.com/asmrbible/backend/internal/config"
	"github.com/asmrbible/backend/internal/db"
	"github.com/asmrbible/backend/internal/email"
	"github.com/asmrbible/backend/internal/entitlement"
	"github.com/asmrbible/backend/internal/httpserver"
	"github.com/asmrbible/backend/internal/payment"
	"github.com/asmrbible/backend/internal/subscription"
	"github.com/asmrbible/backend/internal/tracking"
	"github.com/asmrbible/backend/pkg/audiostore"
	"github.com/asmrbible/backend/pkg/jwt"
)

func main() {
	// Setting up logger
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Level:           log.DebugLevel,
	})

	// Initializing global context instance
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initializing config manager
	configPath := os.Getenv("APP_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cm, err := config.NewConfigManager(configPath)
	if err != nil {
		logger.Error("Error getting config file", "error", err)
		os.Exit(1)
	}

	c := cm.GetConfig()

	// Validating configuration
	if err := c.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info(
		"Configuration loaded",
		"env", c.GeneralParams.Env,
		"http_addr", c.GeneralParams.HTTPaddress,
		"database", c.MainDBParams.Name,
		"cache", c.CacheParams.Host,
	)

	// Creating database connection pool
	pool, err := db.CreatePostgresPool(ctx, c.MainDBParams.GetDSN())
	if err != nil {
		logger.Error(
			"Failed to create postgres pool",
			"error", err,
			"db", c.MainDBParams.Name,
		)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info(
		"Database connection established",
		"db", c.MainDBParams.GetDSN(),
	)

	// Creates database store and applies the schema
	store := db.NewPostgresStore(pool)
	if err := store.InitSchema(ctx); err != nil {
		logger.Error("Failed to initialize schema", "error", err)
		os.Exit(1)
	}

	// Initializing JWT service
	jwtService := jwt.NewService(
		c.GeneralParams.SecretKey,
		15*time.Minute,
		7*24*time.Hour,
	)

	logger.Info("JWT service initialized")

	// Initialize Key-value progress cache
	cache, err := tracking.NewValkeyCache(
		ctx,
		c.CacheParams.Host,
		c.CacheParams.Password,
	)
	if err != nil {
		logger.Error("Failed to create progress cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	logger.Info("Key-Value progress cache initialized")

	tracker := tracking.NewTracker(cache, store, logger)

	// Initialize S3 audio client
	audioStore, err := audiostore.NewMinIOClient(
		c.S3Params.Endpoint,
		c.S3Params.AccessKeyID,
		c.S3Params.SecretAccessKey,
		c.S3Params.BucketName,
		c.S3Params.UseSSL,
	)
	if err != nil {
		logger.Error("Failed to create S3 client", "error", err)
		os.Exit(1)
	}

	logger.Info("S3 audio client initialized", "bucket", c.S3Params.BucketName)

	// Email provider cascade; LogSender terminates it when every
	// configured provider fails.
	var senders []email.Sender
	from := c.EmailParams.FromAddress
	if from == "" {
		from = email.DefaultFrom
	}
	if c.EmailParams.ResendAPIKey != "" {
		senders = append(senders, email.NewResendSender(c.EmailParams.ResendAPIKey, from))
	}
	if c.EmailParams.SendGridAPIKey != "" {
		senders = append(senders, email.NewSendGridSender(c.EmailParams.SendGridAPIKey, from))
	}
	if c.EmailParams.SMTPHost != "" {
		senders = append(senders, email.NewSMTPSender(
			c.EmailParams.SMTPHost,
			c.EmailParams.SMTPPort,
			c.EmailParams.SMTPUsername,
			c.EmailParams.SMTPPassword,
			from,
		))
	}
	mailer := email.NewCascade(logger, senders...)

	logger.Info("Email cascade initialized", "providers", len(senders))

	// Payment and entitlement services
	paymentClient := payment.NewClient(c.PaymentParams.APIKey, c.PaymentParams.StoreID)
	entitlements := entitlement.NewManager(
		store,
		c.PaymentParams.ProPlanProductID,
		c.PaymentParams.RefillProductID,
		logger,
	)

	// Subscription registry and reminder dispatcher
	registry := subscription.NewRegistry(store)
	dispatcher := subscription.NewDispatcher(
		registry,
		store,
		mailer,
		subscription.NewTrackerSource(store, tracker),
		c.GeneralParams.BaseURL,
		logger,
	)

	// OIDC sign-in; an empty section leaves the auth routes disabled
	var oidcService httpserver.OIDCService
	if c.OIDCParams.Enabled() {
		authService, err := auth.NewService(
			ctx,
			c.OIDCParams.ProviderURL,
			c.OIDCParams.ClientID,
			c.OIDCParams.ClientSecret,
			c.OIDCParams.RedirectURL,
			store,
			jwtService,
			logger,
		)
		if err != nil {
			logger.Error("Failed to create auth service", "error", err)
			os.Exit(1)
		}
		oidcService = authService

		logger.Info("OIDC auth service initialized")
	} else {
		logger.Warn("OIDC not configured, sign-in is disabled")
	}

	// Creates HTTP server
	server := httpserver.New(
		httpserver.Config{
			Addr:             c.GeneralParams.HTTPaddress,
			BaseURL:          c.GeneralParams.BaseURL,
			WebhookSecret:    c.PaymentParams.WebhookSecret,
			AdminSecret:      c.GeneralParams.AdminSecret,
			AdminSecretHash:  c.GeneralParams.AdminSecretHash,
			CronSecret:       c.GeneralParams.CronSecret,
			TrustCronHeader:  c.GeneralParams.TrustCronHeader,
			ProPlanVariantID: c.PaymentParams.ProPlanProductID,
		},
		httpserver.Deps{
			Users:        store,
			Registry:     registry,
			Dispatcher:   dispatcher,
			Tracker:      tracker,
			Entitlements: entitlements,
			Payments:     paymentClient,
			Audio:        audioStore,
			OIDC:         oidcService,
			JWT:          jwtService,
			Mailer:       mailer,
		},
		logger,
	)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the HTTP server in a gorutine
	go func() {
		serverErrors <- server.Start()
	}()

	logger.Info("Server started successfully")

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we recieve a signal or error
	select {
	case err := <-serverErrors:
		logger.Error("Server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig)

		// Give outstanding requests 10s to complete
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		logger.Info("Shutting down HTTP server...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}

		logger.Info("Server stopped gracefully")
	}
}
