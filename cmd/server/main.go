package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apikeyhandler "otp-gateway/internal/apps/apikey/handler"
	apikeymodels "otp-gateway/internal/apps/apikey/models"
	apikeyrepository "otp-gateway/internal/apps/apikey/repository"
	apikeyservice "otp-gateway/internal/apps/apikey/service"
	billinghandler "otp-gateway/internal/apps/billing/handler"
	billingmodels "otp-gateway/internal/apps/billing/models"
	billingrepository "otp-gateway/internal/apps/billing/repository"
	billingservice "otp-gateway/internal/apps/billing/service"
	otphandler "otp-gateway/internal/apps/otp/handler"
	otpmodels "otp-gateway/internal/apps/otp/models"
	otprepository "otp-gateway/internal/apps/otp/repository"
	otpservice "otp-gateway/internal/apps/otp/service"
	planhandler "otp-gateway/internal/apps/plan/handler"
	planmodels "otp-gateway/internal/apps/plan/models"
	planrepository "otp-gateway/internal/apps/plan/repository"
	planservice "otp-gateway/internal/apps/plan/service"
	subhandler "otp-gateway/internal/apps/subscription/handler"
	submodels "otp-gateway/internal/apps/subscription/models"
	subrepository "otp-gateway/internal/apps/subscription/repository"
	subservice "otp-gateway/internal/apps/subscription/service"
	systemhandler "otp-gateway/internal/apps/system/handler"
	systemservice "otp-gateway/internal/apps/system/service"
	"otp-gateway/internal/common/alert"
	"otp-gateway/internal/common/config"
	"otp-gateway/internal/common/database"
	"otp-gateway/internal/common/litellm"
	"otp-gateway/internal/common/logger"
	"otp-gateway/internal/common/metrics"
	"otp-gateway/internal/common/middleware"
	"otp-gateway/internal/common/ratelimit"
	"otp-gateway/internal/common/telegram"
	"otp-gateway/internal/common/validation"
	"otp-gateway/pkg/secure"
	"otp-gateway/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		log.Debug("No .env file found, using environment variables")
	}

	// Connect to database
	db, err := database.NewConnection(database.Config{
		DSN:          cfg.Database.DSN(),
		Schema:       cfg.Database.Schema,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, log)
	if err != nil {
		log.WithField("dsn", utils.MaskDSN(cfg.Database.DSN())).Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Bootstrap(db, cfg.Database.Schema,
		&planmodels.SubscriptionPlan{},
		&submodels.UserSubscription{},
		&otpmodels.PhoneOTP{},
		&apikeymodels.PhoneAPIKey{},
		&billingmodels.PaymentTransaction{},
		&billingmodels.BillingEvent{},
	); err != nil {
		log.Fatalf("Failed to prepare database: %v", err)
	}

	if err := validation.Register(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	ctx := context.Background()

	// Shared infrastructure
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	sealer, err := secure.NewSealer(cfg.Security.APIKeyEncryptionKey)
	if err != nil {
		log.Fatalf("Invalid API key encryption key: %v", err)
	}
	if cfg.Security.APIKeyEncryptionKey == "" {
		log.Warn("API_KEY_ENCRYPTION_KEY not set, proxy keys are stored unencrypted")
	}

	proxy := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.AdminKey, cfg.LiteLLM.Timeout, cfg.LiteLLM.HealthTimeout)

	var tg telegram.Client
	if cfg.Telegram.Enabled() {
		tg = telegram.NewClient(telegram.DefaultAPIURL, cfg.Telegram.BotToken, cfg.Telegram.ChatIDs)
	}
	alerter := alert.New(log, tg)

	limiter := ratelimit.NewMemoryLimiter(cfg.OTP.SendLimit, cfg.OTP.SendWindow)
	if cfg.Redis.URL != "" {
		redisClient, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, falling back to in-memory OTP throttle")
		} else {
			defer redisClient.Close()
			limiter = ratelimit.NewRedisLimiter(redisClient, ratelimit.OTPSendPrefix, cfg.OTP.SendLimit, cfg.OTP.SendWindow)
		}
	}

	transactor := database.NewTransactor(db)

	// Plan catalog
	planRepo := planrepository.NewPlanRepository(db)
	planService := planservice.NewPlanService(planRepo)
	if err := planService.SeedDefaults(ctx); err != nil {
		log.Fatalf("Failed to seed plan catalog: %v", err)
	}
	planHandler := planhandler.NewPlanHandler(planService)

	// Subscriptions
	subRepo := subrepository.NewSubscriptionRepository(db)
	subService := subservice.NewSubscriptionService(subRepo, planService)
	subHandler := subhandler.NewSubscriptionHandler(subService)

	// API keys and limit synchronization
	keyRepo := apikeyrepository.NewAPIKeyRepository(db)
	keyService := apikeyservice.NewKeyService(keyRepo, planService, subService, proxy, sealer, m, log)
	limitSync := apikeyservice.NewLimitSynchronizer(keyRepo, proxy, sealer, m, log)
	spendHandler := apikeyhandler.NewSpendHandler(keyService)

	// OTP
	otpProviders := []otpservice.OTPProvider{otpservice.NewConsoleProvider(log)}
	if cfg.AuthKey.Enabled() {
		otpProviders = append(otpProviders, otpservice.NewAuthKeyProvider(otpservice.AuthKeyOptions{
			BaseURL:     cfg.AuthKey.URL,
			AuthKey:     cfg.AuthKey.APIKey,
			TemplateID:  cfg.AuthKey.TemplateID,
			CountryCode: cfg.AuthKey.CountryCode,
			Company:     cfg.AuthKey.Company,
		}))
	} else {
		log.Warn("AUTHKEY_API_KEY/AUTHKEY_TEMPLATE_ID not set, OTPs are not sent by SMS")
	}
	if tg != nil {
		otpProviders = append(otpProviders, otpservice.NewTelegramProvider(tg))
	}
	otpProvider := otpservice.NewMultiProvider(otpProviders...)
	otpRepo := otprepository.NewPhoneOTPRepository(db)
	otpService := otpservice.NewPhoneOTPService(otpRepo, transactor, limiter, otpProvider, keyService, m, log, cfg.OTP.TTL)
	otpHandler := otphandler.NewPhoneOTPHandler(otpService)

	// Billing
	if cfg.Stripe.MockMode() {
		if cfg.DebugRoutes {
			log.Warn("STRIPE_SECRET_KEY not set, checkout runs in mock mode")
		} else {
			log.Warn("STRIPE_SECRET_KEY not set and debug routes disabled, checkout is unavailable")
		}
	}
	billingService := billingservice.NewBillingService(billingservice.Config{
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
		BackendOrigin: cfg.Server.BackendOrigin,
		MockMode:      cfg.Stripe.MockMode(),
		DebugRoutes:   cfg.DebugRoutes,
	}, billingservice.Dependencies{
		Gateway:      billingservice.NewStripeGateway(cfg.Stripe.SecretKey),
		Transactions: billingrepository.NewTransactionRepository(db),
		Events:       billingrepository.NewEventRepository(db),
		Transactor:   transactor,
		Plans:        planService,
		Subs:         subService,
		Limits:       limitSync,
		Alerter:      alerter,
		Metrics:      m,
		Log:          log,
	})
	billingHandler := billinghandler.NewBillingHandler(billingService, cfg.Server.BackendOrigin)

	// System
	systemService := systemservice.NewSystemService(db, proxy, planService, subService, limitSync, systemservice.Settings{
		LiteLLMURL:      cfg.LiteLLM.URL,
		AdminKey:        cfg.LiteLLM.AdminKey,
		StripeSecretKey: cfg.Stripe.SecretKey,
		DatabaseDSN:     cfg.Database.DSN(),
	}, log)
	systemHandler := systemhandler.NewSystemHandler(systemService, m.Handler())

	// Setup Gin router
	gin.SetMode(cfg.Server.GinMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log, m))
	router.Use(middleware.SetupCORS(cfg.Env, cfg.CORS.AllowedOrigins))

	root := router.Group("")
	{
		systemhandler.RegisterSystemRoutes(root, systemHandler)
		otphandler.RegisterOTPRoutes(root, otpHandler)
		planhandler.RegisterPlanRoutes(root, planHandler)
		subhandler.RegisterSubscriptionRoutes(root, subHandler)
		apikeyhandler.RegisterAPIKeyRoutes(root, spendHandler)
		billinghandler.RegisterBillingRoutes(root, billingHandler)

		if cfg.DebugRoutes {
			systemhandler.RegisterSystemDebugRoutes(root, systemHandler)
			billinghandler.RegisterBillingDebugRoutes(root, billingHandler)
			log.Warn("Debug routes enabled")
		}
	}

	// Start server
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port": cfg.Server.Port,
			"env":  cfg.Env,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Server stopped")
}
