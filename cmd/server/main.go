package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rentwise/settlement-service/internal/adapters/logging"
	"github.com/rentwise/settlement-service/internal/adapters/postgres"
	"github.com/rentwise/settlement-service/internal/adapters/transfer"
	"github.com/rentwise/settlement-service/internal/config"
	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
	"github.com/rentwise/settlement-service/internal/handlers"
	"github.com/rentwise/settlement-service/internal/middleware"
	accountService "github.com/rentwise/settlement-service/internal/services/account"
	auditService "github.com/rentwise/settlement-service/internal/services/audit"
	commissionService "github.com/rentwise/settlement-service/internal/services/commission"
	escrowService "github.com/rentwise/settlement-service/internal/services/escrow"
	ledgerService "github.com/rentwise/settlement-service/internal/services/ledger"
	payoutService "github.com/rentwise/settlement-service/internal/services/payout"
	webhookService "github.com/rentwise/settlement-service/internal/services/webhook"
	pkghttp "github.com/rentwise/settlement-service/pkg/http"
	pkgmiddleware "github.com/rentwise/settlement-service/pkg/middleware"
	"github.com/rentwise/settlement-service/pkg/observability"
	"github.com/rentwise/settlement-service/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting settlement service",
		zap.String("version", "0.1.0"),
	)

	ctx := context.Background()

	// Resolve secret-referenced configuration before anything opens
	secretManager := initSecretManager(ctx, cfg, logger)
	if secretManager != nil {
		if err := cfg.ResolveSecrets(ctx, secretManager); err != nil {
			logger.Fatal("Failed to resolve secrets", zap.Error(err))
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize database connection pool
	pool, err := postgres.NewPool(ctx, &postgres.PoolConfig{
		DatabaseURL: fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Password,
			cfg.Database.Host, cfg.Database.Port,
			cfg.Database.Database, cfg.Database.SSLMode),
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	shutdownManager := shutdown.NewManager(logger, 30*time.Second)
	shutdownManager.RegisterNoErr("database-pool", pool.Close)

	// Wire adapters and services
	appLogger := logging.NewZapLogger(logger)
	db := postgres.NewDBExecutor(pool)
	paymentRepo := postgres.NewPaymentRepository(db)
	payoutRepo := postgres.NewPayoutRepository(db)
	commissionRepo := postgres.NewCommissionRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	auditTrail := auditService.NewService(auditRepo, appLogger)
	commissionSvc := commissionService.NewService(db, commissionRepo, auditTrail, appLogger)
	ledgerSvc := ledgerService.NewService(paymentRepo, commissionSvc, appLogger)
	escrowSvc := escrowService.NewService(paymentRepo, auditTrail, appLogger)
	accountSvc := accountService.NewService(paymentRepo, appLogger)

	gateways := map[domain.PayoutMethod]ports.TransferGateway{
		domain.PayoutMethodBankTransfer: transfer.NewBankTransferAdapter(appLogger),
	}
	if cfg.Transfer.StripeAPIKey != "" {
		httpClient := pkghttp.NewHTTPClient(pkghttp.TransferClientConfig(),
			time.Duration(cfg.Transfer.TimeoutSeconds)*time.Second)
		gateways[domain.PayoutMethodStripeConnect] = transfer.NewStripeConnectAdapter(
			cfg.Transfer.StripeBaseURL, cfg.Transfer.StripeAPIKey, httpClient, appLogger)
	} else {
		logger.Warn("STRIPE_API_KEY not set; stripe_connect payouts disabled")
	}

	payoutSvc := payoutService.NewService(db, payoutRepo, paymentRepo, accountSvc, gateways, auditTrail, appLogger)
	webhookSvc := webhookService.NewService(ledgerSvc, appLogger)

	// Build the HTTP surface
	handler := handlers.NewHandler(commissionSvc, ledgerSvc, escrowSvc, accountSvc, payoutSvc, webhookSvc, appLogger)
	signature := middleware.NewWebhookSignature(cfg.Webhook.Secret, logger)
	webhookLimiter := pkgmiddleware.NewRateLimiter(20, 40)
	shutdownManager.RegisterNoErr("webhook-rate-limiter", webhookLimiter.Shutdown)
	healthChecker := observability.NewHealthChecker(pool)
	router := handlers.NewRouter(handler, signature, webhookLimiter, healthChecker.HealthHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker)
	logger.Info("Metrics server started", zap.Int("port", cfg.Server.MetricsPort))
	shutdownManager.RegisterHTTPServer("metrics-server", metricsServer)

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	shutdownManager.RegisterHTTPServer("api-server", server)

	// Blocks until SIGINT/SIGTERM, then unwinds registrations in reverse order
	shutdownManager.WaitForShutdown()
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
