package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaulted-markets/vaulted-backend/internal/accounts"
	"github.com/vaulted-markets/vaulted-backend/internal/cron"
	"github.com/vaulted-markets/vaulted-backend/internal/marketplace"
	"github.com/vaulted-markets/vaulted-backend/internal/pricing"
	"github.com/vaulted-markets/vaulted-backend/internal/registry"
	"github.com/vaulted-markets/vaulted-backend/internal/rent"
	"github.com/vaulted-markets/vaulted-backend/internal/storagefees"
	"github.com/vaulted-markets/vaulted-backend/internal/treasury"
	"github.com/vaulted-markets/vaulted-backend/pkg/auth/session"
	"github.com/vaulted-markets/vaulted-backend/pkg/config"
	"github.com/vaulted-markets/vaulted-backend/pkg/db"
	"github.com/vaulted-markets/vaulted-backend/pkg/instance"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
	"github.com/vaulted-markets/vaulted-backend/pkg/metrics"
	"github.com/vaulted-markets/vaulted-backend/pkg/migrate"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox"
	"github.com/vaulted-markets/vaulted-backend/pkg/redis"
)

const lockKeyFormat = "vaulted:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	storageService, err := buildStorageService(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire storage-fee service", err)
		os.Exit(1)
	}

	delinquencyJob, err := cron.NewStorageDelinquencyJob(cron.StorageDelinquencyJobParams{
		Logger:  logg,
		Sweeper: storageService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delinquency job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registryJobs := cron.NewRegistry(delinquencyJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registryJobs,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildStorageService wires the slice of the domain graph the sweep
// needs: treasury for fee movement, rent for claw-backs, registry for
// seizure and marketplace for delisting.
func buildStorageService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (storagefees.Service, error) {
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	accountsService, err := accounts.NewService(
		accounts.NewRepository(dbClient.DB()),
		dbClient,
		events,
		sessionManager,
		cfg.JWT,
		cfg.Password,
	)
	if err != nil {
		return nil, fmt.Errorf("accounts service: %w", err)
	}

	system, err := accountsService.EnsureSystemAccounts(context.Background(), cfg.Market.FeeCollectorEmail)
	if err != nil {
		return nil, fmt.Errorf("system accounts: %w", err)
	}

	treasuryService, err := treasury.NewService(treasury.NewRepository(dbClient.DB()), dbClient, system.TreasuryID)
	if err != nil {
		return nil, fmt.Errorf("treasury service: %w", err)
	}

	registryService, err := registry.NewService(registry.NewRepository(dbClient.DB()), events)
	if err != nil {
		return nil, fmt.Errorf("registry service: %w", err)
	}

	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, fmt.Errorf("pricing service: %w", err)
	}

	rentService, err := rent.NewService(
		rent.NewRepository(dbClient.DB()),
		dbClient,
		treasuryService,
		events,
		system.RentEscrowID,
	)
	if err != nil {
		return nil, fmt.Errorf("rent service: %w", err)
	}

	marketService, err := marketplace.NewService(
		marketplace.NewRepository(dbClient.DB()),
		dbClient,
		treasuryService,
		events,
		pricingService,
		registryService,
		rentService,
		cfg.Market.DefaultFeeBps,
		system.FeeCollectorID,
	)
	if err != nil {
		return nil, fmt.Errorf("marketplace service: %w", err)
	}

	return storagefees.NewService(
		storagefees.NewRepository(dbClient.DB()),
		dbClient,
		treasuryService,
		events,
		rentService,
		registryService,
		marketService,
		cfg.Storage.GracePeriod,
	)
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
