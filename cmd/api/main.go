package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/vaulted-markets/vaulted-backend/api/routes"
	"github.com/vaulted-markets/vaulted-backend/internal/accounts"
	"github.com/vaulted-markets/vaulted-backend/internal/marketplace"
	"github.com/vaulted-markets/vaulted-backend/internal/pricing"
	"github.com/vaulted-markets/vaulted-backend/internal/registry"
	"github.com/vaulted-markets/vaulted-backend/internal/rent"
	"github.com/vaulted-markets/vaulted-backend/internal/storagefees"
	"github.com/vaulted-markets/vaulted-backend/internal/treasury"
	"github.com/vaulted-markets/vaulted-backend/pkg/auth/session"
	"github.com/vaulted-markets/vaulted-backend/pkg/config"
	"github.com/vaulted-markets/vaulted-backend/pkg/db"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
	"github.com/vaulted-markets/vaulted-backend/pkg/migrate"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox"
	"github.com/vaulted-markets/vaulted-backend/pkg/redis"
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
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	system, err := accountsService.EnsureSystemAccounts(context.Background(), cfg.Market.FeeCollectorEmail)
	if err != nil {
		logg.Error(context.Background(), "failed to ensure system accounts", err)
		os.Exit(1)
	}

	treasuryService, err := treasury.NewService(treasury.NewRepository(dbClient.DB()), dbClient, system.TreasuryID)
	if err != nil {
		logg.Error(context.Background(), "failed to create treasury service", err)
		os.Exit(1)
	}

	registryService, err := registry.NewService(registry.NewRepository(dbClient.DB()), events)
	if err != nil {
		logg.Error(context.Background(), "failed to create registry service", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	rentService, err := rent.NewService(
		rent.NewRepository(dbClient.DB()),
		dbClient,
		treasuryService,
		events,
		system.RentEscrowID,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create rent service", err)
		os.Exit(1)
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
		logg.Error(context.Background(), "failed to create marketplace service", err)
		os.Exit(1)
	}

	storageService, err := storagefees.NewService(
		storagefees.NewRepository(dbClient.DB()),
		dbClient,
		treasuryService,
		events,
		rentService,
		registryService,
		marketService,
		cfg.Storage.GracePeriod,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create storage-fee service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			accountsService,
			treasuryService,
			registryService,
			pricingService,
			rentService,
			storageService,
			marketService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
