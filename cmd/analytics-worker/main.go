package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/vaulted-markets/vaulted-backend/internal/analytics"
	"github.com/vaulted-markets/vaulted-backend/pkg/bigquery"
	"github.com/vaulted-markets/vaulted-backend/pkg/config"
	"github.com/vaulted-markets/vaulted-backend/pkg/instance"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
	"github.com/vaulted-markets/vaulted-backend/pkg/outbox/idempotency"
	"github.com/vaulted-markets/vaulted-backend/pkg/pubsub"
	"github.com/vaulted-markets/vaulted-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumer, err := analytics.NewConsumer(bqClient, cfg.BigQuery.MarketEventsTable, logg)
	requireResource(ctx, logg, "analytics consumer", err)

	subscriptions := map[string]*gcppubsub.Subscriber{
		cfg.PubSub.LedgerSubscription:  pubsubClient.LedgerSubscription(),
		cfg.PubSub.MarketSubscription:  pubsubClient.MarketSubscription(),
		cfg.PubSub.CustodySubscription: pubsubClient.CustodySubscription(),
	}

	workers := make([]*analytics.Worker, 0, len(subscriptions))
	for name, subscription := range subscriptions {
		if subscription == nil {
			requireResource(ctx, logg, fmt.Sprintf("subscription %s", name), errors.New("subscription not configured"))
		}
		worker, err := analytics.NewWorker(subscription, consumer, manager, logg)
		requireResource(ctx, logg, fmt.Sprintf("worker for %s", name), err)
		workers = append(workers, worker)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "analytics worker ready")

	group, groupCtx := errgroup.WithContext(runCtx)
	for _, worker := range workers {
		worker := worker
		group.Go(func() error {
			return worker.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("%s unavailable", resource), err)
	os.Exit(1)
}
