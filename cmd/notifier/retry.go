package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/prepally/prepally-backend/internal/config"
	"github.com/prepally/prepally-backend/internal/notification"
	"github.com/prepally/prepally-backend/pkg/database"
	"github.com/prepally/prepally-backend/pkg/observability"
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Sweep failed deliveries and re-dispatch them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRetry()
	},
}

var retryOnce bool

func init() {
	retryCmd.Flags().BoolVar(&retryOnce, "once", false, "run a single sweep and exit")
	rootCmd.AddCommand(retryCmd)
}

func runRetry() error {
	logger := observability.NewLogger("notifier-retry")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "notifier-retry",
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	dispatcher, err := buildDispatcher(cfg, db, redisClient, logger)
	if err != nil {
		return err
	}

	store := notification.NewRepository(db)
	recomposer := newRecomposeClient(cfg.InternalAPIURL)
	scheduler := notification.NewRetryScheduler(store, dispatcher, recomposer, logger, cfg.RetryInterval, cfg.RetryBatch)

	if retryOnce {
		sent, err := scheduler.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.Info("sweep finished", "sent", sent)
		return nil
	}

	logger.Info("retry scheduler started", "interval", cfg.RetryInterval.String())
	if err := scheduler.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
