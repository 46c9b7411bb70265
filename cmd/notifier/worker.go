package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/prepally/prepally-backend/internal/config"
	"github.com/prepally/prepally-backend/internal/notification"
	"github.com/prepally/prepally-backend/pkg/database"
	"github.com/prepally/prepally-backend/pkg/jsonutil"
	"github.com/prepally/prepally-backend/pkg/messaging"
	"github.com/prepally/prepally-backend/pkg/observability"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume dispatch tasks from the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker() error {
	logger := observability.NewLogger("notifier-worker")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "notifier-worker",
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return err
	}
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	rabbit, err := messaging.NewClient(messaging.DefaultConfig(cfg.RabbitURL), logger.Logger)
	if err != nil {
		return err
	}
	defer rabbit.Close()

	if _, err := rabbit.DeclareQueue(notification.QueueDispatch); err != nil {
		return err
	}

	dispatcher, err := buildDispatcher(cfg, db, redisClient, logger)
	if err != nil {
		return err
	}
	worker := notification.NewWorker(dispatcher, logger)

	store := notification.NewRepository(db)
	go serveAdmin(ctx, cfg.AdminAddr, store, rabbit, logger)

	logger.Info("worker started", "queue", notification.QueueDispatch)
	return rabbit.Consume(ctx, notification.QueueDispatch, func(body []byte) error {
		err := worker.HandleTask(ctx, body)
		if errors.Is(err, notification.ErrMalformedTask) {
			return messaging.ErrDrop
		}
		return err
	})
}

func serveAdmin(ctx context.Context, addr string, store notification.Store, rabbit *messaging.Client, logger *observability.Logger) {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if !rabbit.IsHealthy() {
			jsonutil.WriteErrorJSON(w, http.StatusServiceUnavailable, "queue connection down")
			return
		}
		jsonutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/deliveries/{ownerID}", func(w http.ResponseWriter, req *http.Request) {
		ownerID := mux.Vars(req)["ownerID"]
		records, err := store.ListByOwner(req.Context(), ownerID)
		if err != nil {
			jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "failed to list deliveries")
			return
		}
		jsonutil.WriteJSON(w, http.StatusOK, records)
	}).Methods(http.MethodGet)

	server := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("admin server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("admin server failed", "error", err)
	}
}
