package main

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/prepally/prepally-backend/internal/config"
	"github.com/prepally/prepally-backend/internal/consent"
	"github.com/prepally/prepally-backend/internal/notification"
	"github.com/prepally/prepally-backend/internal/render"
	"github.com/prepally/prepally-backend/pkg/observability"
)

// buildDispatcher wires the pipeline: renderer behind the provider, consent
// client behind the policy engine, repository behind the dispatcher.
func buildDispatcher(cfg *config.Config, db *sql.DB, redisClient *redis.Client, logger *observability.Logger) (*notification.Dispatcher, error) {
	renderer, err := render.NewEngine()
	if err != nil {
		return nil, err
	}

	provider := notification.NewResendProvider(cfg.ResendAPIKey, renderer)
	consentClient := consent.New(cfg.ConsentServiceURL, redisClient, logger)
	policy := notification.NewPolicyEngine(consentClient, logger)
	store := notification.NewRepository(db)

	return notification.NewDispatcher(store, provider, policy, logger, cfg.MaxRetries), nil
}
