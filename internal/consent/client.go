// Package consent is the HTTP client for the consent service, with a short
// redis read-through cache in front of it. It implements
// notification.ConsentService; what a lookup failure means is the policy
// engine's decision, not this package's.
package consent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepally/prepally-backend/internal/notification"
	"github.com/prepally/prepally-backend/pkg/observability"
)

const defaultCacheTTL = 5 * time.Minute

type Client struct {
	httpClient *http.Client
	baseURL    string
	redis      *redis.Client
	cacheTTL   time.Duration
	logger     *observability.Logger
}

// New builds a consent client. redisClient may be nil; the cache then
// disables itself and every lookup goes to the service.
func New(baseURL string, redisClient *redis.Client, logger *observability.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		redis:      redisClient,
		cacheTTL:   defaultCacheTTL,
		logger:     logger,
	}
}

// GetConsentState returns the owner's stored communication preference.
func (c *Client) GetConsentState(ctx context.Context, ownerID string) (notification.ConsentState, error) {
	cacheKey := "consent:" + ownerID

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			return notification.ConsentState{TransactionalOptIn: cached == "1"}, nil
		}
		if err != redis.Nil {
			// Cache trouble degrades to a direct lookup.
			c.logger.Warn("consent cache read failed", "owner_id", ownerID, "error", err)
		}
	}

	state, err := c.fetch(ctx, ownerID)
	if err != nil {
		return notification.ConsentState{}, err
	}

	if c.redis != nil {
		value := "0"
		if state.TransactionalOptIn {
			value = "1"
		}
		if err := c.redis.Set(ctx, cacheKey, value, c.cacheTTL).Err(); err != nil {
			c.logger.Warn("consent cache write failed", "owner_id", ownerID, "error", err)
		}
	}

	return state, nil
}

func (c *Client) fetch(ctx context.Context, ownerID string) (notification.ConsentState, error) {
	url := fmt.Sprintf("%s/v1/consents/%s", c.baseURL, ownerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return notification.ConsentState{}, fmt.Errorf("build consent request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return notification.ConsentState{}, fmt.Errorf("consent service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return notification.ConsentState{}, fmt.Errorf("consent service returned status %d", resp.StatusCode)
	}

	var state notification.ConsentState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return notification.ConsentState{}, fmt.Errorf("decode consent response: %w", err)
	}
	return state, nil
}
