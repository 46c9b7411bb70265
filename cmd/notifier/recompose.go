package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prepally/prepally-backend/internal/notification"
)

// recomposeClient asks the main backend to rebuild the composed message for
// a failed delivery record. Domain data (users, purchases, interviews) lives
// there, not in this service; the rebuilt message carries the record's
// idempotency key so the dispatcher's claim stays safe.
type recomposeClient struct {
	httpClient *http.Client
	baseURL    string
}

func newRecomposeClient(baseURL string) *recomposeClient {
	return &recomposeClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

func (c *recomposeClient) Recompose(ctx context.Context, rec *notification.DeliveryRecord) (*notification.ComposedMessage, error) {
	body, err := json.Marshal(map[string]string{
		"owner_id":        rec.OwnerID,
		"category":        string(rec.Category),
		"idempotency_key": rec.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/internal/notifications/recompose"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build recompose request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recompose request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recompose returned status %d for key %s", resp.StatusCode, rec.IdempotencyKey)
	}

	var msg notification.ComposedMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("decode recompose response: %w", err)
	}
	if msg.IdempotencyKey != rec.IdempotencyKey {
		return nil, fmt.Errorf("recompose returned mismatched key %q for record %s", msg.IdempotencyKey, rec.ID)
	}
	return &msg, nil
}
