package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prepally/prepally-backend/pkg/observability"
)

type recomposerFunc func(ctx context.Context, rec *DeliveryRecord) (*ComposedMessage, error)

func (f recomposerFunc) Recompose(ctx context.Context, rec *DeliveryRecord) (*ComposedMessage, error) {
	return f(ctx, rec)
}

func seedFailedWelcome(t *testing.T, store *memStore, d *Dispatcher, composer *Composer, u User) *ComposedMessage {
	t.Helper()
	msg, err := composer.Welcome(u)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	result, err := d.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("seed send: %v", err)
	}
	if result.Success {
		t.Fatal("seed send unexpectedly succeeded")
	}
	return msg
}

func TestRetryScheduler_RunOnce(t *testing.T) {
	store := newMemStore()
	composer := NewComposer(testCfg)
	logger := observability.NewLogger("test")

	// First pass: the provider is down, two records land in FAILED.
	failing := &MockProvider{
		SendFunc: func(ctx context.Context, payload ProviderPayload) (*ProviderResponse, error) {
			return nil, errors.New("provider down")
		},
	}
	d := NewDispatcher(store, failing, allowAllPolicy(t), logger, 3)
	seedFailedWelcome(t, store, d, composer, testUser)
	seedFailedWelcome(t, store, d, composer, User{ID: "U2", Email: "u2@example.com", FirstName: "Bea"})

	// Sweep with a recovered provider.
	recovered := okProvider("m-retry")
	d = NewDispatcher(store, recovered, allowAllPolicy(t), logger, 3)
	recomposer := recomposerFunc(func(ctx context.Context, rec *DeliveryRecord) (*ComposedMessage, error) {
		return composer.Welcome(User{ID: rec.OwnerID, Email: rec.Recipient, FirstName: "X"})
	})
	scheduler := NewRetryScheduler(store, d, recomposer, logger, time.Minute, 50)

	sent, err := scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}
	if recovered.SendCalls != 2 {
		t.Errorf("provider calls = %d, want 2", recovered.SendCalls)
	}

	// Nothing left to retry.
	sent, err = scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if sent != 0 || recovered.SendCalls != 2 {
		t.Errorf("second sweep re-sent records: sent=%d calls=%d", sent, recovered.SendCalls)
	}
}

func TestRetryScheduler_RecomposeFailureSkipsRecord(t *testing.T) {
	store := newMemStore()
	composer := NewComposer(testCfg)
	logger := observability.NewLogger("test")

	failing := &MockProvider{
		SendFunc: func(ctx context.Context, payload ProviderPayload) (*ProviderResponse, error) {
			return nil, errors.New("provider down")
		},
	}
	d := NewDispatcher(store, failing, allowAllPolicy(t), logger, 3)
	seedFailedWelcome(t, store, d, composer, testUser)

	recovered := okProvider("m-retry")
	d = NewDispatcher(store, recovered, allowAllPolicy(t), logger, 3)
	recomposer := recomposerFunc(func(ctx context.Context, rec *DeliveryRecord) (*ComposedMessage, error) {
		return nil, errors.New("user deleted")
	})
	scheduler := NewRetryScheduler(store, d, recomposer, logger, time.Minute, 50)

	sent, err := scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
	if recovered.SendCalls != 0 {
		t.Errorf("provider must not be called when recomposition fails")
	}

	// The record stays FAILED for the next sweep.
	records, _ := store.ListRetryable(context.Background(), 3, 10)
	if len(records) != 1 {
		t.Errorf("expected record to remain retryable, got %d", len(records))
	}
}

func TestRetryScheduler_ValidationFailuresAreNotRetried(t *testing.T) {
	store := newMemStore()
	logger := observability.NewLogger("test")
	provider := okProvider("m1")
	d := NewDispatcher(store, provider, allowAllPolicy(t), logger, 3)

	invalid := &ComposedMessage{
		Recipient:      "u1@example.com",
		Template:       TemplateWelcome,
		Variables:      map[string]string{},
		Category:       CategoryAccountWelcome,
		IdempotencyKey: "welcome:U1",
		OwnerID:        "U1",
	}
	if _, err := d.Send(context.Background(), invalid); err != nil {
		t.Fatalf("send: %v", err)
	}

	records, err := store.ListRetryable(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("validation failure offered for retry: %+v", records[0])
	}
}
