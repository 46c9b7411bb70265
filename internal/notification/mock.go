package notification

import (
	"context"
)

// MockStore implements Store with pluggable function fields for tests.
type MockStore struct {
	ClaimForSendingFunc         func(ctx context.Context, params ClaimParams, maxRetries int) (*ClaimOutcome, error)
	MarkSentFunc                func(ctx context.Context, id, providerMessageID string) error
	MarkFailedFunc              func(ctx context.Context, id, errMsg string) error
	RecordValidationFailureFunc func(ctx context.Context, params ClaimParams, errMsg string) (*DeliveryRecord, error)
	GetByKeyFunc                func(ctx context.Context, idempotencyKey string) (*DeliveryRecord, error)
	ListRetryableFunc           func(ctx context.Context, maxRetries, limit int) ([]*DeliveryRecord, error)
	ListByOwnerFunc             func(ctx context.Context, ownerID string) ([]*DeliveryRecord, error)
}

func (m *MockStore) ClaimForSending(ctx context.Context, params ClaimParams, maxRetries int) (*ClaimOutcome, error) {
	return m.ClaimForSendingFunc(ctx, params, maxRetries)
}

func (m *MockStore) MarkSent(ctx context.Context, id, providerMessageID string) error {
	return m.MarkSentFunc(ctx, id, providerMessageID)
}

func (m *MockStore) MarkFailed(ctx context.Context, id, errMsg string) error {
	return m.MarkFailedFunc(ctx, id, errMsg)
}

func (m *MockStore) RecordValidationFailure(ctx context.Context, params ClaimParams, errMsg string) (*DeliveryRecord, error) {
	return m.RecordValidationFailureFunc(ctx, params, errMsg)
}

func (m *MockStore) GetByKey(ctx context.Context, idempotencyKey string) (*DeliveryRecord, error) {
	return m.GetByKeyFunc(ctx, idempotencyKey)
}

func (m *MockStore) ListRetryable(ctx context.Context, maxRetries, limit int) ([]*DeliveryRecord, error) {
	return m.ListRetryableFunc(ctx, maxRetries, limit)
}

func (m *MockStore) ListByOwner(ctx context.Context, ownerID string) ([]*DeliveryRecord, error) {
	return m.ListByOwnerFunc(ctx, ownerID)
}

// MockProvider implements Provider for tests and counts calls.
type MockProvider struct {
	SendFunc  func(ctx context.Context, payload ProviderPayload) (*ProviderResponse, error)
	SendCalls int
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Send(ctx context.Context, payload ProviderPayload) (*ProviderResponse, error) {
	m.SendCalls++
	return m.SendFunc(ctx, payload)
}

// MockConsentService implements ConsentService for tests.
type MockConsentService struct {
	GetConsentStateFunc func(ctx context.Context, ownerID string) (ConsentState, error)
}

func (m *MockConsentService) GetConsentState(ctx context.Context, ownerID string) (ConsentState, error) {
	return m.GetConsentStateFunc(ctx, ownerID)
}
