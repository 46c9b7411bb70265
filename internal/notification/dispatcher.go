package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/prepally/prepally-backend/pkg/observability"
)

// DefaultMaxRetries bounds provider-failure retries per idempotency key.
const DefaultMaxRetries = 3

var tracer = otel.Tracer("notification.dispatcher")

// Dispatcher is the only component of the pipeline with side effects. It
// enforces policy, enforces the template contract, enforces idempotency
// against the delivery record store, performs the provider call and records
// the outcome.
type Dispatcher struct {
	store      Store
	provider   Provider
	policy     *PolicyEngine
	logger     *observability.Logger
	maxRetries int
}

func NewDispatcher(store Store, provider Provider, policy *PolicyEngine, logger *observability.Logger, maxRetries int) *Dispatcher {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Dispatcher{
		store:      store,
		provider:   provider,
		policy:     policy,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Send dispatches one composed message.
//
// Policy rejections and contract violations come back as results, never
// errors. Provider failures come back as failed results eligible for
// caller-driven retry. Storage failures are returned as errors: without a
// durable record idempotency cannot be guaranteed, so pretending to succeed
// would risk a duplicate send.
func (d *Dispatcher) Send(ctx context.Context, msg *ComposedMessage) (*DispatchResult, error) {
	ctx, span := tracer.Start(ctx, "notification.send")
	span.SetAttributes(
		attribute.String("notification.category", string(msg.Category)),
		attribute.String("notification.idempotency_key", msg.IdempotencyKey),
	)
	defer span.End()

	// Policy gate. No record is created or touched for a disallowed send.
	if decision := d.policy.CanSend(ctx, msg.OwnerID, msg.Category); !decision.Allowed {
		d.logger.Info("send skipped by policy",
			"owner_id", msg.OwnerID,
			"category", string(msg.Category),
			"reason", decision.Reason)
		dispatchTotal.WithLabelValues(string(msg.Category), outcomeSkippedPolicy).Inc()
		return &DispatchResult{Skipped: true, Reason: decision.Reason}, nil
	}

	params := ClaimParams{
		OwnerID:        msg.OwnerID,
		Recipient:      msg.Recipient,
		Category:       msg.Category,
		Provider:       d.provider.Name(),
		IdempotencyKey: msg.IdempotencyKey,
	}

	// Contract gate. An incomplete payload goes terminal FAILED without
	// ever entering SENDING; the provider is never called for it.
	if v := ValidateVariables(msg.Template, msg.Variables); !v.Valid {
		reason := validationReason(msg.Template, v)
		if v.UnknownTemplate {
			d.logger.Error("unknown template reference", "template", string(msg.Template))
		} else {
			d.logger.Error("message failed contract validation",
				"template", string(msg.Template),
				"missing", strings.Join(v.MissingRequired, ","))
		}
		rec, err := d.store.RecordValidationFailure(ctx, params, reason)
		if err != nil {
			return nil, err
		}
		dispatchTotal.WithLabelValues(string(msg.Category), outcomeInvalid).Inc()
		result := &DispatchResult{Success: false, Reason: reason}
		if rec != nil {
			result.DeliveryRecordID = rec.ID
		}
		return result, nil
	}

	// Idempotency gate. The claim is a single conditional upsert; losing
	// the race means another dispatcher owns (or already finished) this key.
	claim, err := d.store.ClaimForSending(ctx, params, d.maxRetries)
	if err != nil {
		return nil, err
	}
	if !claim.Claimed {
		return d.resolveRefusedClaim(msg, claim.Record), nil
	}
	rec := claim.Record

	// Provider call. Runs to completion once started; a timeout inside the
	// provider client is recorded as a normal failure eligible for retry.
	timer := prometheus.NewTimer(providerLatency.WithLabelValues(d.provider.Name()))
	resp, sendErr := d.provider.Send(ctx, ProviderPayload{
		To:          msg.Recipient,
		From:        msg.Sender,
		Template:    msg.Template,
		Language:    msg.Language,
		Variables:   msg.Variables,
		Attachments: msg.Attachments,
	})
	timer.ObserveDuration()

	if sendErr != nil {
		d.logger.Warn("provider send failed",
			"category", string(msg.Category),
			"idempotency_key", msg.IdempotencyKey,
			"retry_count", rec.RetryCount,
			"error", sendErr)
		if err := d.store.MarkFailed(ctx, rec.ID, sendErr.Error()); err != nil {
			return nil, err
		}
		dispatchTotal.WithLabelValues(string(msg.Category), outcomeProviderError).Inc()
		return &DispatchResult{
			Success:          false,
			Reason:           fmt.Sprintf("provider error: %v", sendErr),
			DeliveryRecordID: rec.ID,
		}, nil
	}

	if err := d.store.MarkSent(ctx, rec.ID, resp.MessageID); err != nil {
		return nil, err
	}
	d.logger.Info("notification sent",
		"category", string(msg.Category),
		"idempotency_key", msg.IdempotencyKey,
		"provider_message_id", resp.MessageID)
	dispatchTotal.WithLabelValues(string(msg.Category), outcomeSent).Inc()

	return &DispatchResult{
		Success:           true,
		DeliveryRecordID:  rec.ID,
		ProviderMessageID: resp.MessageID,
	}, nil
}

// SendBatch dispatches messages sequentially, one provider call at a time, to
// respect provider rate limits. Storage failures abort the batch; everything
// else is reflected in the per-message results.
func (d *Dispatcher) SendBatch(ctx context.Context, msgs []*ComposedMessage) (*BatchResult, error) {
	batch := &BatchResult{}
	for _, msg := range msgs {
		result, err := d.Send(ctx, msg)
		if err != nil {
			return batch, err
		}
		batch.Results = append(batch.Results, *result)
		switch {
		case result.Success:
			batch.Sent++
		case result.Skipped:
			batch.Skipped++
		default:
			batch.Failed++
		}
	}
	return batch, nil
}

// MaxRetries exposes the configured retry ceiling for schedulers.
func (d *Dispatcher) MaxRetries() int {
	return d.maxRetries
}

// resolveRefusedClaim maps the current row of a lost claim to a result. Once
// a record is SENT it stays SENT; the stored provider message id is returned
// without another provider call.
func (d *Dispatcher) resolveRefusedClaim(msg *ComposedMessage, rec *DeliveryRecord) *DispatchResult {
	switch rec.Status {
	case StatusSent:
		dispatchTotal.WithLabelValues(string(msg.Category), outcomeSkippedDuplicate).Inc()
		return &DispatchResult{
			Success:           true,
			Skipped:           true,
			Reason:            "already sent",
			DeliveryRecordID:  rec.ID,
			ProviderMessageID: rec.ProviderMessageID,
		}
	case StatusSending:
		dispatchTotal.WithLabelValues(string(msg.Category), outcomeSkippedDuplicate).Inc()
		return &DispatchResult{
			Skipped:          true,
			Reason:           "dispatch in flight",
			DeliveryRecordID: rec.ID,
		}
	default:
		dispatchTotal.WithLabelValues(string(msg.Category), outcomeRetryExhausted).Inc()
		return &DispatchResult{
			Success:          false,
			Reason:           "retry limit reached",
			DeliveryRecordID: rec.ID,
		}
	}
}

func validationReason(ref TemplateRef, v ValidationResult) string {
	if v.UnknownTemplate {
		return fmt.Sprintf("unknown template reference %q", ref)
	}
	return fmt.Sprintf("missing required variables: %s", strings.Join(v.MissingRequired, ", "))
}
