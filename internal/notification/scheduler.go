package notification

import (
	"context"
	"time"

	"github.com/prepally/prepally-backend/pkg/observability"
)

// Recomposer rebuilds the composed message for a failed delivery record from
// the original domain inputs. The rebuilt message must carry the record's
// idempotency key; the dispatcher's claim keeps the retry safe either way.
type Recomposer interface {
	Recompose(ctx context.Context, rec *DeliveryRecord) (*ComposedMessage, error)
}

// RetryScheduler periodically sweeps FAILED records below the retry ceiling
// and re-invokes the dispatcher for each. It does not parallelize sends and
// carries no retry state of its own: the delivery record is the source of
// truth.
type RetryScheduler struct {
	store      Store
	dispatcher *Dispatcher
	recomposer Recomposer
	logger     *observability.Logger
	interval   time.Duration
	batchSize  int
}

func NewRetryScheduler(store Store, dispatcher *Dispatcher, recomposer Recomposer, logger *observability.Logger, interval time.Duration, batchSize int) *RetryScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RetryScheduler{
		store:      store,
		dispatcher: dispatcher,
		recomposer: recomposer,
		logger:     logger,
		interval:   interval,
		batchSize:  batchSize,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *RetryScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("retry sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many records were re-sent
// successfully.
func (s *RetryScheduler) RunOnce(ctx context.Context) (int, error) {
	records, err := s.store.ListRetryable(ctx, s.dispatcher.MaxRetries(), s.batchSize)
	if err != nil {
		return 0, err
	}
	retryBacklog.Set(float64(len(records)))
	if len(records) == 0 {
		return 0, nil
	}

	sent := 0
	for _, rec := range records {
		msg, err := s.recomposer.Recompose(ctx, rec)
		if err != nil {
			s.logger.Error("recompose failed, leaving record for next sweep",
				"delivery_record_id", rec.ID,
				"idempotency_key", rec.IdempotencyKey,
				"error", err)
			continue
		}

		result, err := s.dispatcher.Send(ctx, msg)
		if err != nil {
			// Storage failure; abort the sweep rather than hammer the store.
			return sent, err
		}
		if result.Success {
			sent++
		}
	}

	s.logger.Info("retry sweep complete", "candidates", len(records), "sent", sent)
	return sent, nil
}
