package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prepally/prepally-backend/pkg/observability"
)

// QueueDispatch is the queue composed messages are enqueued on for
// asynchronous dispatch.
const QueueDispatch = "notification.dispatch"

// ErrMalformedTask marks an undecodable queue payload. Consumers should drop
// these instead of requeueing: redelivery cannot fix a broken envelope.
var ErrMalformedTask = errors.New("malformed dispatch task")

// DispatchTask is the broker envelope for one composed message.
type DispatchTask struct {
	ID         string          `json:"id"`
	Message    ComposedMessage `json:"message"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Publisher is the outbound queue port (satisfied by messaging.Client).
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// EnqueueDispatch publishes a composed message for asynchronous dispatch.
// Callers that need a synchronous result use Dispatcher.Send directly.
func EnqueueDispatch(ctx context.Context, pub Publisher, msg *ComposedMessage) error {
	task := DispatchTask{
		ID:         uuid.New().String(),
		Message:    *msg,
		EnqueuedAt: time.Now().UTC(),
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal dispatch task: %w", err)
	}
	return pub.Publish(ctx, QueueDispatch, body)
}

// Worker consumes dispatch tasks from the queue and hands them to the
// dispatcher. Scheduling is the broker's concern; the worker only decides
// whether an error is worth a redelivery.
type Worker struct {
	dispatcher *Dispatcher
	logger     *observability.Logger
}

func NewWorker(dispatcher *Dispatcher, logger *observability.Logger) *Worker {
	return &Worker{dispatcher: dispatcher, logger: logger}
}

// HandleTask processes one queue delivery. A returned error asks the broker
// to redeliver, except ErrMalformedTask which the consumer drops. Provider
// failures are not errors here: the record is FAILED and the retry scheduler
// owns the follow-up.
func (w *Worker) HandleTask(ctx context.Context, body []byte) error {
	var task DispatchTask
	if err := json.Unmarshal(body, &task); err != nil {
		w.logger.Error("dropping malformed dispatch task", "error", err)
		return fmt.Errorf("%w: %v", ErrMalformedTask, err)
	}

	result, err := w.dispatcher.Send(ctx, &task.Message)
	if err != nil {
		// Storage failure: the broker should redeliver, the claim keeps
		// the redelivery idempotent.
		return fmt.Errorf("dispatch task %s: %w", task.ID, err)
	}

	w.logger.Info("dispatch task processed",
		"task_id", task.ID,
		"category", string(task.Message.Category),
		"success", result.Success,
		"skipped", result.Skipped,
		"reason", result.Reason)
	return nil
}
