package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prepally/prepally-backend/pkg/observability"
)

func TestWorker_HandleTask(t *testing.T) {
	store := newMemStore()
	provider := okProvider("m1")
	d := NewDispatcher(store, provider, allowAllPolicy(t), observability.NewLogger("test"), 3)
	worker := NewWorker(d, observability.NewLogger("test"))

	msg, err := NewComposer(testCfg).Welcome(testUser)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	body, err := json.Marshal(DispatchTask{ID: "task-1", Message: *msg})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if err := worker.HandleTask(context.Background(), body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if provider.SendCalls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.SendCalls)
	}

	// Broker redelivery of the same task is safe.
	if err := worker.HandleTask(context.Background(), body); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if provider.SendCalls != 1 {
		t.Errorf("redelivery reached the provider: %d calls", provider.SendCalls)
	}
}

func TestWorker_MalformedTask(t *testing.T) {
	d := NewDispatcher(newMemStore(), okProvider("m1"), allowAllPolicy(t), observability.NewLogger("test"), 3)
	worker := NewWorker(d, observability.NewLogger("test"))

	err := worker.HandleTask(context.Background(), []byte("{not json"))
	if !errors.Is(err, ErrMalformedTask) {
		t.Fatalf("expected ErrMalformedTask, got %v", err)
	}
}

type publisherFunc func(ctx context.Context, queue string, body []byte) error

func (f publisherFunc) Publish(ctx context.Context, queue string, body []byte) error {
	return f(ctx, queue, body)
}

func TestEnqueueDispatch(t *testing.T) {
	var gotQueue string
	var gotBody []byte
	pub := publisherFunc(func(ctx context.Context, queue string, body []byte) error {
		gotQueue = queue
		gotBody = body
		return nil
	})

	msg, err := NewComposer(testCfg).Welcome(testUser)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if err := EnqueueDispatch(context.Background(), pub, msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if gotQueue != QueueDispatch {
		t.Errorf("queue = %q, want %q", gotQueue, QueueDispatch)
	}
	var task DispatchTask
	if err := json.Unmarshal(gotBody, &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if task.ID == "" {
		t.Error("task id not set")
	}
	if task.Message.IdempotencyKey != msg.IdempotencyKey {
		t.Errorf("message key = %q, want %q", task.Message.IdempotencyKey, msg.IdempotencyKey)
	}
}
