package eventing

import (
	"context"
	"sync"
	"testing"
	"time"
)

type gainCredited struct {
	UserID     int64
	UserPassID int64
	Amount     int64
	OccurredAt time.Time
}

type memoryProcessed struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryProcessed() *memoryProcessed {
	return &memoryProcessed{seen: make(map[string]bool)}
}

func (m *memoryProcessed) HasProcessed(_ context.Context, eventID, consumer string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[eventID+"|"+consumer], nil
}

func (m *memoryProcessed) MarkProcessed(_ context.Context, eventID, consumer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[eventID+"|"+consumer] = true
	return nil
}

func TestInMemoryBusPublishSubscribe(t *testing.T) {
	bus := NewInMemoryBus()
	var got gainCredited
	bus.Subscribe(EventTypeOf[gainCredited](), func(_ context.Context, event any) error {
		got = event.(gainCredited)
		return nil
	})

	want := gainCredited{UserID: 7, UserPassID: 3, Amount: 1000, OccurredAt: time.Now()}
	if err := bus.Publish(context.Background(), want); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.UserID != want.UserID || got.Amount != want.Amount {
		t.Fatalf("handler got %+v, want %+v", got, want)
	}
}

func TestWrapHandlerSkipsProcessedEvents(t *testing.T) {
	store := newMemoryProcessed()
	calls := 0
	handler := WrapHandler("notify", func(context.Context, any) error {
		calls++
		return nil
	}, store)

	env := Envelope{EventID: "evt-1", EventType: EventTypeOf[gainCredited](), OccurredAt: time.Now()}
	ctx := WithEnvelope(context.Background(), env)

	for i := 0; i < 3; i++ {
		if err := handler(ctx, gainCredited{}); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want exactly once", calls)
	}
}

func TestRegistryDecodePayload(t *testing.T) {
	registry := NewRegistry()
	registry.Register(gainCredited{})

	env, err := BuildEnvelope(gainCredited{UserID: 9, Amount: 400}, Meta{})
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	decoded, err := registry.DecodePayload(env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	event, ok := decoded.(gainCredited)
	if !ok {
		t.Fatalf("decoded %T, want gainCredited", decoded)
	}
	if event.UserID != 9 || event.Amount != 400 {
		t.Fatalf("decoded %+v", event)
	}
}
