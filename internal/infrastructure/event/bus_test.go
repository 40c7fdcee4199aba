package event

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/terraloan/backend/internal/domain/shared"
)

type loanEvent struct {
	shared.BaseDomainEvent
	LoanNumber string `json:"loan_number"`
}

func newLoanEvent(eventType string) *loanEvent {
	return &loanEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "LoanApplication", uuid.New()),
		LoanNumber:      "LN-20240315-093000AB12",
	}
}

type recordingHandler struct {
	mu         sync.Mutex
	eventTypes []string
	received   []shared.DomainEvent
	err        error
	panicMsg   string
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(ctx context.Context, ev shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.received = append(h.received, ev)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers to subscribed handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newRecordingHandler("loan.approved")
		bus.Subscribe(h, "loan.approved")

		ev := newLoanEvent("loan.approved")
		require.NoError(t, bus.Publish(context.Background(), ev))

		require.Equal(t, 1, h.count())
		assert.Equal(t, ev, h.received[0])
	})

	t.Run("delivers multiple events in order", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newRecordingHandler("ledger.entry.posted")
		bus.Subscribe(h, "ledger.entry.posted")

		first := newLoanEvent("ledger.entry.posted")
		second := newLoanEvent("ledger.entry.posted")
		require.NoError(t, bus.Publish(context.Background(), first, second))

		require.Equal(t, 2, h.count())
		assert.Equal(t, first, h.received[0])
		assert.Equal(t, second, h.received[1])
	})

	t.Run("fans out to every handler of the type", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		notifier := newRecordingHandler("loan.approved")
		auditor := newRecordingHandler("loan.approved")
		bus.Subscribe(notifier, "loan.approved")
		bus.Subscribe(auditor, "loan.approved")

		require.NoError(t, bus.Publish(context.Background(), newLoanEvent("loan.approved")))

		assert.Equal(t, 1, notifier.count())
		assert.Equal(t, 1, auditor.count())
	})

	t.Run("wildcard handler receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		audit := newRecordingHandler()
		bus.Subscribe(audit)

		require.NoError(t, bus.Publish(context.Background(),
			newLoanEvent("loan.approved"),
			newLoanEvent("ledger.entry.posted"),
		))

		assert.Equal(t, 2, audit.count())
	})

	t.Run("unmatched event type reaches nobody", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := newRecordingHandler("loan.rejected")
		bus.Subscribe(h, "loan.rejected")

		require.NoError(t, bus.Publish(context.Background(), newLoanEvent("loan.approved")))

		assert.Equal(t, 0, h.count())
	})

	t.Run("failing handler does not block the rest", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))

		failing := newRecordingHandler("loan.approved")
		failing.err = assert.AnError
		healthy := newRecordingHandler("loan.approved")
		bus.Subscribe(failing, "loan.approved")
		bus.Subscribe(healthy, "loan.approved")

		require.NoError(t, bus.Publish(context.Background(), newLoanEvent("loan.approved")))

		assert.Equal(t, 1, healthy.count())
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "event handler failed", logs.All()[0].Message)
		assert.Equal(t, "loan.approved", logs.All()[0].ContextMap()["event_type"])
	})

	t.Run("panicking handler is logged and contained", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))

		panicking := newRecordingHandler("loan.approved")
		panicking.panicMsg = "nil schedule"
		healthy := newRecordingHandler("loan.approved")
		bus.Subscribe(panicking, "loan.approved")
		bus.Subscribe(healthy, "loan.approved")

		require.NoError(t, bus.Publish(context.Background(), newLoanEvent("loan.approved")))

		assert.Equal(t, 1, healthy.count())
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].ContextMap()["error"], "nil schedule")
	})
}

func TestInMemoryEventBus_SubscribeUsesHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	// No explicit types: the handler's own EventTypes() applies.
	h := newRecordingHandler("loan.funded")
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newLoanEvent("loan.funded")))
	require.NoError(t, bus.Publish(context.Background(), newLoanEvent("loan.approved")))

	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newRecordingHandler("loan.approved")
	bus.Subscribe(h, "loan.approved")

	require.NoError(t, bus.Publish(context.Background(), newLoanEvent("loan.approved")))
	require.Equal(t, 1, h.count())

	bus.Unsubscribe(h)
	require.NoError(t, bus.Publish(context.Background(), newLoanEvent("loan.approved")))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))

	h := newRecordingHandler("loan.approved")
	bus.Subscribe(h, "loan.approved")
	require.NoError(t, bus.Publish(ctx, newLoanEvent("loan.approved")))
	assert.Equal(t, 1, h.count())

	require.NoError(t, bus.Stop(ctx))
}

func TestHandlerRegistry(t *testing.T) {
	t.Run("combines typed and wildcard handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		typed := newRecordingHandler("loan.approved")
		wildcard := newRecordingHandler()
		r.Register(typed, "loan.approved")
		r.Register(wildcard)

		assert.Len(t, r.HandlersFor("loan.approved"), 2)
		assert.Len(t, r.HandlersFor("loan.rejected"), 1)
	})

	t.Run("unregister removes from every type", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newRecordingHandler()
		r.Register(h, "loan.approved", "loan.rejected")

		r.Unregister(h)

		assert.Empty(t, r.HandlersFor("loan.approved"))
		assert.Empty(t, r.HandlersFor("loan.rejected"))
	})

	t.Run("unregister leaves other handlers alone", func(t *testing.T) {
		r := NewHandlerRegistry()
		keep := newRecordingHandler()
		drop := newRecordingHandler()
		r.Register(keep, "loan.approved")
		r.Register(drop, "loan.approved")

		r.Unregister(drop)

		handlers := r.HandlersFor("loan.approved")
		require.Len(t, handlers, 1)
		assert.Same(t, keep, handlers[0].(*recordingHandler))
	})
}
