package event_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/husseinmarah/peermesh/pkg/peermesh/event"
)

func TestPublishToSubscriber(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()

	received := make(chan event.Event, 1)
	sub := bus.Subscribe([]event.Type{event.TypeSessionCreated}, func(evt event.Event) {
		received <- evt
	})
	require.NotNil(t, sub)

	bus.Publish(event.New(event.TypeSessionCreated, "P-abc", "T1", "discovered"))

	select {
	case evt := <-received:
		assert.Equal(t, event.TypeSessionCreated, evt.Type)
		assert.Equal(t, "P-abc", evt.Identity)
		assert.Equal(t, "T1", evt.SessionID)
		assert.NotEmpty(t, evt.ID)
		assert.False(t, evt.Time.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestTypeFiltering(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()

	var evicted atomic.Int32
	bus.Subscribe([]event.Type{event.TypeSessionEvicted}, func(event.Event) {
		evicted.Add(1)
	})

	bus.Publish(event.New(event.TypeSessionCreated, "P-abc", "T1", "discovered"))
	bus.Publish(event.New(event.TypeSessionEvicted, "P-abc", "T1", ""))

	assert.Eventually(t, func() bool {
		return evicted.Load() == 1
	}, time.Second, 10*time.Millisecond)

	// Give a stray created-event delivery a chance to surface.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), evicted.Load())
}

func TestSubscribeAll(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()

	var count atomic.Int32
	bus.SubscribeAll(func(event.Event) { count.Add(1) })

	bus.Publish(event.New(event.TypeSessionCreated, "P-a", "T1", "discovered"))
	bus.Publish(event.New(event.TypeSessionStateChanged, "P-a", "T1", "connected"))
	bus.Publish(event.New(event.TypeSessionEvicted, "P-a", "T1", ""))

	assert.Eventually(t, func() bool {
		return count.Load() == 3
	}, time.Second, 10*time.Millisecond)
}

func TestTypedAndWildcardBothDelivered(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()

	var typed, wildcard atomic.Int32
	bus.Subscribe([]event.Type{event.TypeSessionCreated}, func(event.Event) {
		typed.Add(1)
	})
	bus.SubscribeAll(func(event.Event) {
		wildcard.Add(1)
	})

	bus.Publish(event.New(event.TypeSessionCreated, "P-a", "T1", "discovered"))

	assert.Eventually(t, func() bool {
		return typed.Load() == 1 && wildcard.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUnsubscribe(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()

	var count atomic.Int32
	sub := bus.SubscribeAll(func(event.Event) { count.Add(1) })
	sub.Unsubscribe()

	bus.Publish(event.New(event.TypeSessionCreated, "P-a", "T1", "discovered"))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

func TestPublishNeverBlocks(t *testing.T) {
	dropped := make(chan string, 100)
	bus := event.NewBus(event.BusConfig{
		BufferSize: 1,
		OnDrop: func(_ event.Event, subscriberID string) {
			dropped <- subscriberID
		},
	})
	defer bus.Close()

	// A handler that never returns keeps its buffer full.
	block := make(chan struct{})
	defer close(block)
	bus.SubscribeAll(func(event.Event) { <-block })

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(event.New(event.TypeSessionCreated, "P-a", "T1", "discovered"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	select {
	case <-dropped:
	case <-time.After(time.Second):
		t.Fatal("expected at least one drop")
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := event.NewBus(event.DefaultBusConfig)

	var count atomic.Int32
	bus.SubscribeAll(func(event.Event) { count.Add(1) })

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close()) // idempotent

	bus.Publish(event.New(event.TypeSessionCreated, "P-a", "T1", "discovered"))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())

	// Subscribing after close yields nil.
	assert.Nil(t, bus.SubscribeAll(func(event.Event) {}))
}

func TestConcurrentPublish(t *testing.T) {
	bus := event.NewBus(event.BusConfig{BufferSize: 1024})
	defer bus.Close()

	var count atomic.Int32
	bus.SubscribeAll(func(event.Event) { count.Add(1) })

	const publishers = 8
	const perPublisher = 50
	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				bus.Publish(event.New(event.TypeSessionStateChanged, "P-a", "T1", "connected"))
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		return count.Load() == publishers*perPublisher
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewEventFields(t *testing.T) {
	a := event.New(event.TypeSessionCreated, "P-a", "T1", "discovered")
	b := event.New(event.TypeSessionCreated, "P-a", "T1", "discovered")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "discovered", a.State)
}
