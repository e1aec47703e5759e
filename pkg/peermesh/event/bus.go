package event

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// Handler processes a delivered event. Handlers run on the
// subscription's own goroutine, never on the publisher's.
type Handler func(Event)

// BusConfig configures bus behavior.
type BusConfig struct {
	// BufferSize is the channel buffer per subscription.
	// Default: 64.
	BufferSize int

	// OnDrop is called when a subscriber's buffer is full and an
	// event is dropped for it. Optional.
	OnDrop func(evt Event, subscriberID string)
}

// DefaultBusConfig provides reasonable defaults.
var DefaultBusConfig = BusConfig{
	BufferSize: 64,
}

// Bus is an in-memory pub/sub fan-out for session lifecycle events.
//
// Publish never blocks: the session index calls it from connectivity
// callback paths, so a slow subscriber loses events rather than
// stalling the mesh layer. Each subscription drains its buffer on a
// dedicated goroutine.
type Bus struct {
	config BusConfig

	mu        sync.RWMutex
	subs      map[string]*Subscription
	byType    map[Type]map[string]*Subscription
	wildcards map[string]*Subscription

	nextID atomic.Int64
	closed atomic.Bool
}

// NewBus creates a bus with the given configuration.
func NewBus(config BusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBusConfig.BufferSize
	}
	return &Bus{
		config:    config,
		subs:      make(map[string]*Subscription),
		byType:    make(map[Type]map[string]*Subscription),
		wildcards: make(map[string]*Subscription),
	}
}

// Subscription is an active subscription on a Bus.
type Subscription struct {
	id      string
	types   []Type
	handler Handler
	events  chan Event
	done    chan struct{}
	once    sync.Once
	bus     *Bus
}

// Publish delivers evt to all matching subscribers. It never blocks;
// subscribers with full buffers miss the event (OnDrop fires if set).
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(evt Event) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	typed := b.byType[evt.Type]
	subs := make([]*Subscription, 0, len(typed)+len(b.wildcards))
	for _, sub := range typed {
		subs = append(subs, sub)
	}
	for _, sub := range b.wildcards {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.events <- evt:
		default:
			if b.config.OnDrop != nil {
				b.config.OnDrop(evt, sub.id)
			}
		}
	}
}

// Subscribe registers handler for the given event types.
// Returns nil if the bus is closed.
func (b *Bus) Subscribe(types []Type, handler Handler) *Subscription {
	return b.subscribe(types, handler)
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) *Subscription {
	return b.subscribe(nil, handler)
}

func (b *Bus) subscribe(types []Type, handler Handler) *Subscription {
	if b.closed.Load() || handler == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		id:      strconv.FormatInt(b.nextID.Add(1), 10),
		types:   types,
		handler: handler,
		events:  make(chan Event, b.config.BufferSize),
		done:    make(chan struct{}),
		bus:     b,
	}
	b.subs[sub.id] = sub
	if len(types) == 0 {
		b.wildcards[sub.id] = sub
	} else {
		for _, t := range types {
			if b.byType[t] == nil {
				b.byType[t] = make(map[string]*Subscription)
			}
			b.byType[t][sub.id] = sub
		}
	}

	go sub.run()
	return sub
}

// Unsubscribe removes the subscription and stops its goroutine.
// Buffered events that have not been handled yet are discarded.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.bus.remove(s)
	s.once.Do(func() { close(s.done) })
}

func (s *Subscription) run() {
	for {
		select {
		case evt := <-s.events:
			s.handler(evt)
		case <-s.done:
			return
		}
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
	delete(b.wildcards, sub.id)
	for _, t := range sub.types {
		if typed, ok := b.byType[t]; ok {
			delete(typed, sub.id)
			if len(typed) == 0 {
				delete(b.byType, t)
			}
		}
	}
}

// Close shuts down the bus and all subscriptions. Subsequent Publish
// calls are no-ops. Close is idempotent.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub.once.Do(func() { close(sub.done) })
	}
	b.subs = make(map[string]*Subscription)
	b.byType = make(map[Type]map[string]*Subscription)
	b.wildcards = make(map[string]*Subscription)
	return nil
}
