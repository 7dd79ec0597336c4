package services

import (
	"sync"
	"sync/atomic"

	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/logger"
)

// EventBus fans engine events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type EventBus struct {
	mu      sync.RWMutex
	nextID  int
	subs    map[int]chan entities.Event
	dropped atomic.Uint64
	logger  *logger.Logger
}

// NewEventBus creates an empty bus
func NewEventBus(log *logger.Logger) *EventBus {
	return &EventBus{
		subs:   map[int]chan entities.Event{},
		logger: log.WithComponent("events"),
	}
}

// Subscribe returns a channel of future events and a cancel func that
// closes it.
func (b *EventBus) Subscribe(buffer int) (<-chan entities.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan entities.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
}

// Publish delivers events in order to every subscriber.
func (b *EventBus) Publish(events ...entities.Event) {
	if len(events) == 0 {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		for _, ev := range events {
			select {
			case ch <- ev:
			default:
				b.dropped.Add(1)
				b.logger.Debugw("Subscriber buffer full, event dropped", "subscriber", id, "type", ev.Type)
			}
		}
	}
}

// Dropped reports how many deliveries were skipped because of full buffers.
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}

// CloseAll closes every subscription.
func (b *EventBus) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
