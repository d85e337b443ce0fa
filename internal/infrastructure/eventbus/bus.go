package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"PriceRadar/internal/domain"
	"PriceRadar/internal/ports"
)

// Bus fans events out to in-process subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan domain.Event
	nextID  int
	dropped atomic.Int64
}

var (
	_ ports.EventPublisher = (*Bus)(nil)
	_ ports.Channel        = (*Bus)(nil)
)

func New() *Bus {
	return &Bus{subs: map[int]chan domain.Event{}}
}

// Subscribe returns a channel of events and a function that ends the
// subscription and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped counts events lost to slow subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Name lets the bus act as an in-app notification channel.
func (b *Bus) Name() string {
	return "events"
}

// Deliver publishes msg as an in-app notification.
func (b *Bus) Deliver(_ context.Context, msg domain.Message) error {
	m := msg
	b.Publish(domain.Event{Kind: domain.EventMessage, MonitorID: msg.MonitorID, Message: &m, At: time.Now()})
	return nil
}
