package events

import (
	"context"
	"sync"
)

// Bus is the in-process publish/subscribe primitive. Publish is
// fire-and-forget: events reach listeners registered at publish time,
// in publish order per topic, at most once, with no replay.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(topics ...EventType) (*Subscription, error)
}

// subscriptionBuffer bounds the per-subscriber queue. A subscriber that
// falls this far behind starts losing events (best-effort delivery).
const subscriptionBuffer = 64

// Subscription is a cancellable stream of events restricted to the
// topics it was created with.
type Subscription struct {
	bus    *InProcessBus
	ch     chan Event
	topics map[EventType]struct{}
	once   sync.Once
}

// Events returns the channel delivering matching events. The channel is
// closed when the subscription is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close stops delivery and releases the subscription. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

func (s *Subscription) wants(t EventType) bool {
	_, ok := s.topics[t]
	return ok
}

// InProcessBus delivers events to subscribers over buffered channels.
// Publish serializes delivery under the bus lock, which is what gives
// each listener publish-order delivery on a topic.
type InProcessBus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}

	// DroppedFn, when set, is invoked with the event a full subscriber
	// buffer caused to be dropped.
	DroppedFn func(Event)
}

func NewInProcessBus() *InProcessBus {
	return &InProcessBus{
		subs: make(map[*Subscription]struct{}),
	}
}

func (b *InProcessBus) Publish(ctx context.Context, event Event) error {
	b.publishExcept(event, nil)
	return nil
}

// publishExcept delivers to every subscription but skip. The relay uses
// it to inject events from other instances without echoing them back
// through its own subscription.
func (b *InProcessBus) publishExcept(event Event, skip *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		if sub == skip || !sub.wants(event.Type()) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			if b.DroppedFn != nil {
				b.DroppedFn(event)
			}
		}
	}
}

func (b *InProcessBus) Subscribe(topics ...EventType) (*Subscription, error) {
	sub := &Subscription{
		bus:    b,
		ch:     make(chan Event, subscriptionBuffer),
		topics: make(map[EventType]struct{}, len(topics)),
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub, nil
}

func (b *InProcessBus) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	// Sends only happen under the lock, so closing here cannot race a
	// publish in flight.
	close(sub.ch)
	b.mu.Unlock()
}
