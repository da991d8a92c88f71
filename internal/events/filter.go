package events

import (
	"sync"

	"github.com/dum-man/messenger/internal/session"
	messenger_errors "github.com/dum-man/messenger/pkg/errors"
)

// FilterFunc decides whether an event is delivered to a subscriber.
// It must not mutate shared state; it runs once per (event, subscriber)
// pair, concurrently across subscribers.
type FilterFunc func(event Event, sess *session.Session) bool

// ParticipantFilter delivers an event only when the session user appears
// in the event's participant snapshot.
func ParticipantFilter(event Event, sess *session.Session) bool {
	if !sess.Authenticated() {
		return false
	}
	for _, id := range event.ParticipantIDs() {
		if id == sess.User.ID {
			return true
		}
	}
	return false
}

// FilteredSubscription wraps a bus subscription with a per-event
// predicate evaluated before delivery.
type FilteredSubscription struct {
	inner *Subscription
	ch    chan Event
	once  sync.Once
}

func (s *FilteredSubscription) Events() <-chan Event {
	return s.ch
}

func (s *FilteredSubscription) Close() {
	s.once.Do(func() {
		s.inner.Close()
	})
}

// SubscribeAuthorized subscribes to the given topics on behalf of a
// session. An unauthenticated session fails the subscribe attempt itself;
// once subscribed, events failing the filter are silently dropped for
// this subscriber.
func SubscribeAuthorized(bus Bus, sess *session.Session, filter FilterFunc, topics ...EventType) (*FilteredSubscription, error) {
	if !sess.Authenticated() {
		return nil, messenger_errors.ErrUnauthorized
	}

	inner, err := bus.Subscribe(topics...)
	if err != nil {
		return nil, err
	}

	fs := &FilteredSubscription{
		inner: inner,
		ch:    make(chan Event, subscriptionBuffer),
	}

	go func() {
		defer close(fs.ch)
		for event := range inner.Events() {
			if !filter(event, sess) {
				continue
			}
			// Same best-effort contract as the bus: a consumer that
			// stopped draining loses events instead of wedging this
			// goroutine.
			select {
			case fs.ch <- event:
			default:
			}
		}
	}()

	return fs, nil
}
