package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dum-man/messenger/pkg/logger"
)

// relayChannel is the Redis Pub/Sub channel events travel over.
const relayChannel = "messenger:events"

type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// RedisRelay bridges the local in-process bus across instances via Redis
// Pub/Sub: local events are republished to Redis, and events published by
// other instances are injected into the local bus as their plain concrete
// types. Each envelope carries an origin id so an instance ignores its
// own traffic, and injection bypasses the relay's own subscription so a
// remote event is never republished.
type RedisRelay struct {
	client *redis.Client
	bus    *InProcessBus
	origin string
	log    *logger.Logger

	local  *Subscription
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func NewRedisRelay(client *redis.Client, bus *InProcessBus, origin string, log *logger.Logger) *RedisRelay {
	return &RedisRelay{
		client: client,
		bus:    bus,
		origin: origin,
		log:    log,
	}
}

// Start begins relaying in both directions until Stop is called.
func (r *RedisRelay) Start() error {
	local, err := r.bus.Subscribe(AllTypes()...)
	if err != nil {
		return err
	}
	r.local = local

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.pubsub = r.client.Subscribe(ctx, relayChannel)

	go r.forwardLocal(ctx)
	go r.listenRemote(ctx)
	return nil
}

func (r *RedisRelay) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.pubsub != nil {
		_ = r.pubsub.Close()
	}
	if r.local != nil {
		r.local.Close()
	}
}

func (r *RedisRelay) forwardLocal(ctx context.Context) {
	for event := range r.local.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			r.log.Errorf("relay: marshal event: %v", err)
			continue
		}
		data, err := json.Marshal(relayEnvelope{
			Origin:  r.origin,
			Type:    event.Type(),
			Payload: payload,
		})
		if err != nil {
			r.log.Errorf("relay: marshal envelope: %v", err)
			continue
		}
		if err := r.client.Publish(ctx, relayChannel, data).Err(); err != nil {
			r.log.Errorf("relay: publish to redis: %v", err)
		}
	}
}

func (r *RedisRelay) listenRemote(ctx context.Context) {
	ch := r.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			event, err := decodeEnvelope([]byte(msg.Payload), r.origin)
			if err != nil {
				r.log.Errorf("relay: decode envelope: %v", err)
				continue
			}
			if event == nil {
				continue
			}
			r.bus.publishExcept(event, r.local)
		}
	}
}

// decodeEnvelope unmarshals a relayed event, returning (nil, nil) for
// traffic originating from this instance.
func decodeEnvelope(data []byte, origin string) (Event, error) {
	var env relayEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Origin == origin {
		return nil, nil
	}

	switch env.Type {
	case EventConversationCreated:
		var e ConversationCreated
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventConversationUpdated:
		var e ConversationUpdated
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventConversationDeleted:
		var e ConversationDeleted
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventMessageSent:
		var e MessageSent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
