package gateway

import (
	"context"
	"log"
)

// trainChannel carries synthetic training metric updates. It has no symbol
// component, so it is subscribed explicitly rather than by pattern.
const trainChannel = "pub:train"

// PubSubRouter manages Redis PubSub subscriptions and routes messages
// to the broadcaster for fan-out to WebSocket clients.
type PubSubRouter struct {
	hub *Hub
}

// NewPubSubRouter creates a PubSubRouter backed by the given Hub.
func NewPubSubRouter(hub *Hub) *PubSubRouter {
	return &PubSubRouter{hub: hub}
}

// RunExplicit subscribes to the training channel and routes messages.
// Blocks until ctx is cancelled.
func (r *PubSubRouter) RunExplicit(ctx context.Context) {
	pubsub := r.hub.Rdb.Subscribe(ctx, trainChannel)
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s", trainChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.hub.broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}

// RunPattern subscribes to wildcard patterns for per-symbol prediction and
// indicator channels. Blocks until ctx is cancelled.
func (r *PubSubRouter) RunPattern(ctx context.Context) {
	pubsub := r.hub.Rdb.PSubscribe(ctx, "pub:pred:*", "pub:ind:*")
	defer pubsub.Close()

	log.Println("[gateway] pattern-subscribed to pub:pred:* and pub:ind:*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.hub.broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
