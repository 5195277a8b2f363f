// Package broker is the pub/sub facade that carries events across server
// processes. It wraps a Redis client; when no broker is reachable, publishes
// degrade to local-only delivery so a single-node deployment keeps working.
package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/metrics"
)

// Handler consumes one event delivered on a channel. Handlers must be
// idempotent against redelivery after a broker reconnect.
type Handler func(channel string, payload []byte)

// ChatChannel is the namespace for events visible to all members of a chat.
func ChatChannel(chatID int64) string {
	return fmt.Sprintf("chat:%d", chatID)
}

// UserChannel is the namespace for events visible only to one user's sessions.
func UserChannel(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// Broker publishes events and holds per-channel subscription handles for the
// process lifetime. Channels are per-chat and per-user: unbounded but sparse,
// so handles are never released (the subscribed-channels gauge is the
// diagnostic for that map).
type Broker struct {
	rdb *redis.Client
	log zerolog.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	pubsub   *redis.PubSub

	warnedOnce sync.Once
}

// New wraps rdb, which may be nil for a broker-less (local-only) deployment.
func New(rdb *redis.Client) *Broker {
	return &Broker{
		rdb:      rdb,
		log:      log.With().Str("component", "broker").Logger(),
		handlers: make(map[string]Handler),
	}
}

// Publish sends payload on channel, best effort. Broker errors are logged,
// never propagated: on failure the event is handed straight to the local
// dispatcher so same-process subscribers still receive it.
func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) {
	metrics.BrokerPublishes.Inc()

	if b.rdb == nil {
		b.warnedOnce.Do(func() {
			b.log.Warn().Msg("no broker configured; event fan-out is local-only")
		})
		metrics.BrokerLocalFallbacks.Inc()
		b.dispatchLocal(channel, payload)
		return
	}

	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		b.log.Error().Err(err).Str("channel", channel).Msg("publish failed; delivering locally")
		metrics.BrokerPublishErrors.Inc()
		b.dispatchLocal(channel, payload)
	}
}

// Subscribe registers handler for channel. Subscribing a channel that is
// already active is a no-op; the first handler wins and the handle is kept
// alive for the process lifetime. The Redis driver re-subscribes every
// registered channel automatically after a reconnect.
func (b *Broker) Subscribe(channel string, handler Handler) {
	b.mu.Lock()
	if _, ok := b.handlers[channel]; ok {
		b.mu.Unlock()
		return
	}
	b.handlers[channel] = handler
	metrics.SubscribedChannels.Set(float64(len(b.handlers)))

	var ps *redis.PubSub
	if b.rdb != nil {
		if b.pubsub == nil {
			b.pubsub = b.rdb.Subscribe(context.Background())
			go b.readLoop(b.pubsub)
		}
		ps = b.pubsub
	}
	b.mu.Unlock()

	if ps != nil {
		if err := ps.Subscribe(context.Background(), channel); err != nil {
			// The handler stays registered: local fan-out still works and the
			// driver retries the subscription once the connection recovers.
			b.log.Error().Err(err).Str("channel", channel).Msg("broker subscribe failed")
		}
	}
}

// ChannelCount reports how many channels have live subscription handles.
func (b *Broker) ChannelCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// Close tears down the pub/sub connection on server shutdown.
func (b *Broker) Close() {
	b.mu.Lock()
	ps := b.pubsub
	b.pubsub = nil
	b.mu.Unlock()
	if ps != nil {
		if err := ps.Close(); err != nil {
			b.log.Warn().Err(err).Msg("pubsub close")
		}
	}
}

func (b *Broker) readLoop(ps *redis.PubSub) {
	// Channel() handles reconnects internally; the range ends when the
	// PubSub is closed during shutdown.
	for msg := range ps.Channel() {
		b.dispatchLocal(msg.Channel, []byte(msg.Payload))
	}
}

// dispatchLocal hands the payload to the handler registered for channel, if
// any. Called both from the broker read loop and from the publish fallback.
func (b *Broker) dispatchLocal(channel string, payload []byte) {
	b.mu.Lock()
	h := b.handlers[channel]
	b.mu.Unlock()
	if h != nil {
		h(channel, payload)
	}
}
