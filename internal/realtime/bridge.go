package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Group string `json:"group"`
	Event Event  `json:"event"`
}

// Bridge fans group events out across nodes over one Redis Pub/Sub
// channel. Emit only publishes; every node, the publisher included,
// delivers to its local Hub from Run, so all nodes apply one order per
// channel.
type Bridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *slog.Logger

	ready    atomic.Bool
	retryMin time.Duration
	retryMax time.Duration
}

func NewBridge(client *redis.Client, channel string, hub *Hub, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client:   client,
		channel:  channel,
		hub:      hub,
		logger:   logger,
		retryMin: 500 * time.Millisecond,
		retryMax: 30 * time.Second,
	}
}

// Ready reports whether the bridge currently holds a live subscription.
func (b *Bridge) Ready() bool {
	return b.ready.Load()
}

// Check reports the bridge subscription as a readiness error.
func (b *Bridge) Check(context.Context) error {
	if !b.Ready() {
		return fmt.Errorf("realtime bridge not subscribed to %s", b.channel)
	}
	return nil
}

func (b *Bridge) Emit(ctx context.Context, g Group, ev Event) error {
	data, err := json.Marshal(envelope{Group: string(g), Event: ev})
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish realtime event: %w", err)
	}
	return nil
}

// Run relays published events to the local Hub until ctx is cancelled.
// A failed or lost subscription is retried with capped exponential
// backoff. Messages addressed to anything but the two group shapes are
// discarded.
func (b *Bridge) Run(ctx context.Context) error {
	delay := b.retryMin
	for {
		subscribed, err := b.subscribe(ctx)
		b.ready.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			delay = b.retryMin
		}
		b.logger.Warn("realtime bridge unavailable, retrying",
			"channel", b.channel, "error", err, "retry_in", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		delay = min(delay*2, b.retryMax)
	}
}

// subscribe holds one subscription until it ends. subscribed reports
// whether the subscription was confirmed before it ended.
func (b *Bridge) subscribe(ctx context.Context) (subscribed bool, err error) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.ready.Store(true)
	b.logger.Info("realtime bridge subscribed", "channel", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("subscription closed")
			}
			b.relay(msg.Payload)
		}
	}
}

func (b *Bridge) relay(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("realtime bridge: bad message", "error", err)
		return
	}
	g, err := ParseGroup(env.Group)
	if err != nil {
		b.logger.Warn("realtime bridge: bad group", "group", env.Group)
		return
	}
	b.hub.Broadcast(g, env.Event)
}
