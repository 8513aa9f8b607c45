package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/glidecall/shell/internal/logging"
)

var log = logging.L("bridge")

// Handler receives fire-and-forget envelopes published on a channel.
type Handler func(env Envelope)

// RequestHandler answers a request envelope. The returned value is
// marshaled into the reply payload; an error becomes the reply's Error
// field, unchanged.
type RequestHandler func(ctx context.Context, env Envelope) (any, error)

// Bus routes envelopes between transports and in-process subscribers.
// Delivery is serialized: at most one handler runs at a time, so
// subscribers may treat their state as single-threaded.
type Bus struct {
	dispatchMu sync.Mutex // serializes handler execution

	mu         sync.Mutex
	handlers   map[string][]*Subscription
	responders map[string]*Subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers:   make(map[string][]*Subscription),
		responders: make(map[string]*Subscription),
	}
}

// Subscription is a registered handler. Close removes it; closing more
// than once is a no-op.
type Subscription struct {
	bus     *Bus
	channel string
	fn      Handler
	respond RequestHandler
	once    sync.Once
}

// Close deregisters the subscription. Safe to call repeatedly.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

// Subscribe registers a handler for envelopes published on channel.
func (b *Bus) Subscribe(channel string, fn Handler) *Subscription {
	sub := &Subscription{bus: b, channel: channel, fn: fn}
	b.mu.Lock()
	b.handlers[channel] = append(b.handlers[channel], sub)
	b.mu.Unlock()
	return sub
}

// Respond registers the responder for request envelopes on channel. A
// channel has at most one responder; registering a second replaces the
// first.
func (b *Bus) Respond(channel string, fn RequestHandler) *Subscription {
	sub := &Subscription{bus: b, channel: channel, respond: fn}
	b.mu.Lock()
	b.responders[channel] = sub
	b.mu.Unlock()
	return sub
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.respond != nil {
		if b.responders[sub.channel] == sub {
			delete(b.responders, sub.channel)
		}
		return
	}

	subs := b.handlers[sub.channel]
	for i, s := range subs {
		if s == sub {
			b.handlers[sub.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Publish delivers env to every subscriber of its channel, in
// subscription order. A channel with no subscribers drops the envelope.
func (b *Bus) Publish(env Envelope) {
	b.mu.Lock()
	subs := make([]*Subscription, len(b.handlers[env.Channel]))
	copy(subs, b.handlers[env.Channel])
	b.mu.Unlock()

	if len(subs) == 0 {
		log.Debug("no subscribers for channel", logging.KeyChannel, env.Channel, logging.KeyEvent, env.Name)
		return
	}

	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()
	for _, sub := range subs {
		sub.fn(env)
	}
}

// Request routes env to the channel's responder and returns the reply
// payload. There is no timeout here: a hung responder hangs the caller
// unless ctx is canceled by the transport.
func (b *Bus) Request(ctx context.Context, env Envelope) (json.RawMessage, error) {
	b.mu.Lock()
	sub := b.responders[env.Channel]
	b.mu.Unlock()

	if sub == nil {
		return nil, fmt.Errorf("bridge: no responder for channel %q", env.Channel)
	}

	result, err := sub.respond(ctx, env)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("bridge: marshal response: %w", err)
	}
	return raw, nil
}
