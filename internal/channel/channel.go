package channel

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrSealed is returned when subscribing to a channel that already emitted.
var ErrSealed = errors.New("channel is sealed")

// Consumer receives the tuples accepted by a subscription. Deliver runs
// under the emitting channel's lock and must not block.
type Consumer interface {
	Deliver(port int, t Tuple)
}

// RejectFunc observes tuples dropped by a subscription's predicate.
type RejectFunc func(sub *Subscription, t Tuple)

// Subscription binds one consumer port to a channel.
type Subscription struct {
	channel   *Channel
	consumer  Consumer
	port      int
	predicate Predicate
	each      []string
	hasEach   bool
	onReject  RejectFunc

	delivered atomic.Int64
	rejected  atomic.Int64
}

// SubscribeOption configures a Subscription.
type SubscribeOption func(*Subscription)

// WithPredicate filters the subscription. A nil predicate accepts everything.
func WithPredicate(p Predicate) SubscribeOption {
	return func(s *Subscription) {
		if p != nil {
			s.predicate = p
		}
	}
}

// WithEach multiplies every accepted tuple into one derived tuple per
// element of list. An empty, non-nil list delivers nothing.
func WithEach(list []string) SubscribeOption {
	return func(s *Subscription) {
		if list == nil {
			return
		}
		s.each = append([]string(nil), list...)
		s.hasEach = true
	}
}

// OnReject registers a hook for tuples dropped by the predicate.
func OnReject(fn RejectFunc) SubscribeOption {
	return func(s *Subscription) { s.onReject = fn }
}

// Channel returns the channel the subscription is attached to.
func (s *Subscription) Channel() *Channel { return s.channel }

// Port returns the consumer port the subscription delivers to.
func (s *Subscription) Port() int { return s.port }

// Predicate returns the subscription's filter.
func (s *Subscription) Predicate() Predicate { return s.predicate }

// Delivered returns how many tuples reached the consumer, derived tuples included.
func (s *Subscription) Delivered() int64 { return s.delivered.Load() }

// Rejected returns how many emitted tuples the predicate dropped.
func (s *Subscription) Rejected() int64 { return s.rejected.Load() }

func (s *Subscription) offer(t Tuple) {
	if !s.predicate.Accept(t) {
		s.rejected.Add(1)
		if s.onReject != nil {
			s.onReject(s, t)
		}
		return
	}
	if !s.hasEach {
		s.delivered.Add(1)
		s.consumer.Deliver(s.port, t)
		return
	}
	for _, elem := range s.each {
		s.delivered.Add(1)
		s.consumer.Deliver(s.port, t.WithParam(elem))
	}
}

// Channel is an unbounded, append-only stream of tuples with independent
// subscribers. Every subscriber observes a single producer's tuples in
// emission order.
type Channel struct {
	name     string
	producer string

	mu      sync.Mutex
	sealed  bool
	history []Tuple
	subs    []*Subscription
}

// New creates a channel. An empty producer marks the root source.
func New(name, producer string) *Channel {
	return &Channel{name: name, producer: producer}
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Producer returns the producing stage name, empty for the root source.
func (c *Channel) Producer() string { return c.producer }

// Subscribe registers a consumer port. Subscriptions must be made before
// the first Emit.
func (c *Channel) Subscribe(consumer Consumer, port int, opts ...SubscribeOption) (*Subscription, error) {
	if consumer == nil {
		return nil, fmt.Errorf("channel %q: nil consumer", c.name)
	}
	sub := &Subscription{
		channel:   c,
		consumer:  consumer,
		port:      port,
		predicate: Always{},
	}
	for _, opt := range opts {
		opt(sub)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return nil, fmt.Errorf("channel %q: %w", c.name, ErrSealed)
	}
	c.subs = append(c.subs, sub)
	return sub, nil
}

// Emit appends t and offers it to every subscription in subscription order.
func (c *Channel) Emit(t Tuple) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	c.history = append(c.history, t)
	for _, sub := range c.subs {
		sub.offer(t)
	}
}

// Subscriptions returns the channel's subscriptions in registration order.
func (c *Channel) Subscriptions() []*Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Subscription(nil), c.subs...)
}

// History returns every tuple emitted so far.
func (c *Channel) History() []Tuple {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Tuple(nil), c.history...)
}

// Len returns the number of emitted tuples.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}
