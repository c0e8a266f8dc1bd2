// Package mavbus is an in-process publish/subscribe bus with last-value
// semantics: a topic stores only its most recent message, and each
// subscription tracks whether it has seen that message yet. Adapters drain
// topics, they never mutate them.
package mavbus

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// Topic is a typed handle for a named topic.
type Topic[T any] struct {
	name string
}

// NewTopic creates a typed handle for the topic with the given name.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the topic name.
func (t Topic[T]) Name() string {
	return t.name
}

type topicState struct {
	latest any
	valid  bool
	subs   []*subCore
}

type subCore struct {
	ws          *WaitSet
	updated     bool
	minInterval time.Duration
	lastAccept  time.Time
}

// Bus routes messages between publishers and subscriptions. Topics must be
// registered before use; publishing or subscribing to an unknown topic is an
// error.
type Bus struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger golog.Logger
	topics map[string]*topicState
}

// NewBus returns an empty bus.
func NewBus(logger golog.Logger) *Bus {
	return NewBusWithClock(logger, clock.New())
}

// NewBusWithClock returns an empty bus using the given clock for rate
// limiting decisions.
func NewBusWithClock(logger golog.Logger, c clock.Clock) *Bus {
	return &Bus{
		clock:  c,
		logger: logger,
		topics: make(map[string]*topicState),
	}
}

// Register adds the named topics to the bus. Registering an existing topic is
// a no-op.
func (b *Bus) Register(names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		if _, ok := b.topics[name]; !ok {
			b.topics[name] = &topicState{}
		}
	}
}

// Publish stores a message as the topic's latest value and notifies
// subscriptions, subject to each subscription's minimum interval.
func Publish[T any](b *Bus, t Topic[T], value T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.topics[t.name]
	if !ok {
		return errors.Errorf("publish to unregistered topic %q", t.name)
	}
	state.latest = value
	state.valid = true

	now := b.clock.Now()
	for _, sub := range state.subs {
		if sub.minInterval > 0 && now.Sub(sub.lastAccept) < sub.minInterval {
			b.logger.Debugf("rate limited notification on %q", t.name)
			continue
		}
		sub.lastAccept = now
		sub.updated = true
		if sub.ws != nil {
			sub.ws.notify()
		}
	}
	return nil
}

// Subscription is one subscriber's view of a topic.
type Subscription[T any] struct {
	bus   *Bus
	topic string
	core  *subCore
}

// Subscribe attaches a new subscription to the topic. A non-nil WaitSet is
// woken whenever the subscription observes a new message; pass nil for
// subscriptions that are only ever read on demand.
func Subscribe[T any](b *Bus, t Topic[T], ws *WaitSet) (*Subscription[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.topics[t.name]
	if !ok {
		return nil, errors.Errorf("subscribe to unregistered topic %q", t.name)
	}
	core := &subCore{ws: ws}
	state.subs = append(state.subs, core)
	return &Subscription[T]{bus: b, topic: t.name, core: core}, nil
}

// Updated reports whether a message arrived since the last Copy.
func (s *Subscription[T]) Updated() bool {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.core.updated
}

// Copy returns the topic's latest value and marks it seen. The second return
// is false when nothing was ever published. The value is always the newest
// one on the topic, which may be newer than the message that set the updated
// flag: rate limiting suppresses observations, never freshness.
func (s *Subscription[T]) Copy() (T, bool) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	s.core.updated = false
	state := s.bus.topics[s.topic]
	if !state.valid {
		var zero T
		return zero, false
	}
	return state.latest.(T), true
}

// SetMinInterval rate-limits the subscription: messages arriving less than d
// after the previously observed one do not set the updated flag or wake the
// WaitSet for this subscription. They still become the topic's latest value,
// so a Copy triggered by an earlier message delivers them anyway.
func (s *Subscription[T]) SetMinInterval(d time.Duration) {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.core.minInterval = d
}

// Close detaches the subscription from its topic.
func (s *Subscription[T]) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	state, ok := s.bus.topics[s.topic]
	if !ok {
		return errors.Errorf("subscription topic %q no longer registered", s.topic)
	}
	for i, sub := range state.subs {
		if sub == s.core {
			state.subs = append(state.subs[:i], state.subs[i+1:]...)
			return nil
		}
	}
	return nil
}
