// Package memory provides an in-process messaging.Client for tests and
// broker-less development.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/telhawk-systems/homeids/internal/messaging"
)

// Bus is an in-process broker. Delivery is synchronous: Publish blocks until
// every matching subscriber has accepted the message or unsubscribed.
type Bus struct {
	mu        sync.Mutex
	connected bool
	subs      []*subscription
	published []*messaging.Message
}

// NewBus returns a connected Bus.
func NewBus() *Bus {
	return &Bus{connected: true}
}

// Dialer returns a messaging.Dialer that always yields b.
func (b *Bus) Dialer() messaging.Dialer {
	return func(context.Context) (messaging.Client, error) {
		return b, nil
	}
}

// FailingDialer returns a messaging.Dialer that always fails with err.
func FailingDialer(err error) messaging.Dialer {
	if err == nil {
		err = errors.New("connection refused")
	}
	return func(context.Context) (messaging.Client, error) {
		return nil, err
	}
}

// SetConnected simulates a connection drop or recovery.
func (b *Bus) SetConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}

func (b *Bus) Publish(ctx context.Context, topic string, data []byte) error {
	if _, err := messaging.TopicToSubject(topic); err != nil {
		return err
	}

	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return messaging.ErrNotConnected
	}
	msg := &messaging.Message{Topic: topic, Data: append([]byte(nil), data...), Timestamp: time.Now()}
	b.published = append(b.published, msg)
	var targets []*subscription
	for _, s := range b.subs {
		if Match(s.topic, topic) {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- msg:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Bus) SubscribeChan(topic string, ch chan<- *messaging.Message) (messaging.Subscription, error) {
	if _, err := messaging.TopicToSubject(topic); err != nil {
		return nil, err
	}

	s := &subscription{bus: b, topic: topic, ch: ch, done: make(chan struct{})}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s, nil
}

// Published returns a copy of every message accepted by Publish.
func (b *Bus) Published() []*messaging.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*messaging.Message(nil), b.published...)
}

func (b *Bus) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *Bus) RTT() (time.Duration, error) {
	if !b.IsConnected() {
		return 0, messaging.ErrNotConnected
	}
	return time.Microsecond, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.connected = false
	b.mu.Unlock()

	for _, s := range subs {
		s.closeDone()
	}
	return nil
}

func (b *Bus) remove(target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == target {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

type subscription struct {
	bus   *Bus
	topic string
	ch    chan<- *messaging.Message
	done  chan struct{}
	once  sync.Once
}

func (s *subscription) Unsubscribe() error {
	s.bus.remove(s)
	s.closeDone()
	return nil
}

func (s *subscription) closeDone() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscription) Topic() string { return s.topic }

func (s *subscription) IsValid() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Match reports whether topic matches filter, where "+" matches one segment
// and a trailing "#" matches any remaining segments.
func Match(filter, topic string) bool {
	fs := strings.Split(strings.TrimPrefix(filter, "/"), "/")
	ts := strings.Split(strings.TrimPrefix(topic, "/"), "/")

	for i, f := range fs {
		if f == "#" {
			return len(ts) > i
		}
		if i >= len(ts) {
			return false
		}
		if f != "+" && f != ts[i] {
			return false
		}
	}
	return len(fs) == len(ts)
}
