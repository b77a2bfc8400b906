package messaging

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotConnected is returned when the broker has no live connection.
var ErrNotConnected = errors.New("message broker not connected")

// Broker owns the process-wide broker connection. The ingestion loop, the
// command publisher and health checks share one Broker.
type Broker struct {
	dial Dialer

	mu     sync.RWMutex
	client Client
}

// NewBroker creates a disconnected Broker that connects with dial.
func NewBroker(dial Dialer) *Broker {
	return &Broker{dial: dial}
}

// Connect dials the broker once. It is a no-op when already connected.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return nil
	}
	if b.dial == nil {
		return ErrNotConnected
	}

	client, err := b.dial(ctx)
	if err != nil {
		return err
	}
	b.client = client
	return nil
}

// Client returns the live client, or nil before Connect succeeds.
func (b *Broker) Client() Client {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.client
}

// IsConnected reports whether the underlying client is currently connected.
func (b *Broker) IsConnected() bool {
	c := b.Client()
	return c != nil && c.IsConnected()
}

// Publish sends data on topic, failing fast with ErrNotConnected.
func (b *Broker) Publish(ctx context.Context, topic string, data []byte) error {
	c := b.Client()
	if c == nil || !c.IsConnected() {
		return ErrNotConnected
	}
	return c.Publish(ctx, topic, data)
}

// SubscribeChan subscribes through the live client.
func (b *Broker) SubscribeChan(topic string, ch chan<- *Message) (Subscription, error) {
	c := b.Client()
	if c == nil {
		return nil, ErrNotConnected
	}
	return c.SubscribeChan(topic, ch)
}

// RTT measures a round trip through the live client.
func (b *Broker) RTT() (time.Duration, error) {
	c := b.Client()
	if c == nil {
		return 0, ErrNotConnected
	}
	return c.RTT()
}

// Close releases the connection. The Broker may be reconnected afterwards.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}
