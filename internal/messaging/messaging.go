// Package messaging provides broker-neutral abstractions for device telemetry
// and control traffic. Topics use the slash-delimited device namespace
// ("/devices/<id>"); transports translate them to their own subject syntax.
package messaging

import (
	"context"
	"time"
)

// Message is a payload received from the broker.
type Message struct {
	// Topic is the slash-delimited topic the message was published to.
	Topic string

	// Data is the raw message payload.
	Data []byte

	// Timestamp is when the message was received.
	Timestamp time.Time
}

// Subscription represents an active subscription to a topic.
type Subscription interface {
	// Unsubscribe stops delivery. Deliveries blocked on a full channel are abandoned.
	Unsubscribe() error

	// Topic returns the topic filter this subscription is listening to.
	Topic() string

	// IsValid returns true if the subscription is still active.
	IsValid() bool
}

// Publisher publishes fire-and-forget messages.
type Publisher interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

// Subscriber delivers messages into caller-owned channels.
type Subscriber interface {
	// SubscribeChan delivers every message matching topic into ch. Delivery
	// blocks while ch is full, which pushes backpressure onto the transport.
	SubscribeChan(topic string, ch chan<- *Message) (Subscription, error)
}

// Client combines Publisher and Subscriber with connection management.
type Client interface {
	Publisher
	Subscriber

	// IsConnected returns true if the client is connected to the broker.
	IsConnected() bool

	// RTT measures a round trip to the broker.
	RTT() (time.Duration, error)

	// Close unsubscribes everything and releases the connection.
	Close() error
}

// Dialer opens a new Client.
type Dialer func(ctx context.Context) (Client, error)
