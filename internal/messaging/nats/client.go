// Package nats provides a NATS implementation of the messaging interfaces.
package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/messaging"
)

// Client implements messaging.Client using NATS.
type Client struct {
	conn   *nats.Conn
	logger *logging.Logger

	mu   sync.Mutex
	subs []*subscription
}

// Config holds NATS client configuration.
type Config struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Name is the client name for connection identification.
	Name string

	// MaxReconnects is the maximum number of reconnection attempts.
	// Use -1 for infinite reconnects.
	MaxReconnects int

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// Timeout is the connection timeout.
	Timeout time.Duration

	// Username for authentication (optional).
	Username string

	// Password for authentication (optional).
	Password string

	// Token for token-based authentication (optional).
	Token string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "homeids",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewClient connects to NATS. The initial connect is attempted once; after
// that the NATS client owns reconnection.
func NewClient(cfg Config, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Default()
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			// A nil error means the connection was closed on purpose.
			if err == nil {
				logger.Info("message broker connection closed")
				return
			}
			logger.Warn("disconnected from message broker", logging.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to message broker", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Warn("message broker async error", "subject", subject, logging.Error(err))
		}),
	}

	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Client{conn: conn, logger: logger}, nil
}

// Dialer returns a messaging.Dialer that connects with cfg.
func Dialer(cfg Config, logger *logging.Logger) messaging.Dialer {
	return func(ctx context.Context) (messaging.Client, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewClient(cfg, logger)
	}
}

// Publish sends data on the subject mapped from topic.
func (c *Client) Publish(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, err := messaging.TopicToSubject(topic)
	if err != nil {
		return err
	}
	return c.conn.Publish(subject, data)
}

// SubscribeChan delivers matching messages into ch. The NATS delivery
// goroutine blocks while ch is full until the subscription is closed.
func (c *Client) SubscribeChan(topic string, ch chan<- *messaging.Message) (messaging.Subscription, error) {
	subject, err := messaging.TopicToSubject(topic)
	if err != nil {
		return nil, err
	}

	s := &subscription{topic: topic, done: make(chan struct{})}
	natsSub, err := c.conn.Subscribe(subject, func(m *nats.Msg) {
		msg := &messaging.Message{
			Topic:     messaging.SubjectToTopic(m.Subject),
			Data:      m.Data,
			Timestamp: time.Now(),
		}
		select {
		case ch <- msg:
		case <-s.done:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	s.natsSub = natsSub

	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()

	return s, nil
}

// IsConnected returns true if connected to NATS.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// RTT measures the round trip to the server.
func (c *Client) RTT() (time.Duration, error) {
	return c.conn.RTT()
}

// Close releases all resources.
func (c *Client) Close() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
	return nil
}

// subscription wraps a NATS subscription.
type subscription struct {
	topic   string
	natsSub *nats.Subscription
	done    chan struct{}
	once    sync.Once
}

func (s *subscription) Unsubscribe() error {
	s.once.Do(func() { close(s.done) })
	if !s.natsSub.IsValid() {
		return nil
	}
	return s.natsSub.Unsubscribe()
}

func (s *subscription) Topic() string {
	return s.topic
}

func (s *subscription) IsValid() bool {
	return s.natsSub.IsValid()
}
