// Package ingest consumes device telemetry from the broker, classifies it and
// records the outcome.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/telhawk-systems/homeids/internal/alert"
	"github.com/telhawk-systems/homeids/internal/detection"
	"github.com/telhawk-systems/homeids/internal/eventlog"
	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/messaging"
	"github.com/telhawk-systems/homeids/internal/metrics"
	"github.com/telhawk-systems/homeids/internal/models"
	"github.com/telhawk-systems/homeids/internal/payload"
)

// DefaultQueueSize bounds the number of undelivered messages held between the
// transport and the loop.
const DefaultQueueSize = 256

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("ingestion loop already started")

// Stats summarises loop activity.
type Stats struct {
	Received    int64     `json:"received"`
	Attacks     int64     `json:"attacks"`
	Failures    int64     `json:"failures"`
	LastMessage time.Time `json:"last_message,omitempty"`
}

// Loop is the single-consumer ingestion pipeline.
type Loop struct {
	broker  *messaging.Broker
	engine  *detection.Engine
	sink    eventlog.Sink
	alerter *alert.Alerter
	catalog *models.DeviceCatalog
	logger  *logging.Logger

	topic     string
	queueSize int

	mu      sync.Mutex
	started bool
	stats   Stats
	wg      sync.WaitGroup
}

// Option customizes a Loop.
type Option func(*Loop)

// WithQueueSize sets the capacity of the delivery channel.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithTopic overrides the subscription filter (default "/devices/#").
func WithTopic(topic string) Option {
	return func(l *Loop) { l.topic = topic }
}

// WithCatalog lets benign telemetry update the device catalogue's display state.
func WithCatalog(c *models.DeviceCatalog) Option {
	return func(l *Loop) { l.catalog = c }
}

// New creates a Loop. Start must be called to begin consuming.
func New(broker *messaging.Broker, engine *detection.Engine, sink eventlog.Sink, logger *logging.Logger, opts ...Option) *Loop {
	if logger == nil {
		logger = logging.Default()
	}
	l := &Loop{
		broker:    broker,
		engine:    engine,
		sink:      sink,
		alerter:   alert.New(sink),
		logger:    logger,
		topic:     messaging.DevicesWildcard,
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start connects, subscribes and launches the consumer goroutine. A connect
// failure is logged and returned; the loop stays disconnected and does not
// retry. The consumer stops when ctx is cancelled.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	l.mu.Unlock()

	if err := l.broker.Connect(ctx); err != nil {
		l.logger.Error("failed to connect to message broker", logging.Error(err))
		l.resetStarted()
		return fmt.Errorf("connect: %w", err)
	}

	queue := make(chan *messaging.Message, l.queueSize)
	sub, err := l.broker.SubscribeChan(l.topic, queue)
	if err != nil {
		l.logger.Error("failed to subscribe", logging.Topic(l.topic), logging.Error(err))
		l.resetStarted()
		return fmt.Errorf("subscribe: %w", err)
	}

	l.logger.Info("subscribed to device telemetry", logging.Topic(l.topic))
	l.sink.Record(ctx, models.LogEvent{
		Message:  "Connected to message broker",
		LogType:  models.LogTypeDeviceUpdate,
		Severity: models.SeverityInfo,
	})

	l.wg.Add(1)
	go l.run(ctx, queue, sub)
	return nil
}

func (l *Loop) resetStarted() {
	l.mu.Lock()
	l.started = false
	l.mu.Unlock()
}

// Wait blocks until the consumer goroutine has exited.
func (l *Loop) Wait() {
	l.wg.Wait()
}

func (l *Loop) run(ctx context.Context, queue <-chan *messaging.Message, sub messaging.Subscription) {
	defer l.wg.Done()
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			l.logger.Warn("failed to unsubscribe", logging.Topic(l.topic), logging.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping ingestion loop")
			return
		case msg := <-queue:
			metrics.QueueDepth.Set(float64(len(queue)))
			l.HandleMessage(ctx, msg)
		}
	}
}

// HandleMessage classifies and records one message. Faults are recovered,
// logged and counted so that one bad message never stops the loop.
func (l *Loop) HandleMessage(ctx context.Context, msg *messaging.Message) (c detection.Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			l.logger.Error("error processing message",
				logging.Topic(topicOf(msg)), logging.Error(err), "stack", string(debug.Stack()))
		}
		if err != nil {
			metrics.ProcessingFailures.Inc()
			l.updateStats(func(s *Stats) { s.Failures++ })
		}
	}()

	if msg == nil {
		return detection.Benign(), errors.New("nil message")
	}

	metrics.MessageBytesTotal.Add(float64(len(msg.Data)))
	l.updateStats(func(s *Stats) {
		s.Received++
		s.LastMessage = time.Now().UTC()
	})

	device := messaging.DeviceFromTopic(msg.Topic)
	p := payload.Parse(msg.Data)
	c = l.engine.Classify(p)

	if c.IsAttack {
		l.recordAttack(ctx, msg.Topic, device, p, c)
		return c, nil
	}

	metrics.MessagesTotal.WithLabelValues("benign").Inc()
	l.sink.Record(ctx, models.LogEvent{
		Message:  fmt.Sprintf("Device update: %s - %s", device, p.Text()),
		LogType:  models.LogTypeDeviceUpdate,
		Source:   msg.Topic,
		Device:   device,
		Severity: models.SeverityInfo,
	})
	l.updateState(device, p)
	return c, nil
}

func (l *Loop) recordAttack(ctx context.Context, topic, device string, p payload.Payload, c detection.Classification) {
	metrics.MessagesTotal.WithLabelValues("attack").Inc()
	metrics.AttacksDetected.WithLabelValues(c.Rule, string(c.Severity)).Inc()
	l.updateStats(func(s *Stats) { s.Attacks++ })

	l.sink.Record(ctx, models.LogEvent{
		Message:  fmt.Sprintf("ATTACK DETECTED: %s. Device: %s, Payload: %s", c.Reason, device, p.Text()),
		LogType:  models.LogTypeAttack,
		Source:   topic,
		Device:   device,
		Severity: c.Severity,
	})
	l.alerter.Raise(ctx, c, device, topic)
}

func (l *Loop) updateState(device string, p payload.Payload) {
	if l.catalog == nil {
		return
	}
	s, ok := p.(payload.Structured)
	if !ok {
		return
	}
	state := s.String("state")
	if state == "" {
		state = s.String("action")
	}
	l.catalog.SetState(device, state)
}

func (l *Loop) updateStats(fn func(*Stats)) {
	l.mu.Lock()
	fn(&l.stats)
	l.mu.Unlock()
}

// Stats returns a snapshot of loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func topicOf(msg *messaging.Message) string {
	if msg == nil {
		return ""
	}
	return msg.Topic
}
