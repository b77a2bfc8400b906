// Package command publishes device control commands.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/telhawk-systems/homeids/internal/messaging"
	"github.com/telhawk-systems/homeids/internal/metrics"
)

// ErrInvalidDevice is returned for device ids that are not a single topic segment.
var ErrInvalidDevice = errors.New("invalid device id")

// Command is the wire form of a control command.
type Command struct {
	Action string `json:"action"`
	User   string `json:"user"`
}

// Publisher sends commands to /devices/<id>. Delivery is fire-and-forget.
type Publisher struct {
	pub messaging.Publisher
}

// NewPublisher creates a Publisher on top of pub.
func NewPublisher(pub messaging.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// Publish sends action for device on behalf of user and returns the topic used.
func (p *Publisher) Publish(ctx context.Context, device, user, action string) (string, error) {
	if !messaging.ValidDeviceID(device) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDevice, device)
	}

	data, err := json.Marshal(Command{Action: action, User: user})
	if err != nil {
		return "", fmt.Errorf("marshal command: %w", err)
	}

	topic := messaging.DeviceTopic(device)
	if err := p.pub.Publish(ctx, topic, data); err != nil {
		metrics.CommandsPublished.WithLabelValues(device, "error").Inc()
		return topic, fmt.Errorf("publish command to %s: %w", topic, err)
	}
	metrics.CommandsPublished.WithLabelValues(device, "ok").Inc()
	return topic, nil
}
