// Package alert raises DEFENSE records for detected attacks.
package alert

import (
	"context"
	"fmt"

	"github.com/telhawk-systems/homeids/internal/detection"
	"github.com/telhawk-systems/homeids/internal/eventlog"
	"github.com/telhawk-systems/homeids/internal/models"
)

// Alerter writes one DEFENSE record per positive classification.
type Alerter struct {
	sink eventlog.Sink
}

// New creates an Alerter writing to sink.
func New(sink eventlog.Sink) *Alerter {
	return &Alerter{sink: sink}
}

// Raise records the alert for c. Benign classifications are ignored.
func (a *Alerter) Raise(ctx context.Context, c detection.Classification, device, topic string) {
	if !c.IsAttack {
		return
	}
	a.sink.Record(ctx, models.LogEvent{
		Message:  fmt.Sprintf("Attack detected: %s", c.Reason),
		LogType:  models.LogTypeDefense,
		Source:   topic,
		Device:   device,
		Severity: c.Severity,
	})
}
