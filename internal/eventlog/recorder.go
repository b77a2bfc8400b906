package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/metrics"
	"github.com/telhawk-systems/homeids/internal/models"
)

// Sink accepts audit records. Implementations never fail the caller.
type Sink interface {
	Record(ctx context.Context, e models.LogEvent)
}

// Recorder stamps records, mirrors them to the diagnostic logger and appends
// them to a Store. Write failures are logged and swallowed.
type Recorder struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store, logger *logging.Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Recorder{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record persists e. Timestamps are strictly increasing so that newest-first
// ordering matches append order.
func (r *Recorder) Record(ctx context.Context, e models.LogEvent) {
	if e.Severity == "" {
		e.Severity = models.SeverityInfo
	}
	e.ID = 0
	e.Timestamp = r.stamp()
	e.Message = storableText(e.Message)
	e.Source = storableText(e.Source)
	e.Device = storableText(e.Device)
	e.User = storableText(e.User)

	r.logger.WithContext(ctx).Log(ctx, levelFor(e.Severity),
		fmt.Sprintf("[%s] %s", e.LogType, e.Message),
		logging.LogType(string(e.LogType)),
		logging.Severity(string(e.Severity)),
		logging.Device(e.Device),
		logging.User(e.User),
	)

	if err := r.store.Append(ctx, &e); err != nil {
		metrics.LogWriteFailures.Inc()
		r.logger.Error("failed to write log record",
			logging.LogType(string(e.LogType)),
			logging.Error(err),
		)
		return
	}
	metrics.LogRecordsTotal.WithLabelValues(string(e.LogType)).Inc()
}

func (r *Recorder) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().UTC()
	if !ts.After(r.last) {
		ts = r.last.Add(time.Nanosecond)
	}
	r.last = ts
	return ts
}

// storableText replaces invalid UTF-8 and NUL bytes, both of which Postgres
// rejects in TEXT columns.
func storableText(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.ReplaceAll(s, "\x00", "\uFFFD")
}

func levelFor(s models.Severity) slog.Level {
	switch s {
	case models.SeverityCritical:
		return slog.LevelError
	case models.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
