// Package eventlog persists the append-only audit trail of homeids.
package eventlog

import (
	"context"
	"errors"

	"github.com/telhawk-systems/homeids/internal/models"
)

// Default result limits for log queries.
const (
	DefaultLimit       = 100
	DefaultAttackLimit = 50
)

var (
	// ErrInvalidEvent is returned when an event is missing required fields.
	ErrInvalidEvent = errors.New("invalid log event")
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("log store closed")
)

// Filter narrows a log query. Zero values mean "no constraint"; a Limit of zero
// or less returns every matching record.
type Filter struct {
	LogType models.LogType
	Device  string
	Limit   int
}

// AttackFilter returns the filter used for attack-only queries.
func AttackFilter(limit int) Filter {
	return Filter{LogType: models.LogTypeAttack, Limit: limit}
}

func (f Filter) matches(e *models.LogEvent) bool {
	if f.LogType != "" && e.LogType != f.LogType {
		return false
	}
	if f.Device != "" && e.Device != f.Device {
		return false
	}
	return true
}

// Store is the persistence contract for log records.
// Each operation is atomic on its own; records are never updated.
type Store interface {
	// Append persists e and assigns its ID.
	Append(ctx context.Context, e *models.LogEvent) error
	// Query returns matching records, newest first.
	Query(ctx context.Context, f Filter) ([]models.LogEvent, error)
	// Clear removes every record and reports how many were deleted.
	Clear(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

func validate(e *models.LogEvent) error {
	if e == nil || e.Message == "" {
		return ErrInvalidEvent
	}
	if _, ok := models.ParseLogType(string(e.LogType)); !ok {
		return ErrInvalidEvent
	}
	if e.Severity.Rank() == 0 {
		return ErrInvalidEvent
	}
	return nil
}
