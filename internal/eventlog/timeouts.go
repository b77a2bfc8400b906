package eventlog

import (
	"context"
	"time"
)

// Default per-statement timeouts for the Postgres store.
const (
	DefaultQueryTimeout = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultClearTimeout = 30 * time.Second
)

// Timeouts bounds each store statement. Zero fields fall back to the defaults.
type Timeouts struct {
	Query time.Duration
	Write time.Duration
	Clear time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Query <= 0 {
		t.Query = DefaultQueryTimeout
	}
	if t.Write <= 0 {
		t.Write = DefaultWriteTimeout
	}
	if t.Clear <= 0 {
		t.Clear = DefaultClearTimeout
	}
	return t
}

func (t Timeouts) query(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, t.Query)
}

func (t Timeouts) write(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, t.Write)
}

func (t Timeouts) clear(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, t.Clear)
}
