package messaging

import (
	"fmt"
	"time"
)

// HealthStatus represents the health state of a messaging connection.
type HealthStatus struct {
	// Connected indicates if the client is connected.
	Connected bool `json:"connected"`

	// LatencyMS is the round-trip time to the broker in milliseconds.
	LatencyMS float64 `json:"latency_ms"`

	// Error contains any error message if unhealthy.
	Error string `json:"error,omitempty"`
}

// Pinger is the subset of Broker used for health checks.
type Pinger interface {
	IsConnected() bool
	RTT() (time.Duration, error)
}

// CheckHealth reports connectivity and round-trip latency.
func CheckHealth(p Pinger) HealthStatus {
	status := HealthStatus{}

	if p == nil {
		status.Error = "broker is nil"
		return status
	}

	status.Connected = p.IsConnected()
	if !status.Connected {
		status.Error = ErrNotConnected.Error()
		return status
	}

	rtt, err := p.RTT()
	if err != nil {
		status.Error = fmt.Sprintf("health check failed: %v", err)
		return status
	}
	status.LatencyMS = float64(rtt.Microseconds()) / 1000
	return status
}
