// Package models provides the data models shared across homeids components.
package models

import (
	"strings"
	"time"
)

// LogType classifies an audit record.
type LogType string

const (
	LogTypeAttack       LogType = "ATTACK"
	LogTypeDefense      LogType = "DEFENSE"
	LogTypeDeviceUpdate LogType = "DEVICE_UPDATE"
	LogTypeAuth         LogType = "AUTH"
)

// ParseLogType converts a case-insensitive string to a LogType.
func ParseLogType(s string) (LogType, bool) {
	switch LogType(strings.ToUpper(strings.TrimSpace(s))) {
	case LogTypeAttack:
		return LogTypeAttack, true
	case LogTypeDefense:
		return LogTypeDefense, true
	case LogTypeDeviceUpdate:
		return LogTypeDeviceUpdate, true
	case LogTypeAuth:
		return LogTypeAuth, true
	default:
		return "", false
	}
}

// Severity is the operational urgency of an event (INFO < WARNING < CRITICAL).
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the ordinal position of the severity. Unknown values rank below INFO.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// LogEvent is an immutable audit record. ID is assigned by the store on append.
type LogEvent struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	LogType   LogType   `json:"log_type"`
	Source    string    `json:"source"`   // Originating topic, if any
	Device    string    `json:"device"`   // Device identifier, if any
	User      string    `json:"user"`     // Acting principal, if any
	Severity  Severity  `json:"severity"` // Defaults to INFO when empty
}

// IsAttack reports whether the record describes an attack.
func (e *LogEvent) IsAttack() bool {
	return e.LogType == LogTypeAttack
}
