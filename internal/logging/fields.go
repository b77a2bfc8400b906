package logging

import "log/slog"

// Common field names for consistent logging across components.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldUser      = "user"
	FieldDevice    = "device"
	FieldTopic     = "topic"
	FieldAction    = "action"
	FieldLogType   = "log_type"
	FieldSeverity  = "severity"
	FieldReason    = "reason"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
)

func Service(name string) slog.Attr { return slog.String(FieldService, name) }

func User(name string) slog.Attr { return slog.String(FieldUser, name) }

func Device(id string) slog.Attr { return slog.String(FieldDevice, id) }

func Topic(topic string) slog.Attr { return slog.String(FieldTopic, topic) }

func Action(action string) slog.Attr { return slog.String(FieldAction, action) }

func LogType(t string) slog.Attr { return slog.String(FieldLogType, t) }

func Severity(s string) slog.Attr { return slog.String(FieldSeverity, s) }

func Reason(r string) slog.Attr { return slog.String(FieldReason, r) }

func Method(method string) slog.Attr { return slog.String(FieldMethod, method) }

func Path(path string) slog.Attr { return slog.String(FieldPath, path) }

func Status(code int) slog.Attr { return slog.Int(FieldStatus, code) }

// Duration returns an attribute for a duration in milliseconds.
func Duration(ms int64) slog.Attr { return slog.Int64(FieldDuration, ms) }

// Error returns an attribute for err. A nil error is rendered as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
