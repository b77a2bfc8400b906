// Package service implements the control, log and session use-cases behind
// the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/telhawk-systems/homeids/internal/authz"
	"github.com/telhawk-systems/homeids/internal/command"
	"github.com/telhawk-systems/homeids/internal/eventlog"
	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/messaging"
	"github.com/telhawk-systems/homeids/internal/models"
	"github.com/telhawk-systems/homeids/internal/session"
)

var (
	// ErrBrokerUnavailable is returned when a command cannot reach the broker.
	ErrBrokerUnavailable = errors.New("message broker unavailable")
	// ErrInvalidCredentials is returned for a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRequest is returned for missing or malformed arguments.
	ErrInvalidRequest = errors.New("invalid request")
)

// MaxLogLimit caps the number of records returned by one query.
const MaxLogLimit = 1000

// DefaultDemoPassword is accepted for any username unless overridden.
const DefaultDemoPassword = "demo"

// Dependencies wires the service to its collaborators.
type Dependencies struct {
	Store     eventlog.Store
	Sink      eventlog.Sink
	Gate      *authz.Gate
	Publisher *command.Publisher
	Broker    *messaging.Broker
	Sessions  session.Store
	Catalog   *models.DeviceCatalog
	Access    authz.AccessList
	Logger    *logging.Logger
}

// Config holds service settings.
type Config struct {
	DemoPassword string
}

type Service struct {
	deps Dependencies
	cfg  Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if cfg.DemoPassword == "" {
		cfg.DemoPassword = DefaultDemoPassword
	}
	return &Service{deps: deps, cfg: cfg}
}

// ControlDevice authorizes and publishes a control command. Every accepted
// command is recorded, identical ones included.
func (s *Service) ControlDevice(ctx context.Context, user, device, action string) error {
	if device == "" || action == "" {
		return fmt.Errorf("%w: device and action are required", ErrInvalidRequest)
	}

	if err := s.deps.Gate.Authorize(ctx, user, device, action); err != nil {
		return err
	}

	if !s.deps.Broker.IsConnected() {
		return ErrBrokerUnavailable
	}

	topic, err := s.deps.Publisher.Publish(ctx, device, user, action)
	switch {
	case errors.Is(err, messaging.ErrNotConnected):
		return ErrBrokerUnavailable
	case errors.Is(err, command.ErrInvalidDevice):
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	case err != nil:
		s.deps.Logger.Error("failed to publish command",
			logging.Device(device), logging.User(user), logging.Error(err))
		return fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}

	s.deps.Sink.Record(ctx, models.LogEvent{
		Message:  fmt.Sprintf("Device control command sent: %s -> %s", device, action),
		LogType:  models.LogTypeDeviceUpdate,
		Source:   topic,
		Device:   device,
		User:     user,
		Severity: models.SeverityInfo,
	})
	return nil
}

// QueryLogs returns records matching f, newest first. A non-positive limit
// selects eventlog.DefaultLimit; larger limits are capped at MaxLogLimit.
func (s *Service) QueryLogs(ctx context.Context, f eventlog.Filter) ([]models.LogEvent, error) {
	f.Limit = clampLimit(f.Limit, eventlog.DefaultLimit)
	return s.deps.Store.Query(ctx, f)
}

// AttackLogs returns ATTACK records, newest first.
func (s *Service) AttackLogs(ctx context.Context, limit int) ([]models.LogEvent, error) {
	return s.deps.Store.Query(ctx, eventlog.AttackFilter(clampLimit(limit, eventlog.DefaultAttackLimit)))
}

// ClearLogs deletes every record and then records who did it.
func (s *Service) ClearLogs(ctx context.Context, user string) (int64, error) {
	n, err := s.deps.Store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	s.deps.Sink.Record(ctx, models.LogEvent{
		Message:  fmt.Sprintf("Logs cleared by %s", user),
		LogType:  models.LogTypeDefense,
		User:     user,
		Severity: models.SeverityInfo,
	})
	return n, nil
}

// DeviceAccess is a catalogue entry annotated with the caller's permission.
type DeviceAccess struct {
	models.Device
	Controllable bool `json:"controllable"`
}

// Devices lists the catalogue with per-user controllability.
func (s *Service) Devices(user string) []DeviceAccess {
	devices := s.deps.Catalog.List()
	out := make([]DeviceAccess, 0, len(devices))
	for _, d := range devices {
		out = append(out, DeviceAccess{Device: d, Controllable: s.deps.Access.Allows(user, d.Name)})
	}
	return out
}

// Login accepts any non-empty username with the demo password.
func (s *Service) Login(ctx context.Context, username, password string) (*session.Session, error) {
	if username == "" || password != s.cfg.DemoPassword {
		s.deps.Sink.Record(ctx, models.LogEvent{
			Message:  fmt.Sprintf("Failed login attempt for user %s", username),
			LogType:  models.LogTypeAuth,
			User:     username,
			Severity: models.SeverityWarning,
		})
		return nil, ErrInvalidCredentials
	}

	sess, err := s.deps.Sessions.Create(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.deps.Sink.Record(ctx, models.LogEvent{
		Message:  fmt.Sprintf("User %s logged in", username),
		LogType:  models.LogTypeAuth,
		User:     username,
		Severity: models.SeverityInfo,
	})
	return sess, nil
}

// Logout ends the session. Unknown sessions are not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	sess, err := s.deps.Sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.deps.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.deps.Sink.Record(ctx, models.LogEvent{
		Message:  fmt.Sprintf("User %s logged out", sess.Username),
		LogType:  models.LogTypeAuth,
		User:     sess.Username,
		Severity: models.SeverityInfo,
	})
	return nil
}

// Session resolves a session ID.
func (s *Service) Session(ctx context.Context, sessionID string) (*session.Session, error) {
	return s.deps.Sessions.Get(ctx, sessionID)
}

// ResolveUser maps a session ID to its username.
func (s *Service) ResolveUser(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.Username, nil
}

// Health summarises broker and store health.
type Health struct {
	Status          string                 `json:"status"`
	BrokerConnected bool                   `json:"broker_connected"`
	Broker          messaging.HealthStatus `json:"broker"`
	Database        string                 `json:"database"`
}

// Health reports component status. The service is "healthy" when the log
// store answers; a missing broker only degrades it.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Status: "healthy", Database: "ok"}

	h.Broker = messaging.CheckHealth(s.deps.Broker)
	h.BrokerConnected = h.Broker.Connected

	if err := s.deps.Store.Ping(ctx); err != nil {
		h.Database = err.Error()
		h.Status = "unhealthy"
	} else if !h.BrokerConnected {
		h.Status = "degraded"
	}
	return h
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLogLimit {
		return MaxLogLimit
	}
	return limit
}
