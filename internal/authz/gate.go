package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/telhawk-systems/homeids/internal/eventlog"
	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/metrics"
	"github.com/telhawk-systems/homeids/internal/models"
)

// ErrUnauthorized is returned when a user may not control a device.
var ErrUnauthorized = errors.New("unauthorized access")

// aclModel grants access on an exact (user, device) match.
const aclModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj
`

// Gate checks device control requests against an access list. Denials are
// recorded as ATTACK events.
type Gate struct {
	enforcer *casbin.SyncedEnforcer
	known    map[string]struct{} // devices named anywhere in the access list
	sink     eventlog.Sink
	logger   *logging.Logger
}

// UnknownDeviceLabel is the metric label for devices outside the access list.
const UnknownDeviceLabel = "unknown"

// NewGate builds the enforcer from acl.
func NewGate(acl AccessList, sink eventlog.Sink, logger *logging.Logger) (*Gate, error) {
	if logger == nil {
		logger = logging.Default()
	}

	m, err := model.NewModelFromString(aclModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load access model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	known := make(map[string]struct{})
	for _, user := range acl.Users() {
		for _, device := range acl.Devices(user) {
			known[device] = struct{}{}
			if _, err := enforcer.AddPolicy(user, device); err != nil {
				return nil, fmt.Errorf("failed to add policy %s/%s: %w", user, device, err)
			}
		}
	}

	return &Gate{enforcer: enforcer, known: known, sink: sink, logger: logger}, nil
}

// Authorize returns nil if user may send action to device. Otherwise it
// records the attempt and returns ErrUnauthorized.
func (g *Gate) Authorize(ctx context.Context, user, device, action string) error {
	allowed, err := g.enforcer.Enforce(user, device)
	if err != nil {
		g.logger.Error("access check failed",
			logging.User(user), logging.Device(device), logging.Error(err))
		allowed = false
	}
	if allowed {
		return nil
	}

	metrics.AuthorizationDenials.WithLabelValues(g.deviceLabel(device)).Inc()
	g.logger.WithContext(ctx).Warn("unauthorized device control",
		logging.User(user), logging.Device(device), logging.Action(action))

	g.sink.Record(ctx, models.LogEvent{
		Message:  fmt.Sprintf("User %s attempted unauthorized control of %s", user, device),
		LogType:  models.LogTypeAttack,
		Device:   device,
		User:     user,
		Severity: models.SeverityWarning,
	})
	return ErrUnauthorized
}

// deviceLabel bounds metric cardinality to the configured devices.
func (g *Gate) deviceLabel(device string) string {
	if _, ok := g.known[device]; ok {
		return device
	}
	return UnknownDeviceLabel
}
