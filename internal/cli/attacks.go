package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/telhawk-systems/homeids/internal/messaging"
)

// Step is one message an attack pattern sends, followed by Delay.
type Step struct {
	Data  []byte
	Delay time.Duration
}

// Pattern is a simulated attack published straight onto the device
// namespace, bypassing the authorization gate.
type Pattern interface {
	Name() string
	Description() string
	Steps(device string, now time.Time) ([]Step, error)
}

// Registry holds all registered attack patterns
var Registry = make(map[string]Pattern)

// Register adds a pattern to the registry
func Register(p Pattern) {
	Registry[p.Name()] = p
}

// Get retrieves a pattern by name
func Get(name string) (Pattern, bool) {
	p, ok := Registry[name]
	return p, ok
}

// List returns all registered pattern names, sorted.
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(unauthorizedControl{})
	Register(bypassAuth{})
	Register(rapidFire{count: 5, interval: 100 * time.Millisecond})
	Register(malformed{})
}

// RunAttack publishes every step of p to the device topic and returns the
// number of messages sent.
func RunAttack(ctx context.Context, pub messaging.Publisher, p Pattern, device string, now time.Time) (int, error) {
	if !messaging.ValidDeviceID(device) {
		return 0, fmt.Errorf("invalid device %q", device)
	}
	steps, err := p.Steps(device, now)
	if err != nil {
		return 0, fmt.Errorf("failed to build %s attack: %w", p.Name(), err)
	}

	topic := messaging.DeviceTopic(device)
	sent := 0
	for _, s := range steps {
		if err := pub.Publish(ctx, topic, s.Data); err != nil {
			return sent, fmt.Errorf("failed to publish to %s: %w", topic, err)
		}
		sent++
		if s.Delay > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(s.Delay):
			}
		}
	}
	return sent, nil
}

func timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}

type unauthorizedControl struct{}

func (unauthorizedControl) Name() string { return "unauthorized" }

func (unauthorizedControl) Description() string {
	return "Control a device without authorization (attack flag)"
}

func (unauthorizedControl) Steps(device string, now time.Time) ([]Step, error) {
	action := "on"
	if strings.Contains(device, "lock") {
		action = "unlocked"
	}
	data, err := json.Marshal(map[string]any{
		"action":    action,
		"attack":    true,
		"user":      "unauthorized_attacker",
		"timestamp": timestamp(now),
	})
	if err != nil {
		return nil, err
	}
	return []Step{{Data: data}}, nil
}

type bypassAuth struct{}

func (bypassAuth) Name() string { return "bypass" }

func (bypassAuth) Description() string {
	return "Attempt an authentication bypass (bypass_auth flag)"
}

func (bypassAuth) Steps(_ string, now time.Time) ([]Step, error) {
	data, err := json.Marshal(map[string]any{
		"action":      "on",
		"bypass_auth": true,
		"user":        "attacker",
		"timestamp":   timestamp(now),
	})
	if err != nil {
		return nil, err
	}
	return []Step{{Data: data}}, nil
}

type rapidFire struct {
	count    int
	interval time.Duration
}

func (rapidFire) Name() string { return "dos" }

func (r rapidFire) Description() string {
	return fmt.Sprintf("Send %d rapid-fire commands %s apart", r.count, r.interval)
}

func (r rapidFire) Steps(_ string, now time.Time) ([]Step, error) {
	steps := make([]Step, 0, r.count)
	for i := 0; i < r.count; i++ {
		action := "on"
		if i%2 == 1 {
			action = "off"
		}
		data, err := json.Marshal(map[string]any{
			"action":     action,
			"rapid_fire": true,
			"sequence":   i,
			"timestamp":  timestamp(now.Add(time.Duration(i) * r.interval)),
		})
		if err != nil {
			return nil, err
		}
		steps = append(steps, Step{Data: data, Delay: r.interval})
	}
	return steps, nil
}

type malformed struct{}

func (malformed) Name() string { return "malformed" }

func (malformed) Description() string {
	return "Publish a payload that is not valid JSON"
}

func (malformed) Steps(string, time.Time) ([]Step, error) {
	return []Step{{Data: []byte("{invalid json content @#$%}")}}, nil
}
