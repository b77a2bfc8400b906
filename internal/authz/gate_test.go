package authz

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/homeids/internal/eventlog"
	"github.com/telhawk-systems/homeids/internal/logging"
	"github.com/telhawk-systems/homeids/internal/metrics"
	"github.com/telhawk-systems/homeids/internal/models"
)

func newGate(t *testing.T, acl AccessList) (*Gate, *eventlog.MemoryStore) {
	t.Helper()
	store := eventlog.NewMemoryStore()
	gate, err := NewGate(acl, eventlog.NewRecorder(store, logging.Discard()), logging.Discard())
	require.NoError(t, err)
	return gate, store
}

func TestAccessList(t *testing.T) {
	acl := DefaultAccessList()

	assert.True(t, acl.Allows("user1", "lock"))
	assert.True(t, acl.Allows("user2", "light1"))
	assert.False(t, acl.Allows("user2", "lock"))
	assert.False(t, acl.Allows("mallory", "light1"))

	assert.Equal(t, []string{"light1", "light2", "lock", "thermostat"}, acl.Devices("user1"))
	assert.Empty(t, acl.Devices("mallory"))
	assert.Equal(t, []string{"user1", "user2"}, acl.Users())
}

func TestGate_Authorize(t *testing.T) {
	gate, _ := newGate(t, DefaultAccessList())
	ctx := context.Background()

	tests := []struct {
		name    string
		user    string
		device  string
		wantErr bool
	}{
		{"user1 light1", "user1", "light1", false},
		{"user1 lock", "user1", "lock", false},
		{"user1 thermostat", "user1", "thermostat", false},
		{"user2 light1", "user2", "light1", false},
		{"user2 lock", "user2", "lock", true},
		{"user2 thermostat", "user2", "thermostat", true},
		{"unknown user", "mallory", "light1", true},
		{"unknown device", "user1", "garage", true},
		{"empty user", "", "light1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(ctx, tt.user, tt.device, "on")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthorized)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGate_DenialIsRecorded(t *testing.T) {
	gate, store := newGate(t, DefaultAccessList())
	ctx := context.Background()

	require.ErrorIs(t, gate.Authorize(ctx, "user2", "lock", "unlocked"), ErrUnauthorized)

	got, err := store.Query(ctx, eventlog.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.LogTypeAttack, got[0].LogType)
	assert.Equal(t, models.SeverityWarning, got[0].Severity)
	assert.Equal(t, "User user2 attempted unauthorized control of lock", got[0].Message)
	assert.Equal(t, "user2", got[0].User)
	assert.Equal(t, "lock", got[0].Device)
}

func TestGate_AllowIsNotRecorded(t *testing.T) {
	gate, store := newGate(t, DefaultAccessList())
	ctx := context.Background()

	require.NoError(t, gate.Authorize(ctx, "user1", "lock", "locked"))
	require.NoError(t, gate.Authorize(ctx, "user1", "lock", "locked"))

	got, err := store.Query(ctx, eventlog.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGate_EmptyAccessList(t *testing.T) {
	gate, _ := newGate(t, AccessList{})
	assert.ErrorIs(t, gate.Authorize(context.Background(), "user1", "light1", "on"), ErrUnauthorized)
}

func TestGate_DenialMetricLabels(t *testing.T) {
	gate, _ := newGate(t, DefaultAccessList())
	ctx := context.Background()

	lock := metrics.AuthorizationDenials.WithLabelValues("lock")
	unknown := metrics.AuthorizationDenials.WithLabelValues(UnknownDeviceLabel)
	lockBefore := testutil.ToFloat64(lock)
	unknownBefore := testutil.ToFloat64(unknown)

	for _, device := range []string{"lock", "garage-door", "toaster-1", "toaster-2"} {
		require.ErrorIs(t, gate.Authorize(ctx, "user2", device, "on"), ErrUnauthorized)
	}

	assert.Equal(t, lockBefore+1, testutil.ToFloat64(lock))
	assert.Equal(t, unknownBefore+3, testutil.ToFloat64(unknown))
	assert.Equal(t, "light1", gate.deviceLabel("light1"))
	assert.Equal(t, UnknownDeviceLabel, gate.deviceLabel("toaster-1"))
}
