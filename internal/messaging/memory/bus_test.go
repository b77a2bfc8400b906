package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/homeids/internal/messaging"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		filter, topic string
		expected      bool
	}{
		{"/devices/#", "/devices/light1", true},
		{"/devices/#", "/devices/a/b", true},
		{"/devices/#", "/devices", false},
		{"/devices/+", "/devices/lock", true},
		{"/devices/+", "/devices/lock/x", false},
		{"/devices/lock", "/devices/lock", true},
		{"/devices/lock", "/devices/light1", false},
	}
	for _, tt := range tests {
		t.Run(tt.filter+" "+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.expected, Match(tt.filter, tt.topic))
		})
	}
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	ch := make(chan *messaging.Message, 4)

	sub, err := bus.SubscribeChan(messaging.DevicesWildcard, ch)
	require.NoError(t, err)
	assert.True(t, sub.IsValid())

	require.NoError(t, bus.Publish(context.Background(), "/devices/light1", []byte("on")))

	select {
	case msg := <-ch:
		assert.Equal(t, "/devices/light1", msg.Topic)
		assert.Equal(t, "on", string(msg.Data))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())
	require.NoError(t, bus.Publish(context.Background(), "/devices/light1", []byte("off")))
	assert.Empty(t, ch)
	assert.Len(t, bus.Published(), 2)
}

func TestBus_Disconnected(t *testing.T) {
	bus := NewBus()
	bus.SetConnected(false)

	err := bus.Publish(context.Background(), "/devices/lock", []byte("x"))
	assert.ErrorIs(t, err, messaging.ErrNotConnected)
	_, err = bus.RTT()
	assert.ErrorIs(t, err, messaging.ErrNotConnected)
}

func TestBus_PublishRespectsContextWhenFull(t *testing.T) {
	bus := NewBus()
	ch := make(chan *messaging.Message)
	_, err := bus.SubscribeChan(messaging.DevicesWildcard, ch)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(ctx, "/devices/lock", []byte("x")), context.DeadlineExceeded)
}
