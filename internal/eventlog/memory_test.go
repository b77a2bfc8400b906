package eventlog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/homeids/internal/models"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func event(offset int, logType models.LogType, device string) *models.LogEvent {
	return &models.LogEvent{
		Timestamp: base.Add(time.Duration(offset) * time.Second),
		Message:   fmt.Sprintf("%s %s %d", logType, device, offset),
		LogType:   logType,
		Device:    device,
		Severity:  models.SeverityInfo,
	}
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []*models.LogEvent{
		event(1, models.LogTypeDeviceUpdate, "light1"),
		event(2, models.LogTypeAttack, "thermostat"),
		event(3, models.LogTypeDefense, "thermostat"),
		event(4, models.LogTypeAttack, "light1"),
		event(5, models.LogTypeDeviceUpdate, "lock"),
	} {
		require.NoError(t, s.Append(ctx, e))
	}
}

func TestMemoryStore_AppendAssignsIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a := event(1, models.LogTypeAuth, "")
	b := event(2, models.LogTypeAuth, "")
	require.NoError(t, s.Append(ctx, a))
	require.NoError(t, s.Append(ctx, b))

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
}

func TestMemoryStore_AppendRejectsInvalid(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name  string
		event *models.LogEvent
	}{
		{"nil", nil},
		{"empty message", &models.LogEvent{LogType: models.LogTypeAuth, Severity: models.SeverityInfo}},
		{"unknown type", &models.LogEvent{Message: "x", LogType: "BOGUS", Severity: models.SeverityInfo}},
		{"unknown severity", &models.LogEvent{Message: "x", LogType: models.LogTypeAuth, Severity: "LOW"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Append(ctx, tt.event), ErrInvalidEvent)
		})
	}
}

func TestMemoryStore_Query(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   Filter
		expected []int64
	}{
		{"all newest first", Filter{}, []int64{5, 4, 3, 2, 1}},
		{"limit", Filter{Limit: 2}, []int64{5, 4}},
		{"by type", Filter{LogType: models.LogTypeAttack}, []int64{4, 2}},
		{"by device", Filter{Device: "thermostat"}, []int64{3, 2}},
		{"type and device", Filter{LogType: models.LogTypeAttack, Device: "light1"}, []int64{4}},
		{"no match", Filter{Device: "garage"}, []int64{}},
		{"attack filter", AttackFilter(1), []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]int64, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestMemoryStore_QueryTieBreaksOnID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Append(ctx, event(0, models.LogTypeAuth, "")))
	}

	got, err := s.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[2].ID)
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s)
	ctx := context.Background()

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	got, err := s.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, got)

	e := event(9, models.LogTypeDefense, "")
	require.NoError(t, s.Append(ctx, e))
	assert.Equal(t, int64(6), e.ID, "ids keep increasing after clear")
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	ctx := context.Background()

	assert.ErrorIs(t, s.Append(ctx, event(1, models.LogTypeAuth, "")), ErrStoreClosed)
	_, err := s.Query(ctx, Filter{})
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = s.Clear(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, s.Ping(ctx), ErrStoreClosed)
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, event(i, models.LogTypeDeviceUpdate, "light1"))
		}(i)
	}
	wg.Wait()

	got, err := s.Query(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 50)

	seen := make(map[int64]bool)
	for _, e := range got {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}
}

func TestMemoryStore_TypedQueryWithLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	types := []models.LogType{
		models.LogTypeAttack, models.LogTypeDeviceUpdate, models.LogTypeAttack,
		models.LogTypeDefense, models.LogTypeAttack, models.LogTypeAuth,
	}
	// Appended out of timestamp order, 15 of them ATTACK.
	attacks := 0
	for i := 0; i < 30; i++ {
		lt := types[i%len(types)]
		if lt == models.LogTypeAttack {
			attacks++
		}
		offset := (i * 7) % 30
		require.NoError(t, s.Append(ctx, event(offset, lt, "light1")))
	}
	require.Equal(t, 15, attacks)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"limit below match count", Filter{LogType: models.LogTypeAttack, Limit: 10}, 10},
		{"attack filter default", AttackFilter(DefaultAttackLimit), 15},
		{"no limit", Filter{LogType: models.LogTypeAttack}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.filter)
			require.NoError(t, err)
			require.Len(t, got, tt.want)

			for i, e := range got {
				assert.Equal(t, models.LogTypeAttack, e.LogType)
				if i > 0 {
					assert.False(t, e.Timestamp.After(got[i-1].Timestamp),
						"record %d is newer than record %d", i, i-1)
				}
			}
		})
	}
}
