package animator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
	"github.com/couchcryptid/fire-hotspot-service/internal/observability"
)

const interval = 500 * time.Millisecond

type harness struct {
	anim    *Animator
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
	hours   chan int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   clockwork.NewFakeClock(),
		metrics: observability.NewMetricsForTesting(),
		hours:   make(chan int, domain.HoursPerDay),
	}
	h.anim = New(Config{
		Interval: interval,
		Clock:    h.clock,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  h.metrics,
	})
	h.anim.Subscribe(func(hour int) { h.hours <- hour })
	t.Cleanup(h.anim.Stop)
	return h
}

// start runs the animator and waits until its ticker is registered.
func (h *harness) start(t *testing.T) {
	t.Helper()
	h.anim.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
}

func (h *harness) tick(t *testing.T) int {
	t.Helper()
	h.clock.Advance(interval)
	select {
	case hour := <-h.hours:
		return hour
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return -1
	}
}

func hourOf(t *testing.T, s State) int {
	t.Helper()
	require.NotNil(t, s.CurrentHour)
	return *s.CurrentHour
}

func TestNew_IdleShowingAllHours(t *testing.T) {
	h := newHarness(t)

	s := h.anim.State()
	assert.False(t, s.Running)
	assert.Nil(t, s.CurrentHour)
}

func TestAnimator_WrapsAroundMidnight(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.anim.SetHour(22))
	h.start(t)

	assert.Equal(t, 23, h.tick(t))
	assert.Equal(t, 0, h.tick(t))
	assert.Equal(t, 1, h.tick(t))

	s := h.anim.State()
	assert.True(t, s.Running)
	assert.Equal(t, 1, hourOf(t, s))
	assert.InDelta(t, 3.0, testutil.ToFloat64(h.metrics.AnimationTicks), 0)
}

func TestAnimator_StopPreventsFurtherTicks(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.anim.SetHour(5))
	h.start(t)

	assert.Equal(t, 6, h.tick(t))
	assert.Equal(t, 7, h.tick(t))

	h.anim.Stop()
	h.clock.Advance(interval)
	h.clock.Advance(interval)

	select {
	case hour := <-h.hours:
		t.Fatalf("tick after stop: %d", hour)
	default:
	}
	s := h.anim.State()
	assert.False(t, s.Running)
	assert.Equal(t, 7, hourOf(t, s))
	assert.InDelta(t, 0.0, testutil.ToFloat64(h.metrics.AnimationRunning), 0)
}

func TestAnimator_FirstTickFromAllHoursIsMidnight(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	assert.Equal(t, 0, h.tick(t))
}

func TestAnimator_StartIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.anim.Start()

	assert.Equal(t, 0, h.tick(t))
	select {
	case hour := <-h.hours:
		t.Fatalf("duplicate tick from second ticker: %d", hour)
	default:
	}
}

func TestAnimator_StopWhenIdleIsNoop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.anim.SetHour(3))

	h.anim.Stop()

	s := h.anim.State()
	assert.False(t, s.Running)
	assert.Equal(t, 3, hourOf(t, s))
}

func TestAnimator_RestartAfterStop(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	assert.Equal(t, 0, h.tick(t))
	h.anim.Stop()

	h.start(t)
	assert.Equal(t, 1, h.tick(t))
}

func TestAnimator_SetHour(t *testing.T) {
	tests := []struct {
		name    string
		hour    int
		wantErr bool
	}{
		{"midnight", 0, false},
		{"last hour", 23, false},
		{"negative", -1, true},
		{"past end of day", 24, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.anim.SetHour(12))

			err := h.anim.SetHour(tt.hour)

			if tt.wantErr {
				var herr *domain.InvalidHourError
				require.True(t, errors.As(err, &herr))
				assert.Equal(t, tt.hour, herr.Hour)
				assert.Equal(t, 12, hourOf(t, h.anim.State()))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, hourOf(t, h.anim.State()))
		})
	}
}

func TestAnimator_SetHourKeepsRunState(t *testing.T) {
	h := newHarness(t)
	h.start(t)

	require.NoError(t, h.anim.SetHour(10))
	assert.Error(t, h.anim.SetHour(30))

	assert.True(t, h.anim.State().Running)
	assert.Equal(t, 11, h.tick(t))
}

func TestAnimator_ShowAll(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.anim.SetHour(9))

	h.anim.ShowAll()
	assert.Nil(t, h.anim.State().CurrentHour)
	assert.False(t, h.anim.State().Running)

	assert.Equal(t, 0, h.anim.Advance())
}

func TestAnimator_AdvanceNotifiesObservers(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.anim.SetHour(23))

	assert.Equal(t, 0, h.anim.Advance())
	assert.Equal(t, 0, <-h.hours)
	assert.False(t, h.anim.State().Running)
}

func TestAnimator_Unsubscribe(t *testing.T) {
	h := newHarness(t)
	var calls int
	unsubscribe := h.anim.Subscribe(func(int) { calls++ })

	h.anim.Advance()
	unsubscribe()
	unsubscribe()
	h.anim.Advance()

	assert.Equal(t, 1, calls)
	assert.Len(t, h.hours, 2, "other subscribers keep receiving")
}

func TestAnimator_Toggle(t *testing.T) {
	h := newHarness(t)

	assert.True(t, h.anim.Toggle().Running)
	assert.False(t, h.anim.Toggle().Running)
}
