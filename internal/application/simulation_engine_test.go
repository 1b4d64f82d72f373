package application

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-missions/internal/domain"
	"drone-missions/internal/infrastructure/clock"
	"drone-missions/internal/observability"
	"drone-missions/internal/ports"
)

const segment = 2 * time.Second

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func routeMission(points ...domain.Coordinate) domain.Mission {
	return domain.Mission{ID: uuid.New(), Name: "route", Points: points}
}

func newTestEngine(t *testing.T, points ...domain.Coordinate) (*SimulationEngine, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	e := NewSimulationEngine(routeMission(points...), clk, WithSegmentDuration(segment))
	t.Cleanup(e.Close)
	return e, clk
}

// leakyClock віддає таймери, чий Stop нічого не скасовує,
// тож спрацьовують і застарілі виклики
type leakyClock struct {
	*clock.Manual
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c leakyClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	c.Manual.AfterFunc(d, f)
	return leakyTimer{}
}

func requireState(t *testing.T, e *SimulationEngine, status domain.SimulationStatus, index int, pos domain.Coordinate) {
	t.Helper()
	st := e.State()
	require.Equal(t, status, st.Status)
	require.Equal(t, index, st.CurrentIndex)
	require.NotNil(t, st.DronePosition)
	require.Equal(t, pos, *st.DronePosition)
}

func TestSimulationEngine_InitialState(t *testing.T) {
	e, _ := newTestEngine(t, ptA, ptB)
	requireState(t, e, domain.SimulationStatusIdle, 0, ptA)

	empty, _ := newTestEngine(t)
	st := empty.State()
	assert.Equal(t, domain.SimulationStatusIdle, st.Status)
	assert.Nil(t, st.DronePosition)
	assert.Nil(t, st.Camera)
}

func TestSimulationEngine_StartNeedsTwoPoints(t *testing.T) {
	e, clk := newTestEngine(t, ptA)
	e.Start()
	requireState(t, e, domain.SimulationStatusIdle, 0, ptA)
	assert.Equal(t, 0, clk.Pending())

	empty, clk := newTestEngine(t)
	empty.Start()
	assert.Equal(t, domain.SimulationStatusIdle, empty.State().Status)
	assert.Equal(t, 0, clk.Pending())
}

func TestSimulationEngine_RunsToCompletion(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB, ptC)

	e.Start()
	requireState(t, e, domain.SimulationStatusRunning, 0, ptA)
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(segment - time.Millisecond)
	requireState(t, e, domain.SimulationStatusRunning, 0, ptA)

	clk.Advance(time.Millisecond)
	requireState(t, e, domain.SimulationStatusRunning, 1, ptB)
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(segment)
	requireState(t, e, domain.SimulationStatusCompleted, 2, ptC)
	assert.Equal(t, 0, clk.Pending())

	clk.Advance(10 * segment)
	requireState(t, e, domain.SimulationStatusCompleted, 2, ptC)
}

func TestSimulationEngine_PauseResumeKeepsProgress(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB, ptC)
	e.Start()
	clk.Advance(segment)
	requireState(t, e, domain.SimulationStatusRunning, 1, ptB)

	clk.Advance(segment / 2)
	e.Pause()
	requireState(t, e, domain.SimulationStatusPaused, 1, ptB)
	assert.Equal(t, 0, clk.Pending())

	clk.Advance(5 * segment)
	requireState(t, e, domain.SimulationStatusPaused, 1, ptB)

	e.Resume()
	requireState(t, e, domain.SimulationStatusRunning, 1, ptB)
	clk.Advance(segment - time.Millisecond)
	requireState(t, e, domain.SimulationStatusRunning, 1, ptB)
	clk.Advance(time.Millisecond)
	requireState(t, e, domain.SimulationStatusCompleted, 2, ptC)
}

func TestSimulationEngine_NoOps(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB)

	e.Pause()
	e.Resume()
	e.Stop()
	requireState(t, e, domain.SimulationStatusIdle, 0, ptA)

	e.Start()
	e.Resume()
	requireState(t, e, domain.SimulationStatusRunning, 0, ptA)
	assert.Equal(t, 1, clk.Pending())

	e.Pause()
	e.Pause()
	requireState(t, e, domain.SimulationStatusPaused, 0, ptA)

	clk.Advance(segment)
	e.Resume()
	clk.Advance(segment)
	requireState(t, e, domain.SimulationStatusCompleted, 1, ptB)
	e.Pause()
	e.Resume()
	requireState(t, e, domain.SimulationStatusCompleted, 1, ptB)
}

func TestSimulationEngine_StopResetsFromAnyState(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(e *SimulationEngine, clk *clock.Manual)
	}{
		{"running", func(e *SimulationEngine, clk *clock.Manual) {
			e.Start()
			clk.Advance(segment)
		}},
		{"paused", func(e *SimulationEngine, clk *clock.Manual) {
			e.Start()
			clk.Advance(segment)
			e.Pause()
		}},
		{"completed", func(e *SimulationEngine, clk *clock.Manual) {
			e.Start()
			clk.Advance(2 * segment)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clk := newTestEngine(t, ptA, ptB, ptC)
			tt.prepare(e, clk)

			e.Stop()
			requireState(t, e, domain.SimulationStatusIdle, 0, ptA)
			assert.Equal(t, 0, clk.Pending())

			clk.Advance(10 * segment)
			requireState(t, e, domain.SimulationStatusIdle, 0, ptA)
		})
	}
}

func TestSimulationEngine_RestartFromCompleted(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB)
	e.Start()
	clk.Advance(segment)
	requireState(t, e, domain.SimulationStatusCompleted, 1, ptB)

	e.Start()
	requireState(t, e, domain.SimulationStatusRunning, 0, ptA)
	clk.Advance(segment)
	requireState(t, e, domain.SimulationStatusCompleted, 1, ptB)
}

func TestSimulationEngine_RestartWhileRunningKeepsSingleTimer(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB, ptC)
	e.Start()
	clk.Advance(segment / 2)
	e.Start()
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(segment / 2)
	requireState(t, e, domain.SimulationStatusRunning, 0, ptA)
	clk.Advance(segment / 2)
	requireState(t, e, domain.SimulationStatusRunning, 1, ptB)
}

func TestSimulationEngine_StaleCallbacksAreIgnored(t *testing.T) {
	clk := leakyClock{clock.NewManual(epoch)}
	e := NewSimulationEngine(routeMission(ptA, ptB, ptC), clk, WithSegmentDuration(segment))
	defer e.Close()

	e.Start()
	clk.Advance(segment / 2)
	e.Pause()
	e.Resume()

	// перший таймер спрацьовує, але належить попередньому поколінню
	clk.Advance(segment / 2)
	requireState(t, e, domain.SimulationStatusRunning, 0, ptA)

	clk.Advance(segment / 2)
	requireState(t, e, domain.SimulationStatusRunning, 1, ptB)

	e.Stop()
	clk.Advance(10 * segment)
	requireState(t, e, domain.SimulationStatusIdle, 0, ptA)
}

func TestSimulationEngine_StateDetails(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB, ptC)

	st := e.State()
	assert.Equal(t, 0.0, st.Progress)
	assert.Nil(t, st.Transition)
	require.NotNil(t, st.Camera)
	assert.Equal(t, domain.RegionAround(ptA, domain.DefaultCameraSpan), *st.Camera)

	e.Start()
	st = e.State()
	require.NotNil(t, st.Transition)
	assert.Equal(t, domain.Transition{From: ptA, To: ptB, DurationMs: 2000}, *st.Transition)
	assert.Equal(t, ptB, st.Camera.Center)

	clk.Advance(segment)
	st = e.State()
	assert.Equal(t, 0.5, st.Progress)
	assert.Equal(t, ptC, st.Transition.To)

	e.Pause()
	st = e.State()
	assert.Nil(t, st.Transition)
	assert.Equal(t, ptB, st.Camera.Center)

	e.Resume()
	clk.Advance(segment)
	st = e.State()
	assert.Equal(t, 1.0, st.Progress)
	assert.Nil(t, st.Transition)
	assert.Equal(t, ptC, st.Camera.Center)
}

func TestSimulationEngine_CameraSpanOption(t *testing.T) {
	e := NewSimulationEngine(routeMission(ptA, ptB), clock.NewManual(epoch), WithCameraSpan(0.2))
	defer e.Close()
	assert.Equal(t, 0.2, e.State().Camera.LatitudeDelta)
}

func TestSimulationEngine_EstimatedPosition(t *testing.T) {
	from := domain.Coordinate{Latitude: 10, Longitude: 20}
	to := domain.Coordinate{Latitude: 20, Longitude: 40}
	e, clk := newTestEngine(t, from, to)

	pos, ok := e.EstimatedPosition()
	require.True(t, ok)
	assert.Equal(t, from, pos)

	e.Start()
	clk.Advance(segment / 2)
	pos, ok = e.EstimatedPosition()
	require.True(t, ok)
	assert.InDelta(t, 15, pos.Latitude, 1e-9)
	assert.InDelta(t, 30, pos.Longitude, 1e-9)

	clk.Advance(segment / 2)
	pos, _ = e.EstimatedPosition()
	assert.Equal(t, to, pos)

	empty, _ := newTestEngine(t)
	_, ok = empty.EstimatedPosition()
	assert.False(t, ok)
}

func TestSimulationEngine_PublishesStates(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB, ptC)
	states, cancel := e.Subscribe(16)
	defer cancel()

	e.Start()
	clk.Advance(segment)
	e.Pause()
	e.Resume()
	clk.Advance(segment)
	e.Stop()

	want := []struct {
		status domain.SimulationStatus
		index  int
	}{
		{domain.SimulationStatusRunning, 0},
		{domain.SimulationStatusRunning, 1},
		{domain.SimulationStatusPaused, 1},
		{domain.SimulationStatusRunning, 1},
		{domain.SimulationStatusCompleted, 2},
		{domain.SimulationStatusIdle, 0},
	}
	for _, w := range want {
		st := <-states
		assert.Equal(t, w.status, st.Status)
		assert.Equal(t, w.index, st.CurrentIndex)
	}
}

func TestSimulationEngine_Rebind(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB, ptC)
	e.Start()
	clk.Advance(segment)

	updated := e.Mission()
	updated.Points = []domain.Coordinate{ptC, ptA}
	e.Rebind(updated)

	requireState(t, e, domain.SimulationStatusIdle, 0, ptC)
	assert.Equal(t, 0, clk.Pending())
	assert.Equal(t, updated, e.Mission())

	e.Start()
	clk.Advance(segment)
	requireState(t, e, domain.SimulationStatusCompleted, 1, ptA)
}

func TestSimulationEngine_Close(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB)
	states, _ := e.Subscribe(4)

	e.Start()
	e.Close()
	assert.Equal(t, 0, clk.Pending())
	requireState(t, e, domain.SimulationStatusIdle, 0, ptA)

	var last domain.SimulationState
	for st := range states {
		last = st
	}
	assert.Equal(t, domain.SimulationStatusIdle, last.Status)

	e.Start()
	assert.Equal(t, domain.SimulationStatusIdle, e.State().Status)
	assert.Equal(t, 0, clk.Pending())
	e.Close()
}

func TestSimulationEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewCollector(reg)
	require.NoError(t, err)

	clk := clock.NewManual(epoch)
	e := NewSimulationEngine(routeMission(ptA, ptB, ptC), clk,
		WithSegmentDuration(segment), WithEngineMetrics(metrics))
	defer e.Close()

	e.Start()
	clk.Advance(2 * segment)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.SimulationSteps))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SimulationTransition.WithLabelValues("running")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SimulationTransition.WithLabelValues("completed")))
}

func TestSimulationEngine_Apply(t *testing.T) {
	e, clk := newTestEngine(t, ptA, ptB, ptC)

	require.NoError(t, e.Apply(domain.ControlStart))
	clk.Advance(segment)
	require.NoError(t, e.Apply(domain.ControlPause))
	requireState(t, e, domain.SimulationStatusPaused, 1, ptB)
	require.NoError(t, e.Apply(domain.ControlResume))
	assert.Equal(t, domain.SimulationStatusRunning, e.State().Status)
	require.NoError(t, e.Apply(domain.ControlStop))
	requireState(t, e, domain.SimulationStatusIdle, 0, ptA)

	err := e.Apply("fly")
	assert.ErrorIs(t, err, domain.ErrUnknownControl)
}
