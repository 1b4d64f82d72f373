package application

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"drone-missions/internal/domain"
	"drone-missions/internal/observability"
	"drone-missions/internal/ports"
	"drone-missions/pkg/observable"
)

// DefaultSegmentDuration - тривалість перельоту між сусідніми точками
const DefaultSegmentDuration = 2 * time.Second

// SimulationEngine веде віртуальний дрон по точках однієї місії.
// У кожний момент існує не більше одного запланованого кроку; кожен
// запланований виклик перевіряє покоління запуску, тож застарілі виклики
// після pause/stop/start нічого не змінюють.
type SimulationEngine struct {
	mu sync.Mutex

	clock      ports.Clock
	segment    time.Duration
	cameraSpan float64

	mission  domain.Mission
	status   domain.SimulationStatus
	index    int
	position *domain.Coordinate

	gen          uint64
	timer        ports.Timer
	segmentStart time.Time
	closed       bool

	states  *observable.Subject[domain.SimulationState]
	metrics *observability.Collector
	log     zerolog.Logger
}

// EngineOption налаштовує SimulationEngine
type EngineOption func(*SimulationEngine)

// WithSegmentDuration задає тривалість одного перельоту
func WithSegmentDuration(d time.Duration) EngineOption {
	return func(e *SimulationEngine) {
		if d > 0 {
			e.segment = d
		}
	}
}

// WithCameraSpan задає розмах рекомендованої області карти
func WithCameraSpan(span float64) EngineOption {
	return func(e *SimulationEngine) {
		if span > 0 {
			e.cameraSpan = span
		}
	}
}

// WithEngineMetrics підключає збір метрик
func WithEngineMetrics(c *observability.Collector) EngineOption {
	return func(e *SimulationEngine) {
		e.metrics = c
	}
}

// WithEngineLogger задає логер
func WithEngineLogger(log zerolog.Logger) EngineOption {
	return func(e *SimulationEngine) {
		e.log = log.With().Str("component", "simulation_engine").Logger()
	}
}

// NewSimulationEngine створює рушій у стані Idle, прив'язаний до копії місії
func NewSimulationEngine(mission domain.Mission, clock ports.Clock, opts ...EngineOption) *SimulationEngine {
	e := &SimulationEngine{
		clock:      clock,
		segment:    DefaultSegmentDuration,
		cameraSpan: domain.DefaultCameraSpan,
		mission:    mission.Clone(),
		status:     domain.SimulationStatusIdle,
		states:     observable.NewSubject[domain.SimulationState](),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetLocked()
	return e
}

// Mission повертає копію місії, до якої прив'язаний рушій
func (e *SimulationEngine) Mission() domain.Mission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mission.Clone()
}

// State повертає поточний знімок стану
func (e *SimulationEngine) State() domain.SimulationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Subscribe повертає потік знімків стану після кожної зміни
func (e *SimulationEngine) Subscribe(buffer int) (<-chan domain.SimulationState, func()) {
	return e.states.Subscribe(buffer)
}

// Start запускає симуляцію з першої точки. Маршрут з менш ніж двома
// точками не запускається. Повторний старт перезапускає з початку.
func (e *SimulationEngine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if len(e.mission.Points) < 2 {
		e.log.Debug().Str("mission_id", e.mission.ID.String()).Int("points", len(e.mission.Points)).
			Msg("Start ignored, route is too short")
		return
	}

	e.cancelLocked()
	e.index = 0
	first := e.mission.Points[0]
	e.position = &first
	e.setStatusLocked(domain.SimulationStatusRunning)
	e.scheduleLocked()
	e.publishLocked()
}

// Pause заморожує індекс і позицію та скасовує запланований крок
func (e *SimulationEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != domain.SimulationStatusRunning {
		return
	}
	e.cancelLocked()
	e.setStatusLocked(domain.SimulationStatusPaused)
	e.publishLocked()
}

// Resume продовжує рух до наступної точки із замороженої позиції
func (e *SimulationEngine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != domain.SimulationStatusPaused || e.closed {
		return
	}
	e.setStatusLocked(domain.SimulationStatusRunning)
	e.scheduleLocked()
	e.publishLocked()
}

// Stop скасовує запланований крок і повертає дрон на першу точку
func (e *SimulationEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == domain.SimulationStatusIdle {
		return
	}
	e.cancelLocked()
	e.resetLocked()
	e.publishLocked()
}

// Rebind прив'язує рушій до іншої версії місії і скидає його в Idle
func (e *SimulationEngine) Rebind(mission domain.Mission) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.cancelLocked()
	e.mission = mission.Clone()
	e.resetLocked()
	e.publishLocked()
}

// Close зупиняє симуляцію та закриває всі підписки. Після Close рушій
// більше не запускається.
func (e *SimulationEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.cancelLocked()
	if e.status != domain.SimulationStatusIdle {
		e.resetLocked()
		e.publishLocked()
	}
	e.closed = true
	e.states.Close()
}

// Apply виконує команду керування
func (e *SimulationEngine) Apply(action domain.ControlAction) error {
	switch action {
	case domain.ControlStart:
		e.Start()
	case domain.ControlPause:
		e.Pause()
	case domain.ControlResume:
		e.Resume()
	case domain.ControlStop:
		e.Stop()
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownControl, action)
	}
	return nil
}

// EstimatedPosition повертає позицію дрона з урахуванням часу, що минув
// від початку поточного перельоту. false, якщо позиції немає.
func (e *SimulationEngine) EstimatedPosition() (domain.Coordinate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.position == nil {
		return domain.Coordinate{}, false
	}
	if e.status != domain.SimulationStatusRunning || e.index+1 >= len(e.mission.Points) {
		return *e.position, true
	}
	elapsed := e.clock.Now().Sub(e.segmentStart)
	fraction := float64(elapsed) / float64(e.segment)
	return domain.Interpolate(e.mission.Points[e.index], e.mission.Points[e.index+1], fraction), true
}

// advance виконується таймером; gen - покоління, для якого його заплановано
func (e *SimulationEngine) advance(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || e.status != domain.SimulationStatusRunning {
		return
	}
	e.timer = nil

	e.index++
	next := e.mission.Points[e.index]
	e.position = &next
	e.metrics.IncSimulationStep()

	if e.index == len(e.mission.Points)-1 {
		e.setStatusLocked(domain.SimulationStatusCompleted)
	} else {
		e.scheduleLocked()
	}
	e.publishLocked()
}

func (e *SimulationEngine) scheduleLocked() {
	e.gen++
	gen := e.gen
	e.segmentStart = e.clock.Now()
	e.timer = e.clock.AfterFunc(e.segment, func() {
		e.advance(gen)
	})
}

func (e *SimulationEngine) cancelLocked() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *SimulationEngine) resetLocked() {
	e.index = 0
	e.position = nil
	if len(e.mission.Points) > 0 {
		first := e.mission.Points[0]
		e.position = &first
	}
	e.setStatusLocked(domain.SimulationStatusIdle)
}

func (e *SimulationEngine) setStatusLocked(status domain.SimulationStatus) {
	if e.status == status {
		return
	}
	e.log.Debug().Str("mission_id", e.mission.ID.String()).
		Str("from", string(e.status)).Str("to", string(status)).Msg("Simulation status changed")
	e.status = status
	e.metrics.IncTransition(string(status))
}

func (e *SimulationEngine) publishLocked() {
	e.states.Publish(e.stateLocked())
}

func (e *SimulationEngine) stateLocked() domain.SimulationState {
	st := domain.SimulationState{
		MissionID:    e.mission.ID,
		Status:       e.status,
		CurrentIndex: e.index,
	}
	n := len(e.mission.Points)
	if n > 1 {
		st.Progress = float64(e.index) / float64(n-1)
	}
	if e.position != nil {
		p := *e.position
		st.DronePosition = &p
	}

	switch {
	case e.status == domain.SimulationStatusRunning && e.index+1 < n:
		from, to := e.mission.Points[e.index], e.mission.Points[e.index+1]
		st.Transition = &domain.Transition{From: from, To: to, DurationMs: e.segment.Milliseconds()}
		region := domain.RegionAround(to, e.cameraSpan)
		st.Camera = &region
	case e.position != nil:
		region := domain.RegionAround(*e.position, e.cameraSpan)
		st.Camera = &region
	}
	return st
}

