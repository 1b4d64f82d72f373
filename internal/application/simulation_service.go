package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drone-missions/internal/domain"
	"drone-missions/internal/observability"
	"drone-missions/internal/ports"
)

// SimulationSession - відкрита симуляція однієї місії з власним рушієм
type SimulationSession struct {
	ID        uuid.UUID
	MissionID uuid.UUID
	OpenedAt  time.Time
	Engine    *SimulationEngine

	seq           uint64
	telemetryDone chan struct{}
}

// SimulationService відповідає за сесії симуляції та їх узгодженість зі сховищем місій
type SimulationService struct {
	mu       sync.Mutex
	store    *MissionStore
	clock    ports.Clock
	sessions map[uuid.UUID]*SimulationSession
	nextSeq  uint64

	engineOpts []EngineOption
	telemetry  ports.TelemetrySink
	metrics    *observability.Collector
	log        zerolog.Logger
}

// SimulationServiceOption налаштовує SimulationService
type SimulationServiceOption func(*SimulationService)

// WithEngineOptions задає параметри для кожного нового рушія
func WithEngineOptions(opts ...EngineOption) SimulationServiceOption {
	return func(s *SimulationService) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithTelemetry підключає запис станів симуляції у зовнішнє сховище
func WithTelemetry(sink ports.TelemetrySink) SimulationServiceOption {
	return func(s *SimulationService) {
		s.telemetry = sink
	}
}

// WithServiceMetrics підключає збір метрик
func WithServiceMetrics(c *observability.Collector) SimulationServiceOption {
	return func(s *SimulationService) {
		s.metrics = c
	}
}

// WithServiceLogger задає логер
func WithServiceLogger(log zerolog.Logger) SimulationServiceOption {
	return func(s *SimulationService) {
		s.log = log.With().Str("component", "simulation_service").Logger()
	}
}

// NewSimulationService створює новий екземпляр SimulationService
func NewSimulationService(store *MissionStore, clock ports.Clock, opts ...SimulationServiceOption) *SimulationService {
	s := &SimulationService{
		store:    store,
		clock:    clock,
		sessions: make(map[uuid.UUID]*SimulationSession),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open відкриває нову сесію симуляції для місії
func (s *SimulationService) Open(ctx context.Context, missionID uuid.UUID) (*SimulationSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mission, err := s.store.Get(missionID)
	if err != nil {
		return nil, err
	}

	session := &SimulationSession{
		ID:        uuid.New(),
		MissionID: mission.ID,
		OpenedAt:  s.clock.Now(),
		Engine:    NewSimulationEngine(mission, s.clock, s.engineOpts...),
	}
	if s.telemetry != nil {
		states, _ := session.Engine.Subscribe(32)
		session.telemetryDone = make(chan struct{})
		go s.forwardTelemetry(session.ID, states, session.telemetryDone)
	}

	s.mu.Lock()
	s.nextSeq++
	session.seq = s.nextSeq
	s.sessions[session.ID] = session
	s.metrics.SetSimulationsActive(len(s.sessions))
	s.mu.Unlock()

	// Місію могли видалити або змінити до реєстрації сесії, і Watch цю подію вже пропустив
	if err := s.reconcile(session); err != nil {
		return nil, err
	}

	s.log.Info().Str("session_id", session.ID.String()).Str("mission_id", mission.ID.String()).
		Msg("Simulation session opened")
	return session, nil
}

// Get повертає сесію за ID
func (s *SimulationService) Get(sessionID uuid.UUID) (*SimulationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// List повертає відкриті сесії у порядку відкриття
func (s *SimulationService) List() []*SimulationSession {
	s.mu.Lock()
	out := make([]*SimulationSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}

// Close зупиняє рушій сесії та видаляє її
func (s *SimulationService) Close(sessionID uuid.UUID) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
		s.metrics.SetSimulationsActive(len(s.sessions))
	}
	s.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	s.shutdown(session)
	return nil
}

// CloseAll закриває всі сесії
func (s *SimulationService) CloseAll() {
	s.mu.Lock()
	sessions := make([]*SimulationSession, 0, len(s.sessions))
	for id, session := range s.sessions {
		sessions = append(sessions, session)
		delete(s.sessions, id)
	}
	s.metrics.SetSimulationsActive(0)
	s.mu.Unlock()

	for _, session := range sessions {
		s.shutdown(session)
	}
}

// Watch стежить за змінами місій до скасування ctx: оновлена місія
// перезавантажує рушії її сесій, видалена місія закриває їх.
func (s *SimulationService) Watch(ctx context.Context) error {
	events, cancel := s.store.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handleMissionEvent(ev)
		}
	}
}

func (s *SimulationService) handleMissionEvent(ev domain.MissionEvent) {
	switch ev.Type {
	case domain.MissionEventResync:
		s.log.Warn().Msg("Mission events were dropped, reconciling simulation sessions")
		for _, session := range s.List() {
			_ = s.reconcile(session)
		}
	case domain.MissionEventUpdated:
		for _, session := range s.sessionsFor(ev.Mission.ID) {
			session.Engine.Rebind(ev.Mission)
			s.log.Info().Str("session_id", session.ID.String()).Msg("Simulation rebound to updated mission")
		}
	case domain.MissionEventDeleted:
		for _, session := range s.sessionsFor(ev.Mission.ID) {
			if err := s.Close(session.ID); err == nil {
				s.log.Info().Str("session_id", session.ID.String()).Msg("Simulation closed, mission deleted")
			}
		}
	}
}

// reconcile узгоджує сесію з поточною версією її місії: закриває сесію,
// якщо місію видалено, і перезавантажує рушій, якщо місію змінено
func (s *SimulationService) reconcile(session *SimulationSession) error {
	mission, err := s.store.Get(session.MissionID)
	if errors.Is(err, domain.ErrMissionNotFound) {
		if closeErr := s.Close(session.ID); closeErr == nil {
			s.log.Info().Str("session_id", session.ID.String()).Msg("Simulation closed, mission deleted")
		}
		return err
	}
	if err != nil {
		return err
	}
	if !session.Engine.Mission().Equal(mission) {
		session.Engine.Rebind(mission)
		s.log.Info().Str("session_id", session.ID.String()).Msg("Simulation rebound to updated mission")
	}
	return nil
}

func (s *SimulationService) sessionsFor(missionID uuid.UUID) []*SimulationSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*SimulationSession
	for _, session := range s.sessions {
		if session.MissionID == missionID {
			out = append(out, session)
		}
	}
	return out
}

func (s *SimulationService) shutdown(session *SimulationSession) {
	session.Engine.Close()
	if session.telemetryDone != nil {
		<-session.telemetryDone
	}
	s.log.Info().Str("session_id", session.ID.String()).Msg("Simulation session closed")
}

func (s *SimulationService) forwardTelemetry(sessionID uuid.UUID, states <-chan domain.SimulationState, done chan<- struct{}) {
	defer close(done)
	for st := range states {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.telemetry.RecordState(ctx, sessionID, st)
		cancel()
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Failed to record simulation telemetry")
		}
	}
}
