package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"drone-missions/internal/domain"
	"drone-missions/internal/observability"
	"drone-missions/internal/ports"
	"drone-missions/pkg/observable"
)

// DefaultMissionsKey - ключ, під яким зберігається колекція місій
const DefaultMissionsKey = "SavedMissions"

// MissionStore - єдина точка зміни колекції місій.
// Після кожної успішної зміни вся колекція записується у сховище.
type MissionStore struct {
	mu       sync.Mutex
	kv       ports.KeyValueStore
	key      string
	missions []domain.Mission
	events   *observable.Subject[domain.MissionEvent]
	metrics  *observability.Collector
	log      zerolog.Logger
}

// MissionStoreOption налаштовує MissionStore
type MissionStoreOption func(*MissionStore)

// WithMissionsKey змінює ключ збереження
func WithMissionsKey(key string) MissionStoreOption {
	return func(s *MissionStore) {
		s.key = key
	}
}

// WithStoreMetrics підключає збір метрик
func WithStoreMetrics(c *observability.Collector) MissionStoreOption {
	return func(s *MissionStore) {
		s.metrics = c
	}
}

// WithStoreLogger задає логер
func WithStoreLogger(log zerolog.Logger) MissionStoreOption {
	return func(s *MissionStore) {
		s.log = log.With().Str("component", "mission_store").Logger()
	}
}

// NewMissionStore створює порожнє сховище місій поверх kv
func NewMissionStore(kv ports.KeyValueStore, opts ...MissionStoreOption) *MissionStore {
	resync := domain.MissionEvent{Type: domain.MissionEventResync, Index: -1}
	s := &MissionStore{
		kv:       kv,
		key:      DefaultMissionsKey,
		missions: []domain.Mission{},
		events:   observable.NewSubject(observable.WithOverflowMarker(resync)),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load відновлює колекцію зі сховища. Якщо даних немає або їх не вдалося
// розібрати, колекція лишається порожньою; помилка повертається лише для звіту.
func (s *MissionStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.missions = []domain.Mission{}
	defer func() {
		s.metrics.SetMissionsStored(len(s.missions))
	}()

	data, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("Failed to read saved missions, starting empty")
		return fmt.Errorf("failed to read saved missions: %w", err)
	}
	if !found {
		s.log.Info().Str("key", s.key).Msg("No saved missions")
		return nil
	}

	missions, err := DecodeMissions(data)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("Saved missions are unreadable, starting empty")
		return err
	}

	s.missions = missions
	s.log.Info().Int("count", len(missions)).Msg("Missions loaded")
	return nil
}

// List повертає знімок колекції в порядку додавання
func (s *MissionStore) List() []domain.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Mission, len(s.missions))
	for i, m := range s.missions {
		out[i] = m.Clone()
	}
	return out
}

// Get повертає місію за ID
func (s *MissionStore) Get(id uuid.UUID) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(id)
	if i < 0 {
		return domain.Mission{}, domain.ErrMissionNotFound
	}
	return s.missions[i].Clone(), nil
}

// Create перевіряє назву та маршрут і додає нову місію в кінець колекції.
// Якщо запис у сховище не вдався, місія лишається в пам'яті, а помилка
// обгортає domain.ErrPersistenceWrite.
func (s *MissionStore) Create(ctx context.Context, name string, points []domain.Coordinate) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed, err := s.validateLocked(uuid.Nil, name, points)
	if err != nil {
		return domain.Mission{}, err
	}

	mission := domain.Mission{
		ID:     s.newIDLocked(),
		Name:   trimmed,
		Points: append([]domain.Coordinate{}, points...),
	}
	s.missions = append(s.missions, mission)

	index := len(s.missions) - 1
	return mission.Clone(), s.commitLocked(ctx, "create", domain.MissionEvent{
		Type:    domain.MissionEventCreated,
		Mission: mission.Clone(),
		Index:   index,
	})
}

// Update замінює назву та точки місії, зберігаючи її ID та позицію
func (s *MissionStore) Update(ctx context.Context, id uuid.UUID, name string, points []domain.Coordinate) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOfLocked(id)
	if index < 0 {
		return domain.Mission{}, domain.ErrMissionNotFound
	}

	return s.updateLocked(ctx, index, name, points)
}

// EditPoints застосовує edit до чернетки збереженої місії і зберігає результат.
// Читання, редагування та запис виконуються під одним блокуванням, тож
// паралельні правки маршруту однієї місії не перезаписують одна одну.
func (s *MissionStore) EditPoints(ctx context.Context, id uuid.UUID, edit func(*domain.MissionDraft) error) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOfLocked(id)
	if index < 0 {
		return domain.Mission{}, domain.ErrMissionNotFound
	}

	draft := domain.DraftFromMission(s.missions[index])
	if err := edit(draft); err != nil {
		return domain.Mission{}, err
	}
	return s.updateLocked(ctx, index, draft.Name, draft.Points)
}

// Commit зберігає чернетку: створює нову місію або оновлює наявну
func (s *MissionStore) Commit(ctx context.Context, draft *domain.MissionDraft) (domain.Mission, error) {
	if draft.MissionID == uuid.Nil {
		return s.Create(ctx, draft.Name, draft.Points)
	}
	return s.Update(ctx, draft.MissionID, draft.Name, draft.Points)
}

// Delete видаляє місію за ID
func (s *MissionStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexOfLocked(id)
	if index < 0 {
		return domain.ErrMissionNotFound
	}
	return s.deleteLocked(ctx, index)
}

// DeleteAt видаляє місію за позицією в поточному порядку колекції
func (s *MissionStore) DeleteAt(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.missions) {
		return fmt.Errorf("index %d: %w", index, domain.ErrMissionNotFound)
	}
	return s.deleteLocked(ctx, index)
}

// Subscribe повертає канал подій змін колекції та функцію відписки.
// Події не губляться мовчки: якщо підписник не встигає і буфер переповнено,
// непрочитані події замінюються подією MissionEventResync, після якої
// підписник має перечитати колекцію через List.
func (s *MissionStore) Subscribe(buffer int) (<-chan domain.MissionEvent, func()) {
	return s.events.Subscribe(buffer)
}

// Close закриває всі підписки на події
func (s *MissionStore) Close() {
	s.events.Close()
}

func (s *MissionStore) updateLocked(ctx context.Context, index int, name string, points []domain.Coordinate) (domain.Mission, error) {
	id := s.missions[index].ID
	trimmed, err := s.validateLocked(id, name, points)
	if err != nil {
		return domain.Mission{}, err
	}

	mission := domain.Mission{
		ID:     id,
		Name:   trimmed,
		Points: append([]domain.Coordinate{}, points...),
	}
	s.missions[index] = mission

	return mission.Clone(), s.commitLocked(ctx, "update", domain.MissionEvent{
		Type:    domain.MissionEventUpdated,
		Mission: mission.Clone(),
		Index:   index,
	})
}

func (s *MissionStore) deleteLocked(ctx context.Context, index int) error {
	removed := s.missions[index]
	s.missions = append(s.missions[:index], s.missions[index+1:]...)

	return s.commitLocked(ctx, "delete", domain.MissionEvent{
		Type:    domain.MissionEventDeleted,
		Mission: removed,
		Index:   index,
	})
}

// validateLocked повертає обрізану назву або ValidationError
func (s *MissionStore) validateLocked(self uuid.UUID, name string, points []domain.Coordinate) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &domain.ValidationError{Field: "name", Err: domain.ErrEmptyName}
	}
	for _, m := range s.missions {
		if m.ID != self && strings.EqualFold(strings.TrimSpace(m.Name), trimmed) {
			return "", &domain.ValidationError{Field: "name", Err: domain.ErrDuplicateName}
		}
	}
	if len(points) == 0 {
		return "", &domain.ValidationError{Field: "points", Err: domain.ErrEmptyRoute}
	}
	for i, p := range points {
		if !p.Valid() {
			return "", &domain.ValidationError{
				Field: fmt.Sprintf("points[%d]", i),
				Err:   domain.ErrInvalidCoordinate,
			}
		}
	}
	return trimmed, nil
}

// commitLocked записує колекцію, оновлює метрики та сповіщає спостерігачів.
// Зміна в пам'яті лишається чинною навіть якщо запис не вдався.
func (s *MissionStore) commitLocked(ctx context.Context, op string, event domain.MissionEvent) error {
	s.metrics.IncMutation(op)
	s.metrics.SetMissionsStored(len(s.missions))

	err := s.persistLocked(ctx)
	if err != nil {
		s.metrics.IncPersistenceFailure()
		s.log.Error().Err(err).Str("op", op).Str("mission_id", event.Mission.ID.String()).
			Msg("Mission change applied in memory but not persisted")
	}

	s.events.Publish(event)
	return err
}

// persistLocked не зважає на скасування ctx: зміна в пам'яті вже застосована,
// і обірваний запит клієнта не повинен лишити її незаписаною
func (s *MissionStore) persistLocked(ctx context.Context) error {
	data, err := EncodeMissions(s.missions)
	if err != nil {
		return errors.Join(domain.ErrPersistenceWrite, err)
	}
	if err := s.kv.Set(context.WithoutCancel(ctx), s.key, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistenceWrite, err)
	}
	return nil
}

func (s *MissionStore) indexOfLocked(id uuid.UUID) int {
	for i, m := range s.missions {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *MissionStore) newIDLocked() uuid.UUID {
	for {
		id := uuid.New()
		if s.indexOfLocked(id) < 0 {
			return id
		}
	}
}
