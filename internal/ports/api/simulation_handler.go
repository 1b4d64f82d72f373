package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"drone-missions/internal/application"
	"drone-missions/internal/domain"
)

// SimulationHandler обробляє HTTP-запити, пов'язані з сесіями симуляції
type SimulationHandler struct {
	simService *application.SimulationService
}

// NewSimulationHandler створює новий SimulationHandler
func NewSimulationHandler(simService *application.SimulationService) *SimulationHandler {
	return &SimulationHandler{
		simService: simService,
	}
}

// SessionView - представлення сесії для клієнта
type SessionView struct {
	ID                uuid.UUID              `json:"id"`
	MissionID         uuid.UUID              `json:"mission_id"`
	OpenedAt          time.Time              `json:"opened_at"`
	State             domain.SimulationState `json:"state"`
	EstimatedPosition *domain.Coordinate     `json:"estimated_position,omitempty"`
}

// NewSessionView знімає поточний стан сесії
func NewSessionView(s *application.SimulationSession) SessionView {
	view := SessionView{
		ID:        s.ID,
		MissionID: s.MissionID,
		OpenedAt:  s.OpenedAt,
		State:     s.Engine.State(),
	}
	if pos, ok := s.Engine.EstimatedPosition(); ok {
		view.EstimatedPosition = &pos
	}
	return view
}

// RegisterRoutes реєструє маршрути для SimulationHandler
func (h *SimulationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/simulations", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Post("/{action}", h.Control)
		})
	})
}

// ListSessions обробляє GET /simulations
func (h *SimulationHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.simService.List()
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, NewSessionView(s))
	}
	writeJSON(w, http.StatusOK, views)
}

// OpenSession обробляє POST /simulations
func (h *SimulationHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MissionID uuid.UUID `json:"mission_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.simService.Open(r.Context(), request.MissionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewSessionView(session))
}

// GetSession обробляє GET /simulations/{id}
func (h *SimulationHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(session))
}

// CloseSession обробляє DELETE /simulations/{id}
func (h *SimulationHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}
	if err := h.simService.Close(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Control обробляє POST /simulations/{id}/{start|pause|resume|stop}
func (h *SimulationHandler) Control(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	action := domain.ControlAction(chi.URLParam(r, "action"))
	if err := session.Engine.Apply(action); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewSessionView(session))
}

func (h *SimulationHandler) session(w http.ResponseWriter, r *http.Request) (*application.SimulationSession, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return nil, false
	}

	session, err := h.simService.Get(id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return session, true
}
