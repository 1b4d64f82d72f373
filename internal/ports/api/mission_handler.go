package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"drone-missions/internal/application"
	"drone-missions/internal/domain"
)

// MissionHandler обробляє HTTP-запити, пов'язані з місіями
type MissionHandler struct {
	store *application.MissionStore
}

// NewMissionHandler створює новий MissionHandler
func NewMissionHandler(store *application.MissionStore) *MissionHandler {
	return &MissionHandler{
		store: store,
	}
}

type missionRequest struct {
	Name   string              `json:"name"`
	Points []domain.Coordinate `json:"points"`
}

type missionResponse struct {
	domain.Mission
	PersistenceWarning string `json:"persistence_warning,omitempty"`
}

// RegisterRoutes реєструє маршрути для MissionHandler
func (h *MissionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/missions", func(r chi.Router) {
		r.Get("/", h.ListMissions)
		r.Post("/", h.CreateMission)
		r.Delete("/at/{index}", h.DeleteMissionAt)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetMission)
			r.Put("/", h.UpdateMission)
			r.Delete("/", h.DeleteMission)
			r.Post("/points", h.AppendPoint)
			r.Post("/points/move", h.MovePoint)
			r.Delete("/points/{index}", h.RemovePoint)
		})
	})
}

// ListMissions обробляє GET /missions
func (h *MissionHandler) ListMissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.List())
}

// CreateMission обробляє POST /missions
func (h *MissionHandler) CreateMission(w http.ResponseWriter, r *http.Request) {
	var request missionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mission, err := h.store.Create(r.Context(), request.Name, request.Points)
	h.respondMission(w, http.StatusCreated, mission, err)
}

// GetMission обробляє GET /missions/{id}
func (h *MissionHandler) GetMission(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}

	mission, err := h.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mission)
}

// UpdateMission обробляє PUT /missions/{id}
func (h *MissionHandler) UpdateMission(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}

	var request missionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mission, err := h.store.Update(r.Context(), id, request.Name, request.Points)
	h.respondMission(w, http.StatusOK, mission, err)
}

// DeleteMission обробляє DELETE /missions/{id}
func (h *MissionHandler) DeleteMission(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}
	h.respondDeleted(w, h.store.Delete(r.Context(), id))
}

// DeleteMissionAt обробляє DELETE /missions/at/{index}
func (h *MissionHandler) DeleteMissionAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid mission index", http.StatusBadRequest)
		return
	}
	h.respondDeleted(w, h.store.DeleteAt(r.Context(), index))
}

// AppendPoint обробляє POST /missions/{id}/points
func (h *MissionHandler) AppendPoint(w http.ResponseWriter, r *http.Request) {
	var point domain.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&point); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.editDraft(w, r, func(d *domain.MissionDraft) error {
		d.Append(point)
		return nil
	})
}

// RemovePoint обробляє DELETE /missions/{id}/points/{index}
func (h *MissionHandler) RemovePoint(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid point index", http.StatusBadRequest)
		return
	}

	h.editDraft(w, r, func(d *domain.MissionDraft) error {
		return d.RemoveAt(index)
	})
}

// MovePoint обробляє POST /missions/{id}/points/move
func (h *MissionHandler) MovePoint(w http.ResponseWriter, r *http.Request) {
	var request struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.editDraft(w, r, func(d *domain.MissionDraft) error {
		return d.Move(request.From, request.To)
	})
}

// editDraft змінює маршрут збереженої місії як чернетку і зберігає результат
func (h *MissionHandler) editDraft(w http.ResponseWriter, r *http.Request, edit func(*domain.MissionDraft) error) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}

	mission, err := h.store.EditPoints(r.Context(), id, edit)
	h.respondMission(w, http.StatusOK, mission, err)
}

func (h *MissionHandler) respondMission(w http.ResponseWriter, status int, mission domain.Mission, err error) {
	warning, ok := persistenceWarning(err)
	if !ok {
		writeError(w, err)
		return
	}
	writeJSON(w, status, missionResponse{Mission: mission, PersistenceWarning: warning})
}

func (h *MissionHandler) respondDeleted(w http.ResponseWriter, err error) {
	warning, ok := persistenceWarning(err)
	if !ok {
		writeError(w, err)
		return
	}
	if warning != "" {
		writeJSON(w, http.StatusOK, map[string]string{"persistence_warning": warning})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func missionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid mission ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
