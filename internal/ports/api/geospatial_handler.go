package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"drone-missions/internal/application"
	"drone-missions/internal/domain"
)

// GeospatialHandler обробляє HTTP-запити, пов'язані з геометрією маршрутів
type GeospatialHandler struct {
	geoService *application.GeospatialService
}

// NewGeospatialHandler створює новий GeospatialHandler
func NewGeospatialHandler(geoService *application.GeospatialService) *GeospatialHandler {
	return &GeospatialHandler{
		geoService: geoService,
	}
}

// RegisterRoutes реєструє маршрути для GeospatialHandler
func (h *GeospatialHandler) RegisterRoutes(r chi.Router) {
	r.Route("/geo", func(r chi.Router) {
		r.Post("/region", h.FitRegion)
		r.Route("/missions/{id}", func(r chi.Router) {
			r.Get("/region", h.GetMissionRegion)
			r.Get("/geojson", h.GetMissionGeoJSON)
			r.Get("/projected", h.GetProjectedRoute)
			r.Get("/waypoints", h.GetWaypointsAround)
			r.Get("/summary", h.GetSummary)
		})
	})
}

// FitRegion обробляє POST /geo/region: область карти для довільних точок чернетки
func (h *GeospatialHandler) FitRegion(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Points []domain.Coordinate `json:"points"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.geoService.RegionForPoints(request.Points))
}

// GetMissionRegion обробляє GET /geo/missions/{id}/region
func (h *GeospatialHandler) GetMissionRegion(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}

	region, err := h.geoService.MissionRegion(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

// GetMissionGeoJSON обробляє GET /geo/missions/{id}/geojson
func (h *GeospatialHandler) GetMissionGeoJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}

	feature, err := h.geoService.MissionGeoJSON(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := json.Marshal(feature)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

// GetProjectedRoute обробляє GET /geo/missions/{id}/projected
func (h *GeospatialHandler) GetProjectedRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}

	route, err := h.geoService.ProjectedRoute(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// GetWaypointsAround обробляє GET /geo/missions/{id}/waypoints?lat=&lon=&radius=
func (h *GeospatialHandler) GetWaypointsAround(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}

	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	radiusStr := r.URL.Query().Get("radius")

	if latStr == "" || lonStr == "" {
		http.Error(w, "Latitude and longitude are required", http.StatusBadRequest)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		http.Error(w, "Invalid latitude", http.StatusBadRequest)
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		http.Error(w, "Invalid longitude", http.StatusBadRequest)
		return
	}

	radius := 100.0 // За замовчуванням - 100 метрів
	if radiusStr != "" {
		parsedRadius, err := strconv.ParseFloat(radiusStr, 64)
		if err == nil && parsedRadius > 0 {
			radius = parsedRadius
		}
	}

	center := domain.Coordinate{Latitude: lat, Longitude: lon}
	hits, err := h.geoService.WaypointsAround(r.Context(), id, center, radius)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// GetSummary обробляє GET /geo/missions/{id}/summary
func (h *GeospatialHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}

	summary, err := h.geoService.Summary(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
