package application

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"

	"drone-missions/internal/domain"
	"drone-missions/pkg/geo"
)

// RegionPadding - у скільки разів область карти більша за маршрут
const RegionPadding = 1.2

// WaypointHit - точка маршруту поблизу заданої позиції
type WaypointHit struct {
	Index          int               `json:"index"`
	Point          domain.Coordinate `json:"point"`
	DistanceMeters float64           `json:"distance_m"`
}

// ProjectedRoute - маршрут у проекції Web Mercator
type ProjectedRoute struct {
	MissionID   uuid.UUID    `json:"mission_id"`
	EPSG        int          `json:"epsg"`
	Coordinates [][2]float64 `json:"coordinates"`
}

// RouteSummary - зведення по маршруту місії
type RouteSummary struct {
	MissionID    uuid.UUID     `json:"mission_id"`
	Name         string        `json:"name"`
	Points       int           `json:"points"`
	LengthMeters float64       `json:"length_m"`
	Region       domain.Region `json:"region"`
}

// GeospatialService відповідає за геометрію маршрутів місій
type GeospatialService struct {
	store         *MissionStore
	minSpan       float64
	defaultCenter domain.Coordinate
}

// NewGeospatialService створює новий GeospatialService. minSpan - мінімальний
// розмір області карти в градусах, defaultCenter - центр для порожніх маршрутів
func NewGeospatialService(store *MissionStore, minSpan float64, defaultCenter domain.Coordinate) *GeospatialService {
	if minSpan <= 0 {
		minSpan = domain.DefaultCameraSpan
	}
	return &GeospatialService{
		store:         store,
		minSpan:       minSpan,
		defaultCenter: defaultCenter,
	}
}

// RegionForPoints підбирає область карти, що вміщує всі точки.
// Для порожнього маршруту повертається область навколо центру за замовчуванням.
func (s *GeospatialService) RegionForPoints(points []domain.Coordinate) domain.Region {
	bounds, ok := geo.BoundsOfPoints(toLatLon(points))
	if !ok {
		return domain.RegionAround(s.defaultCenter, s.minSpan)
	}
	center := bounds.Center()
	return domain.Region{
		Center:         domain.Coordinate{Latitude: center.Lat, Longitude: center.Lon},
		LatitudeDelta:  math.Max(bounds.LatSpan()*RegionPadding, s.minSpan),
		LongitudeDelta: math.Max(bounds.LonSpan()*RegionPadding, s.minSpan),
	}
}

// MissionRegion підбирає область карти для маршруту збереженої місії
func (s *GeospatialService) MissionRegion(ctx context.Context, missionID uuid.UUID) (domain.Region, error) {
	mission, err := s.store.Get(missionID)
	if err != nil {
		return domain.Region{}, err
	}
	return s.RegionForPoints(mission.Points), nil
}

// MissionGeoJSON повертає маршрут місії як GeoJSON Feature
func (s *GeospatialService) MissionGeoJSON(ctx context.Context, missionID uuid.UUID) (geom.GeoJSONFeature, error) {
	mission, err := s.store.Get(missionID)
	if err != nil {
		return geom.GeoJSONFeature{}, err
	}

	points := toLatLon(mission.Points)
	feature, err := geo.Feature(mission.ID.String(), points, map[string]interface{}{
		"id":       mission.ID.String(),
		"name":     mission.Name,
		"points":   len(points),
		"length_m": geo.Length(points),
	})
	if err != nil {
		return geom.GeoJSONFeature{}, fmt.Errorf("mission %s geometry: %w", missionID, err)
	}
	return feature, nil
}

// ProjectedRoute повертає маршрут місії в EPSG:3857
func (s *GeospatialService) ProjectedRoute(ctx context.Context, missionID uuid.UUID) (ProjectedRoute, error) {
	mission, err := s.store.Get(missionID)
	if err != nil {
		return ProjectedRoute{}, err
	}
	return ProjectedRoute{
		MissionID:   mission.ID,
		EPSG:        3857,
		Coordinates: geo.ToWebMercator(toLatLon(mission.Points)),
	}, nil
}

// WaypointsAround повертає точки маршруту в радіусі radiusMeters від center,
// найближчі першими
func (s *GeospatialService) WaypointsAround(
	ctx context.Context,
	missionID uuid.UUID,
	center domain.Coordinate,
	radiusMeters float64,
) ([]WaypointHit, error) {
	if !center.Valid() {
		return nil, &domain.ValidationError{Field: "center", Err: domain.ErrInvalidCoordinate}
	}
	mission, err := s.store.Get(missionID)
	if err != nil {
		return nil, err
	}

	origin := geo.LatLon{Lat: center.Latitude, Lon: center.Longitude}
	hits := []WaypointHit{}
	for i, p := range mission.Points {
		d := geo.Distance(origin, geo.LatLon{Lat: p.Latitude, Lon: p.Longitude})
		if d <= radiusMeters {
			hits = append(hits, WaypointHit{Index: i, Point: p, DistanceMeters: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].DistanceMeters < hits[j].DistanceMeters
	})
	return hits, nil
}

// Summary збирає дані для звіту по маршруту
func (s *GeospatialService) Summary(ctx context.Context, missionID uuid.UUID) (RouteSummary, error) {
	mission, err := s.store.Get(missionID)
	if err != nil {
		return RouteSummary{}, fmt.Errorf("mission %s: %w", missionID, err)
	}
	return RouteSummary{
		MissionID:    mission.ID,
		Name:         mission.Name,
		Points:       len(mission.Points),
		LengthMeters: geo.Length(toLatLon(mission.Points)),
		Region:       s.RegionForPoints(mission.Points),
	}, nil
}

func toLatLon(points []domain.Coordinate) []geo.LatLon {
	out := make([]geo.LatLon, len(points))
	for i, p := range points {
		out[i] = geo.LatLon{Lat: p.Latitude, Lon: p.Longitude}
	}
	return out
}
