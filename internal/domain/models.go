package domain

import (
	"math"

	"github.com/google/uuid"
)

// Enums для статусів
type SimulationStatus string
type MissionEventType string
type ControlAction string

const (
	// Статуси симуляції
	SimulationStatusIdle      SimulationStatus = "idle"
	SimulationStatusRunning   SimulationStatus = "running"
	SimulationStatusPaused    SimulationStatus = "paused"
	SimulationStatusCompleted SimulationStatus = "completed"

	// Типи подій сховища місій
	MissionEventCreated MissionEventType = "created"
	MissionEventUpdated MissionEventType = "updated"
	MissionEventDeleted MissionEventType = "deleted"
	// Спостерігач пропустив події і має перечитати колекцію
	MissionEventResync MissionEventType = "resync"

	// Команди керування симуляцією
	ControlStart  ControlAction = "start"
	ControlPause  ControlAction = "pause"
	ControlResume ControlAction = "resume"
	ControlStop   ControlAction = "stop"
)

// DefaultCameraSpan - розмах області карти в градусах за замовчуванням
const DefaultCameraSpan = 0.05

// DefaultCenter - центр карти, коли маршрут ще порожній
var DefaultCenter = Coordinate{Latitude: 55.75, Longitude: 37.62}

// Coordinate представляє незмінну пару широта/довгота
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid перевіряє, що координата лежить у допустимих межах
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Mission представляє іменований маршрут дрона
type Mission struct {
	ID     uuid.UUID    `json:"id"`
	Name   string       `json:"name"`
	Points []Coordinate `json:"points"`
}

// Clone повертає копію місії, яка не ділить точки з оригіналом
func (m Mission) Clone() Mission {
	points := make([]Coordinate, len(m.Points))
	copy(points, m.Points)
	m.Points = points
	return m
}

// Equal порівнює місії за ID, назвою та маршрутом
func (m Mission) Equal(other Mission) bool {
	if m.ID != other.ID || m.Name != other.Name || len(m.Points) != len(other.Points) {
		return false
	}
	for i := range m.Points {
		if m.Points[i] != other.Points[i] {
			return false
		}
	}
	return true
}

// Region представляє видиму область карти (центр + розмах)
type Region struct {
	Center         Coordinate `json:"center"`
	LatitudeDelta  float64    `json:"latitude_delta"`
	LongitudeDelta float64    `json:"longitude_delta"`
}

// RegionAround будує область заданого розмаху навколо точки
func RegionAround(center Coordinate, span float64) Region {
	return Region{Center: center, LatitudeDelta: span, LongitudeDelta: span}
}

// Transition описує переліт між двома точками, який спостерігач може анімувати
type Transition struct {
	From       Coordinate `json:"from"`
	To         Coordinate `json:"to"`
	DurationMs int64      `json:"duration_ms"`
}

// Interpolate лінійно інтерполює позицію між двома точками, fraction в [0,1]
func Interpolate(from, to Coordinate, fraction float64) Coordinate {
	if fraction <= 0 {
		return from
	}
	if fraction >= 1 {
		return to
	}
	return Coordinate{
		Latitude:  from.Latitude + (to.Latitude-from.Latitude)*fraction,
		Longitude: from.Longitude + (to.Longitude-from.Longitude)*fraction,
	}
}

// SimulationState - знімок стану симуляції для спостерігачів
type SimulationState struct {
	MissionID     uuid.UUID        `json:"mission_id"`
	Status        SimulationStatus `json:"status"`
	CurrentIndex  int              `json:"current_index"`
	DronePosition *Coordinate      `json:"drone_position,omitempty"`
	Progress      float64          `json:"progress"`
	Transition    *Transition      `json:"transition,omitempty"`
	Camera        *Region          `json:"camera,omitempty"`
}

// MissionEvent повідомляє спостерігачів про зміну колекції місій
type MissionEvent struct {
	Type    MissionEventType `json:"type"`
	Mission Mission          `json:"mission"`
	Index   int              `json:"index"`
}
