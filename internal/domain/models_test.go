package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	from := Coordinate{Latitude: 10, Longitude: 20}
	to := Coordinate{Latitude: 20, Longitude: 40}

	assert.Equal(t, from, Interpolate(from, to, -0.5))
	assert.Equal(t, to, Interpolate(from, to, 1.5))
	assert.Equal(t, Coordinate{Latitude: 15, Longitude: 30}, Interpolate(from, to, 0.5))
}

func TestCoordinate_Valid(t *testing.T) {
	assert.True(t, Coordinate{Latitude: 90, Longitude: -180}.Valid())
	assert.False(t, Coordinate{Latitude: 90.1, Longitude: 0}.Valid())
	assert.False(t, Coordinate{Latitude: 0, Longitude: 180.5}.Valid())
}

func TestMission_Equal(t *testing.T) {
	m := Mission{ID: uuid.New(), Name: "Alpha", Points: []Coordinate{p0, p1}}

	assert.True(t, m.Equal(m.Clone()))

	renamed := m.Clone()
	renamed.Name = "Beta"
	assert.False(t, m.Equal(renamed))

	moved := m.Clone()
	moved.Points[1] = p2
	assert.False(t, m.Equal(moved))

	longer := m.Clone()
	longer.Points = append(longer.Points, p2)
	assert.False(t, m.Equal(longer))

	other := m.Clone()
	other.ID = uuid.New()
	assert.False(t, m.Equal(other))
}
