package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	p0 = Coordinate{Latitude: 55.75, Longitude: 37.62}
	p1 = Coordinate{Latitude: 55.76, Longitude: 37.63}
	p2 = Coordinate{Latitude: 55.77, Longitude: 37.64}
)

func TestMissionDraft_RemoveAt(t *testing.T) {
	d := NewDraft("route")
	d.Append(p0)
	d.Append(p1)
	d.Append(p2)

	require.NoError(t, d.RemoveAt(1))
	assert.Equal(t, []Coordinate{p0, p2}, d.Points)
}

func TestMissionDraft_RemoveAtOutOfRange(t *testing.T) {
	d := NewDraft("route")
	d.Append(p0)

	err := d.RemoveAt(1)
	assert.True(t, errors.Is(err, ErrPointIndexOutOfRange))
	err = d.RemoveAt(-1)
	assert.True(t, errors.Is(err, ErrPointIndexOutOfRange))
	assert.Equal(t, []Coordinate{p0}, d.Points)
}

func TestMissionDraft_Move(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []Coordinate
	}{
		{"first to last", 0, 2, []Coordinate{p1, p2, p0}},
		{"last to first", 2, 0, []Coordinate{p2, p0, p1}},
		{"middle down", 1, 2, []Coordinate{p0, p2, p1}},
		{"same index", 1, 1, []Coordinate{p0, p1, p2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &MissionDraft{Points: []Coordinate{p0, p1, p2}}
			require.NoError(t, d.Move(tt.from, tt.to))
			assert.Equal(t, tt.want, d.Points)
		})
	}
}

func TestMissionDraft_MoveOutOfRange(t *testing.T) {
	d := &MissionDraft{Points: []Coordinate{p0, p1}}
	assert.ErrorIs(t, d.Move(0, 2), ErrPointIndexOutOfRange)
	assert.ErrorIs(t, d.Move(-1, 0), ErrPointIndexOutOfRange)
	assert.Equal(t, []Coordinate{p0, p1}, d.Points)
}

func TestDraftFromMission_DoesNotAliasPoints(t *testing.T) {
	m := Mission{ID: uuid.New(), Name: "alpha", Points: []Coordinate{p0, p1}}
	d := DraftFromMission(m)
	require.NoError(t, d.RemoveAt(0))

	assert.Equal(t, m.ID, d.MissionID)
	assert.Equal(t, []Coordinate{p0, p1}, m.Points)
}

func TestValidationError_Unwrap(t *testing.T) {
	err := error(&ValidationError{Field: "name", Err: ErrDuplicateName})
	assert.True(t, errors.Is(err, ErrDuplicateName))
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(ErrMissionNotFound))
	assert.Equal(t, "invalid name: mission name already exists", err.Error())
}
