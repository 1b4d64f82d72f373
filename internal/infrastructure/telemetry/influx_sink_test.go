package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"

	"drone-missions/internal/domain"
)

func TestStatePoint(t *testing.T) {
	sessionID := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	missionID := uuid.MustParse("b0e3b1a4-1f0c-4a52-9b57-2d3f3e2c9a10")
	ts := time.Unix(1700000000, 0)

	state := domain.SimulationState{
		MissionID:     missionID,
		Status:        domain.SimulationStatusRunning,
		CurrentIndex:  1,
		Progress:      0.5,
		DronePosition: &domain.Coordinate{Latitude: 55.76, Longitude: 37.64},
	}
	line := influxdb2_write.PointToLineProtocol(StatePoint(sessionID, state, ts), time.Second)

	assert.True(t, strings.HasPrefix(line, Measurement+","), line)
	assert.Contains(t, line, "mission_id="+missionID.String())
	assert.Contains(t, line, "session_id="+sessionID.String())
	assert.Contains(t, line, "status=running")
	assert.Contains(t, line, "current_index=1i")
	assert.Contains(t, line, "progress=0.5")
	assert.Contains(t, line, "latitude=55.76")
	assert.Contains(t, line, "longitude=37.64")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), " 1700000000"), line)
}

func TestStatePoint_WithoutPosition(t *testing.T) {
	state := domain.SimulationState{Status: domain.SimulationStatusIdle}
	line := influxdb2_write.PointToLineProtocol(StatePoint(uuid.New(), state, time.Now()), time.Nanosecond)

	assert.Contains(t, line, "status=idle")
	assert.NotContains(t, line, "latitude")
}
