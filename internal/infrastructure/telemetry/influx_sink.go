package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"drone-missions/internal/domain"
)

// Measurement - назва вимірювання для станів симуляції
const Measurement = "simulation_state"

// InfluxConfig містить параметри підключення до InfluxDB
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink записує стани симуляції в InfluxDB через асинхронний WriteAPI
type InfluxSink struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI
	bucket string
	log    zerolog.Logger
	now    func() time.Time
}

// NewInfluxSink створює клієнт і асинхронний writer для bucket
func NewInfluxSink(cfg InfluxConfig, log zerolog.Logger) *InfluxSink {
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)
	s := &InfluxSink{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket: cfg.Bucket,
		log:    log.With().Str("component", "influx_sink").Logger(),
		now:    time.Now,
	}

	errorsCh := s.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			s.log.Error().Err(writeErr).Str("bucket", s.bucket).Msg("Error sending telemetry to InfluxDB")
		}
	}()
	return s
}

// Ping перевіряє доступність сервера
func (s *InfluxSink) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb ping: %w", err)
	}
	if !ok {
		return fmt.Errorf("influxdb at %s is not ready", s.client.ServerURL())
	}
	return nil
}

// RecordState ставить стан у чергу на запис; помилки доставки логуються окремо
func (s *InfluxSink) RecordState(ctx context.Context, sessionID uuid.UUID, state domain.SimulationState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writer.WritePoint(StatePoint(sessionID, state, s.now()))
	return nil
}

// Close дописує чергу і закриває клієнт
func (s *InfluxSink) Close() error {
	s.writer.Flush()
	s.client.Close()
	return nil
}

// StatePoint перетворює стан симуляції на точку InfluxDB
func StatePoint(sessionID uuid.UUID, state domain.SimulationState, ts time.Time) *influxdb2_write.Point {
	tags := map[string]string{
		"session_id": sessionID.String(),
		"mission_id": state.MissionID.String(),
		"status":     string(state.Status),
	}
	fields := map[string]interface{}{
		"current_index": state.CurrentIndex,
		"progress":      state.Progress,
	}
	if state.DronePosition != nil {
		fields["latitude"] = state.DronePosition.Latitude
		fields["longitude"] = state.DronePosition.Longitude
	}
	return influxdb2.NewPoint(Measurement, tags, fields, ts)
}
