package ports

import (
	"context"

	"github.com/google/uuid"

	"drone-missions/internal/domain"
)

// TelemetrySink приймає стани симуляції для зовнішнього запису
type TelemetrySink interface {
	RecordState(ctx context.Context, sessionID uuid.UUID, state domain.SimulationState) error
	Close() error
}
