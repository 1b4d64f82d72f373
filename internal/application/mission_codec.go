package application

import (
	"bytes"
	"encoding/json"
	"fmt"

	"drone-missions/internal/domain"
)

// MissionsFormatVersion - поточна версія формату збережених місій
const MissionsFormatVersion = 1

type missionsEnvelope struct {
	Version  int              `json:"version"`
	Missions []domain.Mission `json:"missions"`
}

// EncodeMissions серіалізує всю колекцію місій у версіонований JSON
func EncodeMissions(missions []domain.Mission) ([]byte, error) {
	if missions == nil {
		missions = []domain.Mission{}
	}
	data, err := json.Marshal(missionsEnvelope{
		Version:  MissionsFormatVersion,
		Missions: missions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode missions: %w", err)
	}
	return data, nil
}

// DecodeMissions розбирає збережені місії. Підтримує як версіонований формат,
// так і старий масив місій без версії.
func DecodeMissions(data []byte) ([]domain.Mission, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrPersistenceDecode)
	}

	var missions []domain.Mission
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &missions); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceDecode, err)
		}
	} else {
		var env missionsEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceDecode, err)
		}
		if env.Version < 1 || env.Version > MissionsFormatVersion {
			return nil, fmt.Errorf("%w: %w %d", domain.ErrPersistenceDecode, domain.ErrUnsupportedVersion, env.Version)
		}
		missions = env.Missions
	}

	if missions == nil {
		missions = []domain.Mission{}
	}
	for i := range missions {
		if missions[i].Points == nil {
			missions[i].Points = []domain.Coordinate{}
		}
	}
	return missions, nil
}
