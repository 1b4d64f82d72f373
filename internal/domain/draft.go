package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// MissionDraft - чернетка місії, яку редагує користувач до збереження
type MissionDraft struct {
	// MissionID дорівнює uuid.Nil для нової місії
	MissionID uuid.UUID
	Name      string
	Points    []Coordinate
}

// NewDraft створює порожню чернетку нової місії
func NewDraft(name string) *MissionDraft {
	return &MissionDraft{Name: name}
}

// DraftFromMission створює чернетку для редагування наявної місії
func DraftFromMission(m Mission) *MissionDraft {
	c := m.Clone()
	return &MissionDraft{MissionID: c.ID, Name: c.Name, Points: c.Points}
}

// Append додає точку в кінець маршруту
func (d *MissionDraft) Append(c Coordinate) {
	d.Points = append(d.Points, c)
}

// RemoveAt видаляє точку за індексом, зберігаючи порядок решти
func (d *MissionDraft) RemoveAt(index int) error {
	if index < 0 || index >= len(d.Points) {
		return fmt.Errorf("remove %d of %d: %w", index, len(d.Points), ErrPointIndexOutOfRange)
	}
	d.Points = append(d.Points[:index], d.Points[index+1:]...)
	return nil
}

// Move переносить точку з позиції from на позицію to в результуючому списку
func (d *MissionDraft) Move(from, to int) error {
	n := len(d.Points)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d to %d of %d: %w", from, to, n, ErrPointIndexOutOfRange)
	}
	if from == to {
		return nil
	}
	p := d.Points[from]
	if from < to {
		copy(d.Points[from:to], d.Points[from+1:to+1])
	} else {
		copy(d.Points[to+1:from+1], d.Points[to:from])
	}
	d.Points[to] = p
	return nil
}
