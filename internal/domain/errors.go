package domain

import (
	"errors"
	"fmt"
)

var (
	// Помилки валідації
	ErrEmptyName         = errors.New("mission name is empty")
	ErrDuplicateName     = errors.New("mission name already exists")
	ErrEmptyRoute        = errors.New("mission route has no points")
	ErrInvalidCoordinate = errors.New("coordinate out of range")

	ErrMissionNotFound      = errors.New("mission not found")
	ErrSessionNotFound      = errors.New("simulation session not found")
	ErrPointIndexOutOfRange = errors.New("point index out of range")
	ErrUnknownControl       = errors.New("unknown simulation control action")

	// Помилки збереження
	ErrPersistenceDecode  = errors.New("saved missions could not be decoded")
	ErrPersistenceWrite   = errors.New("missions could not be written")
	ErrUnsupportedVersion = errors.New("unsupported saved missions version")
)

// ValidationError описує поле, яке не пройшло перевірку перед збереженням
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation повідомляє, чи є помилка помилкою валідації
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
