package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"drone-missions/internal/domain"
)

// statusFor відображає помилки ядра на HTTP-статуси
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDuplicateName):
		return http.StatusConflict
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrPointIndexOutOfRange),
		errors.Is(err, domain.ErrUnknownControl):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrMissionNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// persistenceWarning повертає текст попередження, якщо зміна застосована,
// але не записана; ok=false означає справжню помилку
func persistenceWarning(err error) (warning string, ok bool) {
	if err == nil {
		return "", true
	}
	if errors.Is(err, domain.ErrPersistenceWrite) {
		return err.Error(), true
	}
	return "", false
}
