package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/lib/logger/sl"
)

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// statusFor maps the domain taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Message: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Message = "the given data was invalid"
		body.Errors = verr.Fields
	}
	if status == http.StatusInternalServerError {
		slog.Default().Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			sl.Err(err),
		)
		body.Message = "internal server error"
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
