package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"lakemerge/internal/domain"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusForError maps a domain error onto an HTTP status. Reconciliation
// failures (bad data, not bad requests) map to 422.
func statusForError(err error) int {
	switch {
	case errors.As(err, new(*domain.NotFoundError)):
		return http.StatusNotFound
	case errors.As(err, new(*domain.ValidationError)):
		return http.StatusBadRequest
	case errors.As(err, new(*domain.SchemaError)),
		errors.As(err, new(*domain.CastError)),
		errors.As(err, new(*domain.NullabilityError)),
		errors.As(err, new(*domain.MergeKeyError)):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	writeJSON(w, status, errorBody{Code: status, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
