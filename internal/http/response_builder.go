package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"billed/internal/core"
	"billed/internal/store"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{Error: code, ErrorDescription: description})
}

// statusForError maps store and domain errors to an HTTP status and code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrInvalidFileType):
		return http.StatusUnsupportedMediaType, "invalid_file_type"
	case errors.Is(err, core.ErrInvalidStatus), errors.Is(err, core.ErrMalformedDate):
		return http.StatusUnprocessableEntity, "invalid_bill"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
