// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

const (
	codeInvalidRequestBody    = "invalid_request_body"
	codeValidationFailed      = "validation_failed"
	codeInvalidID             = "invalid_id"
	codeNotFound              = "not_found"
	codeTournamentNotFound    = "tournament_not_found"
	codeRegistrationNotFound  = "registration_not_found"
	codeDuplicateRegistration = "duplicate_registration"
	codeCapacityExceeded      = "capacity_exceeded"
	codeInvalidState          = "invalid_state"
	codeConcurrencyConflict   = "concurrency_conflict"
	codeMethodNotAllowed      = "method_not_allowed"
	codeOwnerRequired         = "owner_required"
	codeUnauthorized          = "unauthorized"
	codeForbidden             = "forbidden"
	codeInternalError         = "internal_error"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// pathID returns the {id} URL parameter if it is a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidID, "id must be a UUID")
		return "", false
	}
	return id, true
}

// writeServiceError maps service and store errors onto HTTP responses.
// Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	case errors.Is(err, model.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, model.ErrTournamentNotFound):
		writeError(w, http.StatusNotFound, codeTournamentNotFound, "tournament not found")
	case errors.Is(err, model.ErrRegistrationNotFound):
		writeError(w, http.StatusNotFound, codeRegistrationNotFound, "registration not found")
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	case errors.Is(err, model.ErrDuplicateRegistration):
		writeError(w, http.StatusConflict, codeDuplicateRegistration, "you are already registered for this tournament")
	case errors.Is(err, model.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, codeCapacityExceeded, "tournament is full")
	case errors.Is(err, model.ErrInvalidState):
		writeError(w, http.StatusConflict, codeInvalidState, err.Error())
	case errors.Is(err, model.ErrConcurrencyConflict):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusConflict, codeConcurrencyConflict, "the request raced with another update, please retry")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// NotFound and MethodNotAllowed keep chi's fallbacks on the JSON envelope.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
}

func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
