// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/apperr"
	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
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

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	err := decodeJSON(w, r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeServiceError maps a service error onto a status code.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zerolog.Logger, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case apperr.KindNotFound:
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case apperr.KindUnauthorized:
		if _, ok := auth.ActorFrom(r.Context()); ok {
			writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
			return
		}
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case apperr.KindInvalidState:
		writeError(w, http.StatusConflict, "INVALID_STATE", err.Error())
	case apperr.KindConflict:
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case apperr.KindDuplicate:
		writeError(w, http.StatusConflict, "DUPLICATE", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

func actor(r *http.Request) model.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
