package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/optimistic"
	"github.com/dukerupert/aisle/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}
	return true
}

// writeError maps an error kind to a status code. Validation failures also
// carry the offending fields.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var v validation.Violations
	switch {
	case errors.As(err, &v):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": v.Error(), "fields": v})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, model.ErrDuplicate), errors.Is(err, model.ErrReferenced):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// respond writes the optimistic result. The store write is still in flight,
// so the status is 202 unless the request asked to wait with ?wait=true, in
// which case the outcome of the write decides the status.
func respond(w http.ResponseWriter, r *http.Request, logger *slog.Logger, p *optimistic.Pending, status int, body any) {
	if body == nil {
		body = map[string]string{"status": "accepted"}
	}
	if p != nil && r.URL.Query().Get("wait") == "true" {
		if err := p.Wait(r.Context()); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusAccepted, body)
}
