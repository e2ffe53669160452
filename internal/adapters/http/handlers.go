package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/period"
	"gymdesk/internal/domain/sequence"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// retryAfterSeconds is sent with 503 and 429 responses.
const retryAfterSeconds = "5"

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err.Error())
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// writeError maps domain and store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestrators.ErrRegistrationThrottled):
		w.Header().Set("Retry-After", retryAfterSeconds)
		status = http.StatusTooManyRequests
	case errors.Is(err, storage.ErrStoreUnavailable):
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: storage.ErrStoreUnavailable.Error()})
		return
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, attendance.ErrMembershipExpired):
		status = http.StatusForbidden
	case errors.Is(err, attendance.ErrAlreadyMarked),
		errors.Is(err, sequence.ErrCounterDrift),
		errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, orchestrators.ErrEntryTerminal):
		status = http.StatusConflict
	case errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, billing.ErrInvalidDuration),
		errors.Is(err, orchestrators.ErrInvalidInput):
		status = http.StatusBadRequest
	default:
		internalError(w, err)
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// storeCtx bounds a request's store calls by the configured timeout.
func (h *handlers) storeCtx(r *http.Request) (context.Context, context.CancelFunc) {
	if h.opts.StoreTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.opts.StoreTimeout)
}

func (h *handlers) today() time.Time {
	return period.Day(h.opts.Now())
}

// parseOptionalDay parses YYYY-MM-DD; empty yields the zero time.
func parseOptionalDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return period.Parse(s)
}

// handleHealth handles GET /healthz
func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeCtx(r)
	defer cancel()

	checks := make(map[string]string, len(h.opts.Health))
	healthy := true
	for name, db := range h.opts.Health {
		if err := db.PingContext(ctx); err != nil {
			slog.Warn("health_check_failed", "db", name, "error", err.Error())
			checks[name] = "unavailable"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ok": healthy, "checks": checks})
}
