package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/audit"
	"gymdesk/internal/domain/outbox"
)

type allocationJSON struct {
	RollNumber string `json:"roll_number"`
	Value      int64  `json:"value"`
	Degraded   bool   `json:"degraded"`
}

func (h *handlers) sequenceDeps() orchestrators.SequenceDeps {
	return orchestrators.SequenceDeps{MemberStore: h.stores.MemberStore, Allocator: h.opts.Allocator}
}

// handlePeekSequence handles GET /admin/sequence
// The previewed number is not consumed.
func (h *handlers) handlePeekSequence(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeCtx(r)
	defer cancel()
	a, err := orchestrators.ExecutePeekRollNumber(ctx, h.sequenceDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"next":    allocationJSON{RollNumber: a.RollNumber, Value: a.Value, Degraded: a.Degraded},
		"current": h.opts.Allocator.Current(),
	})
}

type overrideRequest struct {
	Value int64 `json:"value"`
}

// handleOverrideSequence handles POST /admin/sequence/override
func (h *handlers) handleOverrideSequence(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := strictDecode(w, r, &req); err != nil {
		badRequest(w, "Invalid request")
		return
	}
	ctx, cancel := h.storeCtx(r)
	defer cancel()
	before := h.opts.Allocator.Current()
	err := orchestrators.ExecuteSetCounterOverride(ctx, req.Value, h.sequenceDeps())
	h.recordAudit(ctx, r, h.newAuditEvent(audit.CategorySequence, audit.ActionCounterOverride).
		WithResource("roll_counter", "").
		WithDescription(fmt.Sprintf("%d -> %d", before, req.Value)), err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"current": h.opts.Allocator.Current()})
}

type outboxEntryJSON struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"action_type"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExternalID      string     `json:"external_id,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func toOutboxJSON(e outbox.Entry) outboxEntryJSON {
	out := outboxEntryJSON{
		ID:           e.ID,
		ActionType:   e.ActionType,
		Status:       e.Status,
		Attempts:     e.Attempts,
		MaxAttempts:  e.MaxAttempts,
		CreatedAt:    e.CreatedAt,
		ExternalID:   e.ExternalID,
		ErrorMessage: e.ErrorMessage,
	}
	if !e.LastAttemptedAt.IsZero() {
		t := e.LastAttemptedAt
		out.LastAttemptedAt = &t
	}
	return out
}

// handleListOutbox handles GET /admin/outbox?status=failed|pending&action=&limit=
// Payloads are not returned; they carry member contact details.
func (h *handlers) handleListOutbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}
	status := q.Get("status")
	if status == "" {
		status = outbox.StatusFailed
	}

	ctx, cancel := h.storeCtx(r)
	defer cancel()

	var entries []outbox.Entry
	var err error
	switch {
	case q.Get("action") != "":
		entries, err = h.stores.OutboxStore.ListByActionType(ctx, q.Get("action"), q.Get("status"), limit)
	case status == outbox.StatusFailed:
		entries, err = h.stores.OutboxStore.ListFailed(ctx, limit)
	case status == outbox.StatusPending:
		entries, err = h.stores.OutboxStore.ListPending(ctx, limit)
	default:
		badRequest(w, "status must be failed or pending")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]outboxEntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, toOutboxJSON(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// handleOutboxAction handles POST /admin/outbox/{id}/retry and /admin/outbox/{id}/abandon
func (h *handlers) handleOutboxAction(w http.ResponseWriter, r *http.Request) {
	if h.opts.Processor == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "outbox processor is not running"})
		return
	}
	id := r.PathValue("id")
	ctx, cancel := h.storeCtx(r)
	defer cancel()

	switch r.PathValue("action") {
	case "retry":
		e, err := h.opts.Processor.ProcessSingle(ctx, id)
		h.recordAudit(ctx, r, h.newAuditEvent(audit.CategoryOutbox, audit.ActionOutboxRetry).
			WithResource("outbox_entry", id), err)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toOutboxJSON(e))
	case "abandon":
		err := h.opts.Processor.AbandonEntry(ctx, id)
		h.recordAudit(ctx, r, h.newAuditEvent(audit.CategoryOutbox, audit.ActionOutboxAbandon).
			WithResource("outbox_entry", id), err)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": outbox.StatusAbandoned})
	default:
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown action"})
	}
}
