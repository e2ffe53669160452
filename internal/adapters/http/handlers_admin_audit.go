package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"gymdesk/internal/adapters/http/middleware"
	auditStore "gymdesk/internal/adapters/storage/audit"
	auditDomain "gymdesk/internal/domain/audit"
)

// recordAudit stores one admin action. A failed write is logged and the
// admin response goes out unchanged.
// PRE: r is the admin request; actionErr is the action's result
// POST: Event saved when an audit store is configured
func (h *handlers) recordAudit(ctx context.Context, r *http.Request, event auditDomain.Event, actionErr error) {
	if h.stores.AuditStore == nil {
		return
	}
	event = event.WithRequest(middleware.ClientIP(r), r.UserAgent())
	if actionErr != nil {
		event = event.Rejected(actionErr.Error())
	}
	if err := h.stores.AuditStore.Save(ctx, event); err != nil {
		slog.Warn("audit_save_failed", "action", string(event.Action), "resource_id", event.ResourceID, "error", err.Error())
	}
}

// newAuditEvent stamps an event with the handler clock.
func (h *handlers) newAuditEvent(category auditDomain.Category, action auditDomain.Action) auditDomain.Event {
	e, err := auditDomain.NewEvent(category, action, h.opts.Now())
	if err != nil {
		// Only reachable with empty constants.
		slog.Error("audit_event_invalid", "error", err.Error())
	}
	return e
}

// handleAuditTrail handles GET /admin/audit?category=&action=&resource_id=&limit=
func (h *handlers) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.stores.AuditStore == nil {
		writeJSON(w, http.StatusOK, map[string]any{"events": []auditDomain.Event{}})
		return
	}
	q := r.URL.Query()
	filter := auditStore.Filter{
		Category:   auditDomain.Category(q.Get("category")),
		Action:     auditDomain.Action(q.Get("action")),
		ResourceID: q.Get("resource_id"),
	}
	limit := 100
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	ctx, cancel := h.storeCtx(r)
	defer cancel()
	events, err := h.stores.AuditStore.List(ctx, filter, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []auditDomain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
