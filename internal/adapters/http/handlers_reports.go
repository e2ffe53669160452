package web

import (
	"net/http"

	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/period"
)

// handleAttendance handles GET /api/attendance?date=YYYY-MM-DD
// The date defaults to today.
func (h *handlers) handleAttendance(w http.ResponseWriter, r *http.Request) {
	day, err := parseOptionalDay(r.URL.Query().Get("date"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if day.IsZero() {
		day = h.today()
	}

	ctx, cancel := h.storeCtx(r)
	defer cancel()
	rows, err := projections.QueryGetAttendanceForDate(ctx, day, projections.GetAttendanceForDateDeps{
		AttendanceStore: h.stores.AttendanceStore,
		MemberStore:     h.stores.MemberStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]attendanceJSON, 0, len(rows))
	for _, row := range rows {
		a := toAttendanceJSON(row.Record)
		a.RollNumber, a.Name = row.RollNumber, row.Name
		out = append(out, a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": period.Format(day), "attendance": out})
}

// handleDashboard handles GET /api/dashboard
func (h *handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeCtx(r)
	defer cancel()
	d, err := projections.QueryGetDashboard(ctx, h.today(), projections.GetDashboardDeps{
		MemberStore:     h.stores.MemberStore,
		AttendanceStore: h.stores.AttendanceStore,
		Outbox:          h.stores.OutboxStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardJSON{
		Date:             period.Format(d.Today),
		TotalMembers:     d.TotalMembers,
		ByLifecycle:      d.ByLifecycle,
		ByPayment:        d.ByPayment,
		OutstandingTotal: d.OutstandingTotal,
		CheckedInToday:   d.CheckedInToday,
		PendingSync:      d.PendingSync,
		FailedOutbox:     d.FailedOutbox,
	})
}

// handleShortlist handles GET /api/shortlist
func (h *handlers) handleShortlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeCtx(r)
	defer cancel()
	views, err := projections.QueryGetShortlist(ctx, h.today(), projections.GetShortlistDeps{MemberStore: h.stores.MemberStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": toMemberViews(views)})
}
