package web

import (
	"net/http"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
)

type registerRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Tier          string `json:"tier"`
	Fee           *int64 `json:"fee"`
	InitialPaid   int64  `json:"initial_paid"`
	JoinDate      string `json:"join_date"`
	DurationValue int    `json:"duration_value"`
	DurationUnit  string `json:"duration_unit"`
}

type registerResponse struct {
	Member  memberJSON   `json:"member"`
	Payment *paymentJSON `json:"payment,omitempty"`
	Offline bool         `json:"offline"`
}

// handleRegisterMember handles POST /api/members
// A registration queued for later sync answers 202 instead of 201.
func (h *handlers) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := strictDecode(w, r, &req); err != nil {
		badRequest(w, "Invalid request")
		return
	}
	joinDate, err := parseOptionalDay(req.JoinDate)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	ctx, cancel := h.storeCtx(r)
	defer cancel()
	res, err := orchestrators.ExecuteRegisterMember(ctx, orchestrators.RegisterMemberInput{
		Name:          req.Name,
		Phone:         req.Phone,
		Email:         req.Email,
		Tier:          req.Tier,
		Fee:           req.Fee,
		InitialPaid:   req.InitialPaid,
		JoinDate:      joinDate,
		DurationValue: req.DurationValue,
		DurationUnit:  req.DurationUnit,
	}, orchestrators.RegisterMemberDeps{
		MemberStore:  h.stores.MemberStore,
		PaymentStore: h.stores.PaymentStore,
		Outbox:       h.stores.OutboxStore,
		Allocator:    h.opts.Allocator,
		Throttle:     h.opts.RegistrationLimit,
		Now:          h.opts.Now,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := registerResponse{Member: toMemberJSON(res.Member), Offline: res.Offline}
	if res.Payment != nil {
		p := toPaymentJSON(*res.Payment)
		resp.Payment = &p
	}
	status := http.StatusCreated
	if res.Offline {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

// handleListMembers handles GET /api/members
func (h *handlers) handleListMembers(w http.ResponseWriter, r *http.Request) {
	lp := listutil.ParseListParams(r.URL.Query(), projections.MemberListSortColumns, projections.MemberListFilterKeys)
	if !projections.IsValidStatusFilter(lp.Filters["status"]) {
		badRequest(w, "unknown status filter")
		return
	}

	ctx, cancel := h.storeCtx(r)
	defer cancel()
	res, err := projections.QueryGetMemberList(ctx, projections.GetMemberListQuery{Params: lp, Today: h.today()},
		projections.GetMemberListDeps{MemberStore: h.stores.MemberStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberListJSON{Members: toMemberViews(res.Members), Page: res.Page})
}

// handleGetMember handles GET /api/members/{id}
func (h *handlers) handleGetMember(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeCtx(r)
	defer cancel()
	d, err := projections.QueryGetMemberDetail(ctx, r.PathValue("id"), h.today(), projections.GetMemberDetailDeps{
		MemberStore:     h.stores.MemberStore,
		PaymentStore:    h.stores.PaymentStore,
		AttendanceStore: h.stores.AttendanceStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	out := memberDetailJSON{
		memberJSON: toMemberView(d.MemberView),
		Payments:   make([]paymentJSON, 0, len(d.Payments)),
		Attendance: make([]attendanceJSON, 0, len(d.Attendance)),
	}
	for _, p := range d.Payments {
		out.Payments = append(out.Payments, toPaymentJSON(p))
	}
	for _, a := range d.Attendance {
		out.Attendance = append(out.Attendance, toAttendanceJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}

type paymentRequest struct {
	Amount int64 `json:"amount"`
}

type paymentResponse struct {
	Member  memberJSON  `json:"member"`
	Payment paymentJSON `json:"payment"`
}

// handleRecordPayment handles POST /api/members/{id}/payments
func (h *handlers) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := strictDecode(w, r, &req); err != nil {
		badRequest(w, "Invalid request")
		return
	}

	ctx, cancel := h.storeCtx(r)
	defer cancel()
	m, ev, err := orchestrators.ExecuteRecordPayment(ctx,
		orchestrators.RecordPaymentInput{MemberID: r.PathValue("id"), Amount: req.Amount},
		orchestrators.RecordPaymentDeps{
			MemberStore:  h.stores.MemberStore,
			PaymentStore: h.stores.PaymentStore,
			Outbox:       h.stores.OutboxStore,
			Now:          h.opts.Now,
		})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponse{Member: toMemberJSON(m), Payment: toPaymentJSON(ev)})
}

type renewRequest struct {
	Tier          string `json:"tier"`
	DurationValue int    `json:"duration_value"`
	DurationUnit  string `json:"duration_unit"`
	StartDate     string `json:"start_date"`
	NewFee        *int64 `json:"new_fee"`
	AmountPaidNow int64  `json:"amount_paid_now"`
}

// handleRenewMembership handles POST /api/members/{id}/renewals
func (h *handlers) handleRenewMembership(w http.ResponseWriter, r *http.Request) {
	var req renewRequest
	if err := strictDecode(w, r, &req); err != nil {
		badRequest(w, "Invalid request")
		return
	}
	start, err := parseOptionalDay(req.StartDate)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	ctx, cancel := h.storeCtx(r)
	defer cancel()
	m, err := orchestrators.ExecuteRenewMembership(ctx, orchestrators.RenewMembershipInput{
		MemberID:      r.PathValue("id"),
		Tier:          req.Tier,
		DurationValue: req.DurationValue,
		DurationUnit:  req.DurationUnit,
		StartDate:     start,
		NewFee:        req.NewFee,
		AmountPaidNow: req.AmountPaidNow,
	}, orchestrators.RenewMembershipDeps{
		MemberStore:  h.stores.MemberStore,
		PaymentStore: h.stores.PaymentStore,
		Outbox:       h.stores.OutboxStore,
		Now:          h.opts.Now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMemberJSON(m))
}

// handleCheckIn handles POST /api/members/{id}/checkins
func (h *handlers) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.storeCtx(r)
	defer cancel()
	rec, err := orchestrators.ExecuteCheckInMember(ctx,
		orchestrators.CheckInMemberInput{MemberID: r.PathValue("id")},
		orchestrators.CheckInMemberDeps{
			MemberStore:     h.stores.MemberStore,
			AttendanceStore: h.stores.AttendanceStore,
			Now:             h.opts.Now,
		})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttendanceJSON(rec))
}
