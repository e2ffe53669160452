package web

import (
	"time"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
	"gymdesk/internal/domain/status"
)

type statusJSON struct {
	Lifecycle       string `json:"lifecycle"`
	Payment         string `json:"payment"`
	DaysSinceExpiry int    `json:"days_since_expiry"`
	DaysUntilExpiry int    `json:"days_until_expiry"`
	DaysInShortlist int    `json:"days_in_shortlist"`
}

type memberJSON struct {
	ID          string      `json:"id"`
	RollNumber  string      `json:"roll_number"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone,omitempty"`
	Email       string      `json:"email,omitempty"`
	Tier        string      `json:"tier"`
	JoinDate    string      `json:"join_date"`
	CurrentDate string      `json:"current_date"`
	ExpiryDate  string      `json:"expiry_date"`
	Fee         int64       `json:"fee"`
	PaidAmount  int64       `json:"paid_amount"`
	Remaining   int64       `json:"remaining"`
	SyncState   string      `json:"sync_state,omitempty"`
	Status      *statusJSON `json:"status,omitempty"`
}

type paymentJSON struct {
	ID         string    `json:"id"`
	MemberID   string    `json:"member_id"`
	Amount     int64     `json:"amount"`
	Kind       string    `json:"kind"`
	RecordedAt time.Time `json:"recorded_at"`
}

type attendanceJSON struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	RollNumber  string    `json:"roll_number,omitempty"`
	Name        string    `json:"name,omitempty"`
	Date        string    `json:"date"`
	Status      string    `json:"status"`
	CheckedInAt time.Time `json:"checked_in_at"`
}

func toStatusJSON(r status.Result) *statusJSON {
	return &statusJSON{
		Lifecycle:       r.Lifecycle,
		Payment:         r.Payment,
		DaysSinceExpiry: r.DaysSinceExpiry,
		DaysUntilExpiry: r.DaysUntilExpiry,
		DaysInShortlist: r.DaysInShortlist,
	}
}

func toMemberJSON(m member.Member) memberJSON {
	return memberJSON{
		ID:          m.ID,
		RollNumber:  m.RollNumber,
		Name:        m.Name,
		Phone:       m.Phone,
		Email:       m.Email,
		Tier:        m.Tier,
		JoinDate:    period.Format(m.JoinDate),
		CurrentDate: period.Format(m.CurrentDate),
		ExpiryDate:  period.Format(m.ExpiryDate),
		Fee:         m.Fee,
		PaidAmount:  m.PaidAmount,
		Remaining:   m.Remaining,
		SyncState:   m.SyncState,
	}
}

func toMemberView(v projections.MemberView) memberJSON {
	out := toMemberJSON(v.Member)
	out.Status = toStatusJSON(v.Status)
	return out
}

func toMemberViews(views []projections.MemberView) []memberJSON {
	out := make([]memberJSON, 0, len(views))
	for _, v := range views {
		out = append(out, toMemberView(v))
	}
	return out
}

func toPaymentJSON(e billing.PaymentEvent) paymentJSON {
	return paymentJSON{ID: e.ID, MemberID: e.MemberID, Amount: e.Amount, Kind: e.Kind, RecordedAt: e.RecordedAt}
}

func toAttendanceJSON(r attendance.Record) attendanceJSON {
	return attendanceJSON{
		ID:          r.ID,
		MemberID:    r.MemberID,
		Date:        period.Format(r.Date),
		Status:      r.Status,
		CheckedInAt: r.CheckedInAt,
	}
}

type memberListJSON struct {
	Members []memberJSON      `json:"members"`
	Page    listutil.PageInfo `json:"page"`
}

type memberDetailJSON struct {
	memberJSON
	Payments   []paymentJSON    `json:"payments"`
	Attendance []attendanceJSON `json:"attendance"`
}

type dashboardJSON struct {
	Date             string         `json:"date"`
	TotalMembers     int            `json:"total_members"`
	ByLifecycle      map[string]int `json:"by_lifecycle"`
	ByPayment        map[string]int `json:"by_payment"`
	OutstandingTotal int64          `json:"outstanding_total"`
	CheckedInToday   int            `json:"checked_in_today"`
	PendingSync      int            `json:"pending_outbox"`
	FailedOutbox     int            `json:"failed_outbox"`
}
