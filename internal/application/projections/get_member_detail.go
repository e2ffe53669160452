package projections

import (
	"context"
	"time"

	"gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/billing"
)

// RecentAttendanceLimit caps the attendance shown on a member detail.
const RecentAttendanceLimit = 30

// GetMemberDetailDeps holds dependencies for the member detail projection.
type GetMemberDetailDeps struct {
	MemberStore     MemberStore
	PaymentStore    PaymentStore
	AttendanceStore AttendanceStore
}

// MemberDetail is a member with status, payment history and recent visits.
type MemberDetail struct {
	MemberView
	Payments   []billing.PaymentEvent
	Attendance []attendance.Record
}

// QueryGetMemberDetail loads one member.
// PRE: id is non-empty
// POST: Payments oldest first; Attendance most recent first
func QueryGetMemberDetail(ctx context.Context, id string, today time.Time, deps GetMemberDetailDeps) (MemberDetail, error) {
	m, err := deps.MemberStore.GetByID(ctx, id)
	if err != nil {
		return MemberDetail{}, err
	}
	payments, err := deps.PaymentStore.ListForMember(ctx, id, 0)
	if err != nil {
		return MemberDetail{}, err
	}
	visits, err := deps.AttendanceStore.ListForMember(ctx, id, RecentAttendanceLimit)
	if err != nil {
		return MemberDetail{}, err
	}
	return MemberDetail{MemberView: viewOf(m, today), Payments: payments, Attendance: visits}, nil
}
