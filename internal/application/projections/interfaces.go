package projections

import (
	"context"
	"time"

	"gymdesk/internal/adapters/storage/member"
	domainAttendance "gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/billing"
	domainMember "gymdesk/internal/domain/member"
	"gymdesk/internal/domain/status"
)

// MemberStore interface for member queries.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (domainMember.Member, error)
	List(ctx context.Context, filter member.ListFilter) ([]domainMember.Member, error)
}

// AttendanceStore interface for attendance queries.
type AttendanceStore interface {
	ListForDate(ctx context.Context, day time.Time) ([]domainAttendance.Record, error)
	ListForMember(ctx context.Context, memberID string, limit int) ([]domainAttendance.Record, error)
}

// PaymentStore interface for payment history queries.
type PaymentStore interface {
	ListForMember(ctx context.Context, memberID string, limit int) ([]billing.PaymentEvent, error)
}

// OutboxCounter reports outbox backlog by status.
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
	CountByActionType(ctx context.Context, actionType string) (map[string]int, error)
}

// MemberView is a member with its status derived for a given day.
type MemberView struct {
	Member domainMember.Member
	Status status.Result
}

func viewOf(m domainMember.Member, today time.Time) MemberView {
	return MemberView{Member: m, Status: status.ForMember(m, today)}
}
