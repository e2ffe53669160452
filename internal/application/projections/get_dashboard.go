package projections

import (
	"context"
	"log/slog"
	"time"

	"gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/status"
)

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	MemberStore     MemberStore
	AttendanceStore AttendanceStore
	Outbox          OutboxCounter // optional: nil skips the backlog counts
}

// DashboardResult is the front desk summary for one day.
type DashboardResult struct {
	Today            time.Time
	TotalMembers     int
	ByLifecycle      map[string]int
	ByPayment        map[string]int
	OutstandingTotal int64 // sum of Remaining across members
	CheckedInToday   int
	PendingSync      int // registrations waiting for the record store
	FailedOutbox     int
}

// QueryGetDashboard derives the summary for today.
// POST: every lifecycle and payment status is present in the maps
func QueryGetDashboard(ctx context.Context, today time.Time, deps GetDashboardDeps) (DashboardResult, error) {
	members, err := deps.MemberStore.List(ctx, member.ListFilter{})
	if err != nil {
		return DashboardResult{}, err
	}
	res := DashboardResult{
		Today:        today,
		TotalMembers: len(members),
		ByLifecycle: map[string]int{
			status.Active: 0, status.Expiring: 0, status.Shortlisted: 0, status.Expired: 0,
		},
		ByPayment: map[string]int{status.Paid: 0, status.Pending: 0, status.Overdue: 0},
	}
	for _, m := range members {
		r := status.ForMember(m, today)
		res.ByLifecycle[r.Lifecycle]++
		res.ByPayment[r.Payment]++
		res.OutstandingTotal += m.Remaining
	}

	checkins, err := deps.AttendanceStore.ListForDate(ctx, today)
	if err != nil {
		return DashboardResult{}, err
	}
	res.CheckedInToday = len(checkins)

	if deps.Outbox != nil {
		if counts, err := deps.Outbox.CountByStatus(ctx); err != nil {
			slog.Warn("dashboard_outbox_count_failed", "error", err.Error())
		} else {
			res.FailedOutbox = counts[outbox.StatusFailed]
		}
		// Receipt emails share the outbox but are not registrations.
		if counts, err := deps.Outbox.CountByActionType(ctx, outbox.ActionPendingSync); err != nil {
			slog.Warn("dashboard_outbox_count_failed", "action", outbox.ActionPendingSync, "error", err.Error())
		} else {
			res.PendingSync = counts[outbox.StatusPending] + counts[outbox.StatusRetrying]
		}
	}
	return res, nil
}
