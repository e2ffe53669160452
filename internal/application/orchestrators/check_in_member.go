package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
	"gymdesk/internal/telemetry"
)

// AttendanceStore defines the interface for attendance persistence.
type AttendanceStore interface {
	Create(ctx context.Context, r attendance.Record) error
	Exists(ctx context.Context, memberID string, day time.Time) (bool, error)
}

// CheckInMemberInput carries input for the check-in orchestrator.
type CheckInMemberInput struct {
	MemberID string
}

// CheckInMemberDeps holds dependencies for CheckInMember.
type CheckInMemberDeps struct {
	MemberStore     MemberStore
	AttendanceStore AttendanceStore
	Now             func() time.Time
}

// ExecuteCheckInMember marks a member present for today.
// PRE: MemberID names an existing member
// POST: exactly one present record exists for (member, today); CurrentDate
// advanced to today on a best effort basis
// INVARIANT: Expired members are refused; a second check-in on the same day
// returns attendance.ErrAlreadyMarked whether caught here or by the store
func ExecuteCheckInMember(ctx context.Context, input CheckInMemberInput, deps CheckInMemberDeps) (attendance.Record, error) {
	ctx, span := tracer.Start(ctx, "check_in_member")
	defer span.End()
	span.SetAttributes(attribute.String("member_id", input.MemberID))

	if input.MemberID == "" {
		return attendance.Record{}, errors.Join(ErrInvalidInput, errors.New("member id is required"))
	}
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		telemetry.CheckIns.WithLabelValues("error").Inc()
		return attendance.Record{}, err
	}

	now := clock(deps.Now)
	today := period.Day(now)
	if err := attendance.CanCheckIn(m, today); err != nil {
		telemetry.CheckIns.WithLabelValues("expired").Inc()
		return attendance.Record{}, err
	}

	marked, err := deps.AttendanceStore.Exists(ctx, m.ID, today)
	if err != nil {
		telemetry.CheckIns.WithLabelValues("error").Inc()
		return attendance.Record{}, err
	}
	if marked {
		telemetry.CheckIns.WithLabelValues("already_marked").Inc()
		return attendance.Record{}, attendance.ErrAlreadyMarked
	}

	rec := attendance.NewPresent(uuid.New().String(), m.ID, now)
	if err := deps.AttendanceStore.Create(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			telemetry.CheckIns.WithLabelValues("already_marked").Inc()
			return attendance.Record{}, fmt.Errorf("%w: %v", attendance.ErrAlreadyMarked, err)
		}
		telemetry.CheckIns.WithLabelValues("error").Inc()
		return attendance.Record{}, err
	}

	if err := deps.MemberStore.Update(ctx, m.ID, member.Patch{CurrentDate: &today}); err != nil {
		slog.Warn("checkin_reference_date_failed", "member_id", m.ID, "error", err.Error())
	}
	telemetry.CheckIns.WithLabelValues("accepted").Inc()
	slog.Info("checkin_event", "event", "member_checked_in", "member_id", m.ID, "roll_number", m.RollNumber, "day", period.Format(today))
	return rec, nil
}
