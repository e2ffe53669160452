package projections

import (
	"context"
	"log/slog"
	"time"

	"gymdesk/internal/domain/attendance"
)

// AttendanceWithMember pairs a record with the member's display fields.
type AttendanceWithMember struct {
	Record     attendance.Record
	RollNumber string
	Name       string
}

// GetAttendanceForDateDeps holds dependencies for the attendance projection.
type GetAttendanceForDateDeps struct {
	AttendanceStore AttendanceStore
	MemberStore     MemberStore
}

// QueryGetAttendanceForDate lists who checked in on day, in check-in order.
// A record whose member cannot be loaded is still listed, without a name.
func QueryGetAttendanceForDate(ctx context.Context, day time.Time, deps GetAttendanceForDateDeps) ([]AttendanceWithMember, error) {
	records, err := deps.AttendanceStore.ListForDate(ctx, day)
	if err != nil {
		return nil, err
	}
	out := make([]AttendanceWithMember, 0, len(records))
	for _, r := range records {
		row := AttendanceWithMember{Record: r}
		if m, err := deps.MemberStore.GetByID(ctx, r.MemberID); err == nil {
			row.RollNumber, row.Name = m.RollNumber, m.Name
		} else {
			slog.Warn("attendance_member_lookup_failed", "member_id", r.MemberID, "error", err.Error())
		}
		out = append(out, row)
	}
	return out, nil
}
