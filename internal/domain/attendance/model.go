package attendance

import (
	"errors"
	"time"

	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
	"gymdesk/internal/domain/status"
)

// StatusPresent is the only attendance status written by check-in.
const StatusPresent = "present"

// Domain errors
var (
	ErrAlreadyMarked     = errors.New("attendance already marked for this member today")
	ErrMembershipExpired = errors.New("membership has expired")
)

// Record is one attendance entry per member per calendar day.
type Record struct {
	ID          string
	MemberID    string
	Date        time.Time // calendar day
	Status      string
	CheckedInAt time.Time
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: MemberID must not be empty, Date must be set
func (r *Record) Validate() error {
	if r.MemberID == "" {
		return errors.New("attendance must be associated with a member")
	}
	if r.Date.IsZero() {
		return errors.New("attendance date must be set")
	}
	if r.Status != StatusPresent {
		return errors.New("attendance status must be 'present'")
	}
	return nil
}

// CanCheckIn gates attendance on lifecycle status.
// Only a hard Expired status blocks; Shortlisted and Expiring members may
// still train.
// PRE: today is the check-in day
// POST: Returns ErrMembershipExpired or nil
func CanCheckIn(m member.Member, today time.Time) error {
	if status.ForMember(m, today).Lifecycle == status.Expired {
		return ErrMembershipExpired
	}
	return nil
}

// NewPresent builds the record written by a successful check-in.
// PRE: CanCheckIn(m, now) returned nil
// POST: Returns a present record for the calendar day of now
func NewPresent(id, memberID string, now time.Time) Record {
	return Record{
		ID:          id,
		MemberID:    memberID,
		Date:        period.Day(now),
		Status:      StatusPresent,
		CheckedInAt: now,
	}
}
