// Package status derives a member's lifecycle and payment status from stored
// facts. Evaluate is a pure function of its inputs; it performs no I/O and
// never reads the system clock.
package status

import (
	"time"

	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
)

// Lifecycle states
const (
	Active      = "active"
	Expiring    = "expiring"
	Shortlisted = "shortlisted"
	Expired     = "expired"
)

// Payment states
const (
	Paid    = "paid"
	Pending = "pending"
	Overdue = "overdue"
)

// Window sizes in calendar days.
const (
	GraceDays   = 10 // lapsed members stay shortlisted this long
	WarningDays = 5  // expiring window before the expiry date
)

// Result is the derived view of one member on one day.
type Result struct {
	Lifecycle       string
	Payment         string
	DaysSinceExpiry int // negative while the membership is still running
	DaysUntilExpiry int
	DaysInShortlist int // zero unless Lifecycle == Shortlisted
}

// Evaluate derives lifecycle and payment status.
// PRE: expiry and today are calendar days (time of day is ignored)
// POST: Returns a Result; never fails
// INVARIANT: identical inputs produce identical output
//
// Decision order, first match wins:
//  1. owing and lapsed: Shortlisted within the grace window, else Expired
//  2. lapsed beyond the grace window: Expired
//  3. lapsed within the grace window: Shortlisted, even when fully paid
//  4. within the warning window: Expiring
//  5. otherwise Active
func Evaluate(expiry time.Time, remaining int64, today time.Time) Result {
	since := period.DaysBetween(expiry, today)
	until := period.DaysBetween(today, expiry)

	r := Result{DaysSinceExpiry: since, DaysUntilExpiry: until}

	switch {
	case remaining > 0 && since >= 0:
		if since <= GraceDays {
			r.Lifecycle = Shortlisted
		} else {
			r.Lifecycle = Expired
		}
	case since > GraceDays:
		r.Lifecycle = Expired
	case until < 0 && since <= GraceDays:
		// Reachable with remaining == 0: a paid member just past expiry.
		r.Lifecycle = Shortlisted
	case until <= WarningDays:
		r.Lifecycle = Expiring
	default:
		r.Lifecycle = Active
	}

	switch {
	case remaining == 0:
		r.Payment = Paid
	case r.Lifecycle == Expired || r.Lifecycle == Shortlisted:
		r.Payment = Overdue
	default:
		r.Payment = Pending
	}

	if r.Lifecycle == Shortlisted {
		r.DaysInShortlist = since
	}
	return r
}

// ForMember evaluates m on today.
func ForMember(m member.Member, today time.Time) Result {
	return Evaluate(m.ExpiryDate, m.Remaining, today)
}

// IsKnownLifecycle reports whether s names a lifecycle state.
func IsKnownLifecycle(s string) bool {
	switch s {
	case Active, Expiring, Shortlisted, Expired:
		return true
	}
	return false
}
