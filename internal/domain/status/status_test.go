package status

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
)

var today = period.Date(2024, 2, 5)

func daysFrom(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name          string
		expiry        time.Time
		remaining     int64
		wantLifecycle string
		wantPayment   string
		wantShortlist int
	}{
		{"expiry today owing", today, 1000, Shortlisted, Overdue, 0},
		{"ten days past owing", daysFrom(today, -10), 1000, Shortlisted, Overdue, 10},
		{"eleven days past owing", daysFrom(today, -11), 1000, Expired, Overdue, 0},
		{"eleven days past paid", daysFrom(today, -11), 0, Expired, Paid, 0},
		{"expiry today paid", today, 0, Expiring, Paid, 0},
		{"five days ahead owing", daysFrom(today, 5), 500, Expiring, Pending, 0},
		{"six days ahead owing", daysFrom(today, 6), 500, Active, Pending, 0},
		{"six days ahead paid", daysFrom(today, 6), 0, Active, Paid, 0},
		{"one year ahead", daysFrom(today, 365), 0, Active, Paid, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.expiry, tt.remaining, today)
			if got.Lifecycle != tt.wantLifecycle {
				t.Errorf("Lifecycle = %q, want %q", got.Lifecycle, tt.wantLifecycle)
			}
			if got.Payment != tt.wantPayment {
				t.Errorf("Payment = %q, want %q", got.Payment, tt.wantPayment)
			}
			if got.DaysInShortlist != tt.wantShortlist {
				t.Errorf("DaysInShortlist = %d, want %d", got.DaysInShortlist, tt.wantShortlist)
			}
		})
	}
}

// TestEvaluate_LapsedOwingMember covers a member who joined 2024-01-01 with a
// one month term and still owes money four days after expiry.
func TestEvaluate_LapsedOwingMember(t *testing.T) {
	m := member.Member{
		JoinDate:   period.Date(2024, 1, 1),
		ExpiryDate: period.Date(2024, 2, 1),
		Fee:        5000,
		PaidAmount: 4000,
		Remaining:  1000,
	}
	got := ForMember(m, period.Date(2024, 2, 5))
	if got.DaysSinceExpiry != 4 {
		t.Errorf("DaysSinceExpiry = %d, want 4", got.DaysSinceExpiry)
	}
	if got.Lifecycle != Shortlisted || got.DaysInShortlist != 4 {
		t.Errorf("got %q with %d days, want shortlisted for 4 days", got.Lifecycle, got.DaysInShortlist)
	}
	if got.Payment != Overdue {
		t.Errorf("Payment = %q, want overdue", got.Payment)
	}
}

// TestEvaluate_PaidMemberPastExpiryIsShortlisted pins the overlapping
// second-branch check: a fully paid member a few days past expiry is
// Shortlisted while their payment status reads Paid. This mirrors the
// established decision order and is kept deliberately.
func TestEvaluate_PaidMemberPastExpiryIsShortlisted(t *testing.T) {
	for days := 1; days <= GraceDays; days++ {
		got := Evaluate(daysFrom(today, -days), 0, today)
		if got.Lifecycle != Shortlisted {
			t.Fatalf("%d days past: Lifecycle = %q, want shortlisted", days, got.Lifecycle)
		}
		if got.Payment != Paid {
			t.Fatalf("%d days past: Payment = %q, want paid", days, got.Payment)
		}
		if got.DaysInShortlist != days {
			t.Fatalf("%d days past: DaysInShortlist = %d", days, got.DaysInShortlist)
		}
	}
}

func TestEvaluate_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2024, 2, 5, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, 2, 5, 0, 5, 0, 0, time.UTC)
	a := Evaluate(period.Date(2024, 2, 1), 1000, late)
	b := Evaluate(period.Date(2024, 2, 1), 1000, early)
	if a != b {
		t.Errorf("results differ by time of day: %+v vs %+v", a, b)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offset := rapid.IntRange(-400, 400).Draw(t, "offset")
		remaining := rapid.Int64Range(0, 100000).Draw(t, "remaining")
		expiry := daysFrom(today, offset)

		first := Evaluate(expiry, remaining, today)
		second := Evaluate(expiry, remaining, today)
		if first != second {
			t.Fatalf("not idempotent: %+v vs %+v", first, second)
		}
	})
}

func TestEvaluate_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offset := rapid.IntRange(-400, 400).Draw(t, "offset")
		remaining := rapid.Int64Range(0, 100000).Draw(t, "remaining")
		r := Evaluate(daysFrom(today, offset), remaining, today)

		if !IsKnownLifecycle(r.Lifecycle) {
			t.Fatalf("unknown lifecycle %q", r.Lifecycle)
		}
		if r.DaysSinceExpiry != -r.DaysUntilExpiry {
			t.Fatalf("since %d and until %d disagree", r.DaysSinceExpiry, r.DaysUntilExpiry)
		}
		if (remaining == 0) != (r.Payment == Paid) {
			t.Fatalf("payment %q with remaining %d", r.Payment, remaining)
		}
		if r.Lifecycle != Shortlisted && r.DaysInShortlist != 0 {
			t.Fatalf("DaysInShortlist %d outside shortlist", r.DaysInShortlist)
		}
		if r.DaysSinceExpiry > GraceDays && r.Lifecycle != Expired {
			t.Fatalf("%d days past expiry should be expired, got %q", r.DaysSinceExpiry, r.Lifecycle)
		}
	})
}
