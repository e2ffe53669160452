// Package billing is the only place that changes a member's fee, paid
// amount, remaining balance and expiry date. Every function takes a Member
// by value and returns the updated copy, so a failed call leaves the
// caller's value untouched.
package billing

import (
	"errors"
	"fmt"
	"time"

	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
)

// Domain errors
var (
	ErrInvalidAmount   = errors.New("amount must be between zero and the outstanding bound")
	ErrInvalidDuration = errors.New("renewal duration is invalid")
)

// Charge is the billing state computed for a new registration.
type Charge struct {
	Fee        int64
	PaidAmount int64
	Remaining  int64
}

// RenewalTerms carries the inputs of a renewal.
type RenewalTerms struct {
	Tier          string
	DurationValue int
	DurationUnit  string // period.UnitDay, UnitMonth or UnitYear
	StartDate     time.Time
	NewFee        int64
	AmountPaidNow int64
}

// RegisterNewMember computes the opening balance for a new member.
// PRE: none
// POST: Returns a Charge with Remaining == Fee - PaidAmount, or ErrInvalidAmount
// INVARIANT: 0 <= initialPaid <= tierFee
func RegisterNewMember(tierFee, initialPaid int64) (Charge, error) {
	if tierFee < 0 {
		return Charge{}, fmt.Errorf("fee %d: %w", tierFee, ErrInvalidAmount)
	}
	if initialPaid < 0 || initialPaid > tierFee {
		return Charge{}, fmt.Errorf("initial payment %d against fee %d: %w", initialPaid, tierFee, ErrInvalidAmount)
	}
	return Charge{
		Fee:        tierFee,
		PaidAmount: initialPaid,
		Remaining:  tierFee - initialPaid,
	}, nil
}

// RecordPayment applies an incremental payment.
// PRE: m satisfies Remaining == Fee - PaidAmount
// POST: Returns the updated member and the payment event to append
// INVARIANT: 0 < amount <= m.Remaining; m itself is never modified
func RecordPayment(m member.Member, amount int64, at time.Time) (member.Member, PaymentEvent, error) {
	if amount <= 0 || amount > m.Remaining {
		return m, PaymentEvent{}, fmt.Errorf("payment %d against remaining %d: %w", amount, m.Remaining, ErrInvalidAmount)
	}
	ev, err := NewPaymentEvent(m.ID, amount, KindPayment, at)
	if err != nil {
		return m, PaymentEvent{}, err
	}
	m.PaidAmount += amount
	m.Remaining -= amount
	return m, ev, nil
}

// Renew restarts the member's billing cycle from terms.StartDate.
// The new expiry is computed from the chosen start date, not from the
// current expiry, and renewal is allowed in any lifecycle state.
// PRE: terms.Tier is a known tier
// POST: Fee, PaidAmount, Remaining, ExpiryDate, Tier and CurrentDate reflect terms
// INVARIANT: 0 <= terms.AmountPaidNow <= terms.NewFee
func Renew(m member.Member, terms RenewalTerms) (member.Member, error) {
	if !member.IsValidTier(terms.Tier) {
		return m, member.ErrInvalidTier
	}
	if terms.NewFee < 0 || terms.AmountPaidNow < 0 || terms.AmountPaidNow > terms.NewFee {
		return m, fmt.Errorf("renewal payment %d against fee %d: %w", terms.AmountPaidNow, terms.NewFee, ErrInvalidAmount)
	}
	if terms.StartDate.IsZero() {
		return m, fmt.Errorf("start date missing: %w", ErrInvalidDuration)
	}
	expiry, err := period.Add(terms.StartDate, terms.DurationValue, terms.DurationUnit)
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrInvalidDuration, err)
	}

	m.Tier = terms.Tier
	m.Fee = terms.NewFee
	m.PaidAmount = terms.AmountPaidNow
	m.Remaining = terms.NewFee - terms.AmountPaidNow
	m.CurrentDate = period.Day(terms.StartDate)
	m.ExpiryDate = expiry
	return m, nil
}
