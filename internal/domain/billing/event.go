package billing

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Payment event kinds
const (
	KindRegistration = "registration"
	KindPayment      = "payment"
	KindRenewal      = "renewal"
)

// PaymentEvent is one append-only entry in a member's payment history.
// IDs are ULIDs so the history sorts by time without a separate index.
type PaymentEvent struct {
	ID         string
	MemberID   string
	Amount     int64
	Kind       string
	RecordedAt time.Time
}

// NewPaymentEvent builds a payment event stamped at `at`.
// PRE: amount > 0
// POST: Returns an event with a fresh ULID
func NewPaymentEvent(memberID string, amount int64, kind string, at time.Time) (PaymentEvent, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(at), rand.Reader)
	if err != nil {
		return PaymentEvent{}, err
	}
	return PaymentEvent{
		ID:         id.String(),
		MemberID:   memberID,
		Amount:     amount,
		Kind:       kind,
		RecordedAt: at.UTC(),
	}, nil
}

// Validate checks if the PaymentEvent has valid data.
// PRE: PaymentEvent struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (e *PaymentEvent) Validate() error {
	if e.ID == "" || e.MemberID == "" {
		return errors.New("payment event requires an id and a member")
	}
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	switch e.Kind {
	case KindRegistration, KindPayment, KindRenewal:
	default:
		return errors.New("payment event kind must be 'registration', 'payment', or 'renewal'")
	}
	if e.RecordedAt.IsZero() {
		return errors.New("payment event time must be set")
	}
	return nil
}

// FormatAmount renders minor units as 12.34.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
