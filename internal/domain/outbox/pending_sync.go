package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
)

// PendingSync is a registration captured while the record store was
// unreachable: the member snapshot plus its opening payment, if any.
type PendingSync struct {
	Member  member.Member
	Payment *billing.PaymentEvent
}

type pendingSyncJSON struct {
	ID          string       `json:"id"`
	RollNumber  string       `json:"roll_number"`
	Name        string       `json:"name"`
	Phone       string       `json:"phone,omitempty"`
	Email       string       `json:"email,omitempty"`
	Tier        string       `json:"tier"`
	JoinDate    string       `json:"join_date"`
	CurrentDate string       `json:"current_date,omitempty"`
	ExpiryDate  string       `json:"expiry_date"`
	Fee         int64        `json:"fee"`
	PaidAmount  int64        `json:"paid_amount"`
	Remaining   int64        `json:"remaining"`
	Payment     *paymentJSON `json:"payment,omitempty"`
}

type paymentJSON struct {
	ID         string    `json:"id"`
	Amount     int64     `json:"amount"`
	Kind       string    `json:"kind"`
	RecordedAt time.Time `json:"recorded_at"`
}

// EncodePendingSync serializes p for an outbox payload.
// PRE: p.Member has a roll number
func EncodePendingSync(p PendingSync) (string, error) {
	m := p.Member
	if m.RollNumber == "" {
		return "", errors.New("pending sync member has no roll number")
	}
	doc := pendingSyncJSON{
		ID:          m.ID,
		RollNumber:  m.RollNumber,
		Name:        m.Name,
		Phone:       m.Phone,
		Email:       m.Email,
		Tier:        m.Tier,
		JoinDate:    period.Format(m.JoinDate),
		CurrentDate: period.Format(m.CurrentDate),
		ExpiryDate:  period.Format(m.ExpiryDate),
		Fee:         m.Fee,
		PaidAmount:  m.PaidAmount,
		Remaining:   m.Remaining,
	}
	if p.Payment != nil {
		doc.Payment = &paymentJSON{
			ID:         p.Payment.ID,
			Amount:     p.Payment.Amount,
			Kind:       p.Payment.Kind,
			RecordedAt: p.Payment.RecordedAt,
		}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodePendingSync parses an outbox payload.
// POST: the returned member has SyncState pending_sync
func DecodePendingSync(payload string) (PendingSync, error) {
	var doc pendingSyncJSON
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return PendingSync{}, fmt.Errorf("decode pending sync: %w", err)
	}
	m := member.Member{
		ID:         doc.ID,
		RollNumber: doc.RollNumber,
		Name:       doc.Name,
		Phone:      doc.Phone,
		Email:      doc.Email,
		Tier:       doc.Tier,
		Fee:        doc.Fee,
		PaidAmount: doc.PaidAmount,
		Remaining:  doc.Remaining,
		SyncState:  member.SyncStatePendingSync,
	}
	var err error
	if m.JoinDate, err = period.Parse(doc.JoinDate); err != nil {
		return PendingSync{}, fmt.Errorf("decode pending sync: %w", err)
	}
	if m.ExpiryDate, err = period.Parse(doc.ExpiryDate); err != nil {
		return PendingSync{}, fmt.Errorf("decode pending sync: %w", err)
	}
	if doc.CurrentDate != "" {
		if m.CurrentDate, err = period.Parse(doc.CurrentDate); err != nil {
			return PendingSync{}, fmt.Errorf("decode pending sync: %w", err)
		}
	}
	out := PendingSync{Member: m}
	if doc.Payment != nil {
		out.Payment = &billing.PaymentEvent{
			ID:         doc.Payment.ID,
			MemberID:   m.ID,
			Amount:     doc.Payment.Amount,
			Kind:       doc.Payment.Kind,
			RecordedAt: doc.Payment.RecordedAt,
		}
	}
	return out, nil
}
