package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gymdesk/internal/adapters/email"
	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/period"
)

// ReceiptPayload is the outbox payload of a receipt_email entry.
type ReceiptPayload struct {
	To      string        `json:"to"`
	Receipt email.Receipt `json:"receipt"`
}

// enqueueReceipt queues a receipt for m when it has an email on file.
// Failures are logged; the payment itself has already been recorded.
func enqueueReceipt(ctx context.Context, w OutboxWriter, m member.Member, ev billing.PaymentEvent, now time.Time) {
	if w == nil || m.Email == "" {
		return
	}
	payload, err := json.Marshal(ReceiptPayload{
		To: m.Email,
		Receipt: email.Receipt{
			MemberName: m.Name,
			RollNumber: m.RollNumber,
			Kind:       ev.Kind,
			Amount:     ev.Amount,
			Remaining:  m.Remaining,
			ExpiryDate: period.Format(m.ExpiryDate),
			RecordedAt: ev.RecordedAt,
		},
	})
	if err == nil {
		var entry outbox.Entry
		entry, err = outbox.NewEntry(uuid.New().String(), outbox.ActionReceiptEmail, string(payload), now)
		if err == nil {
			err = w.Save(ctx, entry)
		}
	}
	if err != nil {
		slog.Error("receipt_enqueue_failed", "member_id", m.ID, "payment_id", ev.ID, "error", err.Error())
	}
}

// ReceiptEmailExecutor sends queued receipts.
type ReceiptEmailExecutor struct {
	Sender email.Sender
}

// Execute renders and sends the receipt in payload.
// PRE: payload is valid JSON matching ReceiptPayload
// POST: email accepted by the provider, returns its message ID
func (e *ReceiptEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p ReceiptPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal receipt payload: %w", err)
	}
	if p.To == "" {
		return "", fmt.Errorf("receipt for %s has no recipient", p.Receipt.RollNumber)
	}
	msg, err := p.Receipt.Request(p.To)
	if err != nil {
		return "", err
	}
	res, err := e.Sender.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
