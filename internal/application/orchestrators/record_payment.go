package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/telemetry"
)

// RecordPaymentInput carries input for the orchestrator.
type RecordPaymentInput struct {
	MemberID string
	Amount   int64
}

// RecordPaymentDeps holds dependencies for RecordPayment.
type RecordPaymentDeps struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
	Outbox       OutboxWriter // optional: receipts are skipped when nil
	Now          func() time.Time
}

// ExecuteRecordPayment applies a partial or full payment to a member.
// PRE: MemberID names an existing member
// POST: PaidAmount and Remaining updated together; one payment event appended
// INVARIANT: an invalid amount leaves the stored member untouched
func ExecuteRecordPayment(ctx context.Context, input RecordPaymentInput, deps RecordPaymentDeps) (member.Member, billing.PaymentEvent, error) {
	ctx, span := tracer.Start(ctx, "record_payment")
	defer span.End()
	span.SetAttributes(attribute.String("member_id", input.MemberID))

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return member.Member{}, billing.PaymentEvent{}, err
	}

	now := clock(deps.Now)
	updated, ev, err := billing.RecordPayment(m, input.Amount, now)
	if err != nil {
		return member.Member{}, billing.PaymentEvent{}, err
	}

	if err := deps.MemberStore.Update(ctx, m.ID, member.Patch{
		PaidAmount: &updated.PaidAmount,
		Remaining:  &updated.Remaining,
	}); err != nil {
		return member.Member{}, billing.PaymentEvent{}, fmt.Errorf("record payment: %w", err)
	}
	if err := deps.PaymentStore.Append(ctx, ev); err != nil {
		slog.Error("payment_append_failed", "member_id", m.ID, "payment_id", ev.ID, "error", err.Error())
	}

	telemetry.Payments.WithLabelValues(ev.Kind).Inc()
	telemetry.PaymentAmount.WithLabelValues(ev.Kind).Add(float64(ev.Amount))
	slog.Info("payment_event", "event", "payment_recorded", "member_id", m.ID, "amount", ev.Amount, "remaining", updated.Remaining)

	enqueueReceipt(ctx, deps.Outbox, updated, ev, now)
	return updated, ev, nil
}
