package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
	"gymdesk/internal/telemetry"
)

// RenewMembershipInput carries input for the orchestrator.
// A zero StartDate renews from today; a nil NewFee uses the tier fee.
type RenewMembershipInput struct {
	MemberID      string
	Tier          string
	DurationValue int
	DurationUnit  string
	StartDate     time.Time
	NewFee        *int64
	AmountPaidNow int64
}

// RenewMembershipDeps holds dependencies for RenewMembership.
type RenewMembershipDeps struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
	Outbox       OutboxWriter // optional
	Now          func() time.Time
}

// ExecuteRenewMembership restarts a member's billing cycle.
// PRE: MemberID names an existing member
// POST: Tier, fee, balance, expiry and CurrentDate replaced; a renewal
// payment event appended when AmountPaidNow > 0
func ExecuteRenewMembership(ctx context.Context, input RenewMembershipInput, deps RenewMembershipDeps) (member.Member, error) {
	ctx, span := tracer.Start(ctx, "renew_membership")
	defer span.End()
	span.SetAttributes(attribute.String("member_id", input.MemberID))

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return member.Member{}, err
	}

	now := clock(deps.Now)
	tier := input.Tier
	if tier == "" {
		tier = m.Tier
	}
	fee, ok := member.DefaultFees[tier]
	if input.NewFee != nil {
		fee = *input.NewFee
	} else if !ok {
		return member.Member{}, member.ErrInvalidTier
	}
	start := input.StartDate
	if start.IsZero() {
		start = period.Day(now)
	}

	renewed, err := billing.Renew(m, billing.RenewalTerms{
		Tier:          tier,
		DurationValue: input.DurationValue,
		DurationUnit:  input.DurationUnit,
		StartDate:     start,
		NewFee:        fee,
		AmountPaidNow: input.AmountPaidNow,
	})
	if err != nil {
		return member.Member{}, err
	}

	if err := deps.MemberStore.Update(ctx, m.ID, member.BillingPatch(renewed)); err != nil {
		return member.Member{}, fmt.Errorf("renew membership: %w", err)
	}
	slog.Info("payment_event", "event", "membership_renewed", "member_id", m.ID, "tier", renewed.Tier,
		"expiry", period.Format(renewed.ExpiryDate), "remaining", renewed.Remaining)

	if input.AmountPaidNow == 0 {
		return renewed, nil
	}
	ev, err := billing.NewPaymentEvent(m.ID, input.AmountPaidNow, billing.KindRenewal, now)
	if err != nil {
		slog.Error("payment_event_failed", "member_id", m.ID, "error", err.Error())
		return renewed, nil
	}
	if err := deps.PaymentStore.Append(ctx, ev); err != nil {
		slog.Error("payment_append_failed", "member_id", m.ID, "payment_id", ev.ID, "error", err.Error())
	}
	telemetry.Payments.WithLabelValues(ev.Kind).Inc()
	telemetry.PaymentAmount.WithLabelValues(ev.Kind).Add(float64(ev.Amount))
	enqueueReceipt(ctx, deps.Outbox, renewed, ev, now)
	return renewed, nil
}
