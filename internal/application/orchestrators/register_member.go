package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/period"
	"gymdesk/internal/domain/sequence"
	"gymdesk/internal/telemetry"
)

var tracer = otel.Tracer("gymdesk/orchestrators")

// cacheWriteTimeout bounds local cache writes made after the record store
// has used up the request deadline.
const cacheWriteTimeout = 2 * time.Second

// Orchestrator errors
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrRegistrationThrottled = errors.New("too many registrations, try again shortly")
)

// MemberStore defines the interface for member persistence.
type MemberStore interface {
	GetByID(ctx context.Context, id string) (member.Member, error)
	Create(ctx context.Context, m member.Member) error
	Update(ctx context.Context, id string, p member.Patch) error
	Count(ctx context.Context) (int64, error)
}

// PaymentStore appends to the payment history.
type PaymentStore interface {
	Append(ctx context.Context, e billing.PaymentEvent) error
}

// OutboxWriter queues deferred actions in the local cache.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// Throttle is satisfied by *rate.Limiter.
type Throttle interface {
	Allow() bool
}

// RegisterMemberInput carries input for the orchestrator.
// Zero values pick defaults: JoinDate today, a one month term, the tier fee.
type RegisterMemberInput struct {
	Name          string
	Phone         string
	Email         string
	Tier          string
	Fee           *int64
	InitialPaid   int64
	JoinDate      time.Time
	DurationValue int
	DurationUnit  string
}

// RegisterMemberResult is the registered member and how it was stored.
type RegisterMemberResult struct {
	Member  member.Member
	Payment *billing.PaymentEvent
	Offline bool // queued as pending_sync instead of written to the record store
}

// RegisterMemberDeps holds dependencies for RegisterMember.
type RegisterMemberDeps struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
	Outbox       OutboxWriter
	Allocator    *sequence.Allocator
	Throttle     Throttle // optional
	Now          func() time.Time
}

// ExecuteRegisterMember coordinates member registration.
// PRE: deps.Allocator is initialized
// POST: Member persisted with a fresh roll number, or queued as pending_sync
// when the record store is unavailable; the counter advanced exactly once
// INVARIANT: validation failures never consume a roll number
func ExecuteRegisterMember(ctx context.Context, input RegisterMemberInput, deps RegisterMemberDeps) (RegisterMemberResult, error) {
	ctx, span := tracer.Start(ctx, "register_member")
	defer span.End()

	if deps.Throttle != nil && !deps.Throttle.Allow() {
		return RegisterMemberResult{}, ErrRegistrationThrottled
	}

	now := clock(deps.Now)
	m, ev, err := buildRegistration(input, now)
	if err != nil {
		return RegisterMemberResult{}, err
	}

	remote, err := remoteCount(ctx, deps.MemberStore)
	if err != nil {
		return RegisterMemberResult{}, err
	}
	if !remote.Available {
		slog.Warn("registration_degraded", "reason", "count unavailable")
	}

	// Counter and outbox writes go to the local cache and must land even
	// when a hung record store has exhausted ctx.
	cacheCtx, cancel := cacheContext(ctx)
	defer cancel()

	var offline bool
	alloc, err := deps.Allocator.Allocate(cacheCtx, remote, func(a sequence.Allocation) error {
		m.RollNumber = a.RollNumber
		if !a.Degraded {
			err := deps.MemberStore.Create(ctx, m)
			if err == nil {
				return nil
			}
			if !storage.IsUnavailable(err) {
				return err
			}
			slog.Warn("registration_degraded", "reason", "create unavailable", "roll_number", m.RollNumber, "error", err.Error())
		}
		offline = true
		return queuePendingSync(cacheCtx, deps.Outbox, m, ev, now)
	})
	if err != nil && !errors.Is(err, sequence.ErrNotPersisted) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RegisterMemberResult{}, err
	}
	if err != nil {
		slog.Warn("roll_counter_not_persisted", "roll_number", alloc.RollNumber, "error", err.Error())
	}
	telemetry.RollCounter.Set(float64(deps.Allocator.Current()))

	mode := "online"
	if offline {
		mode = "offline"
		m.SyncState = member.SyncStatePendingSync
	} else {
		m.SyncState = member.SyncStateSynced
		if ev != nil {
			if err := deps.PaymentStore.Append(ctx, *ev); err != nil {
				slog.Error("payment_append_failed", "member_id", m.ID, "payment_id", ev.ID, "error", err.Error())
			}
		}
	}
	if ev != nil {
		telemetry.Payments.WithLabelValues(ev.Kind).Inc()
		telemetry.PaymentAmount.WithLabelValues(ev.Kind).Add(float64(ev.Amount))
	}
	telemetry.Registrations.WithLabelValues(mode).Inc()
	span.SetAttributes(
		attribute.String("roll_number", m.RollNumber),
		attribute.String("mode", mode),
	)
	slog.Info("member_event", "event", "member_registered", "member_id", m.ID, "roll_number", m.RollNumber, "mode", mode)

	return RegisterMemberResult{Member: m, Payment: ev, Offline: offline}, nil
}

// buildRegistration validates input and computes the opening member state.
func buildRegistration(input RegisterMemberInput, now time.Time) (member.Member, *billing.PaymentEvent, error) {
	if !member.IsValidTier(input.Tier) {
		return member.Member{}, nil, errors.Join(ErrInvalidInput, member.ErrInvalidTier)
	}
	fee := member.DefaultFees[input.Tier]
	if input.Fee != nil {
		fee = *input.Fee
	}
	charge, err := billing.RegisterNewMember(fee, input.InitialPaid)
	if err != nil {
		return member.Member{}, nil, err
	}

	join := input.JoinDate
	if join.IsZero() {
		join = now
	}
	join = period.Day(join)
	value, unit := input.DurationValue, input.DurationUnit
	if value == 0 && unit == "" {
		value, unit = 1, period.UnitMonth
	}
	expiry, err := period.Add(join, value, unit)
	if err != nil {
		return member.Member{}, nil, fmt.Errorf("%w: %v", billing.ErrInvalidDuration, err)
	}

	m := member.Member{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(input.Name),
		Phone:       strings.TrimSpace(input.Phone),
		Email:       strings.TrimSpace(input.Email),
		Tier:        input.Tier,
		JoinDate:    join,
		CurrentDate: join,
		ExpiryDate:  expiry,
		Fee:         charge.Fee,
		PaidAmount:  charge.PaidAmount,
		Remaining:   charge.Remaining,
	}
	if err := m.Validate(); err != nil {
		return member.Member{}, nil, errors.Join(ErrInvalidInput, err)
	}

	if charge.PaidAmount == 0 {
		return m, nil, nil
	}
	ev, err := billing.NewPaymentEvent(m.ID, charge.PaidAmount, billing.KindRegistration, now)
	if err != nil {
		return member.Member{}, nil, err
	}
	return m, &ev, nil
}

func queuePendingSync(ctx context.Context, w OutboxWriter, m member.Member, ev *billing.PaymentEvent, now time.Time) error {
	payload, err := outbox.EncodePendingSync(outbox.PendingSync{Member: m, Payment: ev})
	if err != nil {
		return err
	}
	entry, err := outbox.NewEntry(uuid.New().String(), outbox.ActionPendingSync, payload, now)
	if err != nil {
		return err
	}
	if err := w.Save(ctx, entry); err != nil {
		return fmt.Errorf("queue pending sync for %s: %w", m.RollNumber, err)
	}
	return nil
}

// cacheContext keeps ctx's values and trace but drops its deadline and
// cancellation, applying cacheWriteTimeout instead.
func cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
