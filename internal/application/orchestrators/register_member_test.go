package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/period"
	"gymdesk/internal/domain/sequence"
)

type registerFixture struct {
	members  *mockMemberStore
	payments *mockPaymentStore
	outbox   *mockOutboxStore
	counter  *memoryCounter
	alloc    *sequence.Allocator
	deps     RegisterMemberDeps
}

func newRegisterFixture(t *testing.T, floor int64) *registerFixture {
	t.Helper()
	f := &registerFixture{
		members:  newMockMemberStore(),
		payments: &mockPaymentStore{},
		outbox:   newMockOutboxStore(),
		counter:  &memoryCounter{},
	}
	f.alloc = sequence.NewAllocator("GYM", f.counter)
	if err := f.alloc.Initialize(context.Background(), floor); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	f.deps = RegisterMemberDeps{
		MemberStore:  f.members,
		PaymentStore: f.payments,
		Outbox:       f.outbox,
		Allocator:    f.alloc,
		Now:          fixedNow,
	}
	return f
}

func validInput() RegisterMemberInput {
	return RegisterMemberInput{
		Name:        "Aroha Ngata",
		Email:       "aroha@example.com",
		Tier:        member.TierStandard,
		InitialPaid: 2000,
	}
}

func TestExecuteRegisterMember_Online(t *testing.T) {
	f := newRegisterFixture(t, 505)

	res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Offline {
		t.Error("expected online registration")
	}
	m := res.Member
	if m.RollNumber != "GYM-0506" {
		t.Errorf("RollNumber = %s, want GYM-0506", m.RollNumber)
	}
	if m.Fee != 5000 || m.PaidAmount != 2000 || m.Remaining != 3000 {
		t.Errorf("balance = %d/%d/%d", m.Fee, m.PaidAmount, m.Remaining)
	}
	if !m.JoinDate.Equal(period.Date(2024, 2, 5)) || !m.ExpiryDate.Equal(period.Date(2024, 3, 5)) {
		t.Errorf("term = %s..%s", period.Format(m.JoinDate), period.Format(m.ExpiryDate))
	}
	if got := f.members.get(m.ID); got.RollNumber != "GYM-0506" {
		t.Errorf("stored member = %+v", got)
	}
	if len(f.payments.events) != 1 || f.payments.events[0].Kind != billing.KindRegistration || f.payments.events[0].Amount != 2000 {
		t.Errorf("payments = %+v", f.payments.events)
	}
	if len(f.outbox.entries) != 0 {
		t.Errorf("outbox should be empty, got %d", len(f.outbox.entries))
	}
	if f.alloc.Current() != 506 {
		t.Errorf("counter = %d, want 506", f.alloc.Current())
	}
}

func TestExecuteRegisterMember_NoPaymentEventWhenNothingPaid(t *testing.T) {
	f := newRegisterFixture(t, 0)
	in := validInput()
	in.InitialPaid = 0

	res, err := ExecuteRegisterMember(context.Background(), in, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Payment != nil || len(f.payments.events) != 0 {
		t.Errorf("expected no payment event, got %+v", f.payments.events)
	}
}

func TestExecuteRegisterMember_RemoteCountAheadOfCache(t *testing.T) {
	f := newRegisterFixture(t, 0)
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("m%d", i)
		f.members.members[id] = activeMember(id, sequence.Format("GYM", int64(i)), 0)
	}

	res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Member.RollNumber != "GYM-0004" {
		t.Errorf("RollNumber = %s, want GYM-0004", res.Member.RollNumber)
	}
}

func TestExecuteRegisterMember_OfflineWhenCountUnavailable(t *testing.T) {
	f := newRegisterFixture(t, 505)
	f.members.countErr = unavailable

	res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Offline || !res.Member.IsPendingSync() {
		t.Fatalf("expected offline pending_sync result, got %+v", res)
	}
	if res.Member.RollNumber != "GYM-0506" {
		t.Errorf("RollNumber = %s, want GYM-0506", res.Member.RollNumber)
	}
	if f.members.creates != 0 {
		t.Errorf("record store should not be written in degraded mode")
	}
	if len(f.payments.events) != 0 {
		t.Errorf("payment should travel in the outbox payload")
	}

	pending := f.outbox.byStatus(outbox.StatusPending)
	if len(pending) != 1 || pending[0].ActionType != outbox.ActionPendingSync {
		t.Fatalf("outbox = %+v", pending)
	}
	p, err := outbox.DecodePendingSync(pending[0].Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.Member.RollNumber != "GYM-0506" || p.Payment == nil || p.Payment.Amount != 2000 {
		t.Errorf("payload = %+v", p)
	}
	if f.alloc.Current() != 506 {
		t.Errorf("offline registration must commit the counter, got %d", f.alloc.Current())
	}
}

func TestExecuteRegisterMember_OfflineWhenCreateUnavailable(t *testing.T) {
	f := newRegisterFixture(t, 0)
	f.members.createErr = unavailable

	res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Offline {
		t.Error("expected offline registration")
	}
	if len(f.outbox.entries) != 1 {
		t.Errorf("expected one pending_sync entry, got %d", len(f.outbox.entries))
	}
	if f.alloc.Current() != 1 {
		t.Errorf("counter = %d, want 1", f.alloc.Current())
	}
}

func TestExecuteRegisterMember_FailuresDoNotConsumeRollNumber(t *testing.T) {
	fee := int64(1000)
	tests := []struct {
		name    string
		mutate  func(*RegisterMemberInput)
		setup   func(*registerFixture)
		wantErr error
	}{
		{"empty name", func(in *RegisterMemberInput) { in.Name = "  " }, nil, ErrInvalidInput},
		{"unknown tier", func(in *RegisterMemberInput) { in.Tier = "gold" }, nil, member.ErrInvalidTier},
		{"overpaid", func(in *RegisterMemberInput) { in.Fee = &fee; in.InitialPaid = 1001 }, nil, billing.ErrInvalidAmount},
		{"negative paid", func(in *RegisterMemberInput) { in.InitialPaid = -1 }, nil, billing.ErrInvalidAmount},
		{"bad unit", func(in *RegisterMemberInput) { in.DurationValue, in.DurationUnit = 1, "week" }, nil, billing.ErrInvalidDuration},
		{"bad email", func(in *RegisterMemberInput) { in.Email = "nope" }, nil, ErrInvalidInput},
		{"store rejects", func(*RegisterMemberInput) {}, func(f *registerFixture) {
			f.members.createErr = errors.New("disk full")
		}, nil},
		{"offline queue fails", func(*RegisterMemberInput) {}, func(f *registerFixture) {
			f.members.countErr = unavailable
			f.outbox.saveErr = errors.New("cache read-only")
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegisterFixture(t, 10)
			if tt.setup != nil {
				tt.setup(f)
			}
			in := validInput()
			tt.mutate(&in)

			_, err := ExecuteRegisterMember(context.Background(), in, f.deps)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if f.alloc.Current() != 10 {
				t.Errorf("counter moved to %d on failure", f.alloc.Current())
			}
		})
	}
}

func TestExecuteRegisterMember_Throttled(t *testing.T) {
	f := newRegisterFixture(t, 0)
	f.deps.Throttle = &fixedThrottle{n: 1}

	if _, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	_, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if !errors.Is(err, ErrRegistrationThrottled) {
		t.Fatalf("error = %v, want ErrRegistrationThrottled", err)
	}
	if f.alloc.Current() != 1 {
		t.Errorf("throttled call consumed a number")
	}
}

func TestExecuteRegisterMember_CounterNotPersistedStillSucceeds(t *testing.T) {
	f := newRegisterFixture(t, 0)
	f.counter.storeErr = errors.New("cache locked")

	res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Member.RollNumber != "GYM-0001" {
		t.Errorf("RollNumber = %s", res.Member.RollNumber)
	}
	// The in-memory counter moved, so the next caller cannot reuse 0001.
	f.counter.storeErr = nil
	next, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if next.Member.RollNumber != "GYM-0002" {
		t.Errorf("RollNumber = %s, want GYM-0002", next.Member.RollNumber)
	}
}

// TestExecuteRegisterMember_StrictlyIncreasingAcrossOutage registers
// through an outage and a recovery and checks no number repeats.
func TestExecuteRegisterMember_StrictlyIncreasingAcrossOutage(t *testing.T) {
	f := newRegisterFixture(t, 0)
	outage := []bool{false, false, true, true, false, true, false}

	var last string
	for i, down := range outage {
		f.members.countErr = nil
		f.members.createErr = nil
		if down {
			f.members.countErr = unavailable
		}
		res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
		if err != nil {
			t.Fatalf("registration %d: %v", i, err)
		}
		if res.Member.RollNumber <= last {
			t.Fatalf("registration %d got %s after %s", i, res.Member.RollNumber, last)
		}
		last = res.Member.RollNumber
	}
	if last != "GYM-0007" {
		t.Errorf("last = %s, want GYM-0007", last)
	}
}

func TestExecuteRegisterMember_ConcurrentUnique(t *testing.T) {
	f := newRegisterFixture(t, 0)
	const n = 20

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
			if err != nil {
				t.Errorf("register: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[res.Member.RollNumber] {
				t.Errorf("duplicate roll number %s", res.Member.RollNumber)
			}
			seen[res.Member.RollNumber] = true
		}()
	}
	wg.Wait()
	if len(seen) != n || f.alloc.Current() != n {
		t.Errorf("issued %d numbers, counter %d", len(seen), f.alloc.Current())
	}
}

func TestExecuteRegisterMember_MonthEndClamp(t *testing.T) {
	f := newRegisterFixture(t, 0)
	in := validInput()
	in.JoinDate = period.Date(2024, 1, 31)

	res, err := ExecuteRegisterMember(context.Background(), in, f.deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := period.Format(res.Member.ExpiryDate); got != "2024-02-29" {
		t.Errorf("expiry = %s, want 2024-02-29", got)
	}
}
