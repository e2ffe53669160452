package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gymdesk/internal/adapters/email"
	"gymdesk/internal/domain/outbox"
)

func seedEntry(t *testing.T, s *mockOutboxStore, id, action, payload string, created time.Time) outbox.Entry {
	t.Helper()
	e, err := outbox.NewEntry(id, action, payload, created)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOutboxProcessor_BackoffAndExhaustion(t *testing.T) {
	store := newMockOutboxStore()
	seedEntry(t, store, "o1", "flaky", "{}", fixedTime)
	exec := &stubExecutor{failures: 100}

	now := fixedTime
	p := NewOutboxProcessor(store, map[string]ActionExecutor{"flaky": exec},
		WithBackoff(time.Minute, 10*time.Minute), WithClock(func() time.Time { return now }))

	sum, err := p.ProcessPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Attempted != 1 || sum.Failed != 1 {
		t.Errorf("first pass = %+v", sum)
	}

	// Inside the 2 minute backoff window nothing runs.
	now = now.Add(time.Minute)
	sum, _ = p.ProcessPending(context.Background())
	if sum.Skipped != 1 || exec.calls != 1 {
		t.Errorf("backoff pass = %+v, calls %d", sum, exec.calls)
	}

	for i := 0; i < 10; i++ {
		now = now.Add(time.Hour)
		if _, err := p.ProcessPending(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	e, _ := store.GetByID(context.Background(), "o1")
	if e.Status != outbox.StatusFailed || e.Attempts != outbox.DefaultMaxAttempts {
		t.Errorf("entry = %s after %d attempts", e.Status, e.Attempts)
	}
	if exec.calls != outbox.DefaultMaxAttempts {
		t.Errorf("executor ran %d times", exec.calls)
	}
}

func TestOutboxProcessor_UnknownActionFails(t *testing.T) {
	store := newMockOutboxStore()
	seedEntry(t, store, "o1", "mystery", "{}", fixedTime)
	p := NewOutboxProcessor(store, nil, WithClock(fixedNow))

	if _, err := p.ProcessPending(context.Background()); err != nil {
		t.Fatal(err)
	}
	e, _ := store.GetByID(context.Background(), "o1")
	if e.Attempts != 1 || e.ErrorMessage == "" {
		t.Errorf("entry = %+v", e)
	}
}

func TestOutboxProcessor_ManualRetryAndAbandon(t *testing.T) {
	store := newMockOutboxStore()
	failed := seedEntry(t, store, "o1", "flaky", "{}", fixedTime)
	failed.Attempts = failed.MaxAttempts
	failed.MarkFailed(errors.New("gave up"))
	_ = store.Save(context.Background(), failed)
	seedEntry(t, store, "o2", "flaky", "{}", fixedTime)

	exec := &stubExecutor{}
	p := NewOutboxProcessor(store, map[string]ActionExecutor{"flaky": exec}, WithClock(fixedNow))

	e, err := p.ProcessSingle(context.Background(), "o1")
	if err != nil {
		t.Fatalf("ProcessSingle: %v", err)
	}
	if e.Status != outbox.StatusDone || e.ExternalID != "ext-1" {
		t.Errorf("retried entry = %+v", e)
	}
	if _, err := p.ProcessSingle(context.Background(), "o1"); !errors.Is(err, ErrEntryTerminal) {
		t.Errorf("retry of done entry: %v", err)
	}
	if err := p.AbandonEntry(context.Background(), "o1"); !errors.Is(err, ErrEntryTerminal) {
		t.Errorf("abandon of done entry: %v", err)
	}

	if err := p.AbandonEntry(context.Background(), "o2"); err != nil {
		t.Fatalf("AbandonEntry: %v", err)
	}
	e, _ = store.GetByID(context.Background(), "o2")
	if e.Status != outbox.StatusAbandoned {
		t.Errorf("status = %s, want abandoned", e.Status)
	}
	sum, _ := p.ProcessPending(context.Background())
	if sum.Attempted != 0 {
		t.Error("abandoned entries must not be replayed")
	}
}

// TestPendingSyncReplay registers offline, recovers, and replays the
// queued member into the record store.
func TestPendingSyncReplay(t *testing.T) {
	f := newRegisterFixture(t, 505)
	f.members.countErr = unavailable
	res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil || !res.Offline {
		t.Fatalf("offline registration: %+v, %v", res, err)
	}

	f.members.countErr = nil
	replay := &PendingSyncExecutor{MemberStore: f.members, PaymentStore: f.payments}
	p := NewOutboxProcessor(f.outbox, map[string]ActionExecutor{outbox.ActionPendingSync: replay}, WithClock(fixedNow))
	sum, err := p.ProcessPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded != 1 {
		t.Fatalf("summary = %+v", sum)
	}

	stored := f.members.get(res.Member.ID)
	if stored.RollNumber != "GYM-0506" || stored.Remaining != 3000 {
		t.Errorf("synced member = %+v", stored)
	}
	if len(f.payments.events) != 1 || f.payments.events[0].MemberID != res.Member.ID {
		t.Errorf("payments = %+v", f.payments.events)
	}
	done := f.outbox.byStatus(outbox.StatusDone)
	if len(done) != 1 || done[0].ExternalID != res.Member.ID {
		t.Errorf("done entries = %+v", done)
	}

	// A second replay of the same payload counts as synced.
	id, err := replay.Execute(context.Background(), done[0].Payload)
	if err != nil || id != res.Member.ID {
		t.Errorf("replay again = %s, %v", id, err)
	}
	if len(f.payments.events) != 1 {
		t.Error("replay duplicated the payment")
	}

	// The next online registration continues after the offline number.
	next, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil {
		t.Fatal(err)
	}
	if next.Member.RollNumber != "GYM-0507" {
		t.Errorf("next = %s, want GYM-0507", next.Member.RollNumber)
	}
}

func TestPendingSyncExecutor_RollNumberTakenByAnotherMember(t *testing.T) {
	f := newRegisterFixture(t, 505)
	f.members.countErr = unavailable
	res, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps)
	if err != nil || !res.Offline {
		t.Fatalf("offline registration: %+v, %v", res, err)
	}

	// Another desk registered GYM-0506 while this one was offline.
	f.members.countErr = nil
	f.members.members["other-desk"] = activeMember("other-desk", "GYM-0506", 0)

	replay := &PendingSyncExecutor{MemberStore: f.members, PaymentStore: f.payments}
	entry := f.outbox.byStatus(outbox.StatusPending)[0]
	if _, err := replay.Execute(context.Background(), entry.Payload); !errors.Is(err, ErrRollNumberClash) {
		t.Fatalf("err = %v, want ErrRollNumberClash", err)
	}

	p := NewOutboxProcessor(f.outbox, map[string]ActionExecutor{outbox.ActionPendingSync: replay}, WithClock(fixedNow))
	sum, err := p.ProcessPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Succeeded != 0 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(f.outbox.byStatus(outbox.StatusDone)) != 0 {
		t.Error("clashing entry must not be marked done")
	}
	if _, err := f.members.GetByID(context.Background(), res.Member.ID); err == nil {
		t.Error("offline member should not be stored under a taken roll number")
	}
	if len(f.payments.events) != 0 {
		t.Errorf("payments = %+v", f.payments.events)
	}
}

func TestPendingSyncExecutor_StoreStillDown(t *testing.T) {
	f := newRegisterFixture(t, 0)
	f.members.countErr = unavailable
	if _, err := ExecuteRegisterMember(context.Background(), validInput(), f.deps); err != nil {
		t.Fatal(err)
	}
	f.members.createErr = unavailable

	p := NewOutboxProcessor(f.outbox, map[string]ActionExecutor{
		outbox.ActionPendingSync: &PendingSyncExecutor{MemberStore: f.members, PaymentStore: f.payments},
	}, WithClock(fixedNow))
	sum, err := p.ProcessPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(f.outbox.byStatus(outbox.StatusRetrying)) != 1 {
		t.Error("entry should stay queued for retry")
	}
}

func TestReceiptEmailExecutor(t *testing.T) {
	sender := email.NewNoopSender()
	exec := &ReceiptEmailExecutor{Sender: sender}
	payload, _ := json.Marshal(ReceiptPayload{
		To:      "aroha@example.com",
		Receipt: email.Receipt{MemberName: "Aroha", RollNumber: "GYM-0001", Kind: "payment", Amount: 1500, RecordedAt: fixedTime},
	})

	id, err := exec.Execute(context.Background(), string(payload))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if id == "" {
		t.Error("expected a message id")
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0].To[0] != "aroha@example.com" || sent[0].Subject != "Your payment receipt (GYM-0001)" {
		t.Errorf("sent = %+v", sent)
	}

	if _, err := exec.Execute(context.Background(), `{"receipt":{}}`); err == nil {
		t.Error("receipt without recipient should fail")
	}
	if _, err := exec.Execute(context.Background(), `nope`); err == nil {
		t.Error("malformed payload should fail")
	}
}

func TestStartBackgroundWorker_Stops(t *testing.T) {
	p := NewOutboxProcessor(newMockOutboxStore(), nil)
	stop := make(chan struct{})
	done := StartBackgroundWorker(p, time.Millisecond, stop)
	time.Sleep(5 * time.Millisecond)
	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
