package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/billing"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/period"
)

var fixedTime = time.Date(2024, 2, 5, 10, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// unavailable mimics a store error after storage.Classify.
var unavailable = fmt.Errorf("ping: %w", storage.ErrStoreUnavailable)

// mockMemberStore implements MemberStore in memory.
// Setting an *Err field makes the matching call fail.
type mockMemberStore struct {
	mu        sync.Mutex
	members   map[string]member.Member
	countErr  error
	createErr error
	updateErr error
	creates   int
}

func newMockMemberStore(ms ...member.Member) *mockMemberStore {
	s := &mockMemberStore{members: map[string]member.Member{}}
	for _, m := range ms {
		s.members[m.ID] = m
	}
	return s
}

// GetByID implements MemberStore.
// POST: returns the member or storage.ErrNotFound
func (s *mockMemberStore) GetByID(_ context.Context, id string) (member.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return member.Member{}, fmt.Errorf("get member %s: %w", id, storage.ErrNotFound)
	}
	return m, nil
}

// Create implements MemberStore.
// POST: a repeated ID or roll number returns storage.ErrDuplicate
func (s *mockMemberStore) Create(_ context.Context, m member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	for _, existing := range s.members {
		if existing.ID == m.ID || existing.RollNumber == m.RollNumber {
			return storage.ErrDuplicate
		}
	}
	m.SyncState = member.SyncStateSynced
	s.members[m.ID] = m
	s.creates++
	return nil
}

// Update implements MemberStore.
// POST: non-nil patch fields written
func (s *mockMemberStore) Update(_ context.Context, id string, p member.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	m, ok := s.members[id]
	if !ok {
		return storage.ErrNotFound
	}
	if p.Tier != nil {
		m.Tier = *p.Tier
	}
	if p.CurrentDate != nil {
		m.CurrentDate = *p.CurrentDate
	}
	if p.ExpiryDate != nil {
		m.ExpiryDate = *p.ExpiryDate
	}
	if p.Fee != nil {
		m.Fee = *p.Fee
	}
	if p.PaidAmount != nil {
		m.PaidAmount = *p.PaidAmount
	}
	if p.Remaining != nil {
		m.Remaining = *p.Remaining
	}
	s.members[id] = m
	return nil
}

// Count implements MemberStore.
func (s *mockMemberStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	return int64(len(s.members)), nil
}

func (s *mockMemberStore) get(id string) member.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[id]
}

// mockPaymentStore implements PaymentStore.
type mockPaymentStore struct {
	mu     sync.Mutex
	events []billing.PaymentEvent
	err    error
}

// Append implements PaymentStore.
// POST: a repeated ID returns storage.ErrDuplicate
func (s *mockPaymentStore) Append(_ context.Context, e billing.PaymentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.events {
		if existing.ID == e.ID {
			return storage.ErrDuplicate
		}
	}
	s.events = append(s.events, e)
	return nil
}

// ListForMember returns appended events for memberID.
func (s *mockPaymentStore) ListForMember(_ context.Context, memberID string, _ int) ([]billing.PaymentEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []billing.PaymentEvent
	for _, e := range s.events {
		if e.MemberID == memberID {
			out = append(out, e)
		}
	}
	return out, nil
}

// mockOutboxStore implements outboxStore.Store in memory.
type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
	saveErr error
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: map[string]outbox.Entry{}}
}

// GetByID implements outboxStore.Store.
func (s *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return outbox.Entry{}, storage.ErrNotFound
	}
	return e, nil
}

// Save implements outboxStore.Store.
func (s *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries[e.ID] = e
	return nil
}

func (s *mockOutboxStore) byStatus(statuses ...string) []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Entry
	for _, e := range s.entries {
		for _, st := range statuses {
			if e.Status == st {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ListPending implements outboxStore.Store.
func (s *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	out := s.byStatus(outbox.StatusPending, outbox.StatusRetrying)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListFailed implements outboxStore.Store.
func (s *mockOutboxStore) ListFailed(_ context.Context, limit int) ([]outbox.Entry, error) {
	out := s.byStatus(outbox.StatusFailed)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByActionType implements outboxStore.Store.
func (s *mockOutboxStore) ListByActionType(_ context.Context, actionType, status string, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, e := range s.byStatus(outbox.StatusPending, outbox.StatusRetrying, outbox.StatusDone, outbox.StatusFailed, outbox.StatusAbandoned) {
		if e.ActionType == actionType && (status == "" || e.Status == status) {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByStatus implements outboxStore.Store.
func (s *mockOutboxStore) CountByStatus(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, e := range s.entries {
		counts[e.Status]++
	}
	return counts, nil
}

// CountByActionType implements outboxStore.Store.
func (s *mockOutboxStore) CountByActionType(_ context.Context, actionType string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, e := range s.entries {
		if e.ActionType == actionType {
			counts[e.Status]++
		}
	}
	return counts, nil
}

// mockAttendanceStore implements AttendanceStore with the same
// (member, day) uniqueness as the SQLite index.
type mockAttendanceStore struct {
	mu        sync.Mutex
	records   map[string]attendance.Record
	existsErr error
	// skipExists makes Exists report false so the store's uniqueness check
	// is what rejects a duplicate.
	skipExists bool
}

func newMockAttendanceStore() *mockAttendanceStore {
	return &mockAttendanceStore{records: map[string]attendance.Record{}}
}

func attendanceKey(memberID string, day time.Time) string {
	return memberID + "|" + period.Format(day)
}

// Create implements AttendanceStore.
func (s *mockAttendanceStore) Create(_ context.Context, r attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := attendanceKey(r.MemberID, r.Date)
	if _, ok := s.records[k]; ok {
		return fmt.Errorf("create attendance: %w", storage.ErrDuplicate)
	}
	s.records[k] = r
	return nil
}

// Exists implements AttendanceStore.
func (s *mockAttendanceStore) Exists(_ context.Context, memberID string, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	if s.skipExists {
		return false, nil
	}
	_, ok := s.records[attendanceKey(memberID, day)]
	return ok, nil
}

// ListForDate returns the records on day.
func (s *mockAttendanceStore) ListForDate(_ context.Context, day time.Time) ([]attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []attendance.Record
	for _, r := range s.records {
		if r.Date.Equal(period.Day(day)) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListForMember returns the member's records.
func (s *mockAttendanceStore) ListForMember(_ context.Context, memberID string, _ int) ([]attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []attendance.Record
	for _, r := range s.records {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out, nil
}

// memoryCounter implements sequence.CounterCache.
type memoryCounter struct {
	mu       sync.Mutex
	value    int64
	set      bool
	storeErr error
}

func (c *memoryCounter) Load(context.Context) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set, nil
}

func (c *memoryCounter) Store(_ context.Context, v int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storeErr != nil {
		return c.storeErr
	}
	c.value, c.set = v, true
	return nil
}

// fixedThrottle allows the first n calls.
type fixedThrottle struct{ n int }

func (t *fixedThrottle) Allow() bool {
	if t.n <= 0 {
		return false
	}
	t.n--
	return true
}

// stubExecutor returns err for the first failures calls, then succeeds.
type stubExecutor struct {
	failures int
	calls    int
	payloads []string
}

func (e *stubExecutor) Execute(_ context.Context, payload string) (string, error) {
	e.calls++
	e.payloads = append(e.payloads, payload)
	if e.calls <= e.failures {
		return "", errors.New("downstream unavailable")
	}
	return fmt.Sprintf("ext-%d", e.calls), nil
}

// activeMember returns a member with a month left and the given balance.
func activeMember(id, roll string, remaining int64) member.Member {
	return member.Member{
		ID:          id,
		RollNumber:  roll,
		Name:        "Member " + roll,
		Email:       id + "@example.com",
		Tier:        member.TierStandard,
		JoinDate:    period.Date(2024, 1, 20),
		CurrentDate: period.Date(2024, 1, 20),
		ExpiryDate:  period.Date(2024, 3, 20),
		Fee:         5000,
		PaidAmount:  5000 - remaining,
		Remaining:   remaining,
	}
}
