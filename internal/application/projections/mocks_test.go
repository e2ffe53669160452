package projections

import (
	"context"
	"errors"
	"strings"
	"time"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/adapters/storage/member"
	domainAttendance "gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/billing"
	domainMember "gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
)

var today = period.Date(2024, 2, 5)

type mockMemberStore struct {
	members []domainMember.Member
	listErr error
}

// GetByID returns a seeded member by ID.
// PRE: id is non-empty
// POST: Returns the seeded member or storage.ErrNotFound
func (m *mockMemberStore) GetByID(_ context.Context, id string) (domainMember.Member, error) {
	for _, mem := range m.members {
		if mem.ID == id {
			return mem, nil
		}
	}
	return domainMember.Member{}, storage.ErrNotFound
}

// List applies the tier and query filters the SQLite store honours.
func (m *mockMemberStore) List(_ context.Context, f member.ListFilter) ([]domainMember.Member, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domainMember.Member
	for _, mem := range m.members {
		if f.Tier != "" && mem.Tier != f.Tier {
			continue
		}
		if q := strings.ToLower(f.Query); q != "" &&
			!strings.Contains(strings.ToLower(mem.Name), q) &&
			!strings.Contains(strings.ToLower(mem.RollNumber), q) {
			continue
		}
		out = append(out, mem)
	}
	return out, nil
}

type mockAttendanceStore struct {
	records []domainAttendance.Record
}

func (m *mockAttendanceStore) ListForDate(_ context.Context, day time.Time) ([]domainAttendance.Record, error) {
	var out []domainAttendance.Record
	for _, r := range m.records {
		if r.Date.Equal(day) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockAttendanceStore) ListForMember(_ context.Context, memberID string, limit int) ([]domainAttendance.Record, error) {
	var out []domainAttendance.Record
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].MemberID == memberID {
			out = append(out, m.records[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type mockPaymentStore struct {
	events []billing.PaymentEvent
}

func (m *mockPaymentStore) ListForMember(_ context.Context, memberID string, _ int) ([]billing.PaymentEvent, error) {
	var out []billing.PaymentEvent
	for _, e := range m.events {
		if e.MemberID == memberID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockOutboxCounter struct {
	counts   map[string]int
	byAction map[string]map[string]int
	err      error
}

func (m *mockOutboxCounter) CountByStatus(context.Context) (map[string]int, error) {
	return m.counts, m.err
}

func (m *mockOutboxCounter) CountByActionType(_ context.Context, actionType string) (map[string]int, error) {
	return m.byAction[actionType], m.err
}

var errBoom = errors.New("boom")

// memberExpiring builds a member whose term ends offset days from today.
func memberExpiring(id, roll, name string, offset int, remaining int64) domainMember.Member {
	return domainMember.Member{
		ID:          id,
		RollNumber:  roll,
		Name:        name,
		Tier:        domainMember.TierStandard,
		JoinDate:    period.Date(2023, 1, 1),
		CurrentDate: period.Date(2023, 1, 1),
		ExpiryDate:  today.AddDate(0, 0, offset),
		Fee:         5000,
		PaidAmount:  5000 - remaining,
		Remaining:   remaining,
	}
}

// roster covers every lifecycle state on 2024-02-05.
func roster() []domainMember.Member {
	return []domainMember.Member{
		memberExpiring("m1", "GYM-0001", "Aroha", 30, 0),    // active, paid
		memberExpiring("m2", "GYM-0002", "Bex", 3, 2000),    // expiring, pending
		memberExpiring("m3", "GYM-0003", "Caleb", -2, 1000), // shortlisted, overdue
		memberExpiring("m4", "GYM-0004", "Dana", -8, 0),     // shortlisted, paid
		memberExpiring("m5", "GYM-0005", "Eru", -40, 4000),  // expired, overdue
	}
}
