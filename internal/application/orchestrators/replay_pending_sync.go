package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/domain/outbox"
)

// ErrRollNumberClash means an offline roll number was taken by a different
// member in the record store before the replay ran.
var ErrRollNumberClash = errors.New("roll number already assigned to another member")

// PendingSyncExecutor writes registrations captured offline into the
// record store once it answers again.
type PendingSyncExecutor struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
}

// Execute replays one pending_sync payload.
// PRE: payload was produced by outbox.EncodePendingSync
// POST: member (and opening payment) exist in the record store; returns the member ID
// INVARIANT: a replay that finds this member ID or payment already stored
// counts as synced; a duplicate held by another member ID is ErrRollNumberClash
func (e *PendingSyncExecutor) Execute(ctx context.Context, payload string) (string, error) {
	p, err := outbox.DecodePendingSync(payload)
	if err != nil {
		return "", err
	}
	m := p.Member
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("pending member %s: %w", m.RollNumber, err)
	}

	if err := e.MemberStore.Create(ctx, m); err != nil {
		if !errors.Is(err, storage.ErrDuplicate) {
			return "", err
		}
		if _, getErr := e.MemberStore.GetByID(ctx, m.ID); getErr != nil {
			if !errors.Is(getErr, storage.ErrNotFound) {
				return "", getErr
			}
			slog.Error("pending_sync_roll_clash", "member_id", m.ID, "roll_number", m.RollNumber)
			return "", fmt.Errorf("pending member %s: %w", m.RollNumber, ErrRollNumberClash)
		}
		slog.Info("pending_sync_already_present", "member_id", m.ID, "roll_number", m.RollNumber)
	}
	if p.Payment != nil {
		if err := e.PaymentStore.Append(ctx, *p.Payment); err != nil && !errors.Is(err, storage.ErrDuplicate) {
			return "", err
		}
	}
	slog.Info("member_event", "event", "member_synced", "member_id", m.ID, "roll_number", m.RollNumber)
	return m.ID, nil
}
