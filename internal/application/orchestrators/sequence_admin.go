package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/domain/sequence"
	"gymdesk/internal/telemetry"
)

// CounterCount is the slice of the member store the allocator reconciles against.
type CounterCount interface {
	Count(ctx context.Context) (int64, error)
}

// SequenceDeps holds dependencies for the roll number admin operations.
type SequenceDeps struct {
	MemberStore CounterCount
	Allocator   *sequence.Allocator
}

// ExecutePeekRollNumber previews the next roll number without consuming it.
// POST: Allocation.Degraded is true when the member count was unavailable
func ExecutePeekRollNumber(ctx context.Context, deps SequenceDeps) (sequence.Allocation, error) {
	remote, err := remoteCount(ctx, deps.MemberStore)
	if err != nil {
		return sequence.Allocation{}, err
	}
	alloc, err := deps.Allocator.PeekNext(ctx, remote)
	if err != nil {
		return sequence.Allocation{}, err
	}
	telemetry.RollCounter.Set(float64(deps.Allocator.Current()))
	return alloc, nil
}

// ExecuteSetCounterOverride moves the counter forward.
// PRE: value >= the current counter
// POST: counter == value; sequence.ErrCounterDrift leaves it untouched
func ExecuteSetCounterOverride(ctx context.Context, value int64, deps SequenceDeps) error {
	before := deps.Allocator.Current()
	if err := deps.Allocator.SetOverride(ctx, value); err != nil {
		return err
	}
	telemetry.RollCounter.Set(float64(value))
	slog.Info("sequence_event", "event", "counter_override", "from", before, "to", value)
	return nil
}

func remoteCount(ctx context.Context, store CounterCount) (sequence.RemoteCount, error) {
	n, err := store.Count(ctx)
	if err == nil {
		return sequence.Remote(n), nil
	}
	if storage.IsUnavailable(err) {
		return sequence.Unavailable(), nil
	}
	return sequence.RemoteCount{}, fmt.Errorf("count members: %w", err)
}
