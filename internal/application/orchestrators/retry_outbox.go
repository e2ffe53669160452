package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/adapters/storage"
	outboxStore "gymdesk/internal/adapters/storage/outbox"
	domain "gymdesk/internal/domain/outbox"
	"gymdesk/internal/telemetry"
)

// OutboxProcessor replays deferred actions from the local cache.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// ActionExecutor executes a specific type of deferred action.
type ActionExecutor interface {
	// Execute runs the action with the given payload.
	// Returns the external ID (e.g. synced member ID or message ID) and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// ProcessorOption tunes an OutboxProcessor.
type ProcessorOption func(*OutboxProcessor)

// WithBackoff sets the retry backoff bounds.
func WithBackoff(base, max time.Duration) ProcessorOption {
	return func(p *OutboxProcessor) { p.baseDelay, p.maxDelay = base, max }
}

// WithBatchSize sets how many entries one pass loads.
func WithBatchSize(n int) ProcessorOption {
	return func(p *OutboxProcessor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *OutboxProcessor) { p.now = now }
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor, opts ...ProcessorOption) *OutboxProcessor {
	p := &OutboxProcessor{
		store:     store,
		executors: executors,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 50,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessSummary counts what one pass did.
type ProcessSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int // still inside their backoff window
}

// ProcessPending attempts every due pending or retrying entry.
// PRE: Context is valid
// POST: Due entries attempted once; failures keep backing off until they
// run out of attempts
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (ProcessSummary, error) {
	var sum ProcessSummary
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return sum, fmt.Errorf("list pending outbox entries: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDue(p.now(), p.baseDelay, p.maxDelay) {
			sum.Skipped++
			continue
		}
		sum.Attempted++
		ok, err := p.attempt(ctx, entry)
		if err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
			if storage.IsUnavailable(err) {
				// The cache itself is failing; the rest of the batch would too.
				sum.Failed++
				return sum, err
			}
		}
		if ok {
			sum.Succeeded++
		} else {
			sum.Failed++
		}
	}
	if sum.Attempted > 0 {
		slog.Info("outbox_pass_complete", "attempted", sum.Attempted, "succeeded", sum.Succeeded, "failed", sum.Failed, "skipped", sum.Skipped)
	}
	return sum, nil
}

// attempt runs entry once and saves the outcome. ok reports executor success.
func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) (ok bool, err error) {
	executor, found := p.executors[entry.ActionType]
	entry.MarkAttempt(p.now())
	if !found {
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		telemetry.OutboxOutcomes.WithLabelValues(entry.ActionType, "failed").Inc()
		return false, p.store.Save(ctx, entry)
	}

	externalID, execErr := executor.Execute(ctx, entry.Payload)
	if execErr != nil {
		entry.MarkFailed(execErr)
		telemetry.OutboxOutcomes.WithLabelValues(entry.ActionType, "failed").Inc()
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType,
			"attempt", entry.Attempts, "status", entry.Status, "error", execErr.Error())
	} else {
		entry.MarkSuccess(externalID)
		ok = true
		telemetry.OutboxOutcomes.WithLabelValues(entry.ActionType, "succeeded").Inc()
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return ok, p.store.Save(ctx, entry)
}

// ErrEntryTerminal is returned when an admin retries a finished entry.
var ErrEntryTerminal = errors.New("outbox entry is done or abandoned")

// ProcessSingle manually runs one entry now, ignoring backoff. A failed
// entry that ran out of attempts gets one more.
// PRE: entryID is non-empty
// POST: Entry attempted and saved; returns the updated entry
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.Status == domain.StatusDone || entry.Status == domain.StatusAbandoned {
		return entry, fmt.Errorf("entry %s: %w", entryID, ErrEntryTerminal)
	}
	entry.Reopen()
	if _, err := p.attempt(ctx, entry); err != nil {
		return domain.Entry{}, err
	}
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry marks an entry as abandoned by admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned; done entries are refused
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if err := entry.MarkAbandoned(); err != nil {
		return fmt.Errorf("entry %s: %w", entryID, ErrEntryTerminal)
	}
	telemetry.OutboxOutcomes.WithLabelValues(entry.ActionType, "abandoned").Inc()
	slog.Warn("outbox_entry_abandoned", "entry_id", entry.ID, "action_type", entry.ActionType, "attempts", entry.Attempts)
	return p.store.Save(ctx, entry)
}

// StartBackgroundWorker periodically processes pending outbox entries.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed; the returned channel closes
// once the worker has exited
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_background_process_failed", "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
	return done
}
