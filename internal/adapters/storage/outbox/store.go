package outbox

import (
	"context"

	domain "gymdesk/internal/domain/outbox"
)

// Store persists deferred actions in the local cache database.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or an error wrapping storage.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts or updates an entry.
	// PRE: entity has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries still owed an attempt, oldest first.
	// PRE: limit > 0
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that ran out of attempts, most recent first.
	// PRE: limit > 0
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListByActionType returns entries of one action type, optionally
	// narrowed to a status.
	// PRE: actionType is non-empty
	ListByActionType(ctx context.Context, actionType string, status string, limit int) ([]domain.Entry, error)

	// CountByStatus returns the number of entries per status.
	CountByStatus(ctx context.Context) (map[string]int, error)

	// CountByActionType returns per-status counts for one action type.
	// PRE: actionType is non-empty
	CountByActionType(ctx context.Context, actionType string) (map[string]int, error)
}
