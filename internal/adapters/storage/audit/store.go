package audit

import (
	"context"

	domain "gymdesk/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	// PRE: event was built with domain.NewEvent
	// POST: Event is persisted; a repeated ID is ErrDuplicate
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events with optional filtering.
	// PRE: limit > 0
	// POST: Returns events ordered newest first
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)
}

// Filter defines query parameters for listing audit events.
// Zero fields match everything.
type Filter struct {
	Category   domain.Category
	Action     domain.Action
	ResourceID string
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
