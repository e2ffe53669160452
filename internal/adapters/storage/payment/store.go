package payment

import (
	"context"

	"gymdesk/internal/domain/billing"
)

// Store is the append-only payment history.
type Store interface {
	// Append records an event.
	// PRE: e has been validated
	// POST: Event persisted; a repeated ID wraps storage.ErrDuplicate
	Append(ctx context.Context, e billing.PaymentEvent) error

	// ListForMember returns a member's events oldest first.
	// PRE: limit >= 0 (0 means no limit)
	ListForMember(ctx context.Context, memberID string, limit int) ([]billing.PaymentEvent, error)
}
