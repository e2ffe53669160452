package attendance

import (
	"context"
	"time"

	domain "gymdesk/internal/domain/attendance"
)

// Store persists attendance records.
// Create must reject a second record for the same (member, day) with an
// error wrapping storage.ErrDuplicate.
type Store interface {
	Create(ctx context.Context, r domain.Record) error
	Exists(ctx context.Context, memberID string, day time.Time) (bool, error)
	ListForDate(ctx context.Context, day time.Time) ([]domain.Record, error)
	ListForMember(ctx context.Context, memberID string, limit int) ([]domain.Record, error)
}
