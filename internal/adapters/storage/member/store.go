package member

import (
	"context"

	domain "gymdesk/internal/domain/member"
)

// Store persists Member state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (domain.Member, error)
	Create(ctx context.Context, value domain.Member) error
	Update(ctx context.Context, id string, patch domain.Patch) error
	List(ctx context.Context, filter ListFilter) ([]domain.Member, error)
	Count(ctx context.Context) (int64, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Limit  int
	Offset int
	Tier   string
	Query  string // case-insensitive match on name or roll number
}
