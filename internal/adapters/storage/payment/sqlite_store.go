package payment

import (
	"context"
	"fmt"
	"time"

	"gymdesk/internal/adapters/storage"
	"gymdesk/internal/domain/billing"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new payment store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append inserts a payment event.
func (s *SQLiteStore) Append(ctx context.Context, e billing.PaymentEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_event (id, member_id, amount, kind, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.MemberID, e.Amount, e.Kind, e.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append payment for %s: %w", e.MemberID, storage.Classify(err))
	}
	return nil
}

// ListForMember returns events ordered by ID, which is time ordered.
func (s *SQLiteStore) ListForMember(ctx context.Context, memberID string, limit int) ([]billing.PaymentEvent, error) {
	query := `SELECT id, member_id, amount, kind, recorded_at FROM payment_event WHERE member_id = ? ORDER BY id ASC`
	args := []any{memberID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", storage.Classify(err))
	}
	defer rows.Close()

	events := []billing.PaymentEvent{}
	for rows.Next() {
		var e billing.PaymentEvent
		var at string
		if err := rows.Scan(&e.ID, &e.MemberID, &e.Amount, &e.Kind, &at); err != nil {
			return nil, err
		}
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, at)
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
