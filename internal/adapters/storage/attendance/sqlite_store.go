package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/period"
)

const timeLayout = time.RFC3339Nano

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new attendance store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts a record.
// PRE: r has been validated
// POST: Record persisted; the (member_id, day) unique index turns a second
// insert into storage.ErrDuplicate
func (s *SQLiteStore) Create(ctx context.Context, r domain.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (id, member_id, day, status, checked_in_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.MemberID, period.Format(r.Date), r.Status, r.CheckedInAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("create attendance for %s: %w", r.MemberID, storage.Classify(err))
	}
	return nil
}

// Exists reports whether the member already has a record on day.
// PRE: memberID is non-empty
// POST: Returns true when a record exists
func (s *SQLiteStore) Exists(ctx context.Context, memberID string, day time.Time) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM attendance WHERE member_id = ? AND day = ? LIMIT 1`,
		memberID, period.Format(day)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check attendance: %w", storage.Classify(err))
	}
	return true, nil
}

// ListForDate returns every record on day ordered by check-in time.
// POST: Returns an empty slice when nobody attended
func (s *SQLiteStore) ListForDate(ctx context.Context, day time.Time) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, day, status, checked_in_at FROM attendance WHERE day = ? ORDER BY checked_in_at ASC`,
		period.Format(day))
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", storage.Classify(err))
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListForMember returns the member's most recent records first.
// PRE: limit > 0
func (s *SQLiteStore) ListForMember(ctx context.Context, memberID string, limit int) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, day, status, checked_in_at FROM attendance WHERE member_id = ? ORDER BY day DESC LIMIT ?`,
		memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", storage.Classify(err))
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	records := []domain.Record{}
	for rows.Next() {
		var r domain.Record
		var day, at string
		if err := rows.Scan(&r.ID, &r.MemberID, &day, &r.Status, &at); err != nil {
			return nil, err
		}
		d, err := period.Parse(day)
		if err != nil {
			return nil, err
		}
		r.Date = d
		if at != "" {
			r.CheckedInAt, _ = time.Parse(timeLayout, at)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
