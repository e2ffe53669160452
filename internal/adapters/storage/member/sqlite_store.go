package member

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/member"
	"gymdesk/internal/domain/period"
)

const memberColumns = "id, roll_number, name, phone, email, tier, join_date, reference_date, expiry_date, fee, paid_amount, remaining"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a new member store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE id = ?", id)
	m, err := scanMember(row)
	if err != nil {
		return domain.Member{}, fmt.Errorf("get member %s: %w", id, storage.Classify(err))
	}
	return m, nil
}

// GetByRollNumber retrieves a Member by roll number.
// PRE: rollNumber is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByRollNumber(ctx context.Context, rollNumber string) (domain.Member, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM member WHERE roll_number = ?", rollNumber)
	m, err := scanMember(row)
	if err != nil {
		return domain.Member{}, fmt.Errorf("get member %s: %w", rollNumber, storage.Classify(err))
	}
	return m, nil
}

// Create inserts a new Member.
// PRE: entity has been validated
// POST: Entity is persisted; a clash on id or roll number wraps storage.ErrDuplicate
func (s *SQLiteStore) Create(ctx context.Context, m domain.Member) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO member ("+memberColumns+", created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.RollNumber, m.Name, m.Phone, m.Email, m.Tier,
		period.Format(m.JoinDate), period.Format(m.CurrentDate), period.Format(m.ExpiryDate),
		m.Fee, m.PaidAmount, m.Remaining,
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create member %s: %w", m.RollNumber, storage.Classify(err))
	}
	return nil
}

// Update applies a partial update.
// PRE: patch is not empty
// POST: Only the non-nil patch fields are written; unknown id wraps storage.ErrNotFound
func (s *SQLiteStore) Update(ctx context.Context, id string, p domain.Patch) error {
	if p.IsEmpty() {
		return nil
	}
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		set("name", *p.Name)
	}
	if p.Phone != nil {
		set("phone", *p.Phone)
	}
	if p.Email != nil {
		set("email", *p.Email)
	}
	if p.Tier != nil {
		set("tier", *p.Tier)
	}
	if p.CurrentDate != nil {
		set("reference_date", period.Format(*p.CurrentDate))
	}
	if p.ExpiryDate != nil {
		set("expiry_date", period.Format(*p.ExpiryDate))
	}
	if p.Fee != nil {
		set("fee", *p.Fee)
	}
	if p.PaidAmount != nil {
		set("paid_amount", *p.PaidAmount)
	}
	if p.Remaining != nil {
		set("remaining", *p.Remaining)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE member SET %s WHERE id = ?", strings.Join(sets, ", ")),
		args...)
	if err != nil {
		return fmt.Errorf("update member %s: %w", id, storage.Classify(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update member %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// List returns members ordered by roll number.
// PRE: filter.Limit >= 0
// POST: Returns at most Limit members (all when Limit is 0)
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Member, error) {
	query := "SELECT " + memberColumns + " FROM member WHERE 1=1"
	var args []any
	if filter.Tier != "" {
		query += " AND tier = ?"
		args = append(args, filter.Tier)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query += " AND (name LIKE ? OR roll_number LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	query += " ORDER BY roll_number ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", storage.Classify(err))
	}
	defer rows.Close()

	var list []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", storage.Classify(err))
	}
	return list, nil
}

// Count returns the number of stored members.
// POST: Returns count >= 0
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM member").Scan(&n); err != nil {
		return 0, fmt.Errorf("count members: %w", storage.Classify(err))
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (domain.Member, error) {
	var m domain.Member
	var join, ref, expiry string
	err := row.Scan(&m.ID, &m.RollNumber, &m.Name, &m.Phone, &m.Email, &m.Tier,
		&join, &ref, &expiry, &m.Fee, &m.PaidAmount, &m.Remaining)
	if err != nil {
		return domain.Member{}, err
	}
	if m.JoinDate, err = period.Parse(join); err != nil {
		return domain.Member{}, err
	}
	if m.ExpiryDate, err = period.Parse(expiry); err != nil {
		return domain.Member{}, err
	}
	if ref != "" {
		if m.CurrentDate, err = period.Parse(ref); err != nil {
			return domain.Member{}, err
		}
	}
	m.SyncState = domain.SyncStateSynced
	return m, nil
}

var _ Store = (*SQLiteStore)(nil)
var _ scanner = (*sql.Row)(nil)
