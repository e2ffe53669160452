package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gymdesk/internal/adapters/storage"
	domain "gymdesk/internal/domain/audit"
)

const (
	// Fixed width so timestamps sort as text.
	timeLayout   = "2006-01-02T15:04:05.000000000Z07:00"
	eventColumns = "id, timestamp, category, action, severity, resource_type, resource_id, description, ip_address, user_agent, outcome, reason"
)

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
func (s *SQLiteStore) Save(ctx context.Context, e domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(timeLayout), string(e.Category), string(e.Action), string(e.Severity),
		e.ResourceType, e.ResourceID, e.Description, e.IPAddress, e.UserAgent, e.Outcome, e.Reason)
	if err != nil {
		return fmt.Errorf("save audit event %s: %w", e.ID, storage.Classify(err))
	}
	return nil
}

// List returns audit events matching filter, newest first.
// ULIDs sort by time, so id breaks timestamp ties.
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	query := "SELECT " + eventColumns + " FROM audit_event WHERE 1=1"
	args := []any{}

	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, string(filter.Category))
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, string(filter.Action))
	}
	if filter.ResourceID != "" {
		query += " AND resource_id = ?"
		args = append(args, filter.ResourceID)
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", storage.Classify(err))
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (domain.Event, error) {
	var e domain.Event
	var ts string
	err := rows.Scan(&e.ID, &ts, &e.Category, &e.Action, &e.Severity,
		&e.ResourceType, &e.ResourceID, &e.Description, &e.IPAddress, &e.UserAgent, &e.Outcome, &e.Reason)
	if err != nil {
		return domain.Event{}, err
	}
	if e.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
		return domain.Event{}, fmt.Errorf("parse audit timestamp %q: %w", ts, err)
	}
	return e, nil
}
