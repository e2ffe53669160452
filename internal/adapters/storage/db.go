package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// recordSchema holds members, attendance and the payment log.
const recordSchema = `
	CREATE TABLE IF NOT EXISTS member (
		id TEXT PRIMARY KEY,
		roll_number TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		tier TEXT NOT NULL,
		join_date TEXT NOT NULL,
		reference_date TEXT NOT NULL DEFAULT '',
		expiry_date TEXT NOT NULL,
		fee INTEGER NOT NULL CHECK (fee >= 0),
		paid_amount INTEGER NOT NULL CHECK (paid_amount >= 0),
		remaining INTEGER NOT NULL CHECK (remaining >= 0),
		created_at TEXT NOT NULL,
		CHECK (remaining = fee - paid_amount)
	);

	CREATE INDEX IF NOT EXISTS idx_member_expiry ON member(expiry_date);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		day TEXT NOT NULL,
		status TEXT NOT NULL,
		checked_in_at TEXT NOT NULL,
		FOREIGN KEY (member_id) REFERENCES member(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_member_date ON attendance(member_id, day);
	CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance(day);

	CREATE TABLE IF NOT EXISTS payment_event (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		kind TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		FOREIGN KEY (member_id) REFERENCES member(id)
	);

	CREATE INDEX IF NOT EXISTS idx_payment_event_member ON payment_event(member_id, id);
`

// cacheSchema holds process-local state: the counter, the outbox and the
// admin audit trail.
const cacheSchema = `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, created_at);

	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL,
		resource_type TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_audit_event_time ON audit_event(timestamp);
`

// InitRecordDB creates the record store schema.
// PRE: db is a valid database connection
// POST: member, attendance and payment_event tables exist
func InitRecordDB(db *sql.DB) error {
	return initSchema(db, "record", recordSchema)
}

// InitCacheDB creates the local cache schema.
// PRE: db is a valid database connection
// POST: kv, outbox and audit_event tables exist
func InitCacheDB(db *sql.DB) error {
	return initSchema(db, "cache", cacheSchema)
}

func initSchema(db *sql.DB, name, schema string) error {
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys on %s db: %w", name, err)
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create %s schema: %w", name, err)
	}
	return nil
}

// OpenSQLite opens a SQLite database with WAL, busy timeout and foreign keys.
// PRE: path is a file path or ":memory:"
// POST: Returns a pinged connection pool
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)",
			path, busyTimeout.Milliseconds())
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return db, nil
}
