package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gymdesk/internal/telemetry"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Compile-time check that *sql.DB satisfies SQLDB.
var _ SQLDB = (*sql.DB)(nil)

// DefaultSlowQuery is the default threshold for slow query warnings.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sql.DB with a span per call, a latency histogram and a
// slow-query log line.
type TimedDB struct {
	db        *sql.DB
	name      string // "record" or "cache"
	threshold time.Duration
	tracer    trace.Tracer
}

// Compile-time check that *TimedDB satisfies SQLDB.
var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps a *sql.DB with timing instrumentation.
// PRE: db is a valid database connection
// POST: Returns a TimedDB; threshold <= 0 selects DefaultSlowQuery
func NewTimedDB(db *sql.DB, name string, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{
		db:        db,
		name:      name,
		threshold: threshold,
		tracer:    otel.Tracer("gymdesk/storage"),
	}
}

// RawDB returns the underlying *sql.DB (needed for schema setup and pool config).
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

func (t *TimedDB) start(ctx context.Context, op, query string) (context.Context, trace.Span, time.Time) {
	ctx, span := t.tracer.Start(ctx, "sqlite."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sqlite"),
			attribute.String("db.name", t.name),
			attribute.String("db.statement", query),
		),
	)
	return ctx, span, time.Now()
}

// finish records the call's latency and closes its span.
func (t *TimedDB) finish(span trace.Span, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	telemetry.QueryDuration.WithLabelValues(t.name, op).Observe(elapsed.Seconds())

	durationMs := float64(elapsed.Microseconds()) / 1000.0
	if elapsed >= t.threshold {
		slog.Warn("slow_query", "db", t.name, "op", op, "duration_ms", durationMs)
	} else {
		slog.Debug("query", "db", t.name, "op", op, "duration_ms", durationMs)
	}

	if err != nil && err != sql.ErrNoRows {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ExecContext wraps sql.DB.ExecContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span, start := t.start(ctx, "exec", query)
	result, err := t.db.ExecContext(ctx, query, args...)
	t.finish(span, "exec", start, err)
	return result, err
}

// QueryContext wraps sql.DB.QueryContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span, start := t.start(ctx, "query", query)
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.finish(span, "query", start, err)
	return rows, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing.
// PRE: ctx is valid, query is non-empty
// POST: query executed, timing recorded
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	ctx, span, start := t.start(ctx, "query_row", query)
	row := t.db.QueryRowContext(ctx, query, args...)
	t.finish(span, "query_row", start, row.Err())
	return row
}

// BeginTx wraps sql.DB.BeginTx with timing.
// PRE: ctx is valid
// POST: transaction started, timing recorded
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	ctx, span, start := t.start(ctx, "begin", "BEGIN")
	tx, err := t.db.BeginTx(ctx, opts)
	t.finish(span, "begin", start, err)
	return tx, err
}

// PingContext verifies the database connection.
// PRE: none
// POST: returns nil if connection is alive
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}
