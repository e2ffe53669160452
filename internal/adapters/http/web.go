package web

import (
	"context"
	"net/http"
	"time"

	"gymdesk/internal/adapters/http/middleware"
	attendanceStore "gymdesk/internal/adapters/storage/attendance"
	auditStore "gymdesk/internal/adapters/storage/audit"
	memberStore "gymdesk/internal/adapters/storage/member"
	outboxStore "gymdesk/internal/adapters/storage/outbox"
	paymentStore "gymdesk/internal/adapters/storage/payment"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/sequence"
	"gymdesk/internal/telemetry"
)

// Stores holds all storage dependencies.
type Stores struct {
	MemberStore     memberStore.Store
	AttendanceStore attendanceStore.Store
	PaymentStore    paymentStore.Store
	OutboxStore     outboxStore.Store
	AuditStore      auditStore.Store // optional; admin actions go unrecorded without it
}

// Pinger reports whether a database answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the handler tree.
type Options struct {
	Allocator          *sequence.Allocator
	Processor          *orchestrators.OutboxProcessor
	RegistrationLimit  orchestrators.Throttle // optional
	Health             map[string]Pinger      // named databases checked by /healthz
	StoreTimeout       time.Duration
	SlowRequest        time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
	AdminKeyHash       string
	CSRFKey            []byte // 32 bytes
	Secure             bool   // production: CSRF cookies require TLS
	Now                func() time.Time
}

type handlers struct {
	stores *Stores
	opts   Options
}

// NewMux wires HTTP handlers for the app.
// PRE: s and opts.Allocator are non-nil
func NewMux(s *Stores, opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handlers{stores: s, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/members", h.handleRegisterMember)
	mux.HandleFunc("GET /api/members", h.handleListMembers)
	mux.HandleFunc("GET /api/members/{id}", h.handleGetMember)
	mux.HandleFunc("POST /api/members/{id}/payments", h.handleRecordPayment)
	mux.HandleFunc("POST /api/members/{id}/renewals", h.handleRenewMembership)
	mux.HandleFunc("POST /api/members/{id}/checkins", h.handleCheckIn)
	mux.HandleFunc("GET /api/attendance", h.handleAttendance)
	mux.HandleFunc("GET /api/dashboard", h.handleDashboard)
	mux.HandleFunc("GET /api/shortlist", h.handleShortlist)

	mux.HandleFunc("GET /admin/sequence", h.handlePeekSequence)
	mux.HandleFunc("POST /admin/sequence/override", h.handleOverrideSequence)
	mux.HandleFunc("GET /admin/outbox", h.handleListOutbox)
	mux.HandleFunc("POST /admin/outbox/{id}/{action}", h.handleOutboxAction)
	mux.HandleFunc("GET /admin/audit", h.handleAuditTrail)

	mux.Handle("GET /metrics", telemetry.Handler())
	mux.HandleFunc("GET /healthz", h.handleHealth)

	limiter := middleware.NewRateLimiter(opts.RateLimitPerSecond, opts.RateLimitBurst)

	// Apply middleware: RateLimit -> AdminKey -> CSRF -> SecurityHeaders -> Timing -> Mux
	return middleware.Chain(mux,
		middleware.Timing(opts.SlowRequest),
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.Secure),
		middleware.AdminKey(opts.AdminKeyHash),
		middleware.RateLimit(limiter),
	)
}
