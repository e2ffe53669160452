package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"

	emailPkg "gymdesk/internal/adapters/email"
	web "gymdesk/internal/adapters/http"
	"gymdesk/internal/adapters/storage"
	attendanceStore "gymdesk/internal/adapters/storage/attendance"
	auditStore "gymdesk/internal/adapters/storage/audit"
	"gymdesk/internal/adapters/storage/kv"
	memberStore "gymdesk/internal/adapters/storage/member"
	outboxStorePkg "gymdesk/internal/adapters/storage/outbox"
	paymentStore "gymdesk/internal/adapters/storage/payment"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/config"
	"gymdesk/internal/domain/outbox"
	"gymdesk/internal/domain/sequence"
	"gymdesk/internal/logging"
	"gymdesk/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logging.Init(cfg.Log)

	ctx := context.Background()
	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}

	// Record store and local cache live in separate files so the cache
	// survives a record store outage.
	recordDB := openDB(ctx, cfg.Database.RecordPath, cfg, storage.InitRecordDB)
	defer recordDB.Close()
	cacheDB := openDB(ctx, cfg.Database.CachePath, cfg, storage.InitCacheDB)
	defer cacheDB.Close()

	timedRecord := storage.NewTimedDB(recordDB, "record", cfg.SlowQueryThreshold())
	timedCache := storage.NewTimedDB(cacheDB, "cache", cfg.SlowQueryThreshold())

	outboxStore := outboxStorePkg.NewSQLiteStore(timedCache)
	stores := &web.Stores{
		MemberStore:     memberStore.NewSQLiteStore(timedRecord),
		AttendanceStore: attendanceStore.NewSQLiteStore(timedRecord),
		PaymentStore:    paymentStore.NewSQLiteStore(timedRecord),
		OutboxStore:     outboxStore,
		AuditStore:      auditStore.NewSQLiteStore(timedCache),
	}

	counter := kv.NewCounterCache(kv.NewSQLiteStore(timedCache), kv.CounterKey)
	allocator := sequence.NewAllocator(cfg.Roll.Prefix, counter)
	if err := allocator.Initialize(ctx, cfg.Roll.Floor); err != nil {
		log.Fatalf("failed to initialize roll counter: %v", err)
	}
	telemetry.RollCounter.Set(float64(allocator.Current()))

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.Email.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.Email.ResendKey, cfg.Email.From, cfg.Email.ReplyTo)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_sender_configured", "provider", "noop", "warning", "receipt delivery is disabled")
		} else {
			slog.Info("email_sender_configured", "provider", "noop")
		}
	}

	// Start outbox background worker for pending syncs and receipts
	processor := orchestrators.NewOutboxProcessor(outboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionPendingSync: &orchestrators.PendingSyncExecutor{
			MemberStore:  stores.MemberStore,
			PaymentStore: stores.PaymentStore,
		},
		outbox.ActionReceiptEmail: &orchestrators.ReceiptEmailExecutor{Sender: sender},
	}, orchestrators.WithBatchSize(cfg.Outbox.BatchSize))
	outboxStopCh := make(chan struct{})
	workerDone := orchestrators.StartBackgroundWorker(processor, cfg.OutboxInterval(), outboxStopCh)

	var registrations orchestrators.Throttle
	if n := cfg.RateLimit.RegistrationsPerMinute; n > 0 {
		registrations = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}

	handler := web.NewMux(stores, web.Options{
		Allocator:          allocator,
		Processor:          processor,
		RegistrationLimit:  registrations,
		Health:             map[string]web.Pinger{"record": timedRecord, "cache": timedCache},
		StoreTimeout:       cfg.StoreTimeout(),
		RateLimitPerSecond: cfg.RateLimit.PerSecond,
		RateLimitBurst:     cfg.RateLimit.Burst,
		AdminKeyHash:       cfg.Admin.KeyHash,
		CSRFKey:            csrfKey(cfg),
		Secure:             cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", srv.Addr, "env", cfg.Env, "roll_counter", allocator.Current())
		serverErr <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		slog.Info("shutdown_requested", "signal", sig.String())
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server_failed", "error", err.Error())
		}
	}

	close(outboxStopCh)
	<-workerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err.Error())
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("tracing_shutdown_failed", "error", err.Error())
	}
	slog.Info("server_stopped")
}

func openDB(ctx context.Context, path string, cfg *config.Config, initSchema func(*sql.DB) error) *sql.DB {
	db, err := storage.OpenSQLite(ctx, path, cfg.BusyTimeout())
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := initSchema(db); err != nil {
		log.Fatalf("failed to initialize %s: %v", path, err)
	}
	slog.Info("database_ready", "path", path)
	return db
}

// csrfKey returns the configured key, or a random one outside production.
// Validate has already refused a production config without a key.
func csrfKey(cfg *config.Config) []byte {
	if cfg.CSRFKey != "" {
		return []byte(cfg.CSRFKey)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	slog.Warn("csrf_key_generated", "warning", "form sessions won't survive restart")
	return key
}
