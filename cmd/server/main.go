package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"eventportal/internal/adapters/apiclient"
	emailPkg "eventportal/internal/adapters/email"
	web "eventportal/internal/adapters/http"
	"eventportal/internal/adapters/http/middleware"
	"eventportal/internal/adapters/http/perf"
	"eventportal/internal/adapters/metrics"
	"eventportal/internal/adapters/storage"
	outboxStorePkg "eventportal/internal/adapters/storage/outbox"
	sessionStorePkg "eventportal/internal/adapters/storage/session"
	"eventportal/internal/application/orchestrators"
	"eventportal/internal/config"
	domainOutbox "eventportal/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.InitDB(db); err != nil {
		return fmt.Errorf("failed to initialise database: %w", err)
	}
	slog.Info("database_ready", "path", cfg.DB.Path)

	// Performance instrumentation: the collector feeds /debug/perf
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.DB.SlowQuery)
	m := metrics.New()

	sessions, err := openSessionStore(ctx, cfg, timedDB, collector)
	if err != nil {
		return err
	}

	// Welcome mails go out through the outbox so a mail outage never fails a registration
	outboxStore := outboxStorePkg.NewSQLiteStore(timedDB)
	var sender emailPkg.Sender
	if cfg.Email.ResendAPIKey != "" {
		sender = emailPkg.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.ReplyTo)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.Production() {
			slog.Warn("email_delivery_disabled", "reason", "PORTAL_EMAIL_RESEND_API_KEY is not set")
		} else {
			slog.Info("email_sender_configured", "provider", "noop")
		}
	}
	processor := orchestrators.NewOutboxProcessor(outboxStore, map[string]orchestrators.ActionExecutor{
		domainOutbox.ActionWelcomeEmail: orchestrators.WelcomeEmailExecutor{Sender: sender},
	})
	go processor.Run(ctx, cfg.Outbox.Interval)

	api, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		Collector: collector,
		Metrics:   m,
		RequestID: middleware.RequestIDFromContext,
	})
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.Deps{
		API:            api,
		Sessions:       sessions,
		SessionBackend: cfg.Session.Backend,
		Outbox:         outboxStore,
		OutboxAdmin:    processor,
		Collector:      collector,
		Metrics:        m,
		Location:       cfg.Location(),
		LoginURL:       cfg.LoginURL(),
		SecureCookies:  cfg.SecureCookies(),
	})
	if err != nil {
		return err
	}
	csrfKey, err := cfg.CSRFKey()
	if err != nil {
		return err
	}
	handler, err := srv.Handler(ctx, web.Options{
		CSRFKey:        csrfKey,
		TrustedOrigins: cfg.HTTP.TrustedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
		SlowRequest:    cfg.HTTP.SlowRequest,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env,
			"api", api.BaseURL(), "session_backend", cfg.Session.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server_stopping", "grace", cfg.HTTP.ShutdownGrace.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

// openSessionStore builds the configured backend, starts its sweeper and wraps it with timing.
func openSessionStore(ctx context.Context, cfg config.Config, db *storage.TimedDB, collector *perf.Collector) (sessionStorePkg.Store, error) {
	var store sessionStorePkg.Store
	switch cfg.Session.Backend {
	case config.BackendMemory:
		mem := sessionStorePkg.NewMemoryStore()
		go sweepSessions(ctx, cfg.Session.SweepInterval, func(context.Context) (int64, error) {
			return int64(mem.Sweep()), nil
		})
		store = mem
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		go func() {
			<-ctx.Done()
			client.Close()
		}()
		// Redis expires keys itself
		store = sessionStorePkg.NewRedisStore(client)
	default:
		sq := sessionStorePkg.NewSQLiteStore(db)
		go sweepSessions(ctx, cfg.Session.SweepInterval, sq.Sweep)
		store = sq
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("session store %s unreachable: %w", cfg.Session.Backend, err)
	}
	return sessionStorePkg.NewTimed(store, cfg.Session.Backend, collector), nil
}

// sweepSessions purges expired sessions every interval until ctx is cancelled.
func sweepSessions(ctx context.Context, interval time.Duration, sweep func(context.Context) (int64, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				slog.Error("session_sweep_failed", "error", err.Error())
				continue
			}
			if n > 0 {
				slog.Info("session_sweep", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
