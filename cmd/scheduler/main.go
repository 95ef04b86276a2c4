// Package main is the entry point of the tutoring scheduling core. It wires
// the domain, application, and infrastructure layers together and keeps the
// service alive until shutdown.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repository implementations, external APIs
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tutorhub/tutorhub-scheduling/config"
	"github.com/tutorhub/tutorhub-scheduling/internal/application"
	"github.com/tutorhub/tutorhub-scheduling/internal/application/command"
	"github.com/tutorhub/tutorhub-scheduling/internal/application/query"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/infrastructure/external/catalog"
	"github.com/tutorhub/tutorhub-scheduling/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/tutorhub/tutorhub-scheduling/internal/infrastructure/persistence/redis"
	"github.com/tutorhub/tutorhub-scheduling/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	log := logger.MustNew(cfg.Env)
	defer func() { _ = log.Sync() }()

	log.Info("starting tutoring scheduling core", zap.String("env", cfg.Env))

	// ─────────────────────────────────────────────────────────────────────────
	// 2. PERSISTENCE
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := connectPostgres(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	if err := conn.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("database schema up to date")

	redisClient, err := redisinfra.NewClient(ctx, redisConfig(cfg.Redis))
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	sessions := postgres.NewSessionRepository(conn)
	slots := postgres.NewTimeSlotRepository(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DOMAIN SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	rules := schedulingRules(cfg.Rules)
	detector := session.NewConflictDetector(sessions, rules)

	catalogClient := catalog.NewClient(catalogConfig(cfg.Catalog), log.Named("catalog"))
	policy := scheduling.NewFirstAssignedPolicy(catalogClient)

	lock := redisinfra.NewTutorLock(redisClient).
		WithTTL(cfg.Scheduler.LockTTL).
		WithMaxWait(cfg.Scheduler.LockMaxWait)
	publisher := redisinfra.NewEventPublisher(redisClient)
	searchCache := redisinfra.NewOpenTimesCache(redisClient).WithTTL(cfg.Search.CacheTTL)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	svc := &application.Service{
		ScheduleSession: command.NewScheduleSessionHandler(sessions, detector, policy, lock, publisher, rules),
		Lifecycle:       command.NewSessionLifecycleHandler(sessions, detector, lock, publisher, rules),
		TimeSlots:       command.NewTimeSlotHandler(slots, publisher, rules),
		OpenTimes: query.NewFindOpenTimesHandler(slots, detector, policy, searchCache, rules).
			WithTimeout(cfg.Search.Timeout).
			WithParallelism(cfg.Search.Parallelism),
		Sessions: query.NewGetSessionsHandler(sessions),
		Slots:    query.NewGetSlotsHandler(slots),
	}
	_ = svc // the embedding host's surface takes over from here

	log.Info("scheduling core ready",
		zap.Int("session_min_duration", rules.SessionMinDuration),
		zap.Int("session_max_duration", rules.SessionMaxDuration),
		zap.Int("min_advance_hours", rules.MinAdvanceHours),
		zap.Int("candidate_step_minutes", rules.CandidateStepMinutes))

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HEALTH ENDPOINT & SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	healthErr := serveHealth(ctx, log, cfg.HealthAddr, func(ctx context.Context) error {
		if err := conn.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-healthErr:
		return fmt.Errorf("health server: %w", err)
	}
}

// serveHealth runs a minimal liveness/readiness endpoint. The scheduling
// core exposes no product API over HTTP; this is operational surface only.
func serveHealth(ctx context.Context, log *zap.Logger, addr string, check func(context.Context) error) <-chan error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := check(checkCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "unhealthy: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)

	go func() {
		log.Info("health endpoint listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return errCh
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRING HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func connectPostgres(ctx context.Context, cfg config.PostgresConfig) (*postgres.Connection, error) {
	if cfg.URL != "" {
		return postgres.NewConnectionFromURL(ctx, cfg.URL)
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.Host = cfg.Host
	pgCfg.Port = cfg.Port
	pgCfg.Database = cfg.Database
	pgCfg.User = cfg.User
	pgCfg.Password = cfg.Password
	pgCfg.SSLMode = cfg.SSLMode
	pgCfg.MaxConns = cfg.MaxConns
	pgCfg.MinConns = cfg.MinConns
	return postgres.NewConnection(ctx, pgCfg)
}

func redisConfig(cfg config.RedisConfig) redisinfra.Config {
	rCfg := redisinfra.DefaultConfig()
	rCfg.Host = cfg.Host
	rCfg.Port = cfg.Port
	rCfg.Password = cfg.Password
	rCfg.DB = cfg.DB
	return rCfg
}

func catalogConfig(cfg config.CatalogConfig) catalog.ClientConfig {
	cCfg := catalog.DefaultClientConfig(cfg.BaseURL)
	cCfg.APIKey = cfg.APIKey
	cCfg.Timeout = cfg.Timeout
	cCfg.RetryAttempts = cfg.RetryAttempts
	cCfg.RetryDelay = cfg.RetryDelay
	return cCfg
}

// schedulingRules maps configuration onto the rule set. Text limits are not
// operator-tunable and stay at the production defaults.
func schedulingRules(cfg config.RulesConfig) scheduling.Rules {
	rules := scheduling.DefaultRules()
	rules.SessionMinDuration = cfg.SessionMinDuration
	rules.SessionMaxDuration = cfg.SessionMaxDuration
	rules.SlotMinDuration = cfg.SlotMinDuration
	rules.SlotMaxDuration = cfg.SlotMaxDuration
	rules.MinAdvanceHours = cfg.MinAdvanceHours
	rules.MaxAdvanceMonths = cfg.MaxAdvanceMonths
	rules.CandidateStepMinutes = cfg.CandidateStepMinutes
	rules.AllowStudentConflicts = cfg.AllowStudentConflicts
	return rules
}
