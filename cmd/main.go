// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/clock"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/config"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/database"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/handler"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/logging"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/notify"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/ratelimit"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/repository"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/service"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/worker"
	"github.com/Shivanand-hulikatti/tournament-slots/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Connect to PostgreSQL and migrate ─────────────────────────────
	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()
	log.Info().Str("dsn", cfg.Database.Redacted()).Msg("connected to PostgreSQL")

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	clk := clock.NewSystem()
	tournamentRepo := repository.NewTournamentRepository(pool)
	regRepo := repository.NewRegistrationRepository(pool)

	gate := service.NewCapacityGate(regRepo, clk,
		service.WithReservationWindow(cfg.Slots.ReservationWindow),
		service.WithGateConflictRetries(cfg.Slots.ConflictRetries),
	)
	allocator := service.NewSlotAllocator(regRepo, clk,
		service.WithAllocatorConflictRetries(cfg.Slots.ConflictRetries),
	)
	catalog := service.NewCatalogService(tournamentRepo, regRepo, clk)

	notifier := newNotifier(cfg.AMQP, log)
	defer func() {
		if err := notifier.Close(); err != nil {
			log.Warn().Err(err).Msg("close notifier")
		}
	}()

	limit, closeLimiter := newRateLimit(ctx, cfg, log)
	defer closeLimiter()

	go worker.NewSweeper(gate, cfg.Slots.SweepInterval, log).Run(ctx)

	// ── 3. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(handler.Deps{
		Catalog:     catalog,
		Gate:        gate,
		Allocator:   allocator,
		Notifier:    notifier,
		DB:          pool,
		RateLimit:   limit,
		AdminToken:  cfg.AdminToken,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	})
	if cfg.AdminToken == "" {
		log.Warn().Msg("ADMIN_TOKEN is empty, admin API disabled")
	}

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Dur("reservation_window", gate.ReservationWindow()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	log.Info().Msg("server stopped")
}

// newNotifier publishes to AMQP when a broker is configured and falls back to
// logging decisions if it is not, or cannot be reached at startup.
func newNotifier(cfg config.AMQP, log zerolog.Logger) notify.Notifier {
	if cfg.URL == "" {
		return notify.NewLogNotifier(log)
	}
	n, err := notify.NewAMQPNotifier(cfg.URL, cfg.Exchange, log)
	if err != nil {
		log.Error().Err(err).Msg("amqp notifier unavailable, logging decisions instead")
		return notify.NewLogNotifier(log)
	}
	return n
}

func newRateLimit(ctx context.Context, cfg config.Config, log zerolog.Logger) (func(http.Handler) http.Handler, func()) {
	if !cfg.RateLimit.Enabled {
		return nil, func() {}
	}

	keyFn := ratelimit.HeaderOrIPKey(handler.OwnerHeader)
	switch cfg.RateLimit.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := ratelimit.NewRedisStore(rdb, cfg.RateLimit.Burst, cfg.RateLimit.Window)
		log.Info().Str("backend", "redis").Str("addr", cfg.Redis.Addr).Msg("rate limiting registrations")
		return ratelimit.Middleware(store, keyFn, log), func() { _ = rdb.Close() }
	default:
		store := ratelimit.NewMemoryStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		store.StartJanitor(ctx)
		log.Info().Str("backend", "memory").Float64("rps", cfg.RateLimit.RPS).Int("burst", cfg.RateLimit.Burst).Msg("rate limiting registrations")
		return ratelimit.Middleware(store, keyFn, log), func() {}
	}
}
