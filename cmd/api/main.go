// Command api serves the lead engine's HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm_backend/internal/bootstrap"
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/http/router"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/scheduler"
	"crm_backend/internal/webhook"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateHTTP()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log := logger.New(cfg.Env)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api exited", "error", err)
		stop()
		os.Exit(1)
	}
}

// run wires every module onto one bus and serves until ctx is cancelled.
// Deferred closers run in reverse order, after in-flight events drain.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("api_starting", "env", cfg.Env, "addr", cfg.HTTPAddr)

	pool, err := bootstrap.OpenDatabase(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus := events.NewInMemoryBus(log)
	defer bus.Wait()

	enqueuer, closeQueue := importQueue(cfg, log)
	defer closeQueue()

	closeBroker, err := bootstrap.ForwardEvents(ctx, cfg, bus, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	leadsWiring, err := bootstrap.NewLeads(ctx, pool, bus, enqueuer, cfg, log)
	if err != nil {
		return fmt.Errorf("leads module: %w", err)
	}
	defer leadsWiring.Close()

	notifications := bootstrap.NewNotifications(pool, bus, leadsWiring.Users, cfg, log)
	channels := webhook.NewModule(pool, leadsWiring.Module.IntakeService(), bus, validator.New(), log)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: router.New(&apphttp.App{
			Config:  cfg,
			Logger:  log,
			Health:  db.NewProbe(pool),
			Modules: []apphttp.Module{leadsWiring.Module, channels, notifications},
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api_listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("api_shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// importQueue returns the asynq client when Redis is configured. Without it
// every import runs inside the request.
func importQueue(cfg config.SchedulerConfig, log *logger.Logger) (ports.ImportEnqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; lead imports run inline")
		return nil, func() {}
	}
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("import queue unavailable; lead imports run inline", "error", err)
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}
