// Command scheduler runs the asynq worker that processes queued lead imports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crm_backend/internal/bootstrap"
	"crm_backend/internal/events"
	"crm_backend/internal/scheduler"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err == nil && cfg.GetRedisURL() == "" {
		err = fmt.Errorf("REDIS_URL is required for the scheduler")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log := logger.New(cfg.Env)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("scheduler exited", "error", err)
		stop()
		os.Exit(1)
	}
}

// run consumes the import queue. Events raised by imports reach the broker
// and the notification handlers exactly as they do in the api process.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("scheduler_starting", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	pool, err := bootstrap.OpenDatabase(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus := events.NewInMemoryBus(log)
	defer bus.Wait()

	closeBroker, err := bootstrap.ForwardEvents(ctx, cfg, bus, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	leadsWiring, err := bootstrap.NewLeads(ctx, pool, bus, nil, cfg, log)
	if err != nil {
		return fmt.Errorf("leads module: %w", err)
	}
	defer leadsWiring.Close()

	bootstrap.NewNotifications(pool, bus, leadsWiring.Users, cfg, log)

	worker, err := scheduler.NewWorker(cfg, leadsWiring.Module.ImportService(), log)
	if err != nil {
		return err
	}
	return worker.Run(ctx)
}
