package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crm_backend/internal/bootstrap"
	"crm_backend/internal/cli"
	"crm_backend/internal/events"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(open).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// open connects to the database and wires the leads module the same way the
// API does, minus the HTTP surface. Imports always run inline.
func open(ctx context.Context) (*cli.Backend, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)

	pool, err := bootstrap.OpenDatabase(ctx, cfg, log, false)
	if err != nil {
		return nil, nil, err
	}

	eventBus := events.NewInMemoryBus(log)
	closeBroker, err := bootstrap.ForwardEvents(ctx, cfg, eventBus, log)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	leadsWiring, err := bootstrap.NewLeads(ctx, pool, eventBus, nil, cfg, log)
	if err != nil {
		closeBroker()
		pool.Close()
		return nil, nil, fmt.Errorf("initialize leads module: %w", err)
	}

	bootstrap.NewNotifications(pool, eventBus, leadsWiring.Users, cfg, log)

	closeFn := func() {
		eventBus.Wait()
		closeBroker()
		leadsWiring.Close()
		pool.Close()
	}
	return &cli.Backend{
		Imports: leadsWiring.Module.ImportService(),
		Routing: leadsWiring.Module.RoutingService(),
	}, closeFn, nil
}
