// Package bootstrap holds the infrastructure wiring shared by the api,
// scheduler and leadctl binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm_backend/internal/adapters"
	"crm_backend/internal/adapters/storage"
	agentsrepo "crm_backend/internal/agents/repository"
	"crm_backend/internal/broker"
	"crm_backend/internal/email"
	"crm_backend/internal/events"
	"crm_backend/internal/leads"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/notification"
	"crm_backend/internal/notification/inapp"
	"crm_backend/platform/config"
	"crm_backend/platform/db"
	"crm_backend/platform/lock"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	retryAttempts  = 5
	retryBaseDelay = 2 * time.Second
	lockKeyPrefix  = "crm:lock:"
	migrationsDir  = "migrations"
)

// WithRetry calls fn up to attempts times, doubling the pause after each
// failure starting from baseDelay. It gives up early when ctx ends.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}
	delay := baseDelay
	var errs []error
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
		if attempt == attempts {
			return fmt.Errorf("%s: gave up after %d attempts: %w", name, attempts, errors.Join(errs...))
		}
		log.Warn("startup_retry", "operation", name, "attempt", attempt, "next", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

// OpenDatabase optionally runs migrations and then connects the pool.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger, migrate bool) (*pgxpool.Pool, error) {
	if migrate {
		var applied []int64
		if err := WithRetry(ctx, log, "database migrations", retryAttempts, retryBaseDelay, func() error {
			var err error
			applied, err = db.Migrate(ctx, cfg, migrationsDir)
			return err
		}); err != nil {
			return nil, fmt.Errorf("run database migrations: %w", err)
		}
		log.Info("database migrations complete", "applied", applied)
	}

	var pool *pgxpool.Pool
	if err := WithRetry(ctx, log, "database connection", retryAttempts, retryBaseDelay, func() (err error) {
		pool, err = db.NewPool(ctx, cfg)
		return err
	}); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connection established")
	return pool, nil
}

// NewLocker returns a Redis-backed locker when REDIS_URL is set and an
// in-process locker otherwise. The returned func releases the client.
func NewLocker(cfg config.SchedulerConfig, log *logger.Logger) (lock.Locker, func(), error) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; using in-process creation lock (single instance only)")
		return lock.NewMemoryLocker(), func() {}, nil
	}
	client, err := lock.NewRedisClient(cfg.GetRedisURL())
	if err != nil {
		return nil, nil, fmt.Errorf("redis client: %w", err)
	}
	return lock.NewRedisLocker(client, lockKeyPrefix), func() { _ = client.Close() }, nil
}

// ImportStorageConfig is what the import file store needs.
type ImportStorageConfig interface {
	storage.Config
	GetMinIOMaxFileSize() int64
	GetMinioBucketLeadImports() string
}

// NewImportFileStore connects MinIO and ensures the import bucket. It returns
// nil when MinIO is not configured, in which case imports run inline.
func NewImportFileStore(ctx context.Context, cfg ImportStorageConfig, log *logger.Logger) (ports.FileStore, error) {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; lead imports run inline")
		return nil, nil
	}
	bucket, err := storage.Open(cfg, cfg.GetMinioBucketLeadImports(), storage.ImportPolicy(cfg.GetMinIOMaxFileSize()))
	if err != nil {
		return nil, err
	}
	if err := WithRetry(ctx, log, "ensure lead-imports bucket", retryAttempts, retryBaseDelay, func() error {
		return bucket.Ensure(ctx)
	}); err != nil {
		return nil, fmt.Errorf("ensure storage bucket exists: %w", err)
	}
	log.Info("storage service initialized", "leadImportsBucket", bucket.Name())
	return adapters.NewImportFileStore(bucket), nil
}

// LeadsConfig is the configuration the shared leads wiring reads.
type LeadsConfig interface {
	leads.ModuleConfig
	config.SchedulerConfig
	ImportStorageConfig
}

// Leads is a leads module with the infrastructure it was built on.
type Leads struct {
	Module *leads.Module
	Users  *agentsrepo.Repository
	close  func()
}

func (l *Leads) Close() {
	if l.close != nil {
		l.close()
	}
}

// NewLeads wires the leads module against Postgres, the creation lock and the
// import file store. enqueuer may be nil.
func NewLeads(ctx context.Context, pool *pgxpool.Pool, bus events.Bus, enqueuer ports.ImportEnqueuer, cfg LeadsConfig, log *logger.Logger) (*Leads, error) {
	locker, closeLocker, err := NewLocker(cfg, log)
	if err != nil {
		return nil, err
	}
	files, err := NewImportFileStore(ctx, cfg, log)
	if err != nil {
		closeLocker()
		return nil, err
	}

	users := agentsrepo.New(pool)
	deps := leads.Dependencies{
		Agents:   adapters.NewAgentDirectory(users),
		Locker:   locker,
		Files:    files,
		Enqueuer: enqueuer,
	}

	module, err := leads.NewModule(pool, bus, deps, validator.New(), cfg, log)
	if err != nil {
		closeLocker()
		return nil, fmt.Errorf("leads module: %w", err)
	}
	return &Leads{Module: module, Users: users, close: closeLocker}, nil
}

// DialBroker connects to RabbitMQ with retries.
func DialBroker(ctx context.Context, cfg config.BrokerConfig, log *logger.Logger) (*broker.Connection, error) {
	var conn *broker.Connection
	err := WithRetry(ctx, log, "broker connection", retryAttempts, retryBaseDelay, func() error {
		c, err := broker.Dial(cfg)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	return conn, err
}

// ForwardEvents publishes lead events to RabbitMQ when a broker is configured.
// The returned func closes the connection.
func ForwardEvents(ctx context.Context, cfg config.BrokerConfig, bus events.Bus, log *logger.Logger) (func(), error) {
	if !cfg.IsBrokerEnabled() {
		return func() {}, nil
	}
	conn, err := DialBroker(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	broker.NewPublisher(conn.Channel(), cfg.GetAMQPExchange(), log).Subscribe(bus)
	log.Info("lead events forwarded to broker", "exchange", cfg.GetAMQPExchange())
	return func() { _ = conn.Close() }, nil
}

// NotificationsConfig is what the notification wiring reads.
type NotificationsConfig interface {
	config.SMTPConfig
	config.NotificationConfig
}

// NewNotifications builds the notification module on Postgres and subscribes
// it to the bus.
func NewNotifications(pool *pgxpool.Pool, bus events.Bus, users *agentsrepo.Repository, cfg NotificationsConfig, log *logger.Logger) *notification.Module {
	module := notification.New(
		inapp.NewRepository(pool),
		email.NewSender(cfg),
		adapters.NewNotificationRecipients(users),
		cfg,
		log,
	)
	module.RegisterHandlers(bus)
	return module
}
