// Package config reads service settings from the environment, optionally
// seeded from a .env file. Modules depend on the narrow interfaces below
// rather than on *Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig is the Postgres connection and pool sizing.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int32
	GetDatabaseMinConns() int32
}

// JWTConfig verifies access tokens.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig is the listener and CORS policy.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetWebhookRatePerMinute() int
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// LockConfig provides the lead creation lock policy.
type LockConfig interface {
	GetRedisURL() string
	GetLockTTL() time.Duration
	GetLockBackoff() time.Duration
	GetLockMaxAttempts() int
}

// RoutingConfig provides settings for agent assignment.
type RoutingConfig interface {
	GetRoutingRegionsFile() string
	GetAssignableRoles() []string
	GetFallbackAdminRole() string
	GetDefaultDepartment() string
}

// PhoneConfig provides phone parsing defaults.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// ImportConfig provides settings for bulk lead imports.
type ImportConfig interface {
	GetImportInlineMaxRows() int
	GetImportPlaceholderEmailDomain() string
	GetMinioBucketLeadImports() string
}

// MinIOConfig locates the object store for queued import files.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}

// BrokerConfig provides settings for forwarding lead events to RabbitMQ.
type BrokerConfig interface {
	GetAMQPURL() string
	GetAMQPExchange() string
	IsBrokerEnabled() bool
}

// SMTPConfig provides settings for agent notification emails.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsSMTPEnabled() bool
}

// NotificationConfig builds links in notification emails.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// Config is the union of every module setting.
type Config struct {
	Env                          string
	HTTPAddr                     string
	DatabaseURL                  string
	DatabaseMaxConns             int32
	DatabaseMinConns             int32
	JWTAccessSecret              string
	CORSAllowAll                 bool
	CORSOrigins                  []string
	CORSAllowCreds               bool
	WebhookRatePerMinute         int
	AppBaseURL                   string
	RedisURL                     string
	RedisTLSInsecure             bool
	AsynqQueueName               string
	AsynqConcurrency             int
	LockTTL                      time.Duration
	LockBackoff                  time.Duration
	LockMaxAttempts              int
	RoutingRegionsFile           string
	AssignableRoles              []string
	FallbackAdminRole            string
	DefaultDepartment            string
	PhoneDefaultRegion           string
	ImportInlineMaxRows          int
	ImportPlaceholderEmailDomain string
	MinIOEndpoint                string
	MinIOAccessKey               string
	MinIOSecretKey               string
	MinIOUseSSL                  bool
	MinIOMaxFileSize             int64
	MinioBucketLeadImports       string
	AMQPURL                      string
	AMQPExchange                 string
	SMTPHost                     string
	SMTPPort                     int
	SMTPUsername                 string
	SMTPPassword                 string
	EmailFromName                string
	EmailFromAddress             string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int32 { return c.DatabaseMaxConns }
func (c *Config) GetDatabaseMinConns() int32 { return c.DatabaseMinConns }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string           { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool         { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string      { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool       { return c.CORSAllowCreds }
func (c *Config) GetWebhookRatePerMinute() int  { return c.WebhookRatePerMinute }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// LockConfig implementation
func (c *Config) GetLockTTL() time.Duration     { return c.LockTTL }
func (c *Config) GetLockBackoff() time.Duration { return c.LockBackoff }
func (c *Config) GetLockMaxAttempts() int       { return c.LockMaxAttempts }

// RoutingConfig implementation
func (c *Config) GetRoutingRegionsFile() string { return c.RoutingRegionsFile }
func (c *Config) GetAssignableRoles() []string  { return c.AssignableRoles }
func (c *Config) GetFallbackAdminRole() string  { return c.FallbackAdminRole }
func (c *Config) GetDefaultDepartment() string  { return c.DefaultDepartment }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// ImportConfig implementation
func (c *Config) GetImportInlineMaxRows() int { return c.ImportInlineMaxRows }
func (c *Config) GetImportPlaceholderEmailDomain() string {
	return c.ImportPlaceholderEmailDomain
}
func (c *Config) GetMinioBucketLeadImports() string { return c.MinioBucketLeadImports }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) IsMinIOEnabled() bool       { return c.MinIOEndpoint != "" }

// BrokerConfig implementation
func (c *Config) GetAMQPURL() string      { return c.AMQPURL }
func (c *Config) GetAMQPExchange() string { return c.AMQPExchange }
func (c *Config) IsBrokerEnabled() bool   { return c.AMQPURL != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsSMTPEnabled() bool         { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// Load reads configuration from the environment, after merging a .env file
// when one exists. Every malformed value is reported, not just the first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var env envReader
	corsOrigins := env.list("CORS_ORIGINS", "http://localhost:4200")

	cfg := &Config{
		Env:                          env.str("APP_ENV", "development"),
		HTTPAddr:                     env.str("HTTP_ADDR", ":8080"),
		DatabaseURL:                  env.str("DATABASE_URL", ""),
		DatabaseMaxConns:             int32(env.integer("DB_MAX_CONNS", 25)),
		DatabaseMinConns:             int32(env.integer("DB_MIN_CONNS", 2)),
		JWTAccessSecret:              env.str("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                 env.boolean("CORS_ALLOW_ALL", false) || slices.Contains(corsOrigins, "*"),
		CORSOrigins:                  corsOrigins,
		CORSAllowCreds:               env.boolean("CORS_ALLOW_CREDENTIALS", true),
		WebhookRatePerMinute:         env.integer("WEBHOOK_RATE_PER_MINUTE", 120),
		AppBaseURL:                   env.str("APP_BASE_URL", "http://localhost:4200"),
		RedisURL:                     env.str("REDIS_URL", ""),
		RedisTLSInsecure:             env.boolean("REDIS_TLS_INSECURE", false),
		AsynqQueueName:               env.str("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:             env.integer("ASYNQ_CONCURRENCY", 10),
		LockTTL:                      env.duration("LEAD_LOCK_TTL", 30*time.Second),
		LockBackoff:                  env.duration("LEAD_LOCK_BACKOFF", 500*time.Millisecond),
		LockMaxAttempts:              env.integer("LEAD_LOCK_MAX_ATTEMPTS", 2),
		RoutingRegionsFile:           env.str("ROUTING_REGIONS_FILE", ""),
		AssignableRoles:              env.list("ROUTING_ASSIGNABLE_ROLES", "sales_agent"),
		FallbackAdminRole:            env.str("ROUTING_FALLBACK_ADMIN_ROLE", "admin"),
		DefaultDepartment:            env.str("ROUTING_DEFAULT_DEPARTMENT", "sales"),
		PhoneDefaultRegion:           strings.ToUpper(env.str("PHONE_DEFAULT_REGION", "PK")),
		ImportInlineMaxRows:          env.integer("IMPORT_INLINE_MAX_ROWS", 500),
		ImportPlaceholderEmailDomain: env.str("IMPORT_PLACEHOLDER_EMAIL_DOMAIN", "placeholder.invalid"),
		MinIOEndpoint:                env.str("MINIO_ENDPOINT", ""),
		MinIOAccessKey:               env.str("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:               env.str("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                  env.boolean("MINIO_USE_SSL", false),
		MinIOMaxFileSize:             env.integer64("MINIO_MAX_FILE_SIZE", 25<<20),
		MinioBucketLeadImports:       env.str("MINIO_BUCKET_LEAD_IMPORTS", "lead-imports"),
		AMQPURL:                      env.str("AMQP_URL", ""),
		AMQPExchange:                 env.str("AMQP_EXCHANGE", "crm.leads"),
		SMTPHost:                     env.str("SMTP_HOST", ""),
		SMTPPort:                     env.integer("SMTP_PORT", 587),
		SMTPUsername:                 env.str("SMTP_USERNAME", ""),
		SMTPPassword:                 env.str("SMTP_PASSWORD", ""),
		EmailFromName:                env.str("EMAIL_FROM_NAME", "CRM"),
		EmailFromAddress:             env.str("EMAIL_FROM_ADDRESS", ""),
	}

	errs := env.errs
	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(cfg.AssignableRoles) == 0 {
		errs = append(errs, errors.New("ROUTING_ASSIGNABLE_ROLES must name at least one role"))
	}
	if cfg.LockTTL <= 0 {
		errs = append(errs, errors.New("LEAD_LOCK_TTL must be a positive duration"))
	}
	if cfg.LockMaxAttempts < 1 {
		errs = append(errs, errors.New("LEAD_LOCK_MAX_ATTEMPTS must be at least 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateHTTP checks the settings only the API server needs.
func (c *Config) ValidateHTTP() error {
	var errs []error
	if c.JWTAccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		errs = append(errs, errors.New("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true"))
	}
	return errors.Join(errs...)
}

// envReader reads typed variables and collects parse failures.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func (r *envReader) parse(key string, fn func(string) error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return
	}
	if err := fn(strings.TrimSpace(val)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
	}
}

func (r *envReader) boolean(key string, fallback bool) bool {
	out := fallback
	r.parse(key, func(v string) (err error) { out, err = strconv.ParseBool(v); return err })
	return out
}

func (r *envReader) integer(key string, fallback int) int {
	out := fallback
	r.parse(key, func(v string) (err error) { out, err = strconv.Atoi(v); return err })
	return out
}

func (r *envReader) integer64(key string, fallback int64) int64 {
	out := fallback
	r.parse(key, func(v string) (err error) { out, err = strconv.ParseInt(v, 10, 64); return err })
	return out
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	out := fallback
	r.parse(key, func(v string) (err error) { out, err = time.ParseDuration(v); return err })
	return out
}

func (r *envReader) list(key, fallback string) []string {
	return splitCSV(r.str(key, fallback))
}

func splitCSV(value string) []string {
	results := []string{}
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
