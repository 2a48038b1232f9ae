package scheduler

import (
	"crypto/tls"
	"errors"
	"fmt"

	"crm_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueue       = "default"
	defaultConcurrency = 10
)

var errNoRedis = errors.New("scheduler: REDIS_URL is not configured")

// connOpt turns REDIS_URL into asynq connection options. rediss:// URLs keep
// their TLS settings; the insecure flag only relaxes verification.
func connOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	if cfg.GetRedisURL() == "" {
		return asynq.RedisClientOpt{}, errNoRedis
	}
	parsed, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("scheduler: parse REDIS_URL: %w", err)
	}

	tlsCfg := parsed.TLSConfig
	if cfg.GetRedisTLSInsecure() {
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		} else {
			tlsCfg = tlsCfg.Clone()
		}
		tlsCfg.InsecureSkipVerify = true
	}
	return asynq.RedisClientOpt{
		Addr:      parsed.Addr,
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: tlsCfg,
	}, nil
}

func queueOf(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return defaultQueue
}
