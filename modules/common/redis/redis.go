package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"asset-studio-server/modules/common/config"
)

// Connect - Redis client with TLS when configured; pings before returning
func Connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	log.Info().Str("addr", cfg.GetRedisAddr()).Bool("tls", cfg.RedisUseTLS).Msg("connecting to redis")

	var tlsConfig *tls.Config
	if cfg.RedisUseTLS {
		tlsConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: cfg.RedisHost,
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		TLSConfig:    tlsConfig,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func cancelKey(jobID string) string {
	return "jobs:" + jobID + ":cancelled"
}

// SetJobCancelled - raise the cancel flag for a job; it expires with ttl
func SetJobCancelled(ctx context.Context, rdb redis.Cmdable, jobID string, ttl time.Duration) error {
	return rdb.Set(ctx, cancelKey(jobID), "1", ttl).Err()
}

// IsJobCancelled - false on lookup errors so a flaky read never kills a job
func IsJobCancelled(ctx context.Context, rdb redis.Cmdable, jobID string) bool {
	n, err := rdb.Exists(ctx, cancelKey(jobID)).Result()
	return err == nil && n > 0
}

// ClearJobCancelled removes the cancel flag.
func ClearJobCancelled(ctx context.Context, rdb redis.Cmdable, jobID string) error {
	return rdb.Del(ctx, cancelKey(jobID)).Err()
}
