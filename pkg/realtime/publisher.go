// Package realtime publishes best-effort notifications about documents the
// indexing pipeline has just written, so explorer-style consumers can tail a
// live feed without the pipeline exposing a query API of its own.
package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/eosio-elastic/indexer/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher wraps a Redis client used purely for outbound Pub/Sub
// notifications. A nil *Publisher is valid and turns every Publish call into
// a no-op, so the worker can run with realtime notifications disabled.
type Publisher struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

// NewPublisher connects to Redis using environment variables:
//   - REDIS_HOST (default "localhost")
//   - REDIS_PORT (default "6379")
//   - REDIS_PASSWORD (default "")
//   - REDIS_DB (default 0)
//   - REDIS_CHANNEL_PREFIX (default "eos")
func NewPublisher(ctx context.Context, logger *zap.Logger) (*Publisher, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	password := utils.Env("REDIS_PASSWORD", "")
	db := utils.EnvInt("REDIS_DB", 0)
	prefix := utils.Env("REDIS_CHANNEL_PREFIX", "eos")

	addr := fmt.Sprintf("%s:%s", host, port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	logger.Info("connected realtime publisher", zap.String("addr", addr), zap.Int("db", db))
	return &Publisher{client: rdb, logger: logger, prefix: prefix}, nil
}

// Close closes the underlying Redis connection. Safe to call on a nil Publisher.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Publish sends docType's JSON payload to "<prefix>:<docType>". Failures are
// logged, never returned — a dropped notification must never affect the
// indexing hot path.
func (p *Publisher) Publish(ctx context.Context, docType string, payload []byte) {
	if p == nil || p.client == nil {
		return
	}
	channel := p.prefix + ":" + docType
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		p.logger.Warn("realtime publish failed", zap.String("channel", channel), zap.Error(err))
	}
}
