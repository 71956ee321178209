package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/config"
)

// NewRedisClient creates the shared Redis client with optional New Relic
// instrumentation. One client carries the rider geo index, the accept locks,
// the idempotency store and the change feed; pub/sub subscriptions opened by
// tracking sessions hold dedicated connections outside the command pool.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		// Location pings and accept locks dominate command traffic.
		PoolSize:     50,
		MinIdleConns: 10,
	})

	if nrApp != nil {
		client.AddHook(&nrRedisHook{app: nrApp})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// nrRedisHook implements redis.Hook for New Relic instrumentation. Segments
// are labelled by the key domain so geo-index, lock, cache, idempotency and
// feed traffic show up as separate collections in the datastore view.
type nrRedisHook struct {
	app *newrelic.Application
}

// collectionFor maps a command's key to the concern it serves. Feed publish
// channels double as keys here: "order:<id>" and "rider:<id>:location".
func collectionFor(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return "redis"
	}
	key, ok := args[1].(string)
	if !ok {
		return "redis"
	}
	switch {
	case strings.HasPrefix(key, "riders:"):
		return "rider_geo"
	case strings.HasPrefix(key, "lock:rider:"):
		return "rider_lock"
	case strings.HasPrefix(key, "cache:rider:"):
		return "rider_cache"
	case strings.HasPrefix(key, "idempotency:"):
		return "idempotency"
	case strings.HasPrefix(key, "order:"), strings.HasPrefix(key, "rider:"):
		return "feed"
	default:
		return "redis"
	}
}

func (h *nrRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *nrRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		txn := newrelic.FromContext(ctx)
		if txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  cmd.Name(),
				Collection: collectionFor(cmd),
			}
			defer segment.End()
		}
		return next(ctx, cmd)
	}
}

func (h *nrRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		txn := newrelic.FromContext(ctx)
		if txn != nil {
			segment := newrelic.DatastoreSegment{
				StartTime:  txn.StartSegmentNow(),
				Product:    newrelic.DatastoreRedis,
				Operation:  "pipeline",
				Collection: "redis",
			}
			defer segment.End()
		}
		return next(ctx, cmds)
	}
}
