package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"clubhouse/internal/middleware"
	"clubhouse/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside implements the cache-aside pattern on a plain key: dest is filled
// from Redis on a hit, otherwise fetch fills it and the result is written
// back with ttl. Cache failures never fail the read.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if client == nil {
		return fetch()
	}

	if raw, err := client.Get(ctx, key).Bytes(); err == nil {
		if json.Unmarshal(raw, dest) == nil {
			return nil
		}
	} else if !errors.Is(err, redis.Nil) {
		logCacheError(ctx, "get", key, err)
	}

	if err := fetch(); err != nil {
		return err
	}

	if raw, err := json.Marshal(dest); err == nil {
		if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
			logCacheError(ctx, "set", key, err)
		}
	}
	return nil
}

// HashAside is Aside for one field of a hash. The TTL applies to the whole
// hash and is refreshed on every write, so deleting the key drops all
// fields at once. The fill is skipped when the hash's version moved while
// fetch ran. It reports whether the value came from the cache.
func HashAside(ctx context.Context, key, field string, dest any, ttl time.Duration, fetch func() error) (bool, error) {
	if client == nil {
		return false, fetch()
	}
	ctx, span := observability.GetTraceLayer().TraceRedisOperation(ctx, "hget")
	defer span.End()

	version, err := client.Get(ctx, versionKey(key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logCacheError(ctx, "get", versionKey(key), err)
		return false, fetch()
	}

	raw, err := client.HGet(ctx, key, field).Bytes()
	switch {
	case err == nil:
		if json.Unmarshal(raw, dest) == nil {
			observability.ThreadCacheResults.WithLabelValues("hit").Inc()
			return true, nil
		}
		observability.ThreadCacheResults.WithLabelValues("miss").Inc()
	case errors.Is(err, redis.Nil):
		observability.ThreadCacheResults.WithLabelValues("miss").Inc()
	default:
		observability.ThreadCacheResults.WithLabelValues("error").Inc()
		logCacheError(ctx, "hget", key, err)
	}

	if err := fetch(); err != nil {
		return false, err
	}

	encoded, err := json.Marshal(dest)
	if err != nil {
		return false, nil
	}
	err = client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(key)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, encoded)
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		return err
	}, versionKey(key))
	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		observability.ThreadCacheResults.WithLabelValues("stale").Inc()
	default:
		logCacheError(ctx, "hset", key, err)
	}
	return false, nil
}

var errStaleFill = errors.New("cache: version changed during fetch")

func logCacheError(ctx context.Context, op, key string, err error) {
	middleware.Logger.WarnContext(ctx, "cache operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()))
}
