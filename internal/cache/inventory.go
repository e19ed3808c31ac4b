package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clubhouse/internal/middleware"
	"clubhouse/internal/models"
)

const (
	UserKeyPrefix   = "user:%s"
	ThreadKeyPrefix = "thread:%s:%s"
)

const (
	UserTTL   = 5 * time.Minute
	ThreadTTL = 2 * time.Minute

	versionTTL = time.Hour
)

func UserKey(userID string) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

// ThreadKey names the hash holding every cached page of one entity's thread.
func ThreadKey(kind models.EntityKind, entityID string) string {
	return fmt.Sprintf(ThreadKeyPrefix, kind, entityID)
}

func versionKey(key string) string {
	return key + ":v"
}

// ThreadField names one page inside a ThreadKey hash.
func ThreadField(page, size int) string {
	return fmt.Sprintf("%d:%d", page, size)
}

func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

func InvalidateUser(ctx context.Context, userID string) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidateThread drops every cached page for the entity. Pages of all
// sizes share one hash so a single DEL covers them. The hash's version is
// bumped so a read that loaded its page before this call does not cache it.
func InvalidateThread(ctx context.Context, kind models.EntityKind, entityID string) {
	if client == nil {
		return
	}
	key := ThreadKey(kind, entityID)
	pipe := client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.Incr(ctx, versionKey(key))
	pipe.Expire(ctx, versionKey(key), versionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}
