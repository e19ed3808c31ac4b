package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"clubhouse/internal/cache"
	"clubhouse/internal/middleware"
	"clubhouse/internal/models"

	"github.com/redis/go-redis/v9"
)

// Listener subscribes to the change feed of a single entity.
type Listener struct {
	rdb *redis.Client
}

// NewListener creates a Listener on the given Redis client.
func NewListener(rdb *redis.Client) *Listener {
	return &Listener{rdb: rdb}
}

// Subscription is one live entity subscription. It ends when Close is
// called or the context passed to Subscribe is cancelled.
type Subscription struct {
	cancel     context.CancelFunc
	done       chan struct{}
	once       sync.Once
	delivering atomic.Bool
}

// Close stops the subscription and waits for its goroutine to exit. It is
// safe to call more than once. Called from inside onChange it only stops the
// subscription; Done reports when the goroutine has exited.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	if s.delivering.Load() {
		return
	}
	<-s.done
}

// Done is closed once the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe watches the entity's comments. Every event first drops the
// cached thread pages of that entity and is then handed to onChange. The
// subscription is active when Subscribe returns.
func (l *Listener) Subscribe(ctx context.Context, kind models.EntityKind, entityID string, onChange func(ChangeEvent)) (*Subscription, error) {
	if !kind.Valid() {
		return nil, models.NewValidationError("Unknown entity kind: " + string(kind))
	}
	if l.rdb == nil {
		return nil, models.NewTransientStoreError(fmt.Errorf("change feed unavailable"))
	}

	subCtx, cancel := context.WithCancel(ctx)
	channel := CommentChannel(kind, entityID)
	pubsub := l.rdb.Subscribe(subCtx, channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, models.NewTransientStoreError(fmt.Errorf("subscribe %s: %w", channel, err))
	}

	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		consume(subCtx, "Listener", pubsub, func(msg *redis.Message) {
			event, err := decodeEvent(msg)
			if err != nil {
				middleware.Logger.WarnContext(subCtx, "dropping malformed change event",
					slog.String("channel", msg.Channel), slog.String("error", err.Error()))
				return
			}
			cache.InvalidateThread(subCtx, event.EntityKind, event.EntityID)
			if onChange != nil {
				s.delivering.Store(true)
				defer s.delivering.Store(false)
				onChange(event)
			}
		})
	}()
	return s, nil
}
