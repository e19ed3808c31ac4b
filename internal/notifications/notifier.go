// Package notifications carries comment change events between processes
// over Redis pub/sub and fans them out to websocket watchers.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"clubhouse/internal/middleware"
	"clubhouse/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes comment change events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishCommentEvent sends the event to its entity's channel. A notifier
// without Redis is a no-op.
func (n *Notifier) PublishCommentEvent(ctx context.Context, event ChangeEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return n.rdb.Publish(ctx, event.Channel(), payload).Err()
}

// StartCommentSubscriber subscribes to every entity's comment channel and
// calls onEvent for each decodable event until ctx is cancelled.
func (n *Notifier) StartCommentSubscriber(ctx context.Context, onEvent func(ChangeEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, commentChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to comment feed: %w", err)
	}

	go consume(ctx, "CommentSubscriber", sub, func(msg *redis.Message) {
		event, err := decodeEvent(msg)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "dropping malformed change event",
				slog.String("channel", msg.Channel), slog.String("error", err.Error()))
			return
		}
		onEvent(event)
	})
	return nil
}

func decodeEvent(msg *redis.Message) (ChangeEvent, error) {
	kind, entityID, err := ParseCommentChannel(msg.Channel)
	if err != nil {
		return ChangeEvent{}, err
	}
	var event ChangeEvent
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		return ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	// The channel is authoritative for which entity changed.
	event.EntityKind = kind
	event.EntityID = entityID
	observability.ChangeEvents.WithLabelValues(string(event.Type)).Inc()
	return event, nil
}

// consume drains sub until ctx is done or the subscription closes. A panic
// in handle is logged and the loop keeps going.
func consume(ctx context.Context, name string, sub *redis.PubSub, handle func(*redis.Message)) {
	defer func() { _ = sub.Close() }()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						middleware.Logger.Error("panic in "+name,
							slog.Any("panic", r),
							slog.String("stack", string(debug.Stack())))
					}
				}()
				handle(msg)
			}()
		}
	}
}
