package server

import (
	"context"

	"clubhouse/internal/notifications"
)

// localPublisher hands change events straight to this instance's hub. It is
// used when Redis is unavailable, so only local watchers hear about changes.
type localPublisher struct {
	hub *notifications.Hub
}

func (p localPublisher) PublishCommentEvent(ctx context.Context, event notifications.ChangeEvent) error {
	p.hub.Dispatch(ctx, event)
	return nil
}
