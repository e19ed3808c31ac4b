package notifications

import (
	"fmt"
	"strings"
	"time"

	"clubhouse/internal/models"
)

// ChangeType names what happened to a comment.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

const commentChannelPrefix = "comments:"

// ChangeEvent is published whenever a comment of an entity changes. Readers
// only use it as a signal to refetch; it carries no comment content.
type ChangeEvent struct {
	Type       ChangeType        `json:"type"`
	EntityKind models.EntityKind `json:"entity_kind"`
	EntityID   string            `json:"entity_id"`
	CommentID  string            `json:"comment_id"`
	At         time.Time         `json:"at"`
}

// Channel returns the channel the event is published on.
func (e ChangeEvent) Channel() string {
	return CommentChannel(e.EntityKind, e.EntityID)
}

// CommentChannel derives the Redis channel for one entity's comment feed.
func CommentChannel(kind models.EntityKind, entityID string) string {
	return commentChannelPrefix + string(kind) + ":" + entityID
}

// ParseCommentChannel is the inverse of CommentChannel.
func ParseCommentChannel(channel string) (models.EntityKind, string, error) {
	rest, ok := strings.CutPrefix(channel, commentChannelPrefix)
	if !ok {
		return "", "", fmt.Errorf("not a comment channel: %q", channel)
	}
	rawKind, entityID, ok := strings.Cut(rest, ":")
	if !ok || entityID == "" {
		return "", "", fmt.Errorf("malformed comment channel: %q", channel)
	}
	kind, err := models.ParseEntityKind(rawKind)
	if err != nil {
		return "", "", fmt.Errorf("comment channel %q: %w", channel, err)
	}
	return kind, entityID, nil
}

// Envelope is the frame written to websocket watchers.
type Envelope struct {
	Type    string      `json:"type"`
	Payload ChangeEvent `json:"payload"`
}

// EventCommentsChanged is the envelope type websocket clients receive.
const EventCommentsChanged = "comments_changed"
