// Package service holds the rules of the comment subsystem: who may write
// what, how bodies are stored, and how reads are assembled into pages.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clubhouse/internal/cache"
	"clubhouse/internal/mention"
	"clubhouse/internal/middleware"
	"clubhouse/internal/models"
	"clubhouse/internal/notifications"
	"clubhouse/internal/observability"
	"clubhouse/internal/repository"
	"clubhouse/internal/validation"
)

// ChangePublisher announces comment changes to other sessions.
type ChangePublisher interface {
	PublishCommentEvent(ctx context.Context, event notifications.ChangeEvent) error
}

type CommentService struct {
	commentRepo repository.CommentRepository
	entityRepo  repository.EntityRepository
	profileRepo repository.ProfileRepository
	publisher   ChangePublisher
}

type CreateCommentInput struct {
	ViewerID string
	Kind     models.EntityKind
	EntityID string
	Body     string
	ParentID *string
}

type UpdateCommentInput struct {
	ViewerID  string
	CommentID string
	Body      string
}

type DeleteCommentInput struct {
	ViewerID  string
	CommentID string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	entityRepo repository.EntityRepository,
	profileRepo repository.ProfileRepository,
	publisher ChangePublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		entityRepo:  entityRepo,
		profileRepo: profileRepo,
		publisher:   publisher,
	}
}

func requireViewer(viewerID string) error {
	if viewerID == "" {
		return models.NewUnauthenticatedError("Sign in to continue")
	}
	return nil
}

func (s *CommentService) requireEntity(ctx context.Context, kind models.EntityKind, entityID string) error {
	if !kind.Valid() {
		return models.NewValidationError("Unknown entity kind: " + string(kind))
	}
	ok, err := s.entityRepo.Exists(ctx, kind, entityID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError(entityLabel(kind), entityID)
	}
	return nil
}

func entityLabel(kind models.EntityKind) string {
	switch kind {
	case models.EntityKindLog:
		return "Log"
	case models.EntityKindClubPost:
		return "Club post"
	case models.EntityKindShowcase:
		return "Showcase"
	}
	return "Entity"
}

// CreateComment stores a new root comment or reply. Mentions of known
// usernames are encoded before the body is persisted.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if err := requireViewer(in.ViewerID); err != nil {
		return nil, err
	}
	if err := validation.CommentBody(in.Body); err != nil {
		return nil, err
	}
	if err := s.requireEntity(ctx, in.Kind, in.EntityID); err != nil {
		return nil, err
	}

	var parentID *string
	if in.ParentID != nil && *in.ParentID != "" {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.EntityKind != in.Kind || parent.EntityID != in.EntityID {
			return nil, models.NewValidationError("Parent comment belongs to a different thread")
		}
		parentID = &parent.ID
	}

	body, err := s.encodeBody(ctx, in.Body)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		EntityKind: in.Kind,
		EntityID:   in.EntityID,
		UserID:     in.ViewerID,
		Body:       body,
		ParentID:   parentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.changed(ctx, notifications.ChangeCreated, comment)
	return comment, nil
}

func (s *CommentService) encodeBody(ctx context.Context, raw string) (string, error) {
	body, err := mention.Encode(ctx, strings.TrimSpace(raw), s.profileRepo)
	if errors.Is(err, mention.ErrReservedToken) {
		return "", models.NewValidationError("Comment body cannot contain mention tokens")
	}
	return body, err
}

// ListFlat returns every live and tombstoned comment of the entity, oldest
// first.
func (s *CommentService) ListFlat(ctx context.Context, kind models.EntityKind, entityID string) ([]models.Comment, error) {
	if err := s.requireEntity(ctx, kind, entityID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByEntity(ctx, kind, entityID)
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	if err := requireViewer(in.ViewerID); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.Deleted {
		return nil, models.NewNotFoundError("Comment", in.CommentID)
	}
	if comment.UserID != in.ViewerID {
		return nil, models.NewPermissionError("You can only update your own comments")
	}
	if err := validation.CommentBody(in.Body); err != nil {
		return nil, err
	}

	body, err := s.encodeBody(ctx, in.Body)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateBody(ctx, comment.ID, body); err != nil {
		return nil, err
	}

	updated, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, notifications.ChangeUpdated, updated)
	return updated, nil
}

// DeleteComment removes the viewer's comment. A comment that still has
// replies is tombstoned so the thread stays readable. Removing the last
// reply of a tombstoned comment removes the tombstone as well.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	if err := requireViewer(in.ViewerID); err != nil {
		return err
	}
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return err
	}
	if comment.Deleted {
		return models.NewNotFoundError("Comment", in.CommentID)
	}
	if comment.UserID != in.ViewerID {
		return models.NewPermissionError("You can only delete your own comments")
	}

	replies, err := s.commentRepo.CountReplies(ctx, comment.ID)
	if err != nil {
		return err
	}
	if replies > 0 {
		if err := s.commentRepo.Tombstone(ctx, comment.ID); err != nil {
			return err
		}
	} else {
		if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
			return err
		}
		s.collectTombstones(ctx, comment.ParentID)
	}

	s.changed(ctx, notifications.ChangeDeleted, comment)
	return nil
}

// collectTombstones walks up from parentID deleting tombstones that no
// longer have replies. Failures only leave a harmless placeholder behind.
func (s *CommentService) collectTombstones(ctx context.Context, parentID *string) {
	for parentID != nil && *parentID != "" {
		parent, err := s.commentRepo.GetByID(ctx, *parentID)
		if err != nil || !parent.Deleted {
			return
		}
		n, err := s.commentRepo.CountReplies(ctx, parent.ID)
		if err != nil || n > 0 {
			return
		}
		if err := s.commentRepo.Delete(ctx, parent.ID); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove empty tombstone",
				slog.String("comment_id", parent.ID), slog.String("error", err.Error()))
			return
		}
		parentID = parent.ParentID
	}
}

// changed runs the page-cache invalidation hook and publishes the change.
// Both are best effort: the write already succeeded.
func (s *CommentService) changed(ctx context.Context, typ notifications.ChangeType, c *models.Comment) {
	observability.CommentMutations.WithLabelValues(string(typ), string(c.EntityKind)).Inc()
	cache.InvalidateThread(ctx, c.EntityKind, c.EntityID)

	if s.publisher == nil {
		return
	}
	event := notifications.ChangeEvent{
		Type:       typ,
		EntityKind: c.EntityKind,
		EntityID:   c.EntityID,
		CommentID:  c.ID,
		At:         time.Now().UTC(),
	}
	if err := s.publisher.PublishCommentEvent(ctx, event); err != nil {
		observability.LogAsyncOperationError(ctx, "publish_comment_event", err, map[string]any{
			"comment_id": c.ID,
			"type":       string(typ),
		})
	}
}
