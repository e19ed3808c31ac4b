package repository

import (
	"context"

	"clubhouse/internal/models"
	"clubhouse/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	// ListByEntity returns live and tombstoned comments of one entity
	// ordered by creation time, oldest first, with the id as tiebreak.
	ListByEntity(ctx context.Context, kind models.EntityKind, entityID string) ([]models.Comment, error)
	UpdateBody(ctx context.Context, id, body string) error
	// Tombstone clears the body and marks the row deleted while keeping it
	// in place so its replies stay grouped.
	Tombstone(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CountReplies(ctx context.Context, id string) (int64, error)
}

type commentRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, logger: observability.NewRepoLogger("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer observability.TrackQuery("create", "comments")()
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		r.logger.LogError(ctx, err, "create")
		return storeError("create", "Comment", comment.ID, err)
	}
	r.logger.LogCreate(ctx, map[string]any{
		"comment_id":  comment.ID,
		"entity_kind": comment.EntityKind,
		"entity_id":   comment.EntityID,
		"reply":       !comment.IsRoot(),
	})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	defer observability.TrackQuery("get", "comments")()
	var comment models.Comment
	if err := readDB(r.db).WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, storeError("get", "Comment", id, err)
	}
	return &comment, nil
}

func (r *commentRepository) ListByEntity(ctx context.Context, kind models.EntityKind, entityID string) ([]models.Comment, error) {
	defer observability.TrackQuery("list", "comments")()
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "ListByEntity", "comments")
	defer span.End()

	comments := []models.Comment{}
	err := readDB(r.db).WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ?", kind, entityID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		span.RecordError(err)
		r.logger.LogError(ctx, err, "list")
		return nil, storeError("list", "Comment", entityID, err)
	}
	return comments, nil
}

func (r *commentRepository) UpdateBody(ctx context.Context, id, body string) error {
	defer observability.TrackQuery("update", "comments")()
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND deleted = ?", id, false).
		Update("body", body)
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "update")
		return storeError("update", "Comment", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	r.logger.LogUpdate(ctx, map[string]any{"comment_id": id})
	return nil
}

func (r *commentRepository) Tombstone(ctx context.Context, id string) error {
	defer observability.TrackQuery("tombstone", "comments")()
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]any{"body": "", "deleted": true})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "tombstone")
		return storeError("tombstone", "Comment", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	r.logger.LogUpdate(ctx, map[string]any{"comment_id": id, "tombstoned": true})
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "comments")()
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		r.logger.LogError(ctx, res.Error, "delete")
		return storeError("delete", "Comment", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", id)
	}
	r.logger.LogDelete(ctx, map[string]any{"comment_id": id})
	return nil
}

func (r *commentRepository) CountReplies(ctx context.Context, id string) (int64, error) {
	defer observability.TrackQuery("count_replies", "comments")()
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id = ?", id).Count(&n).Error
	if err != nil {
		return 0, storeError("count", "Comment", id, err)
	}
	return n, nil
}
