package repository

import (
	"context"

	"clubhouse/internal/models"
	"clubhouse/internal/observability"

	"gorm.io/gorm"
)

// EntityRepository answers questions about the content items that own
// comment threads.
type EntityRepository interface {
	Exists(ctx context.Context, kind models.EntityKind, id string) (bool, error)
}

type entityRepository struct {
	db *gorm.DB
}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(db *gorm.DB) EntityRepository {
	return &entityRepository{db: db}
}

func entityModel(kind models.EntityKind) any {
	switch kind {
	case models.EntityKindLog:
		return &models.Log{}
	case models.EntityKindClubPost:
		return &models.ClubPost{}
	case models.EntityKindShowcase:
		return &models.Showcase{}
	}
	return nil
}

func (r *entityRepository) Exists(ctx context.Context, kind models.EntityKind, id string) (bool, error) {
	model := entityModel(kind)
	if model == nil {
		return false, models.NewValidationError("Unknown entity kind: " + string(kind))
	}
	defer observability.TrackQuery("exists", models.EntityTable(kind))()

	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, storeError("exists", string(kind), id, err)
	}
	return n > 0, nil
}
