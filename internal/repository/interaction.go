package repository

import (
	"context"
	"fmt"

	"clubhouse/internal/interaction"
	"clubhouse/internal/models"
	"clubhouse/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionRepository stores like and bookmark edges. Each namespace has
// its own table; an edge is unique per (subject kind, subject id, user).
type InteractionRepository interface {
	// Add inserts the edge. Adding an existing edge is a no-op.
	Add(ctx context.Context, ns interaction.Namespace, subject models.Subject, userID string) error
	// Remove deletes the edge. Removing a missing edge is a no-op.
	Remove(ctx context.Context, ns interaction.Namespace, subject models.Subject, userID string) error
	Count(ctx context.Context, ns interaction.Namespace, subject models.Subject) (int, error)
	// Counts returns the edge count for every id; ids without edges map to 0.
	Counts(ctx context.Context, ns interaction.Namespace, kind models.SubjectKind, ids []string) (map[string]int, error)
	// ViewerEdges reports which of ids the user has an edge to.
	ViewerEdges(ctx context.Context, ns interaction.Namespace, kind models.SubjectKind, ids []string, userID string) (map[string]bool, error)
}

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new InteractionRepository.
func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func tableFor(ns interaction.Namespace) (string, error) {
	switch ns {
	case interaction.NamespaceLike:
		return "likes", nil
	case interaction.NamespaceBookmark:
		return "bookmarks", nil
	}
	return "", models.NewValidationError(fmt.Sprintf("Unknown interaction namespace: %s", ns))
}

func edgeFor(ns interaction.Namespace, subject models.Subject, userID string) any {
	if ns == interaction.NamespaceBookmark {
		return &models.Bookmark{SubjectKind: subject.Kind, SubjectID: subject.ID, UserID: userID}
	}
	return &models.Like{SubjectKind: subject.Kind, SubjectID: subject.ID, UserID: userID}
}

func (r *interactionRepository) Add(ctx context.Context, ns interaction.Namespace, subject models.Subject, userID string) error {
	table, err := tableFor(ns)
	if err != nil {
		return err
	}
	defer observability.TrackQuery("add", table)()

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(edgeFor(ns, subject, userID)).Error
	return storeError("add", string(ns), subject.String(), err)
}

func (r *interactionRepository) Remove(ctx context.Context, ns interaction.Namespace, subject models.Subject, userID string) error {
	table, err := tableFor(ns)
	if err != nil {
		return err
	}
	defer observability.TrackQuery("remove", table)()

	err = r.db.WithContext(ctx).
		Where("subject_kind = ? AND subject_id = ? AND user_id = ?", subject.Kind, subject.ID, userID).
		Delete(edgeFor(ns, subject, userID)).Error
	return storeError("remove", string(ns), subject.String(), err)
}

func (r *interactionRepository) Count(ctx context.Context, ns interaction.Namespace, subject models.Subject) (int, error) {
	counts, err := r.Counts(ctx, ns, subject.Kind, []string{subject.ID})
	if err != nil {
		return 0, err
	}
	return counts[subject.ID], nil
}

func (r *interactionRepository) Counts(ctx context.Context, ns interaction.Namespace, kind models.SubjectKind, ids []string) (map[string]int, error) {
	table, err := tableFor(ns)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	defer observability.TrackQuery("counts", table)()

	var rows []struct {
		SubjectID string
		N         int
	}
	err = readDB(r.db).WithContext(ctx).Table(table).
		Select("subject_id, COUNT(*) AS n").
		Where("subject_kind = ? AND subject_id IN ?", kind, ids).
		Group("subject_id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("count", string(ns), kind, err)
	}
	for _, id := range ids {
		out[id] = 0
	}
	for _, row := range rows {
		out[row.SubjectID] = row.N
	}
	return out, nil
}

func (r *interactionRepository) ViewerEdges(ctx context.Context, ns interaction.Namespace, kind models.SubjectKind, ids []string, userID string) (map[string]bool, error) {
	table, err := tableFor(ns)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 || userID == "" {
		return out, nil
	}
	defer observability.TrackQuery("viewer_edges", table)()

	var owned []string
	err = readDB(r.db).WithContext(ctx).Table(table).
		Where("subject_kind = ? AND subject_id IN ? AND user_id = ?", kind, ids, userID).
		Pluck("subject_id", &owned).Error
	if err != nil {
		return nil, storeError("viewer_edges", string(ns), kind, err)
	}
	for _, id := range owned {
		out[id] = true
	}
	return out, nil
}
