package repository

import (
	"context"
	"strings"

	"clubhouse/internal/cache"
	"clubhouse/internal/models"
	"clubhouse/internal/observability"

	"gorm.io/gorm"
)

// ProfileRepository reads the public projection of users and owns user
// creation for seeding.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	// LookupByIDs resolves many users in one query. Unknown ids are absent
	// from the result.
	LookupByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error)
	// ResolveUsernames maps exact usernames to user ids in one query.
	ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error)
	// LookupByUsernamePrefix returns at most limit profiles whose username
	// starts with prefix, ignoring case, ordered by username.
	LookupByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]models.Profile, error)
	Create(ctx context.Context, user *models.User) error
}

type profileRepository struct {
	db     *gorm.DB
	logger *observability.RepoLogger
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db, logger: observability.NewRepoLogger("users")}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.UserKey(id), &profile, cache.UserTTL, func() error {
		defer observability.TrackQuery("get", "users")()
		var user models.User
		if err := readDB(r.db).WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
			return storeError("get", "User", id, err)
		}
		profile = user.Profile()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) LookupByIDs(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	out := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	defer observability.TrackQuery("lookup_ids", "users")()

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, storeError("lookup", "User", ids, err)
	}
	for i := range users {
		out[users[i].ID] = users[i].Profile()
	}
	return out, nil
}

func (r *profileRepository) ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	out := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return out, nil
	}
	defer observability.TrackQuery("resolve_usernames", "users")()

	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Select("id", "username").
		Where("username IN ?", usernames).
		Find(&users).Error
	if err != nil {
		return nil, storeError("resolve", "User", usernames, err)
	}
	for _, u := range users {
		out[u.Username] = u.ID
	}
	return out, nil
}

func (r *profileRepository) LookupByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]models.Profile, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || limit <= 0 {
		return []models.Profile{}, nil
	}
	defer observability.TrackQuery("prefix", "users")()

	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\'`, strings.ToLower(escapeLike(prefix))+"%").
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, storeError("prefix", "User", prefix, err)
	}
	out := make([]models.Profile, 0, len(users))
	for i := range users {
		out = append(out, users[i].Profile())
	}
	return out, nil
}

func (r *profileRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		r.logger.LogError(ctx, err, "create")
		return storeError("create", "User", user.Username, err)
	}
	r.logger.LogCreate(ctx, map[string]any{"user_id": user.ID, "username": user.Username})
	cache.InvalidateUser(ctx, user.ID)
	return nil
}
