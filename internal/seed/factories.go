// Package seed provides helpers to create demo data for development and
// tests: members, clubs, commentable entities and threaded discussions with
// mentions, likes and bookmarks.
package seed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"clubhouse/internal/mention"
	"clubhouse/internal/models"
	"clubhouse/internal/repository"
	"clubhouse/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded member.
const DemoPassword = "Clubhouse-Demo-1!"

// Factory builds domain rows and persists them to the database.
// It is a thin helper used by the Seeder and tests.
type Factory struct {
	db       *gorm.DB
	profiles repository.ProfileRepository
	opts     Options
	fake     *gofakeit.Faker

	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	opts = opts.withDefaults()
	return &Factory{
		db:       db,
		profiles: repository.NewProfileRepository(db),
		opts:     opts,
		// A zero seed picks a random one.
		fake: gofakeit.New(opts.RandomSeed),
	}
}

func (f *Factory) password() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	if err := validation.ValidatePassword(DemoPassword); err != nil {
		return "", fmt.Errorf("demo password: %w", err)
	}
	if f.opts.SkipBcrypt {
		f.passwordHash = DemoPassword
		return f.passwordHash, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash demo password: %w", err)
	}
	f.passwordHash = string(hashed)
	return f.passwordHash, nil
}

func (f *Factory) username() string {
	for range 10 {
		name := strings.ToLower(f.fake.Username())
		if len(name) > 24 {
			name = name[:24]
		}
		name = fmt.Sprintf("%s%d", name, f.fake.Number(10, 999))
		if validation.ValidateUsername(name) == nil {
			return name
		}
	}
	return fmt.Sprintf("member%d", f.fake.Number(1000, 999999))
}

// CreateUser constructs and persists a sample member. Optional overrides
// may modify the generated user before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.password()
	if err != nil {
		return nil, err
	}
	username := f.username()
	user := &models.User{
		Username:    username,
		DisplayName: f.fake.Name(),
		Email:       username + "@example.com",
		Password:    hash,
		Avatar:      "https://i.pravatar.cc/150?u=" + username,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := validation.ValidateUsername(user.Username); err != nil {
		return nil, fmt.Errorf("user %q: %w", user.Username, err)
	}
	if err := validation.ValidateEmail(user.Email); err != nil {
		return nil, fmt.Errorf("user %q: %w", user.Username, err)
	}

	if err := f.profiles.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateClub persists a club owned by owner.
func (f *Factory) CreateClub(ctx context.Context, owner *models.User) (*models.Club, error) {
	name := f.fake.Company()
	slug := strings.ToLower(strings.Join(strings.Fields(f.fake.Word()+" "+f.fake.Word()), "-"))
	club := &models.Club{
		Name:        name,
		Slug:        fmt.Sprintf("%.18s-%d", slug, f.fake.Number(100, 999)),
		Description: f.fake.Sentence(12),
		OwnerID:     owner.ID,
		Status:      models.ClubStatusActive,
	}
	if err := f.db.WithContext(ctx).Create(club).Error; err != nil {
		return nil, err
	}
	return club, nil
}

// CreateEntity persists one commentable item of the given kind and returns
// its id. Club posts are filed under club, which must be non-nil for them.
func (f *Factory) CreateEntity(ctx context.Context, kind models.EntityKind, owner *models.User, club *models.Club) (string, error) {
	at := f.pastTime()
	switch kind {
	case models.EntityKindLog:
		l := &models.Log{UserID: owner.ID, Content: f.fake.Sentence(14), CreatedAt: at}
		if err := f.db.WithContext(ctx).Create(l).Error; err != nil {
			return "", err
		}
		return l.ID, nil
	case models.EntityKindClubPost:
		if club == nil {
			return "", fmt.Errorf("club post needs a club")
		}
		p := &models.ClubPost{
			ClubID:    club.ID,
			UserID:    owner.ID,
			Title:     f.fake.Sentence(6),
			Content:   f.fake.Paragraph(2, 3, 10, "\n\n"),
			CreatedAt: at,
		}
		if err := f.db.WithContext(ctx).Create(p).Error; err != nil {
			return "", err
		}
		return p.ID, nil
	case models.EntityKindShowcase:
		s := &models.Showcase{
			UserID:      owner.ID,
			Title:       f.fake.HackerPhrase(),
			Description: f.fake.Paragraph(1, 3, 12, "\n"),
			ProjectURL:  f.fake.URL(),
			CreatedAt:   at,
		}
		if err := f.db.WithContext(ctx).Create(s).Error; err != nil {
			return "", err
		}
		return s.ID, nil
	}
	return "", models.NewValidationError("Unknown entity kind: " + string(kind))
}

// CreateComment encodes mentions in body and persists the comment as a
// reply to parent, or as a root when parent is nil.
func (f *Factory) CreateComment(ctx context.Context, kind models.EntityKind, entityID string, author *models.User, body string, parent *models.Comment, at time.Time) (*models.Comment, error) {
	stored, err := mention.Encode(ctx, body, f.profiles)
	if err != nil {
		return nil, err
	}
	c := &models.Comment{
		EntityKind: kind,
		EntityID:   entityID,
		UserID:     author.ID,
		Body:       stored,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	if err := f.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	if f.opts.Verbose {
		log.Printf("comment %s on %s/%s", c.ID, kind, entityID)
	}
	return c, nil
}

// pastTime returns a moment within the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.fake.Number(0, f.opts.MaxDays*24*60)) * time.Minute
	return time.Now().Add(-back).Truncate(time.Second)
}
