package seed

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"clubhouse/internal/database"
	"clubhouse/internal/interaction"
	"clubhouse/internal/models"
	"clubhouse/internal/repository"

	"gorm.io/gorm"
)

// Options configure the seeder.
type Options struct {
	Users           int
	EntitiesPerKind int
	RootsPerEntity  int
	// MaxReplies caps replies per root thread. Replies may answer other
	// replies, which the tree builder flattens into the root's thread.
	MaxReplies int
	// MentionRate and LikeRate are probabilities in [0,1].
	MentionRate float64
	LikeRate    float64
	MaxDays     int
	RandomSeed  int64
	SkipBcrypt  bool
	Verbose     bool
}

func (o Options) withDefaults() Options {
	if o.Users <= 0 {
		o.Users = 20
	}
	if o.EntitiesPerKind <= 0 {
		o.EntitiesPerKind = 5
	}
	if o.RootsPerEntity <= 0 {
		o.RootsPerEntity = 8
	}
	if o.MaxReplies < 0 {
		o.MaxReplies = 0
	}
	if o.MaxDays <= 0 {
		o.MaxDays = 60
	}
	return o
}

// Summary counts what a run created.
type Summary struct {
	Users     int
	Clubs     int
	Entities  int
	Comments  int
	Likes     int
	Bookmarks int
}

// Seeder fills a database with demo members and discussions.
type Seeder struct {
	db           *gorm.DB
	factory      *Factory
	interactions repository.InteractionRepository
	opts         Options
}

// NewSeeder creates a Seeder for db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	f := NewFactory(db, opts)
	return &Seeder{
		db:           db,
		factory:      f,
		interactions: repository.NewInteractionRepository(db),
		opts:         f.opts,
	}
}

// ClearAll deletes every row of every schema-managed table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	tables := database.PersistentModels()
	slices.Reverse(tables)
	for _, m := range tables {
		err := s.db.WithContext(ctx).
			Session(&gorm.Session{AllowGlobalUpdate: true}).
			Unscoped().
			Delete(m).Error
		if err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	return nil
}

// Run creates members, clubs, entities of every kind and their comment
// threads, then sprinkles likes and bookmarks over them.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{}
	log.Printf("🌱 Seeding %d users, %d entities per kind...", s.opts.Users, s.opts.EntitiesPerKind)

	users := make([]*models.User, 0, s.opts.Users)
	for range s.opts.Users {
		u, err := s.factory.CreateUser(ctx)
		if err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	log.Printf("✓ %d users created", sum.Users)

	clubs := make([]*models.Club, 0, len(users)/10+1)
	for i := 0; i < len(users); i += 10 {
		c, err := s.factory.CreateClub(ctx, users[i])
		if err != nil {
			return sum, fmt.Errorf("create club: %w", err)
		}
		clubs = append(clubs, c)
	}
	sum.Clubs = len(clubs)

	for _, kind := range models.EntityKinds {
		for range s.opts.EntitiesPerKind {
			owner := s.pick(users)
			entityID, err := s.factory.CreateEntity(ctx, kind, owner, clubs[s.factory.fake.Number(0, len(clubs)-1)])
			if err != nil {
				return sum, fmt.Errorf("create %s: %w", kind, err)
			}
			sum.Entities++

			if err := s.likeSubject(ctx, models.Subject{Kind: models.SubjectKindEntity, ID: entityID}, users, sum); err != nil {
				return sum, err
			}
			if err := s.seedThreads(ctx, kind, entityID, users, sum); err != nil {
				return sum, err
			}
		}
	}

	log.Printf("✓ %d entities, %d comments, %d likes, %d bookmarks",
		sum.Entities, sum.Comments, sum.Likes, sum.Bookmarks)
	log.Println("🎉 Database seeding completed successfully!")
	return sum, nil
}

func (s *Seeder) seedThreads(ctx context.Context, kind models.EntityKind, entityID string, users []*models.User, sum *Summary) error {
	at := s.factory.pastTime()
	next := func() time.Time {
		at = at.Add(time.Duration(s.factory.fake.Number(1, 90)) * time.Minute)
		return at
	}

	for range s.opts.RootsPerEntity {
		root, err := s.factory.CreateComment(ctx, kind, entityID, s.pick(users), s.body(users), nil, next())
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		sum.Comments++
		if err := s.likeSubject(ctx, models.Subject{Kind: models.SubjectKindComment, ID: root.ID}, users, sum); err != nil {
			return err
		}

		thread := []*models.Comment{root}
		for range s.factory.fake.Number(0, s.opts.MaxReplies) {
			parent := thread[s.factory.fake.Number(0, len(thread)-1)]
			reply, err := s.factory.CreateComment(ctx, kind, entityID, s.pick(users), s.body(users), parent, next())
			if err != nil {
				return fmt.Errorf("create reply: %w", err)
			}
			thread = append(thread, reply)
			sum.Comments++
			if err := s.likeSubject(ctx, models.Subject{Kind: models.SubjectKindComment, ID: reply.ID}, users, sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// body returns a sentence that mentions another member with MentionRate.
func (s *Seeder) body(users []*models.User) string {
	text := s.factory.fake.Sentence(s.factory.fake.Number(4, 18))
	if s.factory.fake.Float64() < s.opts.MentionRate {
		text = fmt.Sprintf("@%s %s", s.pick(users).Username, text)
	}
	return text
}

func (s *Seeder) likeSubject(ctx context.Context, subject models.Subject, users []*models.User, sum *Summary) error {
	if s.opts.LikeRate <= 0 {
		return nil
	}
	for _, u := range users {
		if s.factory.fake.Float64() < s.opts.LikeRate {
			if err := s.interactions.Add(ctx, interaction.NamespaceLike, subject, u.ID); err != nil {
				return fmt.Errorf("like %s: %w", subject, err)
			}
			sum.Likes++
		}
		if s.factory.fake.Float64() < s.opts.LikeRate/4 {
			if err := s.interactions.Add(ctx, interaction.NamespaceBookmark, subject, u.ID); err != nil {
				return fmt.Errorf("bookmark %s: %w", subject, err)
			}
			sum.Bookmarks++
		}
	}
	return nil
}

func (s *Seeder) pick(users []*models.User) *models.User {
	return users[s.factory.fake.Number(0, len(users)-1)]
}
