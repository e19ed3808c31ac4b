package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"clubhouse/internal/database"
	"clubhouse/internal/models"
	"clubhouse/internal/notifications"
	"clubhouse/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func TestMain(m *testing.M) {
	_ = os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// fixture wires real repositories over a private database.
type fixture struct {
	db           *gorm.DB
	comments     repository.CommentRepository
	entities     repository.EntityRepository
	profiles     repository.ProfileRepository
	interactions repository.InteractionRepository
	published    *publisherRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	return &fixture{
		db:           db,
		comments:     repository.NewCommentRepository(db),
		entities:     repository.NewEntityRepository(db),
		profiles:     repository.NewProfileRepository(db),
		interactions: repository.NewInteractionRepository(db),
		published:    &publisherRecorder{},
	}
}

func (f *fixture) commentService() *CommentService {
	return NewCommentService(f.comments, f.entities, f.profiles, f.published)
}

func (f *fixture) user(t *testing.T, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixture) log(t *testing.T, owner models.User) models.Log {
	t.Helper()
	l := models.Log{UserID: owner.ID, Content: "shipping today"}
	require.NoError(t, f.db.Create(&l).Error)
	return l
}

type publisherRecorder struct {
	mu     sync.Mutex
	events []notifications.ChangeEvent
	err    error
}

func (p *publisherRecorder) PublishCommentEvent(_ context.Context, event notifications.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *publisherRecorder) types() []notifications.ChangeType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.ChangeType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func ptr[T any](v T) *T { return &v }
