package bootstrap

import (
	"context"
	"testing"

	"clubhouse/internal/config"
	"clubhouse/internal/database"
	"clubhouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestSeedDemo(t *testing.T) {
	db := setupTestDB(t, "bootstrap_seed")
	cfg := &config.Config{Env: "development"}

	require.NoError(t, seedDemo(context.Background(), cfg, db))
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Positive(t, users)

	// A populated database is left alone.
	require.NoError(t, seedDemo(context.Background(), cfg, db))
	var again int64
	require.NoError(t, db.Model(&models.User{}).Count(&again).Error)
	assert.Equal(t, users, again)
}

func TestSeedDemo_SkipsProduction(t *testing.T) {
	db := setupTestDB(t, "bootstrap_prod")

	require.NoError(t, seedDemo(context.Background(), &config.Config{Env: "production"}, db))
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}
