package database

import (
	"testing"

	modelspkg "clubhouse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesInteractionTables(t *testing.T) {
	var like, bookmark, comment bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.Like:
			like = true
		case *modelspkg.Bookmark:
			bookmark = true
		case *modelspkg.Comment:
			comment = true
		}
	}
	require.True(t, like, "PersistentModels should include Like")
	require.True(t, bookmark, "PersistentModels should include Bookmark")
	require.True(t, comment, "PersistentModels should include Comment")
}

func TestAutoMigrate_CreatesEveryTable(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, runAutoMigrate(db))

	for _, table := range []string{"users", "clubs", "logs", "club_posts", "showcases", "comments", "likes", "bookmarks"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	for _, kind := range modelspkg.EntityKinds {
		assert.True(t, db.Migrator().HasTable(modelspkg.EntityTable(kind)), kind)
	}
}
