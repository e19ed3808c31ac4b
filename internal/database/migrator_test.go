package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations(t *testing.T, files fstest.MapFS) []Migration {
	t.Helper()
	all, err := parseMigrations(files, "migrations")
	require.NoError(t, err)
	return all
}

var threadMigrations = fstest.MapFS{
	"migrations/000001_threads.up.sql":     {Data: []byte(`CREATE TABLE threads (id TEXT PRIMARY KEY)`)},
	"migrations/000001_threads.down.sql":   {Data: []byte(`DROP TABLE threads`)},
	"migrations/000002_reactions.up.sql":   {Data: []byte(`CREATE TABLE reactions (id TEXT PRIMARY KEY)`)},
	"migrations/000002_reactions.down.sql": {Data: []byte(`DROP TABLE reactions`)},
}

func TestMigrator_UpDown(t *testing.T) {
	db := openSQLite(t)
	ctx := t.Context()
	m := newMigrator(db, testMigrations(t, threadMigrations))

	ran, err := m.Up(ctx)
	require.NoError(t, err)
	require.Len(t, ran, 2)
	assert.Equal(t, "000002_reactions", ran[1].String())
	assert.True(t, db.Migrator().HasTable("threads"))
	assert.True(t, db.Migrator().HasTable("reactions"))

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)

	ran, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, ran)

	err = m.Down(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not the latest")

	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("reactions"))
	assert.True(t, db.Migrator().HasTable("threads"))

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	err = m.Down(ctx, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not been applied")
}

func TestMigrator_FailedStepIsNotRecorded(t *testing.T) {
	db := openSQLite(t)
	ctx := t.Context()
	m := newMigrator(db, testMigrations(t, fstest.MapFS{
		"migrations/000001_threads.up.sql":   threadMigrations["migrations/000001_threads.up.sql"],
		"migrations/000001_threads.down.sql": threadMigrations["migrations/000001_threads.down.sql"],
		"migrations/000002_broken.up.sql":    {Data: []byte(`CREATE TABLE broken (`)},
		"migrations/000002_broken.down.sql":  {Data: []byte(`DROP TABLE broken`)},
	}))

	ran, err := m.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_broken")
	require.Len(t, ran, 1)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
}

func TestMigrator_UnknownAppliedVersion(t *testing.T) {
	db := openSQLite(t)
	ctx := t.Context()
	m := newMigrator(db, testMigrations(t, threadMigrations))
	_, err := m.Up(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Create(&SchemaVersion{Version: 7, Name: "from_the_future"}).Error)

	_, err = m.Applied(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")

	_, err = m.Up(ctx)
	assert.Error(t, err)
}

func TestParseMigrations_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{"missing down", fstest.MapFS{
			"migrations/000001_a.up.sql": {Data: []byte("SELECT 1")},
		}, "no down script"},
		{"bad name", fstest.MapFS{
			"migrations/first.up.sql":   {Data: []byte("SELECT 1")},
			"migrations/first.down.sql": {Data: []byte("SELECT 1")},
		}, "expected NNNNNN_name"},
		{"bad version", fstest.MapFS{
			"migrations/abc_a.up.sql":   {Data: []byte("SELECT 1")},
			"migrations/abc_a.down.sql": {Data: []byte("SELECT 1")},
		}, "bad version"},
		{"duplicate version", fstest.MapFS{
			"migrations/000001_a.up.sql":   {Data: []byte("SELECT 1")},
			"migrations/000001_a.down.sql": {Data: []byte("SELECT 1")},
			"migrations/000001_b.up.sql":   {Data: []byte("SELECT 1")},
			"migrations/000001_b.down.sql": {Data: []byte("SELECT 1")},
		}, "used by"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseMigrations(tt.files, "migrations")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
