package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mechcore/firecontrol/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.local")
	viper.Set("db.port", "6543")
	viper.Set("db.username", "fc")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "battles")

	assert.Equal(t, "host=db.local port=6543 user=fc password=pw dbname=battles sslmode=disable", PostgresDSN())
}

func TestMigrate_SQLiteFile(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "fc.db"))
	require.NoError(t, err)

	require.NoError(t, Migrate(db, true))
	require.NoError(t, Migrate(db, true), "migrating twice is harmless")

	var count int64
	require.NoError(t, db.Model(&model.ServerInfo{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	for _, m := range model.DatabaseModelsSQLite {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestSessionGetOrInsert(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "fc.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db, true))

	s := &model.Session{ID: "s-1", Name: "first", Options: []byte("{}")}
	created, err := s.GetOrInsert(db)
	require.NoError(t, err)
	assert.True(t, created)

	again := &model.Session{ID: "s-1", Name: "second"}
	created, err = again.GetOrInsert(db)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "first", again.Name)
}

func TestSnapshot_NoPath(t *testing.T) {
	err := Snapshot(nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path not set")
}

func TestBackupPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.db", "notes.txt", "db"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "c.db"), 0755))

	paths, err := BackupPaths(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}, paths)
}

func TestBackupPaths_MissingDir(t *testing.T) {
	_, err := BackupPaths(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
