package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mechcore/firecontrol/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBackup(t *testing.T, path string) {
	t.Helper()
	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db, true))

	now := time.Date(3025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.Session{ID: "s-1", Name: "duel", Options: []byte("{}"), StartTime: now}).Error)
	require.NoError(t, db.Omit("Session").Create(&model.Attack{
		DeclarationID: "d-1", SessionID: "s-1", Time: now, Phase: 1,
		Weapon: "Medium Laser", Modifiers: []byte("[]"), Distribution: []byte("[]"),
	}).Error)
	require.NoError(t, db.Omit("Session").Create(&model.Report{SessionID: "s-1", Seq: 1, Phase: 1, Text: "hit"}).Error)
	require.NoError(t, db.Omit("Session").Create(&model.UnitState{
		SessionID: "s-1", UnitID: 1, Phase: 1, Locations: []byte("[]"), Equipment: []byte("[]"),
	}).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestMigrateBackups(t *testing.T) {
	dir := t.TempDir()
	writeBackup(t, filepath.Join(dir, "first.db"))

	dst, err := OpenSQLite(filepath.Join(t.TempDir(), "main.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(dst, true))

	m := &Manager{DB: dst, Logger: zerolog.Nop()}
	migrated, err := m.MigrateBackups(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "first.db")}, migrated)

	_, err = os.Stat(filepath.Join(dir, "first.db.migrated"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "first.db"))
	assert.True(t, os.IsNotExist(err))

	var sessions, attacks, reports, states int64
	require.NoError(t, dst.Model(&model.Session{}).Count(&sessions).Error)
	require.NoError(t, dst.Model(&model.Attack{}).Count(&attacks).Error)
	require.NoError(t, dst.Model(&model.Report{}).Count(&reports).Error)
	require.NoError(t, dst.Model(&model.UnitState{}).Count(&states).Error)
	assert.Equal(t, int64(1), sessions)
	assert.Equal(t, int64(1), attacks)
	assert.Equal(t, int64(1), reports)
	assert.Equal(t, int64(1), states)

	again, err := m.MigrateBackups(dir)
	require.NoError(t, err)
	assert.Empty(t, again, "migrated files are not picked up twice")
}

func TestCopyBackup_SkipsExistingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.db")
	writeBackup(t, path)
	src, err := OpenSQLite(path)
	require.NoError(t, err)

	dst, err := OpenSQLite(filepath.Join(t.TempDir(), "main.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(dst, true))

	_, err = CopyBackup(src, dst)
	require.NoError(t, err)
	counts, err := CopyBackup(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["sessions"])

	var sessions, reports int64
	require.NoError(t, dst.Model(&model.Session{}).Count(&sessions).Error)
	require.NoError(t, dst.Model(&model.Report{}).Count(&reports).Error)
	assert.Equal(t, int64(1), sessions)
	assert.Equal(t, int64(2), reports, "log lines get fresh ids")
}

func TestLoadSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.db")
	writeBackup(t, path)
	db, err := OpenSQLite(path)
	require.NoError(t, err)

	rows, err := LoadSession(db, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "duel", rows.Session.Name)
	assert.Len(t, rows.Attacks, 1)
	assert.Len(t, rows.Reports, 1)
	assert.Len(t, rows.UnitStates, 1)

	latest, err := LoadSession(db, "")
	require.NoError(t, err)
	assert.Equal(t, "s-1", latest.Session.ID)

	_, err = LoadSession(db, "missing")
	assert.ErrorIs(t, err, ErrNoSession)
}
