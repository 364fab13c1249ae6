package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mechcore/firecontrol/internal/database"
	"github.com/mechcore/firecontrol/internal/model"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestBackend creates a Backend with no DB (queue-only mode for unit testing).
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Dependencies{})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newSQLiteBackend(t *testing.T) (*Backend, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "fc.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, SQLiteSchema: true, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b, db
}

func TestNewDefaults(t *testing.T) {
	b := New(Dependencies{})
	require.NotNil(t, b)
	assert.Equal(t, DefaultFlushInterval, b.deps.FlushInterval)
	assert.NotNil(t, b.deps.Logger)
}

func TestCloseBeforeInit(t *testing.T) {
	b := New(Dependencies{})
	assert.NoError(t, b.Close())
}

func TestCloseTwice(t *testing.T) {
	b := New(Dependencies{})
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}

func TestRecordQueuesWithSessionID(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartSession(&core.Session{ID: "sess"}))

	require.NoError(t, b.RecordAttack(&core.AttackResult{DeclarationID: "d1", Weapon: "PPC"}))
	require.NoError(t, b.RecordReports([]core.Report{{Seq: 1}, {Seq: 2}}))
	require.NoError(t, b.RecordUnitState(&core.UnitState{UnitID: 1}))

	assert.Equal(t, 4, b.PendingWrites())
	attacks := b.queues.Attacks.Drain()
	require.Len(t, attacks, 1)
	assert.Equal(t, "sess", attacks[0].SessionID)
	reports := b.queues.Reports.Drain()
	require.Len(t, reports, 2)
	assert.Equal(t, "sess", reports[1].SessionID)
}

func TestFlushWithoutDBKeepsQueue(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.RecordAttack(&core.AttackResult{DeclarationID: "d1"}))
	require.NoError(t, b.Flush())
	assert.Equal(t, 1, b.PendingWrites())
}

func TestSessionLifecycleWritesRows(t *testing.T) {
	b, db := newSQLiteBackend(t)

	session := &core.Session{ID: "s-1", Name: "Drill", Seed: 7, StartTime: time.Now(), Options: map[string]any{"jamRule": "cancel-burst"}}
	require.NoError(t, b.StartSession(session))

	require.NoError(t, b.RecordAttack(&core.AttackResult{
		DeclarationID: "d-1", Phase: 1, Attacker: 1, Target: 2, Weapon: "LRM 10",
		Hit: true, Hits: 6, Damage: 6,
		Distribution: []core.Hit{{Location: "CT", Damage: 5, Target: 2}, {Location: "CT", Damage: 1, Target: 2}},
		TargetPos:    core.Hex{Q: 3, R: 0},
	}))
	require.NoError(t, b.RecordReports([]core.Report{{Seq: 1, Phase: 1, Attack: "d-1", Text: "Catapult fires LRM 10 at Atlas"}}))
	require.NoError(t, b.RecordUnitState(&core.UnitState{UnitID: 2, Name: "Atlas", Phase: 1, Armor: 298}))

	require.NoError(t, b.EndSession())
	assert.Equal(t, 0, b.PendingWrites())

	var count int64
	require.NoError(t, db.Model(&model.Attack{}).Where("session_id = ?", "s-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.Model(&model.Report{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.Model(&model.UnitState{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var stored model.Session
	require.NoError(t, db.First(&stored, "id = ?", "s-1").Error)
	assert.Equal(t, "Drill", stored.Name)
	assert.True(t, stored.EndTime.Valid)
}

func TestStartSessionTwiceKeepsOneRow(t *testing.T) {
	b, db := newSQLiteBackend(t)
	require.NoError(t, b.StartSession(&core.Session{ID: "s-1", Name: "first"}))
	require.NoError(t, b.StartSession(&core.Session{ID: "s-1", Name: "again"}))

	var count int64
	require.NoError(t, db.Model(&model.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCloseFlushes(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "fc.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, SQLiteSchema: true, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(&core.Session{ID: "s"}))
	require.NoError(t, b.RecordReports([]core.Report{{Seq: 1}, {Seq: 2}, {Seq: 3}}))

	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.Report{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}
