package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mechcore/firecontrol/internal/config"
	v1 "github.com/mechcore/firecontrol/internal/storage/memory/export/v1"
	"github.com/mechcore/firecontrol/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *core.Session {
	return &core.Session{
		ID:        "f2b1",
		Name:      "Lance drill: night",
		Seed:      42,
		StartTime: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Tag:       "Trials",
	}
}

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: "/tmp/test", CompressOutput: true})
	require.NotNil(t, b)
	assert.Equal(t, "/tmp/test", b.cfg.OutputDir)
	assert.True(t, b.cfg.CompressOutput)
	assert.NotNil(t, b.units)
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})
	if err := b.Init(); err != nil {
		t.Errorf("Init failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestStartSessionResets(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.RecordAttack(&core.AttackResult{Weapon: "old"}))
	require.NoError(t, b.RecordReports([]core.Report{{Seq: 1}}))
	require.NoError(t, b.RecordUnitState(&core.UnitState{UnitID: 1}))

	require.NoError(t, b.StartSession(testSession()))

	assert.Empty(t, b.Attacks())
	assert.Empty(t, b.Reports())
	assert.Empty(t, b.units)
}

func TestRecordUnitStateGroupsByUnit(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartSession(testSession()))

	require.NoError(t, b.RecordUnitState(&core.UnitState{UnitID: 3, Name: "Atlas", Phase: 1}))
	require.NoError(t, b.RecordUnitState(&core.UnitState{UnitID: 3, Phase: 2}))
	require.NoError(t, b.RecordUnitState(&core.UnitState{UnitID: 4, Name: "Hunchback", Phase: 1}))

	require.Len(t, b.units, 2)
	assert.Equal(t, "Atlas", b.units[3].Name)
	assert.Len(t, b.units[3].States, 2)
}

func TestAttacksReturnsCopy(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.RecordAttack(&core.AttackResult{Weapon: "PPC"}))

	got := b.Attacks()
	got[0].Weapon = "changed"
	assert.Equal(t, "PPC", b.Attacks()[0].Weapon)
}

func TestEndSessionWithoutStartIsNoop(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.EndSession())
	assert.Empty(t, b.GetExportedFilePath())
}

func readExport(t *testing.T, path string, compressed bool) v1.Export {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var export v1.Export
	if compressed {
		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		defer gz.Close()
		require.NoError(t, json.NewDecoder(gz).Decode(&export))
	} else {
		require.NoError(t, json.NewDecoder(f).Decode(&export))
	}
	return export
}

func TestEndSessionExports(t *testing.T) {
	for _, compressed := range []bool{true, false} {
		name := "plain"
		if compressed {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: compressed})

			require.NoError(t, b.StartSession(testSession()))
			require.NoError(t, b.RecordUnitState(&core.UnitState{UnitID: 1, Name: "Catapult", Phase: 1, Position: core.Hex{Q: 0, R: 0}}))
			require.NoError(t, b.RecordAttack(&core.AttackResult{Phase: 1, Attacker: 1, Target: 2, Weapon: "LRM 10", ToHit: 7, Roll: 9, Hit: true, Hits: 6, Damage: 6}))
			require.NoError(t, b.RecordReports([]core.Report{{Seq: 1, Phase: 1, Text: "Catapult fires LRM 10 at Atlas"}}))
			require.NoError(t, b.EndSession())

			want := "Lance_drill__night_20260115_103000.json"
			if compressed {
				want += ".gz"
			}
			path := b.GetExportedFilePath()
			assert.Equal(t, filepath.Join(dir, want), path)

			export := readExport(t, path, compressed)
			assert.Equal(t, "Lance drill: night", export.SessionName)
			assert.Equal(t, uint64(42), export.Seed)
			require.Len(t, export.Units, 1)
			require.Len(t, export.Events, 1)
			assert.Equal(t, "hit", export.Events[0][1])
			require.Len(t, export.Log, 1)
			assert.Equal(t, "Catapult fires LRM 10 at Atlas", export.Log[0].Text)

			meta := b.GetExportMetadata()
			assert.Equal(t, "Lance drill: night", meta.SessionName)
			assert.Equal(t, "Trials", meta.Tag)
			assert.Equal(t, 1, meta.Attacks)
			assert.Greater(t, meta.Duration, 0.0)
		})
	}
}

func TestEndSessionAtSetsDuration(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	s := testSession()
	require.NoError(t, b.StartSession(s))

	require.NoError(t, b.EndSessionAt(s.StartTime.Add(90*time.Second)))
	assert.InDelta(t, 90.0, b.GetExportMetadata().Duration, 0.001)

	require.NoError(t, b.EndSessionAt(s.StartTime.Add(-time.Minute)))
	assert.Equal(t, 0.0, b.GetExportMetadata().Duration, "an end before the start has no duration")
}

func TestConcurrentRecording(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartSession(testSession()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = b.RecordAttack(&core.AttackResult{Phase: j})
				_ = b.RecordUnitState(&core.UnitState{UnitID: core.EntityID(i)})
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, b.Attacks(), 400)
	assert.Len(t, b.units, 8)
}

func TestExportLeavesOnlyFinalFile(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.EndSession())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Lance_drill__night_20260115_103000.json.gz", entries[0].Name())
	assert.Equal(t, filepath.Join(dir, entries[0].Name()), b.GetExportedFilePath())
}
