package model

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"ServerInfo", &ServerInfo{}, "server_infos"},
		{"PerformanceSample", &PerformanceSample{}, "performance_samples"},
		{"Session", &Session{}, "sessions"},
		{"Attack", &Attack{}, "attacks"},
		{"Report", &Report{}, "reports"},
		{"UnitState", &UnitState{}, "unit_states"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestModelListsMatch(t *testing.T) {
	assert.Len(t, DatabaseModelsSQLite, len(DatabaseModels))
	for i := range DatabaseModels {
		assert.IsType(t, DatabaseModels[i], DatabaseModelsSQLite[i])
	}
}

func TestTimeColumnsReadBackOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "fc.db")),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(DatabaseModelsSQLite...))

	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	s := Session{
		ID:        "s-1",
		Name:      "night drill",
		Options:   []byte("{}"),
		StartTime: start,
		EndTime:   sql.NullTime{Time: start.Add(time.Hour), Valid: true},
	}
	require.NoError(t, db.Create(&s).Error)
	require.NoError(t, db.Create(&PerformanceSample{SessionID: "s-1", Time: start.Add(time.Minute)}).Error)

	var got Session
	require.NoError(t, db.First(&got, "id = ?", "s-1").Error)
	assert.True(t, got.StartTime.Equal(start))
	require.True(t, got.EndTime.Valid)
	assert.True(t, got.EndTime.Time.Equal(start.Add(time.Hour)))

	var sample PerformanceSample
	require.NoError(t, db.First(&sample).Error)
	assert.True(t, sample.Time.Equal(start.Add(time.Minute)))
}
