// Package database opens the gorm connections behind the storage backends
// and moves recorded sessions between them.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mechcore/firecontrol/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Manager holds the connection used by the maintenance commands.
type Manager struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	// ShouldSaveLocal is set when Postgres was unreachable and DB is the
	// in-memory SQLite fallback.
	ShouldSaveLocal bool
	Logger          zerolog.Logger
}

// NewManager creates a manager that logs to log.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{Logger: log}
}

// Connect opens Postgres, falling back to in-memory SQLite.
func (m *Manager) Connect() error {
	db, err := OpenPostgres()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Postgres unavailable, using in-memory SQLite")
		m.ShouldSaveLocal = true
		if db, err = OpenSQLite(""); err != nil {
			return err
		}
	}
	if m.SqlDB, err = db.DB(); err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	m.DB = db
	m.Logger.Info().Str("dialect", db.Dialector.Name()).Msg("Connected to database")
	return nil
}

// Setup migrates the schema for the connected dialect.
func (m *Manager) Setup() error {
	if err := Migrate(m.DB, m.ShouldSaveLocal); err != nil {
		return err
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Migrate creates the schema on db and seeds the server_infos row. Postgres
// gets the PostGIS extension first so the geometry columns resolve.
func Migrate(db *gorm.DB, sqliteSchema bool) error {
	models := model.DatabaseModels
	if sqliteSchema {
		models = model.DatabaseModelsSQLite
	}
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
			return fmt.Errorf("create postgis extension: %w", err)
		}
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}

	info := model.ServerInfo{
		GroupName:        "firecontrol",
		GroupDescription: "attack resolution server",
	}
	if err := db.Where(model.ServerInfo{}).FirstOrCreate(&info).Error; err != nil {
		return fmt.Errorf("seed server_infos: %w", err)
	}
	return nil
}

// BackupPaths lists the .db files directly inside dir.
func BackupPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ".db" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
