package database

import (
	"fmt"
	"os"

	"github.com/mechcore/firecontrol/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MigrateBackups copies every SQLite backup in dir into m.DB and renames each
// copied file to <name>.migrated. It stops at the first failing file; the
// files copied before it stay migrated.
func (m *Manager) MigrateBackups(dir string) ([]string, error) {
	paths, err := BackupPaths(dir)
	if err != nil {
		return nil, fmt.Errorf("error getting backup database paths: %w", err)
	}

	var migrated []string
	for _, path := range paths {
		src, err := OpenSQLite(path)
		if err != nil {
			return migrated, fmt.Errorf("error opening %s: %w", path, err)
		}
		counts, err := CopyBackup(src, m.DB)
		if sqlDB, dbErr := src.DB(); dbErr == nil {
			sqlDB.Close()
		}
		if err != nil {
			return migrated, fmt.Errorf("error migrating %s: %w", path, err)
		}
		m.Logger.Info().Str("path", path).Interface("rows", counts).Msg("Migrated backup")

		if err := os.Rename(path, path+".migrated"); err != nil {
			m.Logger.Error().Err(err).Str("path", path).Msg("Error renaming sqlite file")
		}
		migrated = append(migrated, path)
	}
	return migrated, nil
}

// CopyBackup copies all recorded rows from src to dst in one transaction.
// Rows whose key already exists in dst are skipped; log and snapshot rows
// get fresh ids.
func CopyBackup(src, dst *gorm.DB) (map[string]int, error) {
	counts := make(map[string]int)
	err := dst.Transaction(func(tx *gorm.DB) error {
		var err error
		if counts["sessions"], err = copyTable[model.Session](src, tx, nil); err != nil {
			return fmt.Errorf("sessions: %w", err)
		}
		if counts["attacks"], err = copyTable[model.Attack](src, tx, nil); err != nil {
			return fmt.Errorf("attacks: %w", err)
		}
		if counts["reports"], err = copyTable(src, tx, func(r *model.Report) { r.ID = 0 }); err != nil {
			return fmt.Errorf("reports: %w", err)
		}
		if counts["unit_states"], err = copyTable(src, tx, func(s *model.UnitState) { s.ID = 0 }); err != nil {
			return fmt.Errorf("unit_states: %w", err)
		}
		if counts["performance_samples"], err = copyTable[model.PerformanceSample](src, tx, nil); err != nil {
			return fmt.Errorf("performance_samples: %w", err)
		}
		return nil
	})
	return counts, err
}

func copyTable[M any](src, dst *gorm.DB, reset func(*M)) (int, error) {
	var rows []M
	if err := src.Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if reset != nil {
		for i := range rows {
			reset(&rows[i])
		}
	}
	err := dst.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, 500).Error
	return len(rows), err
}
