package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/mechcore/firecontrol/internal/config"
	"github.com/mechcore/firecontrol/internal/database"
	"github.com/mechcore/firecontrol/internal/model/convert"
	"github.com/mechcore/firecontrol/internal/storage/memory"
	"github.com/mechcore/firecontrol/pkg/core"
)

var (
	exportSQLite string
	exportOut    string
	exportUpload bool
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Write the battle log of a recorded session",
	Long: `Read a recorded session from Postgres, or from a SQLite backup with
--sqlite, and write it as a JSON battle log. Without a session id the most
recently started session is exported.

Examples:
  firecontrol export 0d6c8b9e-5d0b-4b39-9a51-2f4c1d2f8e7a
  firecontrol export --sqlite ./fclogs/firecontrol_20260110_200000.db --out ./logs
  firecontrol export --upload`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSQLite, "sqlite", "", "read from this SQLite file instead of Postgres")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output directory (default: storage.memory.outputDir)")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "upload the battle log to the results server")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp("export")
	if err != nil {
		return err
	}
	defer a.close()

	var id string
	if len(args) == 1 {
		id = args[0]
	}

	var db *gorm.DB
	if exportSQLite != "" {
		db, err = database.OpenSQLite(exportSQLite)
	} else {
		db, err = database.OpenPostgres()
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	rows, err := database.LoadSession(db, id)
	if err != nil {
		return err
	}

	cfg := config.GetStorageConfig().Memory
	if exportOut != "" {
		cfg.OutputDir = exportOut
	}
	b := memory.New(cfg)
	if err := replayRows(b, rows); err != nil {
		return err
	}

	path := b.GetExportedFilePath()
	fmt.Fprintln(cmd.OutOrStdout(), path)
	a.log.Info("Exported session", "id", rows.Session.ID, "path", path,
		"attacks", len(rows.Attacks), "reports", len(rows.Reports))

	if exportUpload {
		return a.upload(cmd.Context(), b)
	}
	return nil
}

// replayRows feeds recorded rows through a memory backend so the export has
// the same layout as one written at the end of a live session.
func replayRows(b *memory.Backend, rows *database.SessionRows) error {
	s := convert.SessionToCore(rows.Session)
	if err := b.StartSession(&s); err != nil {
		return err
	}

	end := s.StartTime
	for _, m := range rows.Attacks {
		r := convert.AttackToCore(m)
		if err := b.RecordAttack(&r); err != nil {
			return err
		}
		if m.Time.After(end) {
			end = m.Time
		}
	}

	reports := make([]core.Report, 0, len(rows.Reports))
	for _, m := range rows.Reports {
		reports = append(reports, convert.ReportToCore(m))
	}
	if err := b.RecordReports(reports); err != nil {
		return err
	}

	for _, m := range rows.UnitStates {
		st := convert.UnitStateToCore(m)
		if err := b.RecordUnitState(&st); err != nil {
			return err
		}
	}

	if rows.Session.EndTime.Valid {
		end = rows.Session.EndTime.Time
	}
	return b.EndSessionAt(end)
}
