package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mechcore/firecontrol/internal/database"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy SQLite session backups into Postgres",
	Long: `Copy every *.db SQLite backup in a directory into the configured Postgres
database. Each migrated file is renamed to <name>.db.migrated. Rows already
present in Postgres are skipped.

Examples:
  firecontrol migrate
  firecontrol migrate --dir ./fclogs/old`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "directory holding the backups (default: logsDir)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp("migrate")
	if err != nil {
		return err
	}
	defer a.close()

	dir := migrateDir
	if dir == "" {
		dir = viper.GetString("logsDir")
	}

	db := database.NewManager(a.zlogger("database"))
	if err := db.Connect(); err != nil {
		return err
	}
	defer db.SqlDB.Close()
	if db.ShouldSaveLocal {
		return errors.New("postgres is unreachable, nothing to migrate into")
	}
	if err := db.Setup(); err != nil {
		return err
	}

	migrated, err := db.MigrateBackups(dir)
	for _, path := range migrated {
		fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", path)
	}
	if err != nil {
		return err
	}
	a.log.Info("Backup migration finished", "dir", dir, "files", len(migrated))
	return nil
}
