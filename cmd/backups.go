package cmd

import (
	"fmt"

	"webdesk/core/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var yesBackups bool

// backupsCmd is the parent command for migration backup housekeeping.
var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect and remove migration backups",
	Long: `Backup tables (*_temp_backup) are normally dropped at the end of a run.
A crashed run on MySQL leaves them behind; the next run then follows
migration.orphaned_backups. These commands list or drop them by hand, and
manage backups archived to object storage.`,
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup tables and archived backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.logger.Sync()

		tables, err := database.ListBackupTables(e.db)
		if err != nil {
			return err
		}
		fmt.Println("\n=== Backup Tables ===")
		if len(tables) == 0 {
			fmt.Println("  (none)")
		}
		for _, t := range tables {
			fmt.Printf("  %s -> %s\n", t, database.SourceTableName(t))
		}

		if e.archiver == nil {
			e.logger.Info("Storage is disabled, archived backups not listed")
			return nil
		}
		keys, err := e.archiver.List(cmd.Context(), "migrations/")
		if err != nil {
			return err
		}
		fmt.Println("\n=== Archived Backups ===")
		if len(keys) == 0 {
			fmt.Println("  (none)")
		}
		for _, k := range keys {
			fmt.Printf("  %s\n", k)
		}
		return nil
	},
}

var backupsDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop backup tables left by an interrupted migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.logger.Sync()

		tables, err := database.ListBackupTables(e.db)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			e.logger.Info("No backup tables found.")
			return nil
		}
		e.logger.Warn("Backup tables found", zap.Strings("tables", tables))
		if !confirm("The rows they hold will be lost.", yesBackups) {
			e.logger.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}
		for _, t := range tables {
			if err := e.db.Migrator().DropTable(t); err != nil {
				return fmt.Errorf("failed to drop %s: %w", t, err)
			}
			e.logger.Info("Dropped backup table", zap.String("table", t))
		}
		return nil
	},
}

var backupsPurgeCmd = &cobra.Command{
	Use:   "purge <run-id>",
	Short: "Remove the archived backups of a migration run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer e.logger.Sync()

		if e.archiver == nil {
			return fmt.Errorf("storage is disabled (set storage.enabled)")
		}
		prefix := fmt.Sprintf("migrations/%s/", args[0])
		if !confirm(fmt.Sprintf("Archived objects under %s will be removed.", prefix), yesBackups) {
			e.logger.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}
		removed, err := e.archiver.Remove(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		e.logger.Info("Removed archived backups", zap.String("run_id", args[0]), zap.Int("objects", removed))
		return nil
	},
}

func init() {
	backupsCmd.PersistentFlags().BoolVar(&yesBackups, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	backupsCmd.AddCommand(backupsListCmd, backupsDropCmd, backupsPurgeCmd)
	RootCmd.AddCommand(backupsCmd)
}
