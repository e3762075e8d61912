package cmd

import (
	"errors"
	"fmt"

	"webdesk/core/migrate"
	"webdesk/core/seed"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dryRunMigrate bool
	yesMigrate    bool
)

// migrateCmd runs the migration engine once without starting the server.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the schema and reconcile seeds",
	Long: `Migrates the database to the merged model declarations of every
enabled layer, then reconciles seeded default records.

Tables whose structure changed are backed up, recreated and restored.
The plan is printed first and confirmed before anything is dropped.

Examples:
  # Show what would change
  webdesk migrate --dry-run

  # Migrate without prompting
  webdesk migrate --yes`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Plan schema and seed changes without applying them")
	migrateCmd.Flags().BoolVar(&yesMigrate, "yes", false, "Auto-confirm table recreation (non-interactive)")
	RootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	res, err := e.engine().Run(cmd.Context(), e.layers, migrate.Options{
		DryRun: dryRunMigrate,
		Confirm: func(plan *migrate.Plan) bool {
			printPlan(plan)
			return confirm(fmt.Sprintf("%d table(s) will be backed up and recreated.", len(plan.Migrations)), yesMigrate)
		},
	})
	if errors.Is(err, migrate.ErrCancelled) {
		e.logger.Warn("Migration cancelled by user. No changes were made.")
		return nil
	}
	if err != nil {
		return err
	}

	if dryRunMigrate {
		printPlan(res.Plan)
		printSeedPlan(res.SeedPlan)
		e.logger.Info("Dry-run mode: No changes were made.")
		return nil
	}

	printSeedPlan(res.SeedPlan)
	e.logger.Info("Migration completed",
		zap.String("run_id", res.Report.RunID),
		zap.String("state", string(res.Report.State())),
		zap.Strings("created", res.Report.Created),
		zap.Strings("migrated", res.Report.Migrated),
		zap.Strings("archived", res.Report.Archived),
		zap.Int("seeds_applied", res.Seeds.Applied),
		zap.Int("seeds_failed", res.Seeds.Failed),
		zap.Duration("duration", res.Report.Duration),
	)
	for table, stats := range res.Report.Restore {
		if stats.Failed > 0 {
			e.logger.Warn("Rows dropped during restore", zap.String("table", table), zap.Int("failed", stats.Failed))
		}
	}
	return nil
}

func printPlan(plan *migrate.Plan) {
	if plan == nil {
		return
	}
	fmt.Println("\n=== Schema Plan ===")
	if plan.Empty() && len(plan.NewTables) == 0 && len(plan.UniqueDrops) == 0 && len(plan.DiscardBackups) == 0 {
		fmt.Printf("  %s\n", color.New(color.FgGreen).Sprint("Schema is up to date"))
		return
	}
	for _, name := range plan.DiscardBackups {
		fmt.Printf("  %s %s\n", color.New(color.FgRed).Sprint("DISCARD"), name)
	}
	for _, name := range plan.NewTables {
		fmt.Printf("  %s %s\n", color.New(color.FgGreen).Sprint("CREATE "), name)
	}
	for _, m := range plan.Migrations {
		label := "MIGRATE"
		if m.Resumed {
			label = "RESUME "
		}
		fmt.Printf("  %s %s\n", color.New(color.FgYellow).Sprint(label), m.Table)
		for _, d := range m.Differences {
			fmt.Printf("          - %s\n", d)
		}
	}
	for _, d := range plan.UniqueDrops {
		fmt.Printf("  %s %s.%s %v\n", color.New(color.FgRed).Sprint("DROP UQ"), d.Table, d.Constraint, d.Columns)
	}
}

func printSeedPlan(plan *seed.Plan) {
	if plan == nil {
		return
	}
	s := plan.Summary
	fmt.Println("\n=== Seed Plan ===")
	fmt.Printf("Declared: %d  Unchanged: %d  Skipped: %d\n", s.Declared, s.Unchanged, s.Skipped)
	fmt.Printf("Create: %d  Update: %d  Delete: %d  Recreate: %d\n", s.Creates, s.Updates, s.Deletes, s.Recreates)

	const maxShow = 20
	for i, a := range plan.Actions {
		if i == maxShow {
			fmt.Printf("  ... %d more\n", len(plan.Actions)-maxShow)
			break
		}
		fmt.Printf("  %s %s/%s#%d %v\n", seedLabel(a.Type), a.Layer, a.Table, a.SeedID, a.Fields)
	}
}

func seedLabel(t seed.ActionType) string {
	switch t {
	case seed.ActionCreate:
		return color.New(color.FgGreen).Sprint("CREATE  ")
	case seed.ActionUpdate:
		return color.New(color.FgYellow).Sprint("UPDATE  ")
	case seed.ActionRecreate:
		return color.New(color.FgBlue).Sprint("RECREATE")
	default:
		return color.New(color.FgRed).Sprint("DELETE  ")
	}
}
