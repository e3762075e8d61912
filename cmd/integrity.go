package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"webdesk/feature/integrity"
	"webdesk/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// errDrift makes the process exit non-zero when a check finds differences.
var errDrift = errors.New("integrity check found differences")

var jsonIntegrity bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Compare the live database with the declared layers",
	Long: `Checks schema drift and pending seed changes without modifying anything.
Exits with a non-zero status when differences are found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, true)
	},
}

// schemaCmd represents the integrity schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check declared tables against the live schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, false)
	},
}

// seedsCmd represents the integrity seeds command
var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Check seeded default values against their declarations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(schemaCmd, seedsCmd)
	integrityCmd.PersistentFlags().BoolVar(&jsonIntegrity, "json", false, "Save the detailed report as JSON")
}

func runIntegrityChecks(ctx context.Context, runSchema, runSeeds bool) error {
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	logg := e.logger
	defer logg.Sync()

	defs, err := e.engine().Definitions(e.layers)
	if err != nil {
		return err
	}
	seeds, err := e.layers.Seeds()
	if err != nil {
		return err
	}
	svc := integrity.NewService(e.db, defs, seeds, logg)

	drift := false
	out := map[string]any{}

	if runSchema {
		logg.Info("Checking schema integrity...")
		report, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		out["schema"] = report
		if report.Matched {
			logg.Info("Schema matches the declared layers.", zap.String("dialect", report.Dialect))
		} else {
			drift = true
			logSchemaReport(logg, report)
		}
	}

	if runSeeds {
		logg.Info("Checking seeded default values...")
		report, err := svc.CheckSeeds(ctx)
		if err != nil {
			return fmt.Errorf("seed check failed: %w", err)
		}
		out["seeds"] = report
		s := report.Summary
		if !report.Pending {
			logg.Info("Seeds are in sync.", zap.Int("declared", s.Declared), zap.Int("skipped", s.Skipped))
		} else {
			drift = true
			logg.Warn("Seed changes pending",
				zap.Int("create", s.Creates), zap.Int("update", s.Updates),
				zap.Int("delete", s.Deletes), zap.Int("recreate", s.Recreates))
			for _, a := range report.Actions {
				logg.Warn("Pending seed action",
					zap.String("type", string(a.Type)), zap.String("layer", a.Layer),
					zap.String("table", a.Table), zap.Int("seed_id", a.SeedID), zap.Strings("fields", a.Fields))
			}
		}
	}

	if jsonIntegrity {
		filename := fmt.Sprintf("integrity_%d.json", time.Now().Unix())
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		if err := os.WriteFile(filename, data, 0644); err != nil {
			return fmt.Errorf("failed to save JSON file: %w", err)
		}
		logg.Info("Detailed JSON report saved", zap.String("file", filename))
	}

	if drift {
		return errDrift
	}
	return nil
}

func logSchemaReport(logg *zap.Logger, report *checks.SchemaReport) {
	logg.Warn("Schema drift found", zap.String("dialect", report.Dialect), zap.Strings("tables", report.Drifted()))
	for _, name := range report.Drifted() {
		tbl := report.Tables[name]
		if tbl.Status == checks.StatusMissing {
			logg.Warn("Missing table", zap.String("table", name))
			continue
		}
		if len(tbl.Differences) > 0 {
			logg.Warn("Differences", zap.String("table", name), zap.Strings("differences", tbl.Differences))
		}
		if len(tbl.UniqueDrops) > 0 {
			logg.Warn("Undeclared unique constraints", zap.String("table", name), zap.Strings("constraints", tbl.UniqueDrops))
		}
	}
	if len(report.Backups) > 0 {
		logg.Warn("Backup tables left by an interrupted migration", zap.Strings("tables", report.Backups))
	}
	for _, e := range report.Errors {
		logg.Error("Inspection Error", zap.String("error", e))
	}
}
