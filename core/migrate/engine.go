package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webdesk/core/defaults"
	"webdesk/core/metrics"
	"webdesk/core/schema"
	"webdesk/core/seed"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrCancelled is returned when the confirmation callback declines a plan.
var ErrCancelled = errors.New("migration cancelled")

// engineLayer names the contribution of engine-owned tables.
const engineLayer = "engine"

// Source supplies model and seed declarations in layer order.
type Source interface {
	Contributions() ([]schema.Contribution, error)
	Seeds() ([]seed.LayerSeeds, error)
}

// Options controls a single engine run.
type Options struct {
	// DryRun plans schema and seed changes without applying them.
	DryRun bool
	// Confirm is asked before a plan with structural migrations is executed.
	// A nil Confirm proceeds.
	Confirm func(plan *Plan) bool
}

// Result collects the outcome of every stage of a run.
type Result struct {
	Definitions []*schema.Definition
	Plan        *Plan
	Report      *Report
	SeedPlan    *seed.Plan
	Seeds       seed.Result
	Defaults    *defaults.Store
}

// Engine runs collection, planning, execution, seeding and cache load.
type Engine struct {
	db       *gorm.DB
	cfg      Config
	archiver BackupArchiver
	logger   *zap.Logger
}

// NewEngine creates an engine. archiver may be nil.
func NewEngine(db *gorm.DB, cfg Config, archiver BackupArchiver, logger *zap.Logger) *Engine {
	return &Engine{db: db, cfg: cfg, archiver: archiver, logger: logger}
}

// Definitions merges the source's contributions behind the engine's own tables.
func (e *Engine) Definitions(src Source) ([]*schema.Definition, error) {
	contribs, err := src.Contributions()
	if err != nil {
		return nil, err
	}
	all := append([]schema.Contribution{{
		Layer:       engineLayer,
		Definitions: []schema.Definition{seed.MappingDefinition()},
	}}, contribs...)
	return schema.Merge(all)
}

// Run migrates the schema to the merged declarations, reconciles seeds and
// loads the defaults cache. Every database step of the migration and the seed
// reconciliation runs on a single pinned connection.
func (e *Engine) Run(ctx context.Context, src Source, opts Options) (*Result, error) {
	start := time.Now()

	defs, err := e.Definitions(src)
	if err != nil {
		return nil, fmt.Errorf("failed to merge model declarations: %w", err)
	}
	layerSeeds, err := src.Seeds()
	if err != nil {
		return nil, fmt.Errorf("failed to load seeds: %w", err)
	}
	dialect, err := DialectFor(e.db)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Definitions: defs,
		Report:      &Report{RunID: uuid.NewString(), Dialect: dialect.Name},
	}
	e.logger.Info("Starting migration run",
		zap.String("run_id", res.Report.RunID), zap.String("dialect", dialect.Name), zap.Int("models", len(defs)))

	err = e.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		// Connection shares one statement across calls; give every chain its own.
		conn = conn.Session(&gorm.Session{})
		res.Report.States = append(res.Report.States, StateAnalyze)
		plan, err := NewPlanner(conn, dialect, e.cfg.OrphanedBackups, e.logger).Plan(defs)
		if err != nil {
			return err
		}
		res.Plan = plan
		e.logger.Info("Migration plan ready",
			zap.Strings("migrate", plan.Tables()), zap.Strings("new", plan.NewTables),
			zap.Int("unique_drops", len(plan.UniqueDrops)))

		seeds := seed.NewPlanner(conn, seed.NewTables(defs), e.logger)
		if opts.DryRun {
			res.SeedPlan, err = seeds.Plan(ctx, layerSeeds)
			return err
		}

		if !plan.Empty() && opts.Confirm != nil && !opts.Confirm(plan) {
			return ErrCancelled
		}
		if err := NewExecutor(conn, dialect, e.cfg, e.archiver, e.logger).Execute(ctx, plan, res.Report); err != nil {
			return err
		}

		if res.SeedPlan, err = seeds.Plan(ctx, layerSeeds); err != nil {
			return fmt.Errorf("failed to plan seeds: %w", err)
		}
		res.Seeds, err = seed.ApplyPlan(ctx, conn, res.SeedPlan, e.logger)
		if err != nil {
			return err
		}
		e.logger.Info("Seeds reconciled",
			zap.Int("applied", res.Seeds.Applied), zap.Int("failed", res.Seeds.Failed),
			zap.Int("unchanged", res.SeedPlan.Summary.Unchanged))
		return nil
	})
	metrics.MigrationDuration.WithLabelValues(dialect.Name).Observe(time.Since(start).Seconds())
	if err != nil || opts.DryRun {
		return res, err
	}

	layers := make([]string, 0, len(layerSeeds))
	for _, l := range layerSeeds {
		layers = append(layers, l.Layer)
	}
	store := defaults.NewStore(e.db, defs, layers, e.logger)
	if err := store.Reload(ctx); err != nil {
		return res, fmt.Errorf("failed to load default values: %w", err)
	}
	defaults.SetGlobal(store)
	res.Defaults = store

	e.logger.Info("Migration run complete",
		zap.String("run_id", res.Report.RunID), zap.String("state", string(res.Report.State())),
		zap.Int("default_values", store.Len()), zap.Duration("duration", time.Since(start)))
	return res, nil
}
