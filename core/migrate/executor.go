package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webdesk/core/database"
	"webdesk/core/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State is a step of the migration state machine.
type State string

const (
	StateAnalyze     State = "ANALYZE"
	StateNoOp        State = "NO_OP"
	StateBackup      State = "BACKUP"
	StateDrop        State = "DROP"
	StateRecreateAll State = "RECREATE_ALL"
	StateRestore     State = "RESTORE"
	StateCleanup     State = "CLEANUP"
	StateResequence  State = "RESEQUENCE"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Report describes what a run did.
type Report struct {
	RunID       string                  `json:"run_id"`
	Dialect     string                  `json:"dialect"`
	States      []State                 `json:"states"`
	Created     []string                `json:"created"`
	Migrated    []string                `json:"migrated"`
	Restore     map[string]RestoreStats `json:"restore"`
	UniqueDrops []UniqueDrop            `json:"unique_drops"`
	Archived    []string                `json:"archived"`
	Duration    time.Duration           `json:"duration"`
}

// State returns the state the run ended in.
func (r *Report) State() State {
	if len(r.States) == 0 {
		return StateAnalyze
	}
	return r.States[len(r.States)-1]
}

// Executor applies a plan on a single pinned connection.
type Executor struct {
	conn     *gorm.DB
	dialect  Dialect
	cfg      Config
	archiver BackupArchiver
	logger   *zap.Logger
}

// NewExecutor creates an executor. archiver may be nil.
func NewExecutor(conn *gorm.DB, dialect Dialect, cfg Config, archiver BackupArchiver, logger *zap.Logger) *Executor {
	return &Executor{conn: conn, dialect: dialect, cfg: cfg, archiver: archiver, logger: logger}
}

func (e *Executor) transition(report *Report, s State) {
	report.States = append(report.States, s)
	e.logger.Info("Migration state", zap.String("state", string(s)), zap.String("run_id", report.RunID))
}

// Execute runs the plan. Without planned migrations it only creates missing
// tables and applies unique constraint drops. Any returned error wraps
// ErrMigrationFailed; on engines with transactional DDL nothing is left behind.
func (e *Executor) Execute(ctx context.Context, plan *Plan, report *Report) error {
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()
	if report.Restore == nil {
		report.Restore = map[string]RestoreStats{}
	}

	var err error
	if plan.Empty() {
		e.transition(report, StateNoOp)
		err = e.inScope(func(tx *gorm.DB) error { return e.createMissing(tx, plan, report) })
	} else {
		err = e.migrate(ctx, plan, report)
	}

	if err != nil {
		e.transition(report, StateFailed)
		metrics.MigrationRunsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, ErrMigrationFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	if plan.Empty() {
		metrics.MigrationRunsTotal.WithLabelValues("no_op").Inc()
		return nil
	}
	e.transition(report, StateDone)
	metrics.MigrationRunsTotal.WithLabelValues("done").Inc()
	return nil
}

// inScope wraps fn in a transaction when the dialect has transactional DDL.
func (e *Executor) inScope(fn func(tx *gorm.DB) error) error {
	if e.dialect.TransactionalDDL {
		return e.conn.Transaction(fn)
	}
	return fn(e.conn)
}

func (e *Executor) createMissing(tx *gorm.DB, plan *Plan, report *Report) error {
	for _, name := range plan.DiscardBackups {
		if err := dropTable(tx, e.dialect, name); err != nil {
			return err
		}
	}
	for _, def := range plan.Ordered {
		exists := tx.Migrator().HasTable(def.TableName)
		if err := createTable(tx, e.dialect, def); err != nil {
			return err
		}
		if !exists {
			report.Created = append(report.Created, def.TableName)
			metrics.MigrationTablesTotal.WithLabelValues("new").Inc()
		}
	}
	return e.applyUniqueDrops(tx, plan.UniqueDrops, report)
}

func (e *Executor) applyUniqueDrops(tx *gorm.DB, drops []UniqueDrop, report *Report) error {
	for _, d := range drops {
		if err := database.DropUniqueConstraint(tx, d.Table, d.Constraint); err != nil {
			return err
		}
		e.logger.Info("Dropped undeclared unique constraint",
			zap.String("table", d.Table), zap.String("constraint", d.Constraint), zap.Strings("columns", d.Columns))
		metrics.UniqueConstraintsDroppedTotal.WithLabelValues(d.Table).Inc()
		report.UniqueDrops = append(report.UniqueDrops, d)
	}
	return nil
}

func (e *Executor) migrate(ctx context.Context, plan *Plan, report *Report) error {
	planned := make(map[string]bool, len(plan.Migrations))
	for _, tm := range plan.Migrations {
		planned[tm.Table] = true
	}

	// Postgres drops referencing constraints along with the table; remember the
	// ones owned by untouched tables so they can be put back.
	var detached []database.ForeignKey
	if e.dialect.CascadeDrop {
		fks, err := database.ListForeignKeys(e.conn)
		if err != nil {
			return err
		}
		for _, fk := range fks {
			if planned[fk.RefTable] && !planned[fk.Table] {
				detached = append(detached, fk)
			}
		}
	}

	// sqlite ignores foreign_keys changes inside a transaction.
	if e.dialect.Name == database.DriverSQLite {
		if err := e.dialect.SuspendForeignKeys(e.conn); err != nil {
			return err
		}
	}
	// The pinned connection goes back to the pool afterwards; never leave it
	// with enforcement off.
	defer func() {
		if err := e.dialect.ResumeForeignKeys(e.conn); err != nil {
			e.logger.Error("Failed to re-enable foreign keys", zap.Error(err))
		}
	}()

	return e.inScope(func(tx *gorm.DB) error {
		for _, name := range plan.DiscardBackups {
			if err := dropTable(tx, e.dialect, name); err != nil {
				return err
			}
		}

		e.transition(report, StateBackup)
		for _, tm := range plan.Migrations {
			if tm.Resumed {
				continue
			}
			backup := database.BackupTableName(tm.Table)
			stmt := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", database.Quote(tx, backup), database.Quote(tx, tm.Table))
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to back up %s: %w", tm.Table, err)
			}
			if e.archiver != nil && e.cfg.ArchiveBackups {
				key, err := e.archiveBackup(ctx, tx, report.RunID, tm.Table)
				if err != nil {
					return err
				}
				report.Archived = append(report.Archived, key)
			}
		}

		e.transition(report, StateDrop)
		if e.dialect.Name == database.DriverMySQL {
			if err := e.dialect.SuspendForeignKeys(tx); err != nil {
				return err
			}
		}
		for i := len(plan.Migrations) - 1; i >= 0; i-- {
			if err := dropTable(tx, e.dialect, plan.Migrations[i].Table); err != nil {
				return err
			}
		}

		e.transition(report, StateRecreateAll)
		for _, def := range plan.Ordered {
			existed := !planned[def.TableName] && tx.Migrator().HasTable(def.TableName)
			if err := createTable(tx, e.dialect, def); err != nil {
				return err
			}
			if planned[def.TableName] {
				continue
			}
			if !existed {
				report.Created = append(report.Created, def.TableName)
				metrics.MigrationTablesTotal.WithLabelValues("new").Inc()
				continue
			}
			drops, err := UniqueDrops(tx, e.dialect, def)
			if err != nil {
				return err
			}
			if err := e.applyUniqueDrops(tx, drops, report); err != nil {
				return err
			}
		}

		e.transition(report, StateRestore)
		if e.dialect.Name == database.DriverMySQL {
			if err := e.dialect.ResumeForeignKeys(tx); err != nil {
				return err
			}
		}
		for _, tm := range plan.Migrations {
			stats, err := e.restoreTable(tx, tm)
			if err != nil {
				return err
			}
			report.Restore[tm.Table] = stats
			report.Migrated = append(report.Migrated, tm.Table)
			kind := "migrated"
			if tm.Resumed {
				kind = "resumed"
			}
			metrics.MigrationTablesTotal.WithLabelValues(kind).Inc()
		}
		if e.dialect.Name == database.DriverSQLite {
			for _, tm := range plan.Migrations {
				removed, err := sweepDanglingRows(tx, tm.Table)
				if err != nil {
					return err
				}
				if removed > 0 {
					stats := report.Restore[tm.Table]
					stats.Restored -= removed
					stats.Failed += removed
					report.Restore[tm.Table] = stats
					metrics.RestoreRowsTotal.WithLabelValues(tm.Table, "failed").Add(float64(removed))
				}
			}
		}
		for _, fk := range detached {
			stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s NOT VALID",
				database.Quote(tx, fk.Table), database.Quote(tx, fk.Name), fk.Definition)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to restore foreign key %s on %s: %w", fk.Name, fk.Table, err)
			}
		}
		for _, tm := range plan.Migrations {
			stats := report.Restore[tm.Table]
			log := e.logger.Info
			if stats.Failed > 0 {
				log = e.logger.Warn
			}
			log("Table restored", zap.String("table", tm.Table),
				zap.Int("restored_rows", stats.Restored), zap.Int("failed_rows", stats.Failed))
		}

		e.transition(report, StateCleanup)
		for _, tm := range plan.Migrations {
			if err := dropTable(tx, e.dialect, database.BackupTableName(tm.Table)); err != nil {
				return err
			}
		}

		e.transition(report, StateResequence)
		for _, tm := range plan.Migrations {
			if err := Resequence(tx, e.dialect, tm.Definition); err != nil {
				return err
			}
		}
		return nil
	})
}

func dropTable(tx *gorm.DB, d Dialect, table string) error {
	stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", database.Quote(tx, table))
	if d.CascadeDrop {
		stmt += " CASCADE"
	}
	if err := tx.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}
	return nil
}
