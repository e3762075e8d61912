package migrate

import (
	"fmt"
	"sort"
	"strings"

	"webdesk/core/database"
	"webdesk/core/schema"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TableMigration is a table that must go through backup, drop, recreate and restore.
type TableMigration struct {
	Definition    *schema.Definition `json:"-"`
	Table         string             `json:"table"`
	Differences   []string           `json:"differences"`
	CurrentSchema schema.LiveSchema  `json:"-"`
	// Resumed tables restore from a backup left by an earlier run; no new backup is taken.
	Resumed bool `json:"resumed,omitempty"`
}

// UniqueDrop is a live unique constraint no declaration covers.
type UniqueDrop struct {
	Table      string   `json:"table"`
	Constraint string   `json:"constraint"`
	Columns    []string `json:"columns"`
}

// Plan is the outcome of the ANALYZE state.
type Plan struct {
	// Migrations are the tables needing structural change, in dependency order.
	Migrations []TableMigration `json:"migrations"`
	// NewTables do not exist yet and are created without migration.
	NewTables []string `json:"new_tables"`
	// UniqueDrops are applied in place on tables that need no migration.
	UniqueDrops []UniqueDrop `json:"unique_drops"`
	// DiscardBackups are orphaned backup tables to drop before anything else.
	DiscardBackups []string `json:"discard_backups"`
	// Ordered is every merged definition in dependency order.
	Ordered []*schema.Definition `json:"-"`
}

// Empty reports whether no table needs structural migration.
func (p *Plan) Empty() bool {
	return len(p.Migrations) == 0
}

// Tables returns the names of the planned tables.
func (p *Plan) Tables() []string {
	names := make([]string, len(p.Migrations))
	for i, m := range p.Migrations {
		names[i] = m.Table
	}
	return names
}

// Planner runs the schema differ over every merged definition.
type Planner struct {
	db      *gorm.DB
	dialect Dialect
	policy  string
	logger  *zap.Logger
}

// NewPlanner creates a planner bound to a connection.
func NewPlanner(db *gorm.DB, dialect Dialect, orphanPolicy string, logger *zap.Logger) *Planner {
	if orphanPolicy == "" {
		orphanPolicy = OrphanFail
	}
	return &Planner{db: db, dialect: dialect, policy: orphanPolicy, logger: logger}
}

// Plan inspects the live database and partitions definitions into new tables,
// tables to migrate, and tables only needing unique constraint sync. It does
// not modify the database.
func (p *Planner) Plan(defs []*schema.Definition) (*Plan, error) {
	plan := &Plan{Ordered: schema.SortByDependency(defs)}

	resumed, err := p.orphans(plan)
	if err != nil {
		return nil, err
	}

	for _, def := range plan.Ordered {
		if tm, ok := resumed[def.TableName]; ok {
			tm.Definition = def
			diff := schema.CompareSchemas(tm.CurrentSchema, def, p.dialect.Name)
			tm.Differences = append(tm.Differences, diff.Differences...)
			plan.Migrations = append(plan.Migrations, tm)
			continue
		}

		if !p.db.Migrator().HasTable(def.TableName) {
			plan.NewTables = append(plan.NewTables, def.TableName)
			continue
		}

		live, err := database.GetTableColumns(p.db, def.TableName)
		if err != nil {
			p.logger.Warn("Introspection failed, treating table as new",
				zap.String("table", def.TableName), zap.Error(err))
			plan.NewTables = append(plan.NewTables, def.TableName)
			continue
		}

		diff := schema.CompareSchemas(live, def, p.dialect.Name)
		if diff.NeedsMigration {
			plan.Migrations = append(plan.Migrations, TableMigration{
				Definition:    def,
				Table:         def.TableName,
				Differences:   diff.Differences,
				CurrentSchema: live,
			})
			continue
		}

		drops, err := UniqueDrops(p.db, p.dialect, def)
		if err != nil {
			p.logger.Warn("Unique constraint inspection failed", zap.String("table", def.TableName), zap.Error(err))
			continue
		}
		plan.UniqueDrops = append(plan.UniqueDrops, drops...)
	}

	return plan, nil
}

// orphans applies the orphan policy to backup tables left by an earlier run.
func (p *Planner) orphans(plan *Plan) (map[string]TableMigration, error) {
	backups, err := database.ListBackupTables(p.db)
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, nil
	}

	switch p.policy {
	case OrphanDiscard:
		p.logger.Warn("Discarding orphaned backup tables", zap.Strings("tables", backups))
		plan.DiscardBackups = backups
		return nil, nil
	case OrphanResume:
	default:
		return nil, fmt.Errorf("%w: %s (set migration.orphaned_backups to resume or discard, or drop them with `webdesk backups drop`)",
			ErrOrphanedBackups, strings.Join(backups, ", "))
	}

	declared := make(map[string]bool, len(plan.Ordered))
	for _, def := range plan.Ordered {
		declared[def.TableName] = true
	}

	resumed := make(map[string]TableMigration)
	for _, backup := range backups {
		table := database.SourceTableName(backup)
		if !declared[table] {
			p.logger.Warn("Orphaned backup has no declared table, leaving it in place", zap.String("backup", backup))
			continue
		}
		live, err := database.GetTableColumns(p.db, backup)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect orphaned backup %s: %w", backup, err)
		}
		live.Table = table
		resumed[table] = TableMigration{
			Table:         table,
			Differences:   []string{fmt.Sprintf("resuming from %s", backup)},
			CurrentSchema: live,
			Resumed:       true,
		}
		p.logger.Warn("Resuming interrupted migration from backup", zap.String("table", table), zap.String("backup", backup))
	}
	return resumed, nil
}

// UniqueDrops lists live unique constraints on a table whose column set is
// neither a unique field nor a unique index of the definition.
func UniqueDrops(db *gorm.DB, d Dialect, def *schema.Definition) ([]UniqueDrop, error) {
	if !d.UniqueSync {
		return nil, nil
	}
	live, err := database.ListUniqueConstraints(db, def.TableName)
	if err != nil {
		return nil, err
	}

	declared := def.UniqueColumnSets()
	var drops []UniqueDrop
	for _, c := range live {
		if coveredBy(c.Columns, declared) {
			continue
		}
		drops = append(drops, UniqueDrop{Table: def.TableName, Constraint: c.Name, Columns: c.Columns})
	}
	return drops, nil
}

func coveredBy(cols []string, declared [][]string) bool {
	key := columnSetKey(cols)
	for _, set := range declared {
		if columnSetKey(set) == key {
			return true
		}
	}
	return false
}

func columnSetKey(cols []string) string {
	sorted := make([]string, len(cols))
	for i, c := range cols {
		sorted[i] = strings.ToLower(c)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
