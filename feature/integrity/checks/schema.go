package checks

import (
	"fmt"
	"sort"

	"webdesk/core/database"
	"webdesk/core/migrate"
	"webdesk/core/schema"

	"gorm.io/gorm"
)

// Table statuses.
const (
	StatusOK      = "ok"
	StatusDrift   = "drift"
	StatusMissing = "missing"
	StatusError   = "error"
)

// SchemaReport strictly types the result of a schema drift check.
type SchemaReport struct {
	Dialect string                 `json:"dialect"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	// Backups are *_temp_backup tables left by an interrupted migration.
	Backups []string `json:"backups"`
	Errors  []string `json:"errors"`
}

// TableReport is the drift of a single table.
type TableReport struct {
	Status      string   `json:"status"`
	Differences []string `json:"differences"`
	// UniqueDrops are live unique constraints no declaration covers.
	UniqueDrops []string `json:"unique_drops"`
}

// Drifted returns the names of tables that are not ok, sorted.
func (r *SchemaReport) Drifted() []string {
	var names []string
	for name, t := range r.Tables {
		if t.Status != StatusOK {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CheckSchema compares every declared table with the live database. It reads
// the same information the migration planner does but never fails on a
// single table; per-table problems are reported instead.
func CheckSchema(db *gorm.DB, defs []*schema.Definition) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	dialect, err := migrate.DialectFor(db)
	if err != nil {
		return nil, err
	}

	report := &SchemaReport{
		Dialect: dialect.Name,
		Matched: true,
		Tables:  make(map[string]TableReport, len(defs)),
		Errors:  []string{},
	}

	backups, err := database.ListBackupTables(db)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup tables: %w", err)
	}
	report.Backups = backups
	if len(backups) > 0 {
		report.Matched = false
	}

	for _, def := range defs {
		tbl := TableReport{Status: StatusOK, Differences: []string{}, UniqueDrops: []string{}}

		if !db.Migrator().HasTable(def.TableName) {
			tbl.Status = StatusMissing
			report.Tables[def.TableName] = tbl
			report.Matched = false
			continue
		}

		live, err := database.GetTableColumns(db, def.TableName)
		if err != nil {
			tbl.Status = StatusError
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", def.TableName, err))
			report.Tables[def.TableName] = tbl
			report.Matched = false
			continue
		}

		diff := schema.CompareSchemas(live, def, dialect.Name)
		tbl.Differences = diff.Differences
		if diff.NeedsMigration {
			tbl.Status = StatusDrift
		}

		drops, err := migrate.UniqueDrops(db, dialect, def)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect unique constraints of %s: %v", def.TableName, err))
		}
		for _, d := range drops {
			tbl.UniqueDrops = append(tbl.UniqueDrops, d.Constraint)
			tbl.Status = StatusDrift
		}

		if tbl.Status != StatusOK {
			report.Matched = false
		}
		report.Tables[def.TableName] = tbl
	}

	return report, nil
}
