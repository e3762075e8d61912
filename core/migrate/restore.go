package migrate

import (
	"fmt"

	"webdesk/core/database"
	"webdesk/core/metrics"
	"webdesk/core/schema"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Row is one backup row keyed by column name.
type Row = map[string]any

// RestoreStats counts the rows carried through a recreation.
type RestoreStats struct {
	Restored int `json:"restored"`
	Failed   int `json:"failed"`
}

// carriedColumns lists the columns present both in the old live schema and the
// new definition, in the definition's column order.
func carriedColumns(old schema.LiveSchema, def *schema.Definition) []string {
	var cols []string
	for _, c := range def.Columns() {
		if _, ok := old.Column(c); ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// orderColumns picks the old primary key for a stable read order.
func orderColumns(old schema.LiveSchema, carried []string) []string {
	var keys []string
	for _, c := range old.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	if len(keys) == 0 && len(carried) > 0 {
		keys = carried[:1]
	}
	return keys
}

// restoreTable streams a backup table into its recreated table chunk by chunk.
func (e *Executor) restoreTable(tx *gorm.DB, tm TableMigration) (RestoreStats, error) {
	var stats RestoreStats

	table := tm.Table
	backup := database.BackupTableName(table)
	cols := carriedColumns(tm.CurrentSchema, tm.Definition)
	if len(cols) == 0 {
		e.logger.Warn("No columns carried over, table restored empty", zap.String("table", table))
		return stats, nil
	}

	q := func(name string) string { return database.Quote(tx, name) }
	order := orderColumns(tm.CurrentSchema, cols)
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT ? OFFSET ?",
		quoteList(q, cols), q(backup), quoteList(q, order))

	chunk := e.cfg.chunkSize()
	for offset := 0; ; offset += chunk {
		var rows []Row
		if err := tx.Raw(query, chunk, offset).Scan(&rows).Error; err != nil {
			return stats, fmt.Errorf("failed to read backup %s: %w", backup, err)
		}
		if len(rows) == 0 {
			break
		}

		res := BatchThenEach(rows, GormCheckpoint(tx), func(sp *gorm.DB, batch []Row) error {
			return sp.Table(table).Clauses(e.dialect.InsertIgnore()).Create(&batch).Error
		})
		stats.Restored += res.Succeeded
		stats.Failed += len(res.Failed)
		if res.Fallback {
			e.logger.Debug("Batch insert failed, restored rows one by one",
				zap.String("table", table), zap.Int("offset", offset), zap.Int("failed", len(res.Failed)))
		}
		for _, f := range res.Failed {
			e.logger.Debug("Row dropped during restore", zap.String("table", table), zap.Error(f.Err))
		}

		if len(rows) < chunk {
			break
		}
	}

	metrics.RestoreRowsTotal.WithLabelValues(table, "restored").Add(float64(stats.Restored))
	metrics.RestoreRowsTotal.WithLabelValues(table, "failed").Add(float64(stats.Failed))
	return stats, nil
}

// sweepDanglingRows deletes rows of a sqlite table whose foreign keys point
// nowhere. sqlite cannot re-enable enforcement inside the run's transaction, so
// this stands in for the per-row foreign key failures of other engines.
func sweepDanglingRows(tx *gorm.DB, table string) (int, error) {
	type violation struct {
		Table  string
		Rowid  *int64
		Parent string
		Fkid   int
	}
	var found []violation
	if err := tx.Raw(fmt.Sprintf("PRAGMA foreign_key_check('%s')", table)).Scan(&found).Error; err != nil {
		return 0, fmt.Errorf("failed to check foreign keys of %s: %w", table, err)
	}

	seen := map[int64]bool{}
	for _, v := range found {
		if v.Rowid == nil || seen[*v.Rowid] {
			continue
		}
		seen[*v.Rowid] = true
		stmt := fmt.Sprintf("DELETE FROM %s WHERE rowid = ?", database.Quote(tx, table))
		if err := tx.Exec(stmt, *v.Rowid).Error; err != nil {
			return 0, fmt.Errorf("failed to delete dangling row %d of %s: %w", *v.Rowid, table, err)
		}
	}
	return len(seen), nil
}
