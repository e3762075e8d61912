package seed

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"webdesk/core/database"
	"webdesk/core/metrics"
	"webdesk/core/schema"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyPlan executes the plan inside one transaction. Each action runs in its
// own savepoint so a failing action is logged and skipped without undoing the
// others.
func ApplyPlan(ctx context.Context, db *gorm.DB, plan *Plan, logger *zap.Logger) (Result, error) {
	var result Result
	if plan == nil || len(plan.Actions) == 0 {
		return result, nil
	}
	driver := db.Dialector.Name()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range plan.Actions {
			err := tx.Transaction(func(sp *gorm.DB) error {
				return applyAction(sp, driver, a)
			})
			if err != nil {
				result.Failed++
				metrics.SeedActionsTotal.WithLabelValues(string(a.Type), "failed").Inc()
				logger.Warn("Seed action failed",
					zap.String("action", string(a.Type)), zap.String("layer", a.Layer),
					zap.String("table", a.Table), zap.Int("seed_id", a.SeedID), zap.Error(err))
				continue
			}
			result.Applied++
			metrics.SeedActionsTotal.WithLabelValues(string(a.Type), "applied").Inc()
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to apply seeds: %w", err)
	}
	return result, nil
}

func applyAction(tx *gorm.DB, driver string, a Action) error {
	now := time.Now().UTC()
	switch a.Type {
	case ActionCreate:
		return createWithMapping(tx, driver, a, now)
	case ActionRecreate:
		if err := tx.Delete(&DefaultValue{}, a.MappingID).Error; err != nil {
			return err
		}
		return createWithMapping(tx, driver, a, now)
	case ActionUpdate:
		values := make(map[string]any, len(a.Values)+1)
		for k, v := range a.Values {
			values[k] = v
		}
		if a.Timestamps {
			values[schema.UpdatedAtColumn] = now
		}
		res := tx.Table(a.Table).Where(keyEq(a.PrimaryKey, a.RecordID)).Updates(values)
		if res.Error != nil {
			return res.Error
		}
		return tx.Model(&DefaultValue{ID: a.MappingID}).Update("updated_at", now).Error
	case ActionDelete:
		if a.PrimaryKey != "" {
			stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", database.Quote(tx, a.Table), database.Quote(tx, a.PrimaryKey))
			if err := tx.Exec(stmt, a.RecordID).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&DefaultValue{}, a.MappingID).Error
	default:
		return fmt.Errorf("unknown seed action %q", a.Type)
	}
}

func createWithMapping(tx *gorm.DB, driver string, a Action, now time.Time) error {
	values := make(map[string]any, len(a.Values)+2)
	for k, v := range a.Values {
		values[k] = v
	}
	if a.Timestamps {
		if _, ok := values[schema.CreatedAtColumn]; !ok {
			values[schema.CreatedAtColumn] = now
		}
		if _, ok := values[schema.UpdatedAtColumn]; !ok {
			values[schema.UpdatedAtColumn] = now
		}
	}
	id, err := insertRecord(tx, driver, a.Table, a.PrimaryKey, values)
	if err != nil {
		return err
	}
	return tx.Create(&DefaultValue{
		Level:          a.Layer,
		Table:          a.Table,
		DefaultValueID: a.SeedID,
		RecordID:       id,
	}).Error
}

// insertRecord inserts values and returns the generated primary key.
func insertRecord(tx *gorm.DB, driver, table, pk string, values map[string]any) (int, error) {
	cols := make([]string, 0, len(values))
	for k := range values {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = database.Quote(tx, c)
		args[i] = values[c]
	}

	var stmt string
	switch {
	case len(cols) > 0:
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", database.Quote(tx, table),
			strings.Join(quoted, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	case driver == database.DriverMySQL:
		stmt = fmt.Sprintf("INSERT INTO %s () VALUES ()", database.Quote(tx, table))
	default:
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", database.Quote(tx, table))
	}

	var id int64
	if driver == database.DriverMySQL {
		if err := tx.Exec(stmt, args...).Error; err != nil {
			return 0, err
		}
		if err := tx.Raw("SELECT LAST_INSERT_ID()").Row().Scan(&id); err != nil {
			return 0, err
		}
		return int(id), nil
	}
	stmt += " RETURNING " + database.Quote(tx, pk)
	if err := tx.Raw(stmt, args...).Row().Scan(&id); err != nil {
		return 0, err
	}
	return int(id), nil
}

func keyEq(pk string, id int) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: pk}, Value: id}
}
