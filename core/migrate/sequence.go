package migrate

import (
	"fmt"

	"webdesk/core/database"
	"webdesk/core/schema"

	"gorm.io/gorm"
)

// Resequence moves the auto-increment counter of a table past its current
// maximum key so the next insert cannot collide with a restored row.
func Resequence(tx *gorm.DB, d Dialect, def *schema.Definition) error {
	key := def.AutoIncrementKey()
	if key == "" {
		return nil
	}
	table := def.TableName
	qt, qk := database.Quote(tx, table), database.Quote(tx, key)

	var err error
	switch d.Name {
	case database.DriverPostgres:
		err = tx.Exec(fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence(?, ?), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)", qk, qt),
			table, key).Error
	case database.DriverMySQL:
		var next int64
		if err = tx.Raw(fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s", qk, qt)).Row().Scan(&next); err == nil {
			err = tx.Exec(fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", qt, next)).Error
		}
	case database.DriverSQLite:
		var maxID int64
		if err = tx.Raw(fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", qk, qt)).Row().Scan(&maxID); err != nil {
			break
		}
		res := tx.Exec("UPDATE sqlite_sequence SET seq = ? WHERE name = ?", maxID, table)
		if err = res.Error; err == nil && res.RowsAffected == 0 && maxID > 0 {
			err = tx.Exec("INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)", table, maxID).Error
		}
	}
	if err != nil {
		return fmt.Errorf("failed to resequence %s: %w", table, err)
	}
	return nil
}
