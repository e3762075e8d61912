package migrate

import (
	"fmt"
	"strings"

	"webdesk/core/database"
	"webdesk/core/schema"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dialect describes what a storage engine can do during a migration run.
type Dialect struct {
	Name string
	// TransactionalDDL allows the whole run to sit in one transaction.
	TransactionalDDL bool
	// CascadeDrop supports DROP TABLE ... CASCADE.
	CascadeDrop bool
	// UniqueSync can drop individual unique constraints in place.
	UniqueSync bool
}

var dialects = map[string]Dialect{
	database.DriverPostgres: {Name: database.DriverPostgres, TransactionalDDL: true, CascadeDrop: true, UniqueSync: true},
	database.DriverMySQL:    {Name: database.DriverMySQL, TransactionalDDL: false, CascadeDrop: false, UniqueSync: true},
	database.DriverSQLite:   {Name: database.DriverSQLite, TransactionalDDL: true, CascadeDrop: false, UniqueSync: false},
}

// DialectFor resolves the dialect of an open connection.
func DialectFor(db *gorm.DB) (Dialect, error) {
	d, ok := dialects[db.Dialector.Name()]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: %s", ErrUnsupportedDialect, db.Dialector.Name())
	}
	return d, nil
}

// ColumnType maps a canonical type key onto the native type used in DDL.
// Every native type normalizes back to the same canonical key.
func (d Dialect) ColumnType(canonical string) string {
	switch strings.ToUpper(canonical) {
	case schema.TypeString:
		return "VARCHAR(255)"
	case schema.TypeText:
		return "TEXT"
	case schema.TypeInteger:
		if d.Name == database.DriverMySQL {
			return "INT"
		}
		return "INTEGER"
	case schema.TypeBigInt:
		return "BIGINT"
	case schema.TypeSmallInt:
		return "SMALLINT"
	case schema.TypeBoolean:
		if d.Name == database.DriverMySQL {
			return "TINYINT(1)"
		}
		return "BOOLEAN"
	case schema.TypeDate:
		if d.Name == database.DriverPostgres {
			return "TIMESTAMP WITH TIME ZONE"
		}
		return "DATETIME"
	case schema.TypeJSON:
		if d.Name == database.DriverPostgres {
			return "JSONB"
		}
		return "JSON"
	case schema.TypeFloat:
		switch d.Name {
		case database.DriverPostgres:
			return "DOUBLE PRECISION"
		case database.DriverMySQL:
			return "DOUBLE"
		default:
			return "REAL"
		}
	default:
		return canonical
	}
}

// InsertIgnore returns the clause that turns duplicate-key conflicts into no-ops.
func (d Dialect) InsertIgnore() clause.Expression {
	if d.Name == database.DriverMySQL {
		return clause.Insert{Modifier: "IGNORE"}
	}
	return clause.OnConflict{DoNothing: true}
}

// Literal renders a declared default value.
func (d Dialect) Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if d.Name == database.DriverPostgres {
			if val {
				return "TRUE"
			}
			return "FALSE"
		}
		if val {
			return "1"
		}
		return "0"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", val)
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", val), "'", "''") + "'"
	}
}

// SuspendForeignKeys turns off foreign key enforcement on the pinned connection.
// Postgres relies on cascading drops instead.
func (d Dialect) SuspendForeignKeys(conn *gorm.DB) error {
	switch d.Name {
	case database.DriverMySQL:
		return conn.Exec("SET FOREIGN_KEY_CHECKS = 0").Error
	case database.DriverSQLite:
		return conn.Exec("PRAGMA foreign_keys = OFF").Error
	}
	return nil
}

// ResumeForeignKeys turns foreign key enforcement back on.
func (d Dialect) ResumeForeignKeys(conn *gorm.DB) error {
	switch d.Name {
	case database.DriverMySQL:
		return conn.Exec("SET FOREIGN_KEY_CHECKS = 1").Error
	case database.DriverSQLite:
		return conn.Exec("PRAGMA foreign_keys = ON").Error
	}
	return nil
}
