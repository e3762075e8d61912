package database

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"webdesk/core/schema"

	"gorm.io/gorm"
)

// BackupSuffix names the transient copy taken of a table before it is recreated.
const BackupSuffix = "_temp_backup"

// ErrTableNotFound is returned when the catalog has no columns for a table.
var ErrTableNotFound = errors.New("table not found")

// ColumnInfo matches the output of SHOW COLUMNS.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

type sqliteColumn struct {
	Cid       int
	Name      string
	Type      string
	Notnull   int
	DfltValue *string
	Pk        int
}

type sqliteIndex struct {
	Seq     int
	Name    string
	Unique  int
	Origin  string
	Partial int
}

type sqliteIndexColumn struct {
	Seqno int
	Cid   int
	Name  string
}

type postgresColumn struct {
	ColumnName    string
	DataType      string
	IsNullable    string
	ColumnDefault *string
	IsIdentity    string
	IsPrimary     bool
}

// UniqueConstraint is a live unique constraint (or unique index on mysql).
type UniqueConstraint struct {
	Name    string
	Columns []string
}

// ForeignKey is a live foreign key as reported by the postgres catalog.
type ForeignKey struct {
	Name       string
	Table      string
	RefTable   string
	Definition string
}

// fresh returns a handle on the same connection with no statement state, so
// scans into inspector row types never leak a table name to the caller.
func fresh(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true})
}

// GetTableColumns retrieves the column definitions for a given table.
func GetTableColumns(db *gorm.DB, tableName string) (schema.LiveSchema, error) {
	if err := schema.ValidateIdentifier(tableName); err != nil {
		return schema.LiveSchema{}, err
	}
	db = fresh(db)

	var (
		live schema.LiveSchema
		err  error
	)
	switch db.Dialector.Name() {
	case DriverSQLite:
		live, err = sqliteColumns(db, tableName)
	case DriverPostgres:
		live, err = postgresColumns(db, tableName)
	default:
		live, err = mysqlColumns(db, tableName)
	}
	if err != nil {
		return schema.LiveSchema{}, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	if len(live.Columns) == 0 {
		return live, fmt.Errorf("%w: %s", ErrTableNotFound, tableName)
	}
	return live, nil
}

func sqliteColumns(db *gorm.DB, tableName string) (schema.LiveSchema, error) {
	live := schema.LiveSchema{Table: tableName}

	var cols []sqliteColumn
	if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&cols).Error; err != nil {
		return live, err
	}

	var ddl string
	if len(cols) > 0 {
		if err := db.Raw("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", tableName).Row().Scan(&ddl); err != nil {
			return live, err
		}
	}
	autoIncrement := strings.Contains(strings.ToUpper(ddl), "AUTOINCREMENT")

	uniques, err := sqliteUniqueColumns(db, tableName)
	if err != nil {
		return live, err
	}

	for _, col := range cols {
		name := strings.ToLower(col.Name)
		pk := col.Pk > 0
		live.Columns = append(live.Columns, schema.LiveColumn{
			Name:          name,
			Type:          strings.ToLower(col.Type),
			AllowNull:     col.Notnull == 0 && !pk,
			PrimaryKey:    pk,
			AutoIncrement: pk && autoIncrement,
			Unique:        uniques[name],
		})
	}
	return live, nil
}

// sqliteUniqueColumns reports columns covered by a single-column unique index.
func sqliteUniqueColumns(db *gorm.DB, tableName string) (map[string]bool, error) {
	var indexes []sqliteIndex
	if err := db.Raw(fmt.Sprintf("PRAGMA index_list('%s')", tableName)).Scan(&indexes).Error; err != nil {
		return nil, err
	}

	out := map[string]bool{}
	for _, idx := range indexes {
		if idx.Unique == 0 || idx.Origin == "pk" {
			continue
		}
		var cols []sqliteIndexColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA index_info('%s')", strings.ReplaceAll(idx.Name, "'", "''"))).Scan(&cols).Error; err != nil {
			return nil, err
		}
		if len(cols) == 1 {
			out[strings.ToLower(cols[0].Name)] = true
		}
	}
	return out, nil
}

func mysqlColumns(db *gorm.DB, tableName string) (schema.LiveSchema, error) {
	live := schema.LiveSchema{Table: tableName}

	var columns []ColumnInfo
	if err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error; err != nil {
		return live, err
	}
	for _, col := range columns {
		live.Columns = append(live.Columns, schema.LiveColumn{
			Name:          strings.ToLower(col.Field),
			Type:          strings.ToLower(col.Type),
			AllowNull:     strings.EqualFold(col.Null, "YES"),
			PrimaryKey:    col.Key == "PRI",
			AutoIncrement: strings.Contains(strings.ToLower(col.Extra), "auto_increment"),
			Unique:        col.Key == "UNI",
		})
	}
	return live, nil
}

const postgresColumnsQuery = `SELECT c.column_name, c.data_type, c.is_nullable, c.column_default, c.is_identity,
  EXISTS (
    SELECT 1 FROM information_schema.table_constraints tc
    JOIN information_schema.key_column_usage k
      ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema AND tc.table_name = k.table_name
    WHERE tc.table_schema = c.table_schema AND tc.table_name = c.table_name
      AND tc.constraint_type = 'PRIMARY KEY' AND k.column_name = c.column_name
  ) AS is_primary
FROM information_schema.columns c
WHERE c.table_schema = current_schema() AND c.table_name = ?
ORDER BY c.ordinal_position`

func postgresColumns(db *gorm.DB, tableName string) (schema.LiveSchema, error) {
	live := schema.LiveSchema{Table: tableName}

	var cols []postgresColumn
	if err := db.Raw(postgresColumnsQuery, tableName).Scan(&cols).Error; err != nil {
		return live, err
	}

	uniques, err := ListUniqueConstraints(db, tableName)
	if err != nil {
		return live, err
	}
	single := map[string]bool{}
	for _, u := range uniques {
		if len(u.Columns) == 1 {
			single[u.Columns[0]] = true
		}
	}

	for _, col := range cols {
		name := strings.ToLower(col.ColumnName)
		serial := col.ColumnDefault != nil && strings.HasPrefix(*col.ColumnDefault, "nextval(")
		live.Columns = append(live.Columns, schema.LiveColumn{
			Name:          name,
			Type:          strings.ToLower(col.DataType),
			AllowNull:     strings.EqualFold(col.IsNullable, "YES"),
			PrimaryKey:    col.IsPrimary,
			AutoIncrement: serial || strings.EqualFold(col.IsIdentity, "YES"),
			Unique:        single[name],
		})
	}
	return live, nil
}

type constraintColumn struct {
	ConstraintName string
	ColumnName     string
}

// ListUniqueConstraints lists unique constraints of a table grouped by name.
// The primary key is excluded. On sqlite it returns nothing, since constraint
// changes there always go through a full table recreation.
func ListUniqueConstraints(db *gorm.DB, tableName string) ([]UniqueConstraint, error) {
	db = fresh(db)
	var (
		rows []constraintColumn
		err  error
	)
	switch db.Dialector.Name() {
	case DriverSQLite:
		return nil, nil
	case DriverPostgres:
		err = db.Raw(`SELECT tc.constraint_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name
WHERE tc.table_schema = current_schema() AND tc.table_name = ? AND tc.constraint_type = 'UNIQUE'
ORDER BY tc.constraint_name, kcu.ordinal_position`, tableName).Scan(&rows).Error
	default:
		err = db.Raw(`SELECT INDEX_NAME AS constraint_name, COLUMN_NAME AS column_name
FROM information_schema.STATISTICS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND NON_UNIQUE = 0 AND INDEX_NAME <> 'PRIMARY'
ORDER BY INDEX_NAME, SEQ_IN_INDEX`, tableName).Scan(&rows).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list unique constraints for table %s: %w", tableName, err)
	}

	var out []UniqueConstraint
	for _, r := range rows {
		col := strings.ToLower(r.ColumnName)
		if n := len(out); n > 0 && out[n-1].Name == r.ConstraintName {
			out[n-1].Columns = append(out[n-1].Columns, col)
			continue
		}
		out = append(out, UniqueConstraint{Name: r.ConstraintName, Columns: []string{col}})
	}
	return out, nil
}

// DropUniqueConstraint removes a unique constraint by name.
func DropUniqueConstraint(db *gorm.DB, tableName, name string) error {
	var stmt string
	switch db.Dialector.Name() {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		stmt = fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", Quote(db, tableName), Quote(db, name))
	default:
		stmt = fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", Quote(db, tableName), Quote(db, name))
	}
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to drop unique constraint %s on %s: %w", name, tableName, err)
	}
	return nil
}

// ListForeignKeys lists foreign keys in the current postgres schema. Other
// dialects return nothing.
func ListForeignKeys(db *gorm.DB) ([]ForeignKey, error) {
	if db.Dialector.Name() != DriverPostgres {
		return nil, nil
	}
	db = fresh(db)
	var fks []ForeignKey
	err := db.Raw(`SELECT con.conname AS name, cl.relname AS "table", ref.relname AS ref_table,
  pg_get_constraintdef(con.oid) AS definition
FROM pg_constraint con
JOIN pg_class cl ON cl.oid = con.conrelid
JOIN pg_class ref ON ref.oid = con.confrelid
JOIN pg_namespace ns ON ns.oid = cl.relnamespace
WHERE con.contype = 'f' AND ns.nspname = current_schema()
ORDER BY cl.relname, con.conname`).Scan(&fks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys: %w", err)
	}
	return fks, nil
}

// ListTables returns every table in the current database, sorted.
func ListTables(db *gorm.DB) ([]string, error) {
	tables, err := db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	out := tables[:0]
	for _, t := range tables {
		if strings.HasPrefix(t, "sqlite_") {
			continue
		}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// ListBackupTables returns the backup tables currently present.
func ListBackupTables(db *gorm.DB) ([]string, error) {
	tables, err := ListTables(db)
	if err != nil {
		return nil, err
	}
	var backups []string
	for _, t := range tables {
		if strings.HasSuffix(t, BackupSuffix) {
			backups = append(backups, t)
		}
	}
	return backups, nil
}

// BackupTableName returns the backup table name for a table.
func BackupTableName(tableName string) string {
	return tableName + BackupSuffix
}

// SourceTableName strips the backup suffix.
func SourceTableName(backup string) string {
	return strings.TrimSuffix(backup, BackupSuffix)
}
