package migrate

import (
	"fmt"
	"strings"

	"webdesk/core/database"
	"webdesk/core/schema"

	"gorm.io/gorm"
)

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS for a definition.
// Foreign keys are emitted as table constraints since mysql ignores inline REFERENCES.
func CreateTableSQL(db *gorm.DB, d Dialect, def *schema.Definition) string {
	q := func(name string) string { return database.Quote(db, name) }

	pks := def.PrimaryKeys()
	inlinePK := len(pks) == 1

	var lines []string
	for _, f := range def.Fields {
		lines = append(lines, "  "+columnSQL(q, d, f, inlinePK))
	}
	if def.HasTimestamps() {
		for _, col := range []string{schema.CreatedAtColumn, schema.UpdatedAtColumn} {
			if _, declared := def.Field(col); !declared {
				lines = append(lines, fmt.Sprintf("  %s %s", q(col), d.ColumnType(schema.TypeDate)))
			}
		}
	}
	if len(pks) > 1 {
		lines = append(lines, fmt.Sprintf("  PRIMARY KEY (%s)", quoteList(q, pks)))
	}
	for _, f := range def.Fields {
		ref := f.Spec.References
		if ref == nil || ref.Table == "" {
			continue
		}
		key := ref.Key
		if key == "" {
			key = "id"
		}
		lines = append(lines, fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s (%s)", q(f.Name), q(ref.Table), q(key)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n%s\n)", q(def.TableName), strings.Join(lines, ",\n"))
	if d.Name == database.DriverMySQL && def.Options.Comment != "" {
		fmt.Fprintf(&b, " COMMENT=%s", d.Literal(def.Options.Comment))
	}
	return b.String()
}

func columnSQL(q func(string) string, d Dialect, f schema.Field, inlinePK bool) string {
	spec := f.Spec
	parts := []string{q(f.Name)}

	autoPK := spec.PrimaryKey && spec.AutoIncrement && inlinePK
	switch {
	case autoPK && d.Name == database.DriverPostgres:
		if schema.NormalizeType(spec.Type, d.Name) == schema.TypeBigInt {
			parts = append(parts, "BIGSERIAL PRIMARY KEY")
		} else {
			parts = append(parts, "SERIAL PRIMARY KEY")
		}
		return strings.Join(parts, " ")
	case autoPK && d.Name == database.DriverSQLite:
		// Only the exact INTEGER type aliases the rowid.
		return q(f.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT"
	case autoPK:
		return strings.Join(append(parts, d.ColumnType(spec.Type), "NOT NULL AUTO_INCREMENT PRIMARY KEY"), " ")
	}

	parts = append(parts, d.ColumnType(spec.Type))
	if !spec.Nullable() {
		parts = append(parts, "NOT NULL")
	}
	if spec.Default != nil {
		parts = append(parts, "DEFAULT "+d.Literal(spec.Default))
	}
	if spec.PrimaryKey && inlinePK {
		parts = append(parts, "PRIMARY KEY")
	}
	if spec.Unique && !spec.PrimaryKey {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

// IndexName returns the declared index name or a deterministic default.
func IndexName(table string, idx schema.Index) string {
	if idx.Name != "" {
		return idx.Name
	}
	return "idx_" + table + "_" + strings.Join(idx.Fields, "_")
}

// CreateIndexSQL renders CREATE [UNIQUE] INDEX for a declared index.
func CreateIndexSQL(db *gorm.DB, table string, idx schema.Index) string {
	q := func(name string) string { return database.Quote(db, name) }
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, q(IndexName(table, idx)), q(table), quoteList(q, idx.Fields))
}

// createTable creates a table and its declared indexes. Indexes that already
// exist by name are skipped, which also absorbs duplicates from merged layers.
func createTable(tx *gorm.DB, d Dialect, def *schema.Definition) error {
	if err := tx.Exec(CreateTableSQL(tx, d, def)).Error; err != nil {
		return fmt.Errorf("failed to create table %s: %w", def.TableName, err)
	}
	if d.Name == database.DriverPostgres && def.Options.Comment != "" {
		stmt := fmt.Sprintf("COMMENT ON TABLE %s IS %s", database.Quote(tx, def.TableName), d.Literal(def.Options.Comment))
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to comment table %s: %w", def.TableName, err)
		}
	}
	return ensureIndexes(tx, def)
}

func ensureIndexes(tx *gorm.DB, def *schema.Definition) error {
	for _, idx := range def.Options.Indexes {
		name := IndexName(def.TableName, idx)
		if tx.Migrator().HasIndex(def.TableName, name) {
			continue
		}
		if err := tx.Exec(CreateIndexSQL(tx, def.TableName, idx)).Error; err != nil {
			return fmt.Errorf("failed to create index %s on %s: %w", name, def.TableName, err)
		}
	}
	return nil
}

func quoteList(q func(string) string, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = q(n)
	}
	return strings.Join(quoted, ", ")
}
