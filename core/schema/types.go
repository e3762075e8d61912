package schema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical type keys used to compare declared and live column types.
const (
	TypeString   = "STRING"
	TypeText     = "TEXT"
	TypeInteger  = "INTEGER"
	TypeBigInt   = "BIGINT"
	TypeSmallInt = "SMALLINT"
	TypeBoolean  = "BOOLEAN"
	TypeDate     = "DATE"
	TypeJSON     = "JSON"
	TypeFloat    = "FLOAT"
)

// Implicit audit columns added to every table that keeps timestamps.
const (
	CreatedAtColumn = "created_at"
	UpdatedAtColumn = "updated_at"
)

// Reference points a field at the key column of another table.
type Reference struct {
	Table string `yaml:"table" json:"table"`
	Key   string `yaml:"key" json:"key"`
}

// FieldSpec declares a single column.
type FieldSpec struct {
	// Type is a canonical type key (STRING, INTEGER, ...). Unknown keys are kept verbatim.
	Type string `yaml:"type" json:"type"`
	// AllowNull defaults to true unless the field is a primary key.
	AllowNull     *bool      `yaml:"allowNull" json:"allowNull,omitempty"`
	PrimaryKey    bool       `yaml:"primaryKey" json:"primaryKey,omitempty"`
	AutoIncrement bool       `yaml:"autoIncrement" json:"autoIncrement,omitempty"`
	Unique        bool       `yaml:"unique" json:"unique,omitempty"`
	Default       any        `yaml:"default" json:"default,omitempty"`
	References    *Reference `yaml:"references" json:"references,omitempty"`
}

// Nullable resolves AllowNull, forcing primary keys to NOT NULL.
func (f FieldSpec) Nullable() bool {
	if f.PrimaryKey {
		return false
	}
	if f.AllowNull == nil {
		return true
	}
	return *f.AllowNull
}

// Field is a named FieldSpec. Definitions keep fields in declaration order.
type Field struct {
	Name string
	Spec FieldSpec
}

// FieldList is an ordered field map. In YAML it is written as a mapping
// and decoded preserving key order.
type FieldList []Field

// UnmarshalYAML decodes a YAML mapping into an ordered list.
func (l *FieldList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("fields must be a mapping, got line %d", node.Line)
	}
	out := make(FieldList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var spec FieldSpec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return fmt.Errorf("field %s: %w", node.Content[i].Value, err)
		}
		out = append(out, Field{Name: node.Content[i].Value, Spec: spec})
	}
	*l = out
	return nil
}

// Index declares a (possibly composite) index.
type Index struct {
	Name   string   `yaml:"name" json:"name"`
	Fields []string `yaml:"fields" json:"fields"`
	Unique bool     `yaml:"unique" json:"unique,omitempty"`
}

// Options holds table-level settings.
type Options struct {
	// Timestamps adds created_at/updated_at when nil or true.
	Timestamps *bool   `yaml:"timestamps" json:"timestamps,omitempty"`
	Indexes    []Index `yaml:"indexes" json:"indexes,omitempty"`
	Comment    string  `yaml:"comment" json:"comment,omitempty"`
}

// Definition is one model declaration, either as contributed by a layer or
// after merging all layers.
type Definition struct {
	Name      string    `yaml:"name"`
	TableName string    `yaml:"tableName"`
	Fields    FieldList `yaml:"fields"`
	Options   Options   `yaml:"options"`
}

// Field looks up a field by name (case-insensitive).
func (d *Definition) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Spec, true
		}
	}
	return FieldSpec{}, false
}

// PrimaryKeys returns the primary key columns in declaration order.
func (d *Definition) PrimaryKeys() []string {
	var keys []string
	for _, f := range d.Fields {
		if f.Spec.PrimaryKey {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// PrimaryKey returns the single primary key column, or "" for composite or missing keys.
func (d *Definition) PrimaryKey() string {
	keys := d.PrimaryKeys()
	if len(keys) != 1 {
		return ""
	}
	return keys[0]
}

// AutoIncrementKey returns the auto-incrementing primary key column if any.
func (d *Definition) AutoIncrementKey() string {
	for _, f := range d.Fields {
		if f.Spec.PrimaryKey && f.Spec.AutoIncrement {
			return f.Name
		}
	}
	return ""
}

// HasTimestamps reports whether the audit columns are part of the table.
func (d *Definition) HasTimestamps() bool {
	return d.Options.Timestamps == nil || *d.Options.Timestamps
}

// Columns lists every physical column, audit columns last.
func (d *Definition) Columns() []string {
	cols := make([]string, 0, len(d.Fields)+2)
	for _, f := range d.Fields {
		cols = append(cols, f.Name)
	}
	if d.HasTimestamps() {
		if _, ok := d.Field(CreatedAtColumn); !ok {
			cols = append(cols, CreatedAtColumn)
		}
		if _, ok := d.Field(UpdatedAtColumn); !ok {
			cols = append(cols, UpdatedAtColumn)
		}
	}
	return cols
}

// Dependencies returns the distinct tables this definition references, excluding itself.
func (d *Definition) Dependencies() []string {
	seen := map[string]struct{}{}
	var deps []string
	for _, f := range d.Fields {
		ref := f.Spec.References
		if ref == nil || ref.Table == "" || ref.Table == d.TableName {
			continue
		}
		if _, ok := seen[ref.Table]; ok {
			continue
		}
		seen[ref.Table] = struct{}{}
		deps = append(deps, ref.Table)
	}
	return deps
}

// UniqueColumnSets returns every column set the definition declares unique:
// single unique fields and unique indexes.
func (d *Definition) UniqueColumnSets() [][]string {
	var sets [][]string
	for _, f := range d.Fields {
		if f.Spec.Unique {
			sets = append(sets, []string{f.Name})
		}
	}
	for _, idx := range d.Options.Indexes {
		if idx.Unique {
			sets = append(sets, idx.Fields)
		}
	}
	return sets
}

// Clone returns a deep copy so merging never mutates layer contributions.
func (d *Definition) Clone() *Definition {
	c := *d
	c.Fields = append(FieldList(nil), d.Fields...)
	c.Options.Indexes = append([]Index(nil), d.Options.Indexes...)
	return &c
}

// LiveColumn is a column as reported by the database catalog.
type LiveColumn struct {
	Name          string
	Type          string
	AllowNull     bool
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
}

// LiveSchema is the introspected shape of one table.
type LiveSchema struct {
	Table   string
	Columns []LiveColumn
}

// Column looks up a live column by name (case-insensitive).
func (s LiveSchema) Column(name string) (LiveColumn, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return LiveColumn{}, false
}

// ColumnNames lists live column names in catalog order.
func (s LiveSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
