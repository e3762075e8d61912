package schema

import (
	"fmt"
	"strings"
)

// Diff is the outcome of comparing one live table against its definition.
type Diff struct {
	NeedsMigration bool     `json:"needs_migration"`
	Differences    []string `json:"differences"`
}

// CompareSchemas diffs a live table against the desired definition.
// Added and changed fields come first in declaration order, removed fields
// last in catalog order. The audit timestamp columns are never reported as removed.
func CompareSchemas(live LiveSchema, desired *Definition, dialect string) Diff {
	diff := Diff{Differences: []string{}}

	for _, f := range desired.Fields {
		col, ok := live.Column(f.Name)
		if !ok {
			diff.Differences = append(diff.Differences, fmt.Sprintf("added field %q", f.Name))
			diff.NeedsMigration = true
			continue
		}

		wantType := NormalizeType(f.Spec.Type, dialect)
		gotType := NormalizeType(col.Type, dialect)
		if wantType != gotType {
			diff.Differences = append(diff.Differences,
				fmt.Sprintf("field %q: type expected %s, got %s", f.Name, wantType, gotType))
			diff.NeedsMigration = true
		}

		wantNull := f.Spec.Nullable()
		gotNull := col.AllowNull && !col.PrimaryKey
		if wantNull != gotNull {
			diff.Differences = append(diff.Differences,
				fmt.Sprintf("field %q: allowNull expected %t, got %t", f.Name, wantNull, gotNull))
			diff.NeedsMigration = true
		}

		if f.Spec.PrimaryKey != col.PrimaryKey {
			diff.Differences = append(diff.Differences,
				fmt.Sprintf("field %q: primaryKey expected %t, got %t", f.Name, f.Spec.PrimaryKey, col.PrimaryKey))
			diff.NeedsMigration = true
		}
	}

	for _, col := range live.Columns {
		if isAuditColumn(col.Name) {
			continue
		}
		if _, ok := desired.Field(col.Name); ok {
			continue
		}
		diff.Differences = append(diff.Differences, fmt.Sprintf("removed field %q", col.Name))
		diff.NeedsMigration = true
	}

	return diff
}

func isAuditColumn(name string) bool {
	return strings.EqualFold(name, CreatedAtColumn) || strings.EqualFold(name, UpdatedAtColumn)
}
