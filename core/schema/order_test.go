package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tableNames(defs []*Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.TableName
	}
	return names
}

func refField(name, table string) Field {
	return Field{Name: name, Spec: FieldSpec{Type: TypeInteger, References: &Reference{Table: table, Key: "id"}}}
}

func TestSortByDependency(t *testing.T) {
	id := Field{Name: "id", Spec: FieldSpec{Type: TypeInteger, PrimaryKey: true}}
	windows := &Definition{TableName: "windows", Fields: FieldList{id, refField("app_id", "apps"), refField("user_id", "users")}}
	apps := &Definition{TableName: "apps", Fields: FieldList{id}}
	users := &Definition{TableName: "users", Fields: FieldList{id, refField("group_id", "groups")}}
	groups := &Definition{TableName: "groups", Fields: FieldList{id, refField("parent_id", "groups")}}

	sorted := SortByDependency([]*Definition{windows, apps, users, groups})
	assert.Equal(t, []string{"apps", "groups", "users", "windows"}, tableNames(sorted))
}

func TestSortByDependency_CycleKeepsInputOrder(t *testing.T) {
	a := &Definition{TableName: "a", Fields: FieldList{refField("b_id", "b")}}
	b := &Definition{TableName: "b", Fields: FieldList{refField("a_id", "a")}}
	c := &Definition{TableName: "c", Fields: FieldList{refField("missing_id", "missing")}}

	sorted := SortByDependency([]*Definition{a, b, c})
	assert.Equal(t, []string{"c", "a", "b"}, tableNames(sorted))
}
