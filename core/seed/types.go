package seed

import (
	"fmt"
	"time"

	"webdesk/core/schema"
	"webdesk/core/utils"

	"gopkg.in/yaml.v3"
)

// MappingTable binds declared seed identities to storage primary keys.
const MappingTable = "default_values"

// DefaultValue is one identity mapping row: (level, table, seed id) -> record id.
type DefaultValue struct {
	ID             int       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Level          string    `gorm:"column:level;type:STRING;not null;uniqueIndex:idx_default_values_identity" json:"level"`
	Table          string    `gorm:"column:table_name;type:STRING;not null;uniqueIndex:idx_default_values_identity" json:"table_name"`
	DefaultValueID int       `gorm:"column:default_value_id;not null;uniqueIndex:idx_default_values_identity" json:"default_value_id"`
	RecordID       int       `gorm:"column:record_id;not null" json:"record_id"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName returns the mapping table name.
func (DefaultValue) TableName() string {
	return MappingTable
}

// MappingDefinition is the model declaration of the mapping table. The engine
// contributes it ahead of every layer.
func MappingDefinition() schema.Definition {
	def, err := schema.FromModel(DefaultValue{})
	if err != nil {
		panic(err)
	}
	return def
}

// Record is one declared seed row. The "id" key is the layer-scoped seed id,
// every other key is a column value.
type Record map[string]any

// SeedID returns the declared seed id.
func (r Record) SeedID() (int, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return 0, false
	}
	id := utils.ToInt(v)
	return id, id > 0
}

// TableSeeds is the list of records a layer declares for one table.
type TableSeeds struct {
	Table   string
	Records []Record
}

// Declarations is a layer's seed file: a mapping of table name to records,
// kept in declaration order.
type Declarations []TableSeeds

// UnmarshalYAML decodes a mapping of table name to record lists.
func (d *Declarations) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("seeds must be a mapping of table name to records, got line %d", node.Line)
	}
	out := make(Declarations, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var records []Record
		if err := node.Content[i+1].Decode(&records); err != nil {
			return fmt.Errorf("seeds for %s: %w", node.Content[i].Value, err)
		}
		out = append(out, TableSeeds{Table: node.Content[i].Value, Records: records})
	}
	*d = out
	return nil
}

// LayerSeeds are the seed declarations of one registered layer.
type LayerSeeds struct {
	Layer  string
	Tables Declarations
}

// ActionType is the kind of change a seed action makes.
type ActionType string

const (
	// ActionCreate inserts the record and its mapping.
	ActionCreate ActionType = "create"
	// ActionUpdate writes changed declared fields to the mapped record.
	ActionUpdate ActionType = "update"
	// ActionDelete removes the record and mapping of a seed no longer declared.
	ActionDelete ActionType = "delete"
	// ActionRecreate purges a mapping whose record vanished and creates both again.
	ActionRecreate ActionType = "recreate"
)

// Action is one planned seed change.
type Action struct {
	Type       ActionType     `json:"type"`
	Layer      string         `json:"layer"`
	Table      string         `json:"table"`
	SeedID     int            `json:"seed_id"`
	PrimaryKey string         `json:"-"`
	RecordID   int            `json:"record_id,omitempty"`
	MappingID  int            `json:"-"`
	Values     map[string]any `json:"-"`
	Fields     []string       `json:"fields,omitempty"`
	Reason     string         `json:"reason"`
	// Timestamps stamps created_at/updated_at on the record.
	Timestamps bool `json:"-"`
}

// Plan contains the seed actions of one reconciliation.
type Plan struct {
	Actions []Action    `json:"actions"`
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate counts for a plan.
type PlanSummary struct {
	Declared  int `json:"declared"`
	Unchanged int `json:"unchanged"`
	Creates   int `json:"creates"`
	Updates   int `json:"updates"`
	Deletes   int `json:"deletes"`
	Recreates int `json:"recreates"`
	Skipped   int `json:"skipped"`
}

// Result is the outcome of applying a plan.
type Result struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}
