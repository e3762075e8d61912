package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auditedModel struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement"`
	Level     string    `gorm:"column:level;type:STRING;not null;uniqueIndex:idx_audit"`
	SeedID    int       `gorm:"column:seed_id;not null;uniqueIndex:idx_audit"`
	Payload   string    `gorm:"type:TEXT"`
	Ignored   string    `gorm:"-"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time
}

func (auditedModel) TableName() string { return "audited" }

type plainModel struct {
	ItemName string `gorm:"unique;default:none"`
	Score    float64
	Flag     bool
}

func TestFromModel(t *testing.T) {
	def, err := FromModel(auditedModel{})
	require.NoError(t, err)

	assert.Equal(t, "auditedModel", def.Name)
	assert.Equal(t, "audited", def.TableName)
	assert.True(t, def.HasTimestamps())
	require.Len(t, def.Fields, 4)
	assert.Equal(t, "id", def.PrimaryKey())
	assert.Equal(t, "id", def.AutoIncrementKey())

	level, ok := def.Field("level")
	require.True(t, ok)
	assert.Equal(t, TypeString, level.Type)
	assert.False(t, level.Nullable())

	payload, ok := def.Field("payload")
	require.True(t, ok)
	assert.Equal(t, TypeText, payload.Type)

	require.Len(t, def.Options.Indexes, 1)
	assert.Equal(t, Index{Name: "idx_audit", Fields: []string{"level", "seed_id"}, Unique: true}, def.Options.Indexes[0])
}

func TestFromModel_KindMappingAndDefaults(t *testing.T) {
	def, err := FromModel(&plainModel{})
	require.NoError(t, err)

	assert.Equal(t, "plain_model", def.TableName)
	assert.False(t, def.HasTimestamps())

	item, _ := def.Field("item_name")
	assert.Equal(t, TypeString, item.Type)
	assert.True(t, item.Unique)
	assert.Equal(t, "none", item.Default)

	score, _ := def.Field("score")
	assert.Equal(t, TypeFloat, score.Type)

	flag, _ := def.Field("flag")
	assert.Equal(t, TypeBoolean, flag.Type)
}

func TestFromModel_RejectsNonStruct(t *testing.T) {
	_, err := FromModel(42)
	assert.Error(t, err)
}

func TestParseGormTags(t *testing.T) {
	assert.Equal(t, "id", parseGormColumn("column:id;primaryKey"))
	assert.Equal(t, "item_name", parseGormColumn("primaryKey;column:item_name;type:varchar(100)"))
	assert.Equal(t, "int(11)", parseGormType("column:id;type:int(11)"))
	assert.Equal(t, "", parseGormType("column:id"))
}
