package migrate_test

import (
	"context"
	"testing"

	"webdesk/core/database"
	"webdesk/core/defaults"
	"webdesk/core/loader"
	"webdesk/core/migrate"
	"webdesk/core/schema"
	"webdesk/core/seed"
	"webdesk/feature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupEngine(t *testing.T) (*migrate.Engine, *gorm.DB) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	return migrate.NewEngine(db, migrate.Config{OrphanedBackups: migrate.OrphanFail}, nil, zap.NewNop()), db
}

func desktopLayers(t *testing.T) *loader.Manager {
	t.Helper()
	mgr := loader.NewManager()
	require.NoError(t, feature.RegisterLayers(mgr, loader.Config{Apps: []string{"files", "messenger"}}))
	return mgr
}

func TestEngine_Run(t *testing.T) {
	engine, db := setupEngine(t)
	ctx := context.Background()
	t.Cleanup(func() { defaults.SetGlobal(nil) })

	res, err := engine.Run(ctx, desktopLayers(t), migrate.Options{})
	require.NoError(t, err)
	assert.Contains(t, res.Plan.NewTables, seed.MappingTable)
	assert.Contains(t, res.Plan.NewTables, "users")
	assert.Contains(t, res.Plan.NewTables, "files")
	assert.Contains(t, res.Plan.NewTables, "messages")
	assert.Equal(t, []migrate.State{migrate.StateAnalyze, migrate.StateNoOp}, res.Report.States)
	assert.Zero(t, res.Seeds.Failed)
	assert.Equal(t, res.SeedPlan.Summary.Creates, res.Seeds.Applied)

	var user struct {
		ID         int
		Name       string
		Password   string
		IsAdmin    bool
		Locale     string
		QuotaBytes int64
	}
	require.NoError(t, db.Table("users").Where("name = ?", "root").Take(&user).Error)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, "en", user.Locale)
	assert.EqualValues(t, 1073741824, user.QuotaBytes)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("root")))

	// Every layer seeds desktop icon 1 without colliding.
	for _, layer := range []string{"framework", "files", "messenger"} {
		icon, err := defaults.GetDefaultValue(layer, "desktop_icons", 1)
		require.NoError(t, err, layer)
		assert.NotZero(t, icon.RecordID)
	}
	root, err := defaults.GetDefaultValue("core", "users", 1)
	require.NoError(t, err)
	assert.Equal(t, user.ID, root.RecordID)
	assert.Same(t, res.Defaults, defaults.Global())
}

func TestEngine_RunTwiceIsNoOp(t *testing.T) {
	engine, db := setupEngine(t)
	ctx := context.Background()
	t.Cleanup(func() { defaults.SetGlobal(nil) })

	_, err := engine.Run(ctx, desktopLayers(t), migrate.Options{})
	require.NoError(t, err)
	var before int64
	require.NoError(t, db.Table("desktop_icons").Count(&before).Error)

	res, err := engine.Run(ctx, desktopLayers(t), migrate.Options{})
	require.NoError(t, err)
	assert.True(t, res.Plan.Empty())
	assert.Empty(t, res.Plan.NewTables)
	assert.Empty(t, res.SeedPlan.Actions)
	assert.Equal(t, res.SeedPlan.Summary.Declared, res.SeedPlan.Summary.Unchanged)

	var after int64
	require.NoError(t, db.Table("desktop_icons").Count(&after).Error)
	assert.Equal(t, before, after)
}

func TestEngine_DryRun(t *testing.T) {
	engine, db := setupEngine(t)

	res, err := engine.Run(context.Background(), desktopLayers(t), migrate.Options{DryRun: true})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Plan.NewTables)
	assert.NotZero(t, res.SeedPlan.Summary.Creates)
	assert.Nil(t, res.Defaults)

	tables, err := database.ListTables(db)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

// stubSource serves fixed declarations for a single layer.
type stubSource struct {
	defs  []schema.Definition
	seeds seed.Declarations
}

func (s stubSource) Contributions() ([]schema.Contribution, error) {
	return []schema.Contribution{{Layer: "core", Definitions: s.defs}}, nil
}

func (s stubSource) Seeds() ([]seed.LayerSeeds, error) {
	return []seed.LayerSeeds{{Layer: "core", Tables: s.seeds}}, nil
}

func TestEngine_ConfirmDeclined(t *testing.T) {
	engine, db := setupEngine(t)
	ctx := context.Background()
	t.Cleanup(func() { defaults.SetGlobal(nil) })

	notes := schema.Definition{
		Name:      "Note",
		TableName: "notes",
		Fields: schema.FieldList{
			{Name: "id", Spec: schema.FieldSpec{Type: schema.TypeInteger, PrimaryKey: true, AutoIncrement: true}},
			{Name: "body", Spec: schema.FieldSpec{Type: schema.TypeText}},
		},
	}
	_, err := engine.Run(ctx, stubSource{defs: []schema.Definition{notes}}, migrate.Options{})
	require.NoError(t, err)

	notes.Fields = append(notes.Fields, schema.Field{Name: "pinned", Spec: schema.FieldSpec{Type: schema.TypeBoolean}})
	var asked []string
	_, err = engine.Run(ctx, stubSource{defs: []schema.Definition{notes}}, migrate.Options{
		Confirm: func(plan *migrate.Plan) bool {
			asked = plan.Tables()
			return false
		},
	})
	assert.ErrorIs(t, err, migrate.ErrCancelled)
	assert.Equal(t, []string{"notes"}, asked)
	assert.False(t, db.Migrator().HasColumn("notes", "pinned"))
}

func TestEngine_Definitions(t *testing.T) {
	engine, _ := setupEngine(t)

	defs, err := engine.Definitions(desktopLayers(t))
	require.NoError(t, err)
	require.NotEmpty(t, defs)
	assert.Equal(t, seed.MappingTable, defs[0].TableName)
}

func accountsDef(extra ...schema.Field) schema.Definition {
	return schema.Definition{
		Name:      "User",
		TableName: "users",
		Fields: append(schema.FieldList{
			{Name: "id", Spec: schema.FieldSpec{Type: schema.TypeInteger, PrimaryKey: true, AutoIncrement: true}},
			{Name: "name", Spec: schema.FieldSpec{Type: schema.TypeString, Unique: true}},
		}, extra...),
	}
}

func userSeeds(records ...seed.Record) seed.Declarations {
	return seed.Declarations{{Table: "users", Records: records}}
}

func mappings(t *testing.T, db *gorm.DB) []seed.DefaultValue {
	t.Helper()
	var rows []seed.DefaultValue
	require.NoError(t, db.Order("id").Find(&rows).Error)
	return rows
}

func TestEngine_SeedLifecycleAcrossRuns(t *testing.T) {
	engine, db := setupEngine(t)
	ctx := context.Background()
	t.Cleanup(func() { defaults.SetGlobal(nil) })
	defs := []schema.Definition{accountsDef()}

	// Create
	res, err := engine.Run(ctx, stubSource{defs: defs, seeds: userSeeds(seed.Record{"id": 1, "name": "Admin"})}, migrate.Options{})
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Applied: 1}, res.Seeds)

	created := mappings(t, db)
	require.Len(t, created, 1)
	assert.Equal(t, "core", created[0].Level)
	assert.Equal(t, "users", created[0].Table)
	assert.Equal(t, 1, created[0].DefaultValueID)
	recordID := created[0].RecordID

	// Rename keeps the identity
	res, err = engine.Run(ctx, stubSource{defs: defs, seeds: userSeeds(seed.Record{"id": 1, "name": "Root"})}, migrate.Options{})
	require.NoError(t, err)
	assert.Equal(t, []migrate.State{migrate.StateAnalyze, migrate.StateNoOp}, res.Report.States)
	require.Len(t, res.SeedPlan.Actions, 1)
	assert.Equal(t, seed.ActionUpdate, res.SeedPlan.Actions[0].Type)
	assert.Equal(t, []string{"name"}, res.SeedPlan.Actions[0].Fields)

	renamed := mappings(t, db)
	require.Len(t, renamed, 1)
	assert.Equal(t, recordID, renamed[0].RecordID)
	var name string
	require.NoError(t, db.Table("users").Select("name").Where("id = ?", recordID).Scan(&name).Error)
	assert.Equal(t, "Root", name)

	cached, err := defaults.GetDefaultValue("core", "users", 1)
	require.NoError(t, err)
	assert.Equal(t, recordID, cached.RecordID)

	// Removing the declaration deletes the row and its mapping
	res, err = engine.Run(ctx, stubSource{defs: defs}, migrate.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SeedPlan.Summary.Deletes)
	assert.Empty(t, mappings(t, db))

	var count int64
	require.NoError(t, db.Table("users").Count(&count).Error)
	assert.Zero(t, count)
}

func TestEngine_AddedFieldRerunKeepsRows(t *testing.T) {
	engine, db := setupEngine(t)
	ctx := context.Background()
	t.Cleanup(func() { defaults.SetGlobal(nil) })
	seeds := userSeeds(seed.Record{"id": 1, "name": "Admin"})

	_, err := engine.Run(ctx, stubSource{defs: []schema.Definition{accountsDef()}, seeds: seeds}, migrate.Options{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`INSERT INTO users (name) VALUES ('ann'), ('bob')`).Error)

	email := schema.Field{Name: "email", Spec: schema.FieldSpec{Type: schema.TypeString}}
	res, err := engine.Run(ctx, stubSource{defs: []schema.Definition{accountsDef(email)}, seeds: seeds}, migrate.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, res.Report.Migrated)
	assert.Equal(t, migrate.StateDone, res.Report.State())
	assert.Equal(t, 3, res.Report.Restore["users"].Restored)
	assert.Zero(t, res.Report.Restore["users"].Failed)
	assert.Empty(t, res.SeedPlan.Actions)

	assert.True(t, db.Migrator().HasColumn("users", "email"))
	var names []string
	require.NoError(t, db.Table("users").Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"Admin", "ann", "bob"}, names)

	backups, err := database.ListBackupTables(db)
	require.NoError(t, err)
	assert.Empty(t, backups)

	again, err := engine.Run(ctx, stubSource{defs: []schema.Definition{accountsDef(email)}, seeds: seeds}, migrate.Options{})
	require.NoError(t, err)
	assert.True(t, again.Plan.Empty())
}
