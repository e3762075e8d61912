package integrity

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"webdesk/core/database"
	"webdesk/core/schema"
	"webdesk/feature/integrity/checks"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT, created_at DATETIME, updated_at DATETIME)`).Error)

	defs := []*schema.Definition{{
		Name:      "Note",
		TableName: "notes",
		Fields: schema.FieldList{
			{Name: "id", Spec: schema.FieldSpec{Type: schema.TypeInteger, PrimaryKey: true, AutoIncrement: true}},
			{Name: "body", Spec: schema.FieldSpec{Type: schema.TypeText}},
			{Name: "title", Spec: schema.FieldSpec{Type: schema.TypeString}},
		},
	}}

	app := fiber.New()
	feature := NewFeature(db, defs, nil, zap.NewNop())
	require.True(t, feature.IsEnabled())
	require.NoError(t, feature.Load(app))
	return app
}

func TestHandleSchemaCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/integrity/schema", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var report checks.SchemaReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.False(t, report.Matched)
	assert.Equal(t, checks.StatusDrift, report.Tables["notes"].Status)
	assert.Equal(t, []string{`added field "title"`}, report.Tables["notes"].Differences)
}

func TestHandleSeedCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/integrity/seeds", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var report checks.SeedReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.False(t, report.Pending)
}

func TestHandleIntegrityCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/integrity", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body, "schema")
	assert.Contains(t, body, "seeds")
}
