package loader_test

import (
	"errors"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"webdesk/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeature struct {
	name    string
	enabled bool
	err     error
	loaded  bool
}

func (f *stubFeature) Name() string    { return f.name }
func (f *stubFeature) IsEnabled() bool { return f.enabled }
func (f *stubFeature) Load(app fiber.Router) error {
	if f.err != nil {
		return f.err
	}
	f.loaded = true
	app.Get("/"+f.name, func(c *fiber.Ctx) error { return c.SendString(f.name) })
	return nil
}

func TestManager_LoadAll(t *testing.T) {
	t.Run("SkipsDisabled", func(t *testing.T) {
		on := &stubFeature{name: "on", enabled: true}
		off := &stubFeature{name: "off"}
		mgr := loader.NewManager()
		mgr.Register(on)
		mgr.Register(off)

		app := fiber.New()
		require.NoError(t, mgr.LoadAll(app))
		assert.True(t, on.loaded)
		assert.False(t, off.loaded)

		resp, err := app.Test(httptest.NewRequest("GET", "/on", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("PropagatesError", func(t *testing.T) {
		mgr := loader.NewManager()
		mgr.Register(&stubFeature{name: "broken", enabled: true, err: errors.New("boom")})

		err := mgr.LoadAll(fiber.New())
		assert.ErrorContains(t, err, "broken")
	})
}

func TestManager_Layers(t *testing.T) {
	core := fstest.MapFS{
		"models.yaml": {Data: []byte(`
- name: User
  tableName: users
  fields:
    id: {type: INTEGER, primaryKey: true, autoIncrement: true}
    name: {type: STRING}
`)},
		"seeds.yaml": {Data: []byte(`
users:
  - {id: 1, name: root}
`)},
	}
	app := fstest.MapFS{
		"models.yaml": {Data: []byte(`
- name: User
  fields:
    email: {type: STRING, unique: true}
`)},
	}

	mgr := loader.NewManager()
	require.NoError(t, mgr.RegisterLayer(loader.NewFSLayer("core", core)))
	require.NoError(t, mgr.RegisterLayer(loader.NewFSLayer("files", app)))
	assert.Error(t, mgr.RegisterLayer(loader.NewFSLayer("core", core)))

	contribs, err := mgr.Contributions()
	require.NoError(t, err)
	require.Len(t, contribs, 2)
	assert.Equal(t, "core", contribs[0].Layer)
	assert.Equal(t, "users", contribs[0].Definitions[0].TableName)
	assert.Equal(t, "id", contribs[0].Definitions[0].Fields[0].Name)
	assert.Equal(t, "files", contribs[1].Layer)
	assert.True(t, contribs[1].Definitions[0].Fields[0].Spec.Unique)

	seeds, err := mgr.Seeds()
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	require.Len(t, seeds[0].Tables, 1)
	assert.Equal(t, "users", seeds[0].Tables[0].Table)
	id, ok := seeds[0].Tables[0].Records[0].SeedID()
	assert.True(t, ok)
	assert.Equal(t, 1, id)
	assert.Equal(t, "files", seeds[1].Layer)
	assert.Empty(t, seeds[1].Tables)
}

func TestFSLayer_InvalidYAML(t *testing.T) {
	layer := loader.NewFSLayer("bad", fstest.MapFS{
		"seeds.yaml": {Data: []byte("- not a mapping")},
	})
	_, err := layer.Seeds()
	assert.ErrorContains(t, err, "seeds.yaml")
}
