package feature_test

import (
	"testing"

	"webdesk/core/loader"
	"webdesk/core/schema"
	"webdesk/feature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLayers(t *testing.T) {
	mgr := loader.NewManager()
	require.NoError(t, feature.RegisterLayers(mgr, loader.Config{Apps: []string{"messenger", "files"}}))

	var names []string
	for _, l := range mgr.Layers() {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"core", "framework", "messenger", "files"}, names)

	contribs, err := mgr.Contributions()
	require.NoError(t, err)
	defs, err := schema.Merge(contribs)
	require.NoError(t, err)

	byTable := map[string]*schema.Definition{}
	for _, d := range defs {
		byTable[d.TableName] = d
	}
	users := byTable["users"]
	require.NotNil(t, users)
	var fields []string
	for _, f := range users.Fields {
		fields = append(fields, f.Name)
	}
	assert.Equal(t, []string{"id", "name", "password", "email", "is_admin", "locale", "preferences", "quota_bytes"}, fields)
	assert.Contains(t, byTable, "messages")
	assert.Contains(t, byTable, "files")

	seeds, err := mgr.Seeds()
	require.NoError(t, err)
	require.Len(t, seeds, 4)
	assert.Equal(t, "users", seeds[0].Tables[0].Table)
}

func TestRegisterLayers_UnknownApp(t *testing.T) {
	err := feature.RegisterLayers(loader.NewManager(), loader.Config{Apps: []string{"games"}})
	assert.ErrorContains(t, err, "games")
}
