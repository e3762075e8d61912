package loader

import (
	"errors"
	"fmt"
	"io/fs"

	"webdesk/core/schema"
	"webdesk/core/seed"

	"gopkg.in/yaml.v3"
)

// File names a layer directory may contain. Both are optional.
const (
	ModelsFile = "models.yaml"
	SeedsFile  = "seeds.yaml"
)

// FSLayer reads a layer's declarations from a file system, usually an embed.FS.
type FSLayer struct {
	name string
	fsys fs.FS
}

// NewFSLayer creates a layer backed by fsys.
func NewFSLayer(name string, fsys fs.FS) *FSLayer {
	return &FSLayer{name: name, fsys: fsys}
}

// Name returns the layer name.
func (l *FSLayer) Name() string {
	return l.name
}

// Models decodes models.yaml, a list of model declarations.
func (l *FSLayer) Models() ([]schema.Definition, error) {
	var defs []schema.Definition
	if err := l.decode(ModelsFile, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// Seeds decodes seeds.yaml, a mapping of table name to records.
func (l *FSLayer) Seeds() (seed.Declarations, error) {
	var decl seed.Declarations
	if err := l.decode(SeedsFile, &decl); err != nil {
		return nil, err
	}
	return decl, nil
}

func (l *FSLayer) decode(name string, out any) error {
	data, err := fs.ReadFile(l.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
