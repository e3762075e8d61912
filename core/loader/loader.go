package loader

import (
	"fmt"

	"webdesk/core/schema"
	"webdesk/core/seed"

	"github.com/gofiber/fiber/v2"
)

// Feature is an HTTP module mounted on the application router.
type Feature interface {
	Name() string
	IsEnabled() bool
	Load(app fiber.Router) error
}

// Layer contributes model declarations and seed records. Layers are applied
// in registration order: core, framework, then each enabled application.
type Layer interface {
	Name() string
	Models() ([]schema.Definition, error)
	Seeds() (seed.Declarations, error)
}

// Manager holds the registered features and layers.
type Manager struct {
	features []Feature
	layers   []Layer
	names    map[string]bool
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{names: map[string]bool{}}
}

// Register adds a feature.
func (m *Manager) Register(f Feature) {
	m.features = append(m.features, f)
}

// RegisterLayer appends a layer. Layer names must be unique.
func (m *Manager) RegisterLayer(l Layer) error {
	if l.Name() == "" {
		return fmt.Errorf("layer has no name")
	}
	if m.names[l.Name()] {
		return fmt.Errorf("layer %s registered twice", l.Name())
	}
	m.names[l.Name()] = true
	m.layers = append(m.layers, l)
	return nil
}

// Layers returns the registered layers in order.
func (m *Manager) Layers() []Layer {
	return m.layers
}

// LoadAll mounts every enabled feature.
func (m *Manager) LoadAll(app fiber.Router) error {
	for _, f := range m.features {
		if !f.IsEnabled() {
			continue
		}
		if err := f.Load(app); err != nil {
			return fmt.Errorf("failed to load feature %s: %w", f.Name(), err)
		}
	}
	return nil
}

// Contributions collects each layer's model declarations in layer order.
func (m *Manager) Contributions() ([]schema.Contribution, error) {
	out := make([]schema.Contribution, 0, len(m.layers))
	for _, l := range m.layers {
		defs, err := l.Models()
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name(), err)
		}
		out = append(out, schema.Contribution{Layer: l.Name(), Definitions: defs})
	}
	return out, nil
}

// Seeds collects each layer's seed declarations in layer order. Every layer
// is listed, even without seeds, so its stale defaults can be cleaned up.
func (m *Manager) Seeds() ([]seed.LayerSeeds, error) {
	out := make([]seed.LayerSeeds, 0, len(m.layers))
	for _, l := range m.layers {
		decl, err := l.Seeds()
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name(), err)
		}
		out = append(out, seed.LayerSeeds{Layer: l.Name(), Tables: decl})
	}
	return out, nil
}
