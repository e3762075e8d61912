// Package loader provides the registries the application is assembled from.
//
// # Features
//
// HTTP modules implement Feature and are mounted by Manager.LoadAll:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// # Layers
//
// Layers contribute model declarations (models.yaml) and seed records
// (seeds.yaml). They are registered in order: core, framework, then each
// enabled application. The order decides how the merge resolves fields
// declared by more than one layer.
//
//	mgr := loader.NewManager()
//	_ = mgr.RegisterLayer(loader.NewFSLayer("core", coreFS))
//	contribs, err := mgr.Contributions()
package loader
