// Package core declares the base models every installation has: accounts and roles.
package core

import (
	"embed"

	"webdesk/core/loader"
)

// Name is the layer name used in default value identities.
const Name = "core"

//go:embed models.yaml seeds.yaml
var files embed.FS

// Layer returns the core layer.
func Layer() loader.Layer {
	return loader.NewFSLayer(Name, files)
}
