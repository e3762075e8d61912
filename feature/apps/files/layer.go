// Package files is the file manager application layer.
package files

import (
	"embed"

	"webdesk/core/loader"
)

const Name = "files"

//go:embed models.yaml seeds.yaml
var decl embed.FS

func Layer() loader.Layer {
	return loader.NewFSLayer(Name, decl)
}
