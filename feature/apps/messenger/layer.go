// Package messenger is the direct messaging application layer.
package messenger

import (
	"embed"

	"webdesk/core/loader"
)

const Name = "messenger"

//go:embed models.yaml seeds.yaml
var decl embed.FS

func Layer() loader.Layer {
	return loader.NewFSLayer(Name, decl)
}
