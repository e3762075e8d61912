// Package framework declares the desktop shell: settings and icons, plus the
// user preferences it adds to core accounts.
package framework

import (
	"embed"

	"webdesk/core/loader"
)

const Name = "framework"

//go:embed models.yaml seeds.yaml
var files embed.FS

func Layer() loader.Layer {
	return loader.NewFSLayer(Name, files)
}
