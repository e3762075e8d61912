// Package feature assembles the declaration layers of the desktop.
package feature

import (
	"fmt"

	"webdesk/core/loader"
	"webdesk/feature/apps/files"
	"webdesk/feature/apps/messenger"
	"webdesk/feature/core"
	"webdesk/feature/framework"
)

// Apps lists the application layers that can be enabled.
var Apps = map[string]func() loader.Layer{
	files.Name:     files.Layer,
	messenger.Name: messenger.Layer,
}

// RegisterLayers registers core, framework and then the enabled applications
// in configured order.
func RegisterLayers(mgr *loader.Manager, cfg loader.Config) error {
	if err := mgr.RegisterLayer(core.Layer()); err != nil {
		return err
	}
	if err := mgr.RegisterLayer(framework.Layer()); err != nil {
		return err
	}
	for _, app := range cfg.Apps {
		layer, ok := Apps[app]
		if !ok {
			return fmt.Errorf("unknown application %q", app)
		}
		if err := mgr.RegisterLayer(layer()); err != nil {
			return err
		}
	}
	return nil
}
