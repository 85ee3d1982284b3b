package main

import (
	"fmt"

	vc "github.com/linnemanlabs/vesselwatch/internal/cfg"
	"github.com/linnemanlabs/vesselwatch/internal/geo"
)

// loadLayout resolves zones and the boundary: built-in defaults, replaced
// by the layout file, with the boundary replaced again by a shapefile.
func loadLayout(appCfg vc.Config) (geo.Layout, error) {
	layout := geo.DefaultLayout()
	if appCfg.LayoutFile != "" {
		l, err := geo.LoadLayout(appCfg.LayoutFile)
		if err != nil {
			return geo.Layout{}, err
		}
		layout = l
	}
	if appCfg.BoundaryShapefile != "" {
		b, err := geo.LoadBoundaryShapefile(appCfg.BoundaryShapefile, "")
		if err != nil {
			return geo.Layout{}, err
		}
		layout.Boundary = b
	}
	if err := layout.Validate(); err != nil {
		return geo.Layout{}, fmt.Errorf("invalid layout: %w", err)
	}
	return layout, nil
}
