package main

import (
	"github.com/forest-guardian/sentinel-prep/internal/gdalio"
	"github.com/forest-guardian/sentinel-prep/internal/georef"
	"github.com/spf13/cobra"
)

var georefOpts struct {
	method string
	epsg   int
}

var georefCmd = &cobra.Command{
	Use:   "georef FILE...",
	Short: "Write a geotransform and CRS derived from embedded GCPs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := georef.ParseMethod(georefOpts.method)
		if err != nil {
			return err
		}
		g := georef.New(gdalio.OpenScene, method, georefOpts.epsg)
		for _, path := range args {
			if _, err := g.Run(cmd.Context(), path); err != nil {
				return err
			}
		}
		announce(cmd.Context(), notifier.Success, "georef", pluralize(len(args), "raster")+" georeferenced")
		return nil
	},
}

func init() {
	georefCmd.Flags().StringVar(&georefOpts.method, "method", string(georef.MethodEndpoints), "endpoints (first and last GCP) or least-squares (all GCPs)")
	georefCmd.Flags().IntVar(&georefOpts.epsg, "epsg", georef.DefaultEPSG, "EPSG code of the GCP coordinates")
}
