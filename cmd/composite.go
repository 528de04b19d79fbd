package main

import (
	"fmt"
	"strings"

	"github.com/forest-guardian/sentinel-prep/internal/composite"
	"github.com/forest-guardian/sentinel-prep/internal/gdalio"
	"github.com/forest-guardian/sentinel-prep/internal/log"
	"github.com/forest-guardian/sentinel-prep/internal/properties"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compositeOpts struct {
	bands      []string
	resolution float64
	workers    int
	preview    string
	creation   []string
}

var compositeCmd = &cobra.Command{
	Use:   "composite SAFE_DIR OUTPUT",
	Short: "Stack Sentinel-2 bands onto one grid as a Float32 GeoTIFF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout := composite.DefaultLayout
		if len(compositeOpts.bands) > 0 {
			var err error
			if layout, err = composite.ParseLayout(compositeOpts.bands); err != nil {
				return err
			}
		}

		rasters := gdalio.Rasters{CreationOptions: compositeOpts.creation}
		c := composite.New(rasters, rasters, layout, compositeOpts.resolution)
		c.Workers = compositeOpts.workers

		root, out := properties.Resolve(args[0]), properties.Resolve(args[1])
		res, err := c.Run(cmd.Context(), root, out)
		if err != nil {
			return err
		}

		if compositeOpts.preview != "" {
			preview := properties.Resolve(compositeOpts.preview)
			if err := composite.SavePreview(preview, res, composite.DefaultPreview); err != nil {
				return fmt.Errorf("preview: %w", err)
			}
			log.Info("preview written", zap.String("file", preview))
		}
		announce(cmd.Context(), notifier.Success, "composite",
			fmt.Sprintf("%s written to %s (%dx%d)", pluralize(len(res.Bands), "band"), out, res.Grid.Width, res.Grid.Height))
		return nil
	},
}

func init() {
	f := compositeCmd.Flags()
	f.StringArrayVar(&compositeOpts.bands, "band", nil, "band as NAME=pattern@resolution, repeat in output order (default Sentinel-2 B02,B03,B04,B08,B05,B11,B12)")
	f.Float64Var(&compositeOpts.resolution, "resolution", composite.DefaultTargetResolution, "target resolution in meters")
	f.IntVar(&compositeOpts.workers, "workers", 4, "bands read in parallel")
	f.StringVar(&compositeOpts.preview, "preview", "", "also write a true-color PNG quicklook")
	f.StringArrayVar(&compositeOpts.creation, "co", nil, "GeoTIFF creation option, e.g. COMPRESS=DEFLATE")
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	if strings.HasSuffix(noun, "ch") {
		return fmt.Sprintf("%d %ses", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
