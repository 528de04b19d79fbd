package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/forest-guardian/sentinel-prep/internal/cache"
	"github.com/forest-guardian/sentinel-prep/internal/earthengine"
	"github.com/forest-guardian/sentinel-prep/internal/extract"
	"github.com/forest-guardian/sentinel-prep/internal/log"
	"github.com/forest-guardian/sentinel-prep/internal/points"
	"github.com/forest-guardian/sentinel-prep/internal/properties"
	"github.com/forest-guardian/sentinel-prep/internal/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

var extractOpts struct {
	points      string
	aoi         string
	outDir      string
	lonColumn   string
	latColumn   string
	collection  string
	cloudFilter float64
	batchSize   int
	workers     int
	retries     int
	backoff     time.Duration
	timeout     time.Duration
	failFast    bool
	useCache    bool
}

var extractParams = earthengine.DefaultParams()

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Reduce VV, VH and NDVI at CSV points on Earth Engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		params := extractParams
		params.OpticalCollection = extractOpts.collection
		params.CloudFilter = extractOpts.cloudFilter
		if err := checkDates(params.Start, params.End); err != nil {
			return err
		}

		session, err := earthengine.NewSession(ctx, earthengine.Config{
			KeyPath:        properties.GEEKeyPath(),
			ServiceAccount: properties.GEEServiceAccount(),
			Project:        properties.GEEProject(),
			APIURL:         properties.GEEAPIURL(),
		})
		if err != nil {
			return err
		}

		if params.AOI, err = earthengine.LoadAOI(properties.Resolve(extractOpts.aoi)); err != nil {
			return fmt.Errorf("load aoi: %w", err)
		}
		input := properties.Resolve(extractOpts.points)
		pts, err := points.LoadFile(input, points.Options{LonColumn: extractOpts.lonColumn, LatColumn: extractOpts.latColumn})
		if err != nil {
			return err
		}
		log.Info("points loaded", zap.String("file", input), zap.Int("points", len(pts)))
		if n := points.CountOutside(pts, params.AOI); n > 0 {
			log.Warn("points outside the area of interest will have no values", zap.Int("points", n))
		}

		extractor := earthengine.NewExtractor(session, params)
		opts := extract.Options{
			BatchSize: extractOpts.batchSize,
			Workers:   extractOpts.workers,
			Retries:   extractOpts.retries,
			Backoff:   extractOpts.backoff,
			Timeout:   extractOpts.timeout,
			FailFast:  extractOpts.failFast,
		}
		if extractOpts.useCache {
			opts.Cache = cache.NewInRoot[[]table.Row]("batches")
			opts.CacheKey = extractor.Key()
		}

		report, err := extract.New(extractor, opts).Run(ctx, pts)
		if err != nil {
			return err
		}

		outDir := extractOpts.outDir
		if outDir == "" {
			outDir = properties.RootPath()
		}
		if err := writeOutputs(outDir, input, params.Start, params.End, report); err != nil {
			return err
		}

		summary := fmt.Sprintf("%d rows from %d of %s", len(report.Rows), len(report.Batches)-len(report.Failed), pluralize(len(report.Batches), "batch"))
		send := notifier.Success
		if len(report.Failed) > 0 {
			send = notifier.Partial
		}
		announce(ctx, send, "extract", summary)
		return nil
	},
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractOpts.points, "points", "ragi_2018_09.csv", "CSV of sample points")
	f.StringVar(&extractOpts.aoi, "aoi", "Tumkur.geojson", "GeoJSON whose first feature is the area of interest")
	f.StringVar(&extractOpts.outDir, "out-dir", "", "output directory (default root path)")
	f.StringVar(&extractOpts.lonColumn, "lon-column", points.DefaultOptions.LonColumn, "longitude column")
	f.StringVar(&extractOpts.latColumn, "lat-column", points.DefaultOptions.LatColumn, "latitude column")
	f.StringVar(&extractParams.Start, "start", extractParams.Start, "first date, YYYY-MM-DD")
	f.StringVar(&extractParams.End, "end", extractParams.End, "end date (exclusive), YYYY-MM-DD")
	f.StringVar(&extractOpts.collection, "collection", earthengine.OpticalCollection, "Sentinel-2 collection, "+earthengine.OpticalHarmonized+" for 2019 onwards")
	f.Float64Var(&extractOpts.cloudFilter, "cloud-filter", extractParams.CloudFilter, "maximum scene cloudy pixel percentage")
	f.IntVar(&extractOpts.batchSize, "batch-size", extract.DefaultBatchSize, "points per request")
	f.IntVar(&extractOpts.workers, "workers", extract.DefaultWorkers, "concurrent requests")
	f.IntVar(&extractOpts.retries, "retries", 2, "extra attempts per failed batch")
	f.DurationVar(&extractOpts.backoff, "backoff", 5*time.Second, "wait before the first retry, doubled after each")
	f.DurationVar(&extractOpts.timeout, "timeout", 0, "bound on a single request (0 for none)")
	f.BoolVar(&extractOpts.failFast, "fail-fast", false, "abort the run on the first failed batch")
	f.BoolVar(&extractOpts.useCache, "cache", false, "reuse batches stored under <root>/data/batches")
	f.String("key", properties.DefaultGEEKeyFile, "service account key file")
	f.String("service-account", "", "expected service account email")
	f.String("project", "", "cloud project (default the key's project)")
	viper.BindPFlag(properties.KeyGEEKeyPath, f.Lookup("key"))
	viper.BindPFlag(properties.KeyGEEServiceAccount, f.Lookup("service-account"))
	viper.BindPFlag(properties.KeyGEEProject, f.Lookup("project"))
}

func checkDates(start, end string) error {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return fmt.Errorf("end date: %w", err)
	}
	if !e.After(s) {
		return fmt.Errorf("end date %s is not after start date %s", end, start)
	}
	return nil
}

// writeOutputs writes the full table, the filtered table and, when batches
// were lost, the list of failed ranges.
func writeOutputs(dir, input, start, end string, report *extract.Report) error {
	full := filepath.Join(dir, table.FullName(start, end))
	if err := table.WriteFile(full, func(w io.Writer) error { return table.WriteRows(w, report.Rows) }); err != nil {
		return err
	}
	filteredRows := table.Filter(report.Rows)
	filtered := filepath.Join(dir, table.FilteredName(input))
	if err := table.WriteFile(filtered, func(w io.Writer) error { return table.WriteRows(w, filteredRows) }); err != nil {
		return err
	}
	log.Info("tables written",
		zap.String("full", full), zap.Int("rows", len(report.Rows)),
		zap.String("filtered", filtered), zap.Int("kept", len(filteredRows)))

	if len(report.Failed) == 0 {
		return nil
	}
	failures := filepath.Join(dir, table.FailuresName(start, end))
	if err := table.WriteFile(failures, func(w io.Writer) error { return table.WriteFailures(w, report.Failures()) }); err != nil {
		return err
	}
	log.Warn("some batches failed", zap.Int("failed", len(report.Failed)), zap.String("file", failures))
	return nil
}
