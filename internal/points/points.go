// Package points loads sample locations from CSV and splits them into batches.
package points

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/paulmach/orb"
)

var (
	ErrMissingColumn = errors.New("coordinate column not found")
	ErrBadCoordinate = errors.New("coordinate is not a number")
)

// Point is one surviving input row. Index is its position after filtering.
type Point struct {
	Index      int
	Longitude  float64
	Latitude   float64
	Attributes map[string]string
}

func (p Point) Orb() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

type Options struct {
	LonColumn string
	LatColumn string
}

var DefaultOptions = Options{LonColumn: "Longitude", LatColumn: "Latitude"}

func (o Options) withDefaults() Options {
	if o.LonColumn == "" {
		o.LonColumn = DefaultOptions.LonColumn
	}
	if o.LatColumn == "" {
		o.LatColumn = DefaultOptions.LatColumn
	}
	return o
}

// LoadFile opens path and calls Load.
func LoadFile(path string, opts Options) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pts, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pts, nil
}

// Load reads a CSV with a header row. Rows with a missing coordinate are
// dropped; the rest are numbered from 0 in input order. Columns other than the
// coordinates are kept as attributes.
func Load(r io.Reader, opts Options) ([]Point, error) {
	opts = opts.withDefaults()
	records, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	for _, col := range []string{opts.LonColumn, opts.LatColumn} {
		if _, ok := records[0][col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	pts := make([]Point, 0, len(records))
	for i, rec := range records {
		line := i + 2
		lon, okLon, err := coordinate(rec[opts.LonColumn])
		if err != nil {
			return nil, fmt.Errorf("line %d %s: %w", line, opts.LonColumn, err)
		}
		lat, okLat, err := coordinate(rec[opts.LatColumn])
		if err != nil {
			return nil, fmt.Errorf("line %d %s: %w", line, opts.LatColumn, err)
		}
		if !okLon || !okLat {
			continue
		}
		attrs := make(map[string]string, len(rec)-2)
		for k, v := range rec {
			if k != opts.LonColumn && k != opts.LatColumn {
				attrs[k] = v
			}
		}
		pts = append(pts, Point{Index: len(pts), Longitude: lon, Latitude: lat, Attributes: attrs})
	}
	return pts, nil
}

// coordinate parses a cell. ok is false for a missing value.
func coordinate(cell string) (v float64, ok bool, err error) {
	cell = strings.TrimSpace(cell)
	if missing(cell) {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(cell, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("%w: %q", ErrBadCoordinate, cell)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}

func missing(cell string) bool {
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null", "none":
		return true
	}
	return false
}
