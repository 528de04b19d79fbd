package composite

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

var (
	ErrBandNotFound  = errors.New("band file not found")
	ErrAmbiguousBand = errors.New("band pattern matches more than one file")
)

// BandSpec declares one output band. Its position in a Layout is its band index.
type BandSpec struct {
	Name       string
	Pattern    string
	Resolution float64
}

// Layout is the ordered band-to-index mapping of a composite.
type Layout []BandSpec

// DefaultLayout is the Sentinel-2 L2A stack: four 10 m bands then three 20 m bands.
var DefaultLayout = Layout{
	{Name: "B02", Pattern: "B02_10m.jp2", Resolution: 10},
	{Name: "B03", Pattern: "B03_10m.jp2", Resolution: 10},
	{Name: "B04", Pattern: "B04_10m.jp2", Resolution: 10},
	{Name: "B08", Pattern: "B08_10m.jp2", Resolution: 10},
	{Name: "B05", Pattern: "B05_20m.jp2", Resolution: 20},
	{Name: "B11", Pattern: "B11_20m.jp2", Resolution: 20},
	{Name: "B12", Pattern: "B12_20m.jp2", Resolution: 20},
}

const DefaultTargetResolution = 10.0

// ParseLayout reads "NAME=pattern@resolution" entries, e.g. "B02=B02_10m.jp2@10".
func ParseLayout(entries []string) (Layout, error) {
	layout := make(Layout, 0, len(entries))
	for _, e := range entries {
		name, rest, ok := strings.Cut(e, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("band %q: expected NAME=pattern@resolution", e)
		}
		pattern, res, ok := strings.Cut(rest, "@")
		if !ok || pattern == "" {
			return nil, fmt.Errorf("band %q: expected NAME=pattern@resolution", e)
		}
		var resolution float64
		if _, err := fmt.Sscanf(res, "%g", &resolution); err != nil || resolution <= 0 {
			return nil, fmt.Errorf("band %q: invalid resolution %q", e, res)
		}
		layout = append(layout, BandSpec{Name: name, Pattern: pattern, Resolution: resolution})
	}
	return layout, layout.Validate()
}

func (l Layout) Validate() error {
	if len(l) == 0 {
		return errors.New("empty band layout")
	}
	seen := make(map[string]bool, len(l))
	for _, b := range l {
		if seen[b.Name] {
			return fmt.Errorf("band %s declared twice", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}

// Index returns the position of the named band, or -1.
func (l Layout) Index(name string) int {
	for i, b := range l {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// Discover finds, for every band of the layout, the single file under root whose
// name contains the band pattern. The result follows layout order.
func Discover(root string, layout Layout) ([]string, error) {
	matches := make([][]string, len(layout))
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for i, b := range layout {
			if strings.Contains(d.Name(), b.Pattern) {
				matches[i] = append(matches[i], path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	paths := make([]string, len(layout))
	for i, b := range layout {
		switch len(matches[i]) {
		case 0:
			return nil, fmt.Errorf("%w: %s (%s) under %s", ErrBandNotFound, b.Name, b.Pattern, root)
		case 1:
			paths[i] = matches[i][0]
		default:
			return nil, fmt.Errorf("%w: %s matches %v", ErrAmbiguousBand, b.Name, matches[i])
		}
	}
	return paths, nil
}
