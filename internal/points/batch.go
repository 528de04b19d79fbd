package points

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var ErrBatchSize = errors.New("batch size must be positive")

// Range is the half-open index interval [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int { return r.End - r.Start }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Partition splits [0, total) into ceil(total/size) contiguous ranges. Only the
// last range may be shorter than size.
func Partition(total, size int) ([]Range, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBatchSize, size)
	}
	if total <= 0 {
		return nil, nil
	}
	ranges := make([]Range, 0, (total+size-1)/size)
	for start := 0; start < total; start += size {
		ranges = append(ranges, Range{Start: start, End: min(start+size, total)})
	}
	return ranges, nil
}

// Slice returns the points covered by r.
func Slice(pts []Point, r Range) []Point {
	return pts[r.Start:r.End]
}

// CountOutside counts the points not covered by aoi.
func CountOutside(pts []Point, aoi orb.Geometry) int {
	if aoi == nil {
		return 0
	}
	n := 0
	for _, p := range pts {
		if !covers(aoi, p.Orb()) {
			n++
		}
	}
	return n
}

func covers(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	case orb.Ring:
		return planar.RingContains(g, p)
	case orb.Collection:
		for _, c := range g {
			if covers(c, p) {
				return true
			}
		}
		return false
	default:
		return g.Bound().Contains(p)
	}
}
