package points

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoversEveryIndexOnce(t *testing.T) {
	cases := []struct {
		total, size, want int
	}{
		{2500, 1000, 3},
		{3000, 1000, 3},
		{1, 1000, 1},
		{999, 1, 999},
		{0, 1000, 0},
	}
	for _, tc := range cases {
		ranges, err := Partition(tc.total, tc.size)
		require.NoError(t, err)
		require.Len(t, ranges, tc.want, "%d/%d", tc.total, tc.size)

		next := 0
		for i, r := range ranges {
			assert.Equal(t, next, r.Start)
			assert.Greater(t, r.End, r.Start)
			if i < len(ranges)-1 {
				assert.Equal(t, tc.size, r.Len())
			}
			next = r.End
		}
		assert.Equal(t, tc.total, next)
	}
}

func TestPartition2500(t *testing.T) {
	ranges, err := Partition(2500, 1000)
	require.NoError(t, err)
	assert.Equal(t, []Range{{0, 1000}, {1000, 2000}, {2000, 2500}}, ranges)
	assert.Equal(t, "[2000,2500)", ranges[2].String())
}

func TestPartitionRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -5} {
		_, err := Partition(10, size)
		assert.ErrorIs(t, err, ErrBatchSize)
	}
}

func TestCountOutside(t *testing.T) {
	aoi := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	pts := []Point{
		{Longitude: 5, Latitude: 5},
		{Longitude: 11, Latitude: 5},
		{Longitude: 9.9, Latitude: 0.1},
		{Longitude: -1, Latitude: -1},
	}
	assert.Equal(t, 2, CountOutside(pts, aoi))
	assert.Equal(t, 1, CountOutside(pts, orb.MultiPolygon{aoi, {{{-2, -2}, {-0.5, -2}, {-0.5, -0.5}, {-2, -0.5}, {-2, -2}}}}))
	assert.Zero(t, CountOutside(pts, nil))
}
