package composite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	infos map[string]RasterInfo
	reads map[string][2]int
	fail  string
}

func (f *fakeSource) Info(path string) (RasterInfo, error) {
	info, ok := f.infos[path]
	if !ok {
		return RasterInfo{}, errors.New("no such raster")
	}
	return info, nil
}

func (f *fakeSource) ReadBand(path string, width, height int) ([]float32, error) {
	if path == f.fail {
		return nil, errors.New("decode failed")
	}
	f.mu.Lock()
	if f.reads == nil {
		f.reads = map[string][2]int{}
	}
	f.reads[path] = [2]int{width, height}
	f.mu.Unlock()
	data := make([]float32, width*height)
	for i := range data {
		data[i] = float32(len(path))
	}
	return data, nil
}

type fakeSink struct {
	path  string
	grid  Grid
	bands []Band
}

func (f *fakeSink) WriteStack(path string, grid Grid, bands []Band) error {
	f.path, f.grid, f.bands = path, grid, bands
	return nil
}

func info(res float64, w, h int) RasterInfo {
	return RasterInfo{
		Width:      w,
		Height:     h,
		Transform:  [6]float64{600000, res, 0, 1500000, 0, -res},
		Projection: "EPSG:32643",
	}
}

func TestStackBringsMixedResolutionsOntoOneGrid(t *testing.T) {
	layout := Layout{
		{Name: "B05", Pattern: "B05", Resolution: 20},
		{Name: "B02", Pattern: "B02", Resolution: 10},
		{Name: "B04", Pattern: "B04", Resolution: 10},
		{Name: "B11", Pattern: "B11", Resolution: 20},
	}
	src := &fakeSource{infos: map[string]RasterInfo{
		"b05": info(20, 50, 40),
		"b02": info(10, 100, 80),
		"b04": info(10, 100, 80),
		"b11": info(20, 50, 40),
	}}
	c := New(src, &fakeSink{}, layout, 10)

	res, err := c.Stack(context.Background(), []string{"b05", "b02", "b04", "b11"})
	require.NoError(t, err)

	assert.Equal(t, 100, res.Grid.Width)
	assert.Equal(t, 80, res.Grid.Height)
	assert.Equal(t, info(10, 100, 80).Transform, res.Grid.Transform)
	require.Len(t, res.Bands, 4)
	for i, b := range res.Bands {
		assert.Equal(t, layout[i], b.Spec)
		assert.Len(t, b.Data, 100*80)
	}
	assert.Equal(t, [2]int{100, 80}, src.reads["b05"])
	assert.Equal(t, [2]int{100, 80}, src.reads["b11"])
}

func TestStackWithoutNativeBandScalesFirstBand(t *testing.T) {
	layout := Layout{{Name: "B05", Pattern: "B05", Resolution: 20}, {Name: "B11", Pattern: "B11", Resolution: 20}}
	src := &fakeSource{infos: map[string]RasterInfo{"b05": info(20, 50, 40), "b11": info(20, 50, 40)}}

	res, err := New(src, &fakeSink{}, layout, 10).Stack(context.Background(), []string{"b05", "b11"})
	require.NoError(t, err)

	assert.Equal(t, 100, res.Grid.Width)
	assert.Equal(t, 80, res.Grid.Height)
	assert.Equal(t, 10.0, res.Grid.Transform[1])
	assert.Equal(t, -10.0, res.Grid.Transform[5])
}

func TestStackRejectsNativeBandOffGrid(t *testing.T) {
	layout := Layout{{Name: "B02", Pattern: "B02", Resolution: 10}, {Name: "B03", Pattern: "B03", Resolution: 10}}
	src := &fakeSource{infos: map[string]RasterInfo{"b02": info(10, 100, 80), "b03": info(10, 99, 80)}}

	_, err := New(src, &fakeSink{}, layout, 10).Stack(context.Background(), []string{"b02", "b03"})
	assert.ErrorIs(t, err, ErrGridMismatch)
}

func TestStackPropagatesReadErrors(t *testing.T) {
	layout := Layout{{Name: "B02", Pattern: "B02", Resolution: 10}, {Name: "B05", Pattern: "B05", Resolution: 20}}
	src := &fakeSource{infos: map[string]RasterInfo{"b02": info(10, 10, 10), "b05": info(20, 5, 5)}, fail: "b05"}

	_, err := New(src, &fakeSink{}, layout, 10).Stack(context.Background(), []string{"b02", "b05"})
	assert.ErrorContains(t, err, "decode failed")
}

func TestRunWritesStackInLayoutOrder(t *testing.T) {
	root := safeTree(t)
	paths, err := Discover(root, DefaultLayout)
	require.NoError(t, err)

	infos := map[string]RasterInfo{}
	for i, p := range paths {
		if DefaultLayout[i].Resolution == 10 {
			infos[p] = info(10, 20, 20)
		} else {
			infos[p] = info(20, 10, 10)
		}
	}
	sink := &fakeSink{}
	res, err := New(&fakeSource{infos: infos}, sink, nil, 0).Run(context.Background(), root, "composite.tif")
	require.NoError(t, err)

	assert.Equal(t, "composite.tif", sink.path)
	assert.Equal(t, res.Grid, sink.grid)
	require.Len(t, sink.bands, len(DefaultLayout))
	for i, b := range sink.bands {
		assert.Equal(t, DefaultLayout[i].Name, b.Spec.Name)
		assert.Equal(t, paths[i], b.Path)
		assert.Len(t, b.Data, 400)
	}
}
