package table

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows() []Row {
	return []Row{
		{Index: 0, Longitude: 76.5, Latitude: 12.9, VV: Some(0.12), VH: Some(0.03), NDVI: Some(0.61)},
		{Index: 1, Longitude: 76.6, Latitude: 12.8, VV: Some(0.1), VH: Some(0.02), NDVI: Value{}},
		{Index: 2, Longitude: 76.7, Latitude: 12.7, VV: Some(0.2), VH: Some(0.05), NDVI: Some(0)},
		{Index: 3, Longitude: 76.8, Latitude: 12.6, NDVI: Some(-0.2)},
	}
}

func TestFilterDropsMissingAndZeroNDVI(t *testing.T) {
	kept := Filter(rows())
	require.Len(t, kept, 2)
	assert.Equal(t, 0, kept[0].Index)
	assert.Equal(t, 3, kept[1].Index)
}

func TestWriteRowsKeepsMissingValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "index,Longitude,Latitude,VV,VH,NDVI", lines[0])
	assert.Equal(t, "0,76.5,12.9,0.12,0.03,0.61", lines[1])
	assert.Equal(t, "1,76.6,12.8,0.1,0.02,", lines[2])
	assert.Equal(t, "3,76.8,12.6,,,-0.2", lines[4])

	back, err := ReadRows(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows(), back)
}

func TestWriteRowsAppendsAttributeColumns(t *testing.T) {
	in := []Row{
		{Index: 0, Longitude: 76.5, Latitude: 12.9, NDVI: Some(0.61), Attributes: map[string]string{"Id": "a", "Crop": "ragi", "NDVI": "stale"}},
		{Index: 1, Longitude: 76.6, Latitude: 12.8, VV: Some(0.1), Attributes: map[string]string{"Id": "b, east"}},
		{Index: 2, Longitude: 76.7, Latitude: 12.7},
	}
	assert.Equal(t, []string{"Crop", "Id"}, AttributeColumns(in))

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, in))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "index,Longitude,Latitude,VV,VH,NDVI,Crop,Id", lines[0])
	assert.Equal(t, "0,76.5,12.9,,,0.61,ragi,a", lines[1])
	assert.Equal(t, `1,76.6,12.8,0.1,,,,"b, east"`, lines[2])
	assert.Equal(t, "2,76.7,12.7,,,,,", lines[3])

	back, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, back, 3)
	assert.Equal(t, Some(0.61), back[0].NDVI)
	assert.Nil(t, back[0].Attributes)
}

func TestSomeTreatsNaNAsMissing(t *testing.T) {
	assert.False(t, Some(math.NaN()).Valid)
	assert.True(t, Some(0).Valid)
}

func TestWriteFailures(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFailures(&buf, []Failure{{Start: 1000, End: 2000, Attempts: 3, Reason: "deadline exceeded"}}))
	assert.Equal(t, "start,end,attempts,reason\n1000,2000,3,deadline exceeded\n", buf.String())
}

func TestFileNames(t *testing.T) {
	assert.Equal(t, "Processed_Sentinel_Data_2023-01-01_2023-12-31.csv", FullName("2023-01-01", "2023-12-31"))
	assert.Equal(t, "filtered_points.csv", FilteredName(filepath.Join("data", "points.csv")))
	assert.Equal(t, "filtered_ragi_2018_09.csv", FilteredName("ragi_2018_09.txt"))
	assert.Equal(t, "filtered_points.csv", FilteredName("/tmp/points"))
	assert.Equal(t, "filtered_survey.v2.csv", FilteredName("survey.v2.tsv"))
	assert.Equal(t, "failed_batches_2023-01-01_2023-12-31.csv", FailuresName("2023-01-01", "2023-12-31"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, func(w io.Writer) error { return WriteRows(w, nil) }))
	assert.FileExists(t, path)
}
