package points

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samples = `Id,Longitude,Latitude,Crop
a,76.51,12.90,ragi
b,,12.91,paddy
c,76.53,NA,ragi
d,76.54,12.93,maize
e,NaN,12.94,ragi
f,76.56,12.95,null
`

func TestLoadDropsMissingCoordinates(t *testing.T) {
	pts, err := Load(strings.NewReader(samples), Options{})
	require.NoError(t, err)
	require.Len(t, pts, 3)

	for i, p := range pts {
		assert.Equal(t, i, p.Index)
	}
	assert.Equal(t, "a", pts[0].Attributes["Id"])
	assert.Equal(t, "d", pts[1].Attributes["Id"])
	assert.Equal(t, "f", pts[2].Attributes["Id"])
	assert.Equal(t, 76.54, pts[1].Longitude)
	assert.Equal(t, 12.93, pts[1].Latitude)
	assert.Equal(t, "null", pts[2].Attributes["Crop"])
	assert.NotContains(t, pts[0].Attributes, "Longitude")
}

func TestLoadCustomColumns(t *testing.T) {
	in := "x,y\n1.5,2.5\n3,\n"
	pts, err := Load(strings.NewReader(in), Options{LonColumn: "x", LatColumn: "y"})
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.Equal(t, 1.5, pts[0].Longitude)
	assert.Equal(t, 2.5, pts[0].Latitude)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(strings.NewReader("lon,lat\n1,2\n"), Options{})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Load(strings.NewReader("Longitude,Latitude\n1,2\nabc,3\n"), Options{})
	assert.ErrorIs(t, err, ErrBadCoordinate)
	assert.ErrorContains(t, err, "line 3")

	pts, err := Load(strings.NewReader("Longitude,Latitude\n"), Options{})
	require.NoError(t, err)
	assert.Empty(t, pts)
}
