package earthengine

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

const (
	RadarCollection            = "COPERNICUS/S1_GRD_FLOAT"
	OpticalCollection          = "COPERNICUS/S2"
	OpticalHarmonized          = "COPERNICUS/S2_SR_HARMONIZED"
	CloudProbabilityCollection = "COPERNICUS/S2_CLOUD_PROBABILITY"
)

// Params fixes the image products and the region reduction.
type Params struct {
	Start string
	End   string
	AOI   orb.Geometry

	OpticalCollection  string
	CloudFilter        float64 // max CLOUDY_PIXEL_PERCENTAGE of a scene
	CloudProbThreshold float64 // s2cloudless probability above which a pixel is cloud
	NIRDarkThreshold   float64 // reflectance below which NIR is dark
	CloudProjDist      float64 // km of cloud shadow projection
	Buffer             float64 // m of mask dilation
	ReflectanceScale   float64

	Scale     float64
	TileScale float64
}

// DefaultParams reproduces the September 2018 extraction.
func DefaultParams() Params {
	return Params{
		Start:              "2018-09-01",
		End:                "2018-09-30",
		OpticalCollection:  OpticalCollection,
		CloudFilter:        70,
		CloudProbThreshold: 70,
		NIRDarkThreshold:   0.15,
		CloudProjDist:      1,
		Buffer:             40,
		ReflectanceScale:   1e4,
		Scale:              10,
		TileScale:          4,
	}
}

// Key identifies the products so cached reductions are never reused across
// different dates, regions or thresholds.
func (p Params) Key() string {
	aoi, _ := json.Marshal(geometryCoordinates(p.AOI))
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%g|%g|%g|%g|%g|%g|%g|%g|%s",
		p.Start, p.End, p.OpticalCollection, p.CloudFilter, p.CloudProbThreshold,
		p.NIRDarkThreshold, p.CloudProjDist, p.Buffer, p.ReflectanceScale,
		p.Scale, p.TileScale, aoi)
	return hex.EncodeToString(h.Sum(nil))
}

func names(values ...string) *Value {
	out := make([]*Value, len(values))
	for i, v := range values {
		out[i] = Const(v)
	}
	return Array(out...)
}

func filter(collection, f *Value) *Value {
	return Call("Collection.filter", Args{"collection": collection, "filter": f})
}

func filterDate(collection *Value, start, end string) *Value {
	return filter(collection, Call("Filter.dateRangeContains", Args{
		"leftValue":  Call("DateRange", Args{"start": Const(start), "end": Const(end)}),
		"rightField": Const("system:time_start"),
	}))
}

func filterBounds(collection, geometry *Value) *Value {
	return filter(collection, Call("Filter.intersects", Args{
		"leftField":  Const(".all"),
		"rightValue": geometry,
	}))
}

func equals(field string, v any) *Value {
	return Call("Filter.equals", Args{"leftField": Const(field), "rightValue": Const(v)})
}

func mapCollection(g *Graph, collection, body *Value) *Value {
	return Call("Collection.map", Args{"collection": collection, "baseAlgorithm": g.Lambda(body, "img")})
}

func sel(img *Value, bands ...string) *Value {
	return Call("Image.select", Args{"input": img, "bandSelectors": names(bands...)})
}

func rename(img *Value, labels ...string) *Value {
	return Call("Image.rename", Args{"input": img, "names": names(labels...)})
}

func addBands(dst, src *Value) *Value {
	return Call("Image.addBands", Args{"dstImg": dst, "srcImg": src})
}

func binary(op string, a, b *Value) *Value {
	return Call("Image."+op, Args{"image1": a, "image2": b})
}

func constant(v float64) *Value {
	return Call("Image.constant", Args{"value": Const(v)})
}

func get(object *Value, property string) *Value {
	return Call("Element.get", Args{"object": object, "property": Const(property)})
}

func reproject(img, like *Value, scale float64) *Value {
	return Call("Image.reproject", Args{
		"image": img,
		"crs":   Call("Image.projection", Args{"image": Call("Image.select", Args{"input": like, "bandSelectors": Array(Const(0))})}),
		"scale": Const(scale),
	})
}

// median reduces a collection per pixel and strips the reducer suffix from
// the band names.
func median(collection *Value) *Value {
	return Call("Image.regexpRename", Args{
		"input": Call("ImageCollection.reduce", Args{
			"collection": collection,
			"reducer":    Call("Reducer.median", nil),
		}),
		"regex":       Const("_median$"),
		"replacement": Const(""),
	})
}

func clip(img, geometry *Value) *Value {
	return Call("Image.clip", Args{"input": img, "geometry": geometry})
}

// Radar is the median Sentinel-1 IW image with a VH/VV ratio band, clipped to the AOI.
func Radar(g *Graph, p Params) (*Value, error) {
	aoi, err := Geometry(p.AOI)
	if err != nil {
		return nil, err
	}
	col := Call("ImageCollection.load", Args{"id": Const(RadarCollection)})
	col = filter(col, equals("instrumentMode", "IW"))
	col = filter(col, equals("resolution_meters", 10))
	col = filterDate(col, p.Start, p.End)
	col = filterBounds(col, aoi)

	img := Arg("img")
	ratio := rename(binary("divide", sel(img, "VH"), sel(img, "VV")), "VH_VV_ratio")
	col = mapCollection(g, col, addBands(img, ratio))

	return clip(median(col), aoi), nil
}

// Optical is the median Sentinel-2 image of B2, B3, B4 and B8 with clouds and
// cloud shadows masked, clipped to the AOI.
func Optical(g *Graph, p Params) (*Value, error) {
	aoi, err := Geometry(p.AOI)
	if err != nil {
		return nil, err
	}
	collection := p.OpticalCollection
	if collection == "" {
		collection = OpticalCollection
	}

	scenes := Call("ImageCollection.load", Args{"id": Const(collection)})
	scenes = filterBounds(scenes, aoi)
	scenes = filterDate(scenes, p.Start, p.End)
	scenes = filter(scenes, Call("Filter.lessThanOrEquals", Args{
		"leftField":  Const("CLOUDY_PIXEL_PERCENTAGE"),
		"rightValue": Const(p.CloudFilter),
	}))

	probability := Call("ImageCollection.load", Args{"id": Const(CloudProbabilityCollection)})
	probability = filterBounds(probability, aoi)
	probability = filterDate(probability, p.Start, p.End)

	col := Call("Join.apply", Args{
		"join":      Call("Join.saveFirst", Args{"matchKey": Const("s2cloudless")}),
		"primary":   scenes,
		"secondary": probability,
		"condition": Call("Filter.equals", Args{
			"leftField":  Const("system:index"),
			"rightField": Const("system:index"),
		}),
	})

	img := Arg("img")

	// clouds
	prob := sel(get(img, "s2cloudless"), "probability")
	isCloud := rename(binary("gt", prob, constant(p.CloudProbThreshold)), "clouds")
	col = mapCollection(g, col, addBands(addBands(img, prob), isCloud))

	// shadows
	ndwi := Call("Image.normalizedDifference", Args{"input": img, "bandNames": names("B3", "B8")})
	notWater := binary("lt", ndwi, constant(0.3))
	dark := rename(binary("multiply",
		binary("lt", sel(img, "B8"), constant(p.NIRDarkThreshold*p.ReflectanceScale)),
		notWater), "dark_pixels")
	azimuth := Call("Number.subtract", Args{"left": Const(90), "right": get(img, "MEAN_SOLAR_AZIMUTH_ANGLE")})
	projection := Call("Image.directionalDistanceTransform", Args{
		"source":      sel(img, "clouds"),
		"angle":       azimuth,
		"maxDistance": Const(p.CloudProjDist * 10),
	})
	projection = rename(Call("Image.mask", Args{"image": sel(reproject(projection, img, 100), "distance")}), "cloud_transform")
	shadows := rename(binary("multiply", projection, dark), "shadows")
	col = mapCollection(g, col, addBands(addBands(addBands(img, dark), projection), shadows))

	// mask
	mask := binary("gt", binary("add", sel(img, "clouds"), sel(img, "shadows")), constant(0))
	mask = Call("Image.focal_min", Args{"image": mask, "radius": Const(2), "units": Const("pixels")})
	mask = Call("Image.focal_max", Args{"image": mask, "radius": Const(p.Buffer * 2 / 20), "units": Const("pixels")})
	mask = rename(reproject(mask, img, 20), "cloudmask")
	col = mapCollection(g, col, addBands(img, mask))

	col = mapCollection(g, col, Call("Image.updateMask", Args{
		"image": sel(img, "B2", "B3", "B4", "B8"),
		"mask":  Call("Image.not", Args{"value": sel(img, "cloudmask")}),
	}))

	return clip(median(col), aoi), nil
}

// Combined stacks radar VV and VH with the optical NDVI.
func Combined(g *Graph, p Params) (*Value, error) {
	radar, err := Radar(g, p)
	if err != nil {
		return nil, err
	}
	optical, err := Optical(g, p)
	if err != nil {
		return nil, err
	}
	ndvi := rename(Call("Image.normalizedDifference", Args{"input": optical, "bandNames": names("B8", "B4")}), "NDVI")
	return addBands(sel(radar, "VV", "VH"), ndvi), nil
}
