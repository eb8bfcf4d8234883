package composite

import (
	"math"
	"testing"

	"github.com/sfomuseum/go-datacube-filmstrip/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformRaster(w int, h int, vals []float64) *raster.Raster {

	r := raster.New(w, h, len(vals))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.SetPixel(x, y, vals)
		}
	}

	return r
}

func TestGeomedianConstantStack(t *testing.T) {

	stack := []*raster.Raster{
		uniformRaster(3, 3, []float64{0.2, 0.4, 0.6}),
		uniformRaster(3, 3, []float64{0.2, 0.4, 0.6}),
		uniformRaster(3, 3, []float64{0.2, 0.4, 0.6}),
	}

	out, err := Geomedian(stack)
	require.NoError(t, err)

	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			px := out.Pixel(x, y, nil)
			assert.InDelta(t, 0.2, px[0], 1e-6)
			assert.InDelta(t, 0.4, px[1], 1e-6)
			assert.InDelta(t, 0.6, px[2], 1e-6)
		}
	}
}

func TestGeomedianOutlierResistance(t *testing.T) {

	// four clean observations and one saturated outlier; a mean would
	// land near 0.34, the geometric median stays near the cluster

	stack := []*raster.Raster{
		uniformRaster(2, 2, []float64{0.20, 0.20, 0.20}),
		uniformRaster(2, 2, []float64{0.21, 0.20, 0.19}),
		uniformRaster(2, 2, []float64{0.19, 0.21, 0.20}),
		uniformRaster(2, 2, []float64{0.20, 0.19, 0.21}),
		uniformRaster(2, 2, []float64{0.95, 0.95, 0.95}),
	}

	out, err := Geomedian(stack)
	require.NoError(t, err)

	px := out.Pixel(0, 0, nil)

	for b := 0; b < 3; b++ {
		assert.InDelta(t, 0.2, px[b], 0.02)
	}
}

func TestGeomedianSkipsNodataObservations(t *testing.T) {

	masked := uniformRaster(2, 2, []float64{math.NaN()})
	clean := uniformRaster(2, 2, []float64{0.4})

	out, err := Geomedian([]*raster.Raster{masked, clean, masked})
	require.NoError(t, err)

	assert.InDelta(t, 0.4, out.At(0, 0, 0), 1e-9)
}

func TestGeomedianAllNodataStaysNodata(t *testing.T) {

	masked := uniformRaster(2, 2, []float64{math.NaN()})

	out, err := Geomedian([]*raster.Raster{masked, masked})
	require.NoError(t, err)

	assert.True(t, math.IsNaN(out.At(0, 0, 0)))
}

func TestGeomedianSingleScenePassthrough(t *testing.T) {

	only := uniformRaster(2, 2, []float64{0.3})

	out, err := Geomedian([]*raster.Raster{only})
	require.NoError(t, err)

	assert.Same(t, only, out)
}

func TestGeomedianShapeMismatch(t *testing.T) {

	a := uniformRaster(2, 2, []float64{0.3})
	b := uniformRaster(3, 2, []float64{0.3})

	_, err := Geomedian([]*raster.Raster{a, b})
	assert.Error(t, err)
}

func TestGeomedianEmptyStack(t *testing.T) {

	_, err := Geomedian(nil)
	assert.Error(t, err)
}

func TestWeiszfeldMatchesScalarMedian(t *testing.T) {

	// in one dimension the geometric median is the ordinary median

	points := [][]float64{{0.1}, {0.2}, {0.3}, {0.4}, {0.9}}

	got := weiszfeld(points)
	assert.InDelta(t, 0.3, got[0], 1e-3)
}
