package composite

import (
	"fmt"
	"math"

	"github.com/sfomuseum/go-datacube-filmstrip/raster"
	"gonum.org/v1/gonum/floats"
)

const geomedianTolerance = 1e-7
const geomedianMaxIterations = 100

// Geomedian reduces a stack of co-registered rasters to a single
// raster whose every pixel is the geometric median of that pixel's
// band vectors across the stack. The geometric median is the
// multi-band generalization of the median: one representative,
// outlier-resistant value per location. Pixels with no valid
// observation anywhere in the stack stay nodata.
func Geomedian(stack []*raster.Raster) (*raster.Raster, error) {

	if len(stack) == 0 {
		return nil, fmt.Errorf("Empty stack")
	}

	first := stack[0]

	for i, r := range stack[1:] {

		if !first.SameShape(r) {
			return nil, fmt.Errorf("Raster %d does not share the stack's shape (%dx%d, %d bands)", i+1, first.Width, first.Height, first.NumBands())
		}
	}

	if len(stack) == 1 {
		return first, nil
	}

	bands := first.NumBands()
	out := raster.New(first.Width, first.Height, bands)

	obs := make([][]float64, 0, len(stack))
	buf := make([]float64, bands)

	for y := 0; y < first.Height; y++ {
		for x := 0; x < first.Width; x++ {

			obs = obs[:0]

			for _, r := range stack {

				buf = r.Pixel(x, y, buf)

				if hasNaN(buf) {
					continue
				}

				vec := make([]float64, bands)
				copy(vec, buf)

				obs = append(obs, vec)
			}

			switch len(obs) {
			case 0:
				// stays nodata
			case 1:
				out.SetPixel(x, y, obs[0])
			default:
				out.SetPixel(x, y, weiszfeld(obs))
			}
		}
	}

	return out, nil
}

// weiszfeld iterates toward the geometric median of points, starting
// from their component-wise mean.
func weiszfeld(points [][]float64) []float64 {

	dims := len(points[0])

	est := make([]float64, dims)

	for _, p := range points {
		floats.Add(est, p)
	}

	floats.Scale(1.0/float64(len(points)), est)

	next := make([]float64, dims)

	for i := 0; i < geomedianMaxIterations; i++ {

		for d := range next {
			next[d] = 0.0
		}

		weight := 0.0
		coincident := false

		for _, p := range points {

			dist := floats.Distance(est, p, 2)

			// the estimate landed on an observation; the iteration is
			// undefined there and the observation is within tolerance

			if dist < geomedianTolerance {
				coincident = true
				break
			}

			w := 1.0 / dist

			floats.AddScaled(next, w, p)
			weight += w
		}

		if coincident {
			break
		}

		floats.Scale(1.0/weight, next)

		moved := floats.Distance(next, est, 2)
		copy(est, next)

		if moved < geomedianTolerance {
			break
		}
	}

	return est
}

func hasNaN(vals []float64) bool {

	for _, v := range vals {

		if math.IsNaN(v) {
			return true
		}
	}

	return false
}
