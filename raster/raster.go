package raster

// In-memory representation for the single- and multi-band rasters the
// compositing operations work on. Samples are float64 reflectance in
// [0, 1] and NaN marks nodata (masked or missing pixels).

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Bounds is a rectangle in projected coordinates.
type Bounds struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// Raster is a grid of multi-band samples with optional georeferencing.
type Raster struct {
	Width  int
	Height int
	// Band planes, each Width*Height long in row-major order.
	Bands [][]float64
	// The projected extent of the raster, if known.
	Bounds Bounds
	// Pixel size pair (y, x) in projected units. The y size is
	// conventionally negative (north-up).
	Resolution [2]float64
}

// New returns a raster of the given dimensions with every sample set
// to NaN.
func New(width int, height int, bands int) *Raster {

	planes := make([][]float64, bands)

	for b := range planes {

		plane := make([]float64, width*height)

		for i := range plane {
			plane[i] = math.NaN()
		}

		planes[b] = plane
	}

	return &Raster{
		Width:  width,
		Height: height,
		Bands:  planes,
	}
}

func (r *Raster) NumBands() int {
	return len(r.Bands)
}

func (r *Raster) At(band int, x int, y int) float64 {
	return r.Bands[band][y*r.Width+x]
}

func (r *Raster) Set(band int, x int, y int, v float64) {
	r.Bands[band][y*r.Width+x] = v
}

// Pixel copies the band vector at (x, y) in to buf, allocating when
// buf is too small.
func (r *Raster) Pixel(x int, y int, buf []float64) []float64 {

	if cap(buf) < len(r.Bands) {
		buf = make([]float64, len(r.Bands))
	}

	buf = buf[:len(r.Bands)]

	for b := range r.Bands {
		buf[b] = r.Bands[b][y*r.Width+x]
	}

	return buf
}

// SetPixel assigns the band vector at (x, y).
func (r *Raster) SetPixel(x int, y int, vals []float64) {

	for b := range r.Bands {
		r.Bands[b][y*r.Width+x] = vals[b]
	}
}

// SameShape reports whether other has the same dimensions and band
// count as r.
func (r *Raster) SameShape(other *Raster) bool {
	return r.Width == other.Width && r.Height == other.Height && len(r.Bands) == len(other.Bands)
}

// ToImage renders the raster as a 16-bit image. Single-band rasters
// become grayscale; anything else maps the first three bands to RGB.
// Pixels whose every band is NaN are fully transparent.
func (r *Raster) ToImage() image.Image {

	rect := image.Rect(0, 0, r.Width, r.Height)

	if len(r.Bands) == 1 {

		im := image.NewGray16(rect)

		for y := 0; y < r.Height; y++ {
			for x := 0; x < r.Width; x++ {

				v := r.At(0, x, y)

				if math.IsNaN(v) {
					continue
				}

				im.SetGray16(x, y, color.Gray16{Y: toUint16(v)})
			}
		}

		return im
	}

	im := image.NewNRGBA64(rect)

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {

			var px color.NRGBA64
			nodata := true

			channels := []*uint16{&px.R, &px.G, &px.B}

			for c, ch := range channels {

				band := c

				if band >= len(r.Bands) {
					band = len(r.Bands) - 1
				}

				v := r.At(band, x, y)

				if math.IsNaN(v) {
					continue
				}

				nodata = false
				*ch = toUint16(v)
			}

			if nodata {
				continue
			}

			px.A = math.MaxUint16
			im.SetNRGBA64(x, y, px)
		}
	}

	return im
}

// FromImage converts a decoded image back in to reflectance planes.
// Grayscale images yield one band, everything else yields three.
// Fully-transparent pixels become NaN.
func FromImage(im image.Image) (*Raster, error) {

	b := im.Bounds()

	w := b.Dx()
	h := b.Dy()

	if w == 0 || h == 0 {
		return nil, fmt.Errorf("Image has empty bounds %v", b)
	}

	var bands int

	switch im.(type) {
	case *image.Gray, *image.Gray16:
		bands = 1
	default:
		bands = 3
	}

	r := New(w, h, bands)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {

			cr, cg, cb, ca := im.At(b.Min.X+x, b.Min.Y+y).RGBA()

			if ca == 0 {
				continue
			}

			if bands == 1 {
				r.Set(0, x, y, float64(cr)/math.MaxUint16)
				continue
			}

			r.Set(0, x, y, float64(cr)/math.MaxUint16)
			r.Set(1, x, y, float64(cg)/math.MaxUint16)
			r.Set(2, x, y, float64(cb)/math.MaxUint16)
		}
	}

	return r, nil
}

func toUint16(v float64) uint16 {

	if v <= 0.0 {
		return 0
	}

	if v >= 1.0 {
		return math.MaxUint16
	}

	return uint16(v * math.MaxUint16)
}
