package raster

import (
	"fmt"
	"io"

	"golang.org/x/image/tiff"
)

// Decode reads a TIFF raster. Georeferencing is not recovered from the
// stream; callers that need it attach bounds from scene metadata or a
// world file.
func Decode(r io.Reader) (*Raster, error) {

	im, err := tiff.Decode(r)

	if err != nil {
		return nil, fmt.Errorf("Failed to decode TIFF, %w", err)
	}

	return FromImage(im)
}

// Encode writes the raster as a deflate-compressed 16-bit TIFF.
func (r *Raster) Encode(wr io.Writer) error {

	opts := &tiff.Options{
		Compression: tiff.Deflate,
	}

	err := tiff.Encode(wr, r.ToImage(), opts)

	if err != nil {
		return fmt.Errorf("Failed to encode TIFF, %w", err)
	}

	return nil
}

// WorldFile returns the six-line ESRI world file companion for the
// raster: pixel sizes, (zero) rotation terms and the projected
// coordinates of the center of the upper-left pixel.
func (r *Raster) WorldFile() string {

	x_res := r.Resolution[1]
	y_res := r.Resolution[0]

	x_origin := r.Bounds.MinX + x_res/2.0
	y_origin := r.Bounds.MaxY + y_res/2.0

	return fmt.Sprintf("%f\n0.0\n0.0\n%f\n%f\n%f\n", x_res, y_res, x_origin, y_origin)
}
