package filmstrip

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/sfomuseum/go-datacube-filmstrip/common"
	"github.com/sfomuseum/go-datacube-filmstrip/raster"
	"github.com/tidwall/gjson"
)

// AOI is an area of interest: a GeoJSON Feature document selected by
// the operator ahead of a run, together with the bounding box derived
// from its geometry.
type AOI struct {
	// The relative path the document was read from (and that run
	// reports are written back to).
	Path string
	// The raw GeoJSON Feature document.
	Body []byte
	// The bounding box of the feature geometry, in the coordinates the
	// document uses.
	Bounds raster.Bounds
}

// LoadAOI reads an area-of-interest GeoJSON document from a
// whosonfirst/go-reader source.
func LoadAOI(ctx context.Context, reader_uri string, path string) (*AOI, error) {

	rdr, err := common.NewReader(ctx, reader_uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to create reader for '%s', %w", reader_uri, err)
	}

	fh, err := rdr.Read(ctx, path)

	if err != nil {
		return nil, fmt.Errorf("Failed to read AOI document '%s', %w", path, err)
	}

	defer fh.Close()

	body, err := io.ReadAll(fh)

	if err != nil {
		return nil, fmt.Errorf("Failed to read AOI body for '%s', %w", path, err)
	}

	return NewAOI(path, body)
}

// NewAOI derives an AOI from a GeoJSON Feature document body.
func NewAOI(path string, body []byte) (*AOI, error) {

	geom_rsp := gjson.GetBytes(body, "geometry.coordinates")

	if !geom_rsp.Exists() {
		return nil, fmt.Errorf("AOI document '%s' is missing geometry.coordinates", path)
	}

	b := raster.Bounds{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}

	count := 0

	var walk func(rsp gjson.Result)

	walk = func(rsp gjson.Result) {

		if !rsp.IsArray() {
			return
		}

		positions := rsp.Array()

		// a position is an array whose first element is a number

		if len(positions) >= 2 && positions[0].Type == gjson.Number {

			x := positions[0].Float()
			y := positions[1].Float()

			b.MinX = math.Min(b.MinX, x)
			b.MinY = math.Min(b.MinY, y)
			b.MaxX = math.Max(b.MaxX, x)
			b.MaxY = math.Max(b.MaxY, y)

			count += 1
			return
		}

		for _, child := range positions {
			walk(child)
		}
	}

	walk(geom_rsp)

	if count == 0 {
		return nil, fmt.Errorf("AOI document '%s' has no coordinate positions", path)
	}

	aoi := &AOI{
		Path:   path,
		Body:   body,
		Bounds: b,
	}

	return aoi, nil
}
