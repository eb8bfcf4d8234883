package export

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sfomuseum/go-datacube-filmstrip/operations/composite"
	"github.com/sfomuseum/go-datacube-filmstrip/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/fileblob"
)

func testComposite(t *testing.T, label string, value float64) *composite.Composite {

	t.Helper()

	r := raster.New(2, 2, 1)

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			r.Set(0, x, y, value)
		}
	}

	r.Resolution = [2]float64{-30, 30}
	r.Bounds = raster.Bounds{
		MinX: 300000,
		MinY: 6270000,
		MaxX: 300060,
		MaxY: 6270060,
	}

	return &composite.Composite{
		Label:      label,
		Raster:     r,
		SceneCount: 1,
	}
}

func TestExportGeoTIFFs(t *testing.T) {

	ctx := context.Background()

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)

	defer bucket.Close()

	labels := []string{"1988", "1993", "1998", "2003", "2008", "2013"}

	composites := make([]*composite.Composite, len(labels))

	for i, label := range labels {
		composites[i] = testComposite(t, label, float64(i)/10.0)
	}

	seen := make([]string, 0)

	opts := &ExportGeoTIFFsOptions{
		Target:     bucket,
		OutputName: "example",
		Callback: func(rsp *ExportResponse) error {
			seen = append(seen, rsp.Path)
			return nil
		},
	}

	responses, err := ExportGeoTIFFs(ctx, opts, composites...)
	require.NoError(t, err)

	require.Len(t, responses, 6)

	expected := []string{
		"geotiff_example_1988.tif",
		"geotiff_example_1993.tif",
		"geotiff_example_1998.tif",
		"geotiff_example_2003.tif",
		"geotiff_example_2008.tif",
		"geotiff_example_2013.tif",
	}

	assert.Equal(t, expected, seen)

	for i, path := range expected {

		rsp := responses[i]

		assert.Equal(t, path, rsp.Path)
		assert.False(t, rsp.Skipped)
		assert.NotEmpty(t, rsp.Fingerprint)

		exists, err := bucket.Exists(ctx, path)
		require.NoError(t, err)
		assert.True(t, exists, path)
	}
}

func TestExportGeoTIFFsFailFast(t *testing.T) {

	ctx := context.Background()

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)

	defer bucket.Close()

	composites := []*composite.Composite{
		testComposite(t, "1988", 0.1),
		testComposite(t, "1993", 0.2),
		testComposite(t, "1998", 0.3),
	}

	count := 0

	opts := &ExportGeoTIFFsOptions{
		Target:     bucket,
		OutputName: "example",
		Callback: func(rsp *ExportResponse) error {

			count += 1

			if count == 2 {
				return fmt.Errorf("boom")
			}

			return nil
		},
	}

	responses, err := ExportGeoTIFFs(ctx, opts, composites...)
	require.Error(t, err)

	// only the group processed before the failure is reported

	require.Len(t, responses, 1)
	assert.Equal(t, "1988", responses[0].Label)

	// the remaining group was never touched

	exists, err := bucket.Exists(ctx, "geotiff_example_1998.tif")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExportGeoTIFFsSkipsExisting(t *testing.T) {

	ctx := context.Background()

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)

	defer bucket.Close()

	require.NoError(t, bucket.WriteAll(ctx, "geotiff_example_1988.tif", []byte("placeholder"), nil))

	opts := &ExportGeoTIFFsOptions{
		Target:     bucket,
		OutputName: "example",
	}

	responses, err := ExportGeoTIFFs(ctx, opts, testComposite(t, "1988", 0.1))
	require.NoError(t, err)

	require.Len(t, responses, 1)
	assert.True(t, responses[0].Skipped)

	// the placeholder was not overwritten

	body, err := bucket.ReadAll(ctx, "geotiff_example_1988.tif")
	require.NoError(t, err)
	assert.Equal(t, []byte("placeholder"), body)
}

func TestExportGeoTIFFsForceOverwrites(t *testing.T) {

	ctx := context.Background()

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)

	defer bucket.Close()

	require.NoError(t, bucket.WriteAll(ctx, "geotiff_example_1988.tif", []byte("placeholder"), nil))

	opts := &ExportGeoTIFFsOptions{
		Target:     bucket,
		OutputName: "example",
		Force:      true,
	}

	responses, err := ExportGeoTIFFs(ctx, opts, testComposite(t, "1988", 0.1))
	require.NoError(t, err)

	require.Len(t, responses, 1)
	assert.False(t, responses[0].Skipped)

	body, err := bucket.ReadAll(ctx, "geotiff_example_1988.tif")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("placeholder"), body)
}

func TestExportGeoTIFFsLookupSkip(t *testing.T) {

	ctx := context.Background()

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)

	defer bucket.Close()

	c := testComposite(t, "1988", 0.1)

	// export once to learn the fingerprint

	first, err := ExportGeoTIFFs(ctx, &ExportGeoTIFFsOptions{
		Target:     bucket,
		OutputName: "first",
	}, c)

	require.NoError(t, err)
	require.Len(t, first, 1)

	lookup := new(sync.Map)
	lookup.Store(first[0].Fingerprint, first[0].Path)

	responses, err := ExportGeoTIFFs(ctx, &ExportGeoTIFFsOptions{
		Target:     bucket,
		OutputName: "second",
		Lookup:     lookup,
	}, c)

	require.NoError(t, err)
	require.Len(t, responses, 1)

	assert.True(t, responses[0].Skipped)

	exists, err := bucket.Exists(ctx, "geotiff_second_1988.tif")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExportGeoTIFFsWorldFiles(t *testing.T) {

	ctx := context.Background()

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)

	defer bucket.Close()

	opts := &ExportGeoTIFFsOptions{
		Target:     bucket,
		OutputName: "example",
		WorldFiles: true,
	}

	_, err = ExportGeoTIFFs(ctx, opts, testComposite(t, "1988", 0.1))
	require.NoError(t, err)

	body, err := bucket.ReadAll(ctx, "geotiff_example_1988.tfw")
	require.NoError(t, err)

	assert.Equal(t, "30.000000\n0.0\n0.0\n-30.000000\n300015.000000\n6270045.000000\n", string(body))
}

func TestExportGeoTIFFsMissingOutputName(t *testing.T) {

	ctx := context.Background()

	bucket, err := fileblob.OpenBucket(t.TempDir(), nil)
	require.NoError(t, err)

	defer bucket.Close()

	_, err = ExportGeoTIFFs(ctx, &ExportGeoTIFFsOptions{Target: bucket}, testComposite(t, "1988", 0.1))
	assert.Error(t, err)
}
