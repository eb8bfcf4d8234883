package composite

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sfomuseum/go-datacube-filmstrip"
	"github.com/sfomuseum/go-datacube-filmstrip/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/fileblob"
)

func writeScene(t *testing.T, dir string, name string, datetime string, value float64) *filmstrip.Scene {

	t.Helper()

	r := raster.New(4, 4, 1)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r.Set(0, x, y, value)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf))

	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".tif"), buf.Bytes(), 0644))

	metadata := fmt.Sprintf(`{"id":%q,"properties":{"datetime":%q,"platform":"landsat-5","eo:cloud_cover":5,"tide:height":0.5}}`, name, datetime)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(metadata), 0644))

	s, err := filmstrip.UnmarshalScene(name+".json", name+".tif", []byte(metadata))
	require.NoError(t, err)

	return s
}

func TestCompositeScenes(t *testing.T) {

	ctx := context.Background()

	dir := t.TempDir()

	bucket, err := fileblob.OpenBucket(dir, nil)
	require.NoError(t, err)

	defer bucket.Close()

	scenes := []*filmstrip.Scene{
		writeScene(t, dir, "scene-1989", "1989-03-01T00:00:00Z", 0.2),
		writeScene(t, dir, "scene-1990", "1990-03-01T00:00:00Z", 0.2),
		writeScene(t, dir, "scene-1994", "1994-03-01T00:00:00Z", 0.6),
		writeScene(t, dir, "scene-2014", "2014-03-01T00:00:00Z", 0.8),
	}

	params := filmstrip.DefaultParameters()

	opts := &CompositeScenesOptions{
		Parameters: params,
	}

	composites, err := CompositeScenes(ctx, bucket, opts, scenes)
	require.NoError(t, err)

	// 1998, 2003 and 2008 have no scenes and are skipped

	require.Len(t, composites, 3)

	assert.Equal(t, "1988", composites[0].Label)
	assert.Equal(t, "1993", composites[1].Label)
	assert.Equal(t, "2013", composites[2].Label)

	assert.Equal(t, 2, composites[0].SceneCount)
	assert.Equal(t, 1, composites[1].SceneCount)
	assert.Equal(t, 1, composites[2].SceneCount)

	assert.InDelta(t, 0.2, composites[0].Raster.At(0, 0, 0), 1e-3)
	assert.InDelta(t, 0.6, composites[1].Raster.At(0, 0, 0), 1e-3)
	assert.InDelta(t, 0.8, composites[2].Raster.At(0, 0, 0), 1e-3)

	// composites carry the parameter resolution for georeferencing

	assert.Equal(t, params.Resolution, composites[0].Raster.Resolution)
}

func TestCompositeScenesEmpty(t *testing.T) {

	ctx := context.Background()

	dir := t.TempDir()

	bucket, err := fileblob.OpenBucket(dir, nil)
	require.NoError(t, err)

	defer bucket.Close()

	opts := &CompositeScenesOptions{
		Parameters: filmstrip.DefaultParameters(),
	}

	composites, err := CompositeScenes(ctx, bucket, opts, nil)
	require.NoError(t, err)

	assert.Empty(t, composites)
}
