package gather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aaronland/go-image-tools/util"
	"github.com/sfomuseum/go-datacube-filmstrip"
	"github.com/sfomuseum/go-datacube-filmstrip/common"
	"gocloud.dev/blob"
	_ "golang.org/x/image/tiff"
)

// GatherSceneResponse describes a single scene that satisfied the
// parameter record during a crawl of a scene bucket.
type GatherSceneResponse struct {
	// The key for the scene raster.
	Path string
	// The key for the metadata sidecar document the scene was derived from.
	MetadataPath string
	// The scene record parsed from the sidecar document.
	Scene *filmstrip.Scene
	// The SHA-1 fingerprint of the raster object.
	Fingerprint string
	// Optional perceptual hashes of the raster, for duplicate detection.
	ImageHashes []*common.ImageHashRsp
}

// GatherSceneCallbackFunc is invoked once for every gathered scene.
type GatherSceneCallbackFunc func(*GatherSceneResponse) error

type GatherScenesOptions struct {
	// The parameter record scenes are filtered against.
	Parameters *filmstrip.Parameters
	Callback   GatherSceneCallbackFunc
	HashScenes bool
}

// GatherScenes crawls a scene bucket and dispatches every scene that
// matches the parameter record to cb. Callbacks run concurrently;
// callers that accumulate scenes guard their own state.
func GatherScenes(ctx context.Context, bucket *blob.Bucket, params *filmstrip.Parameters, cb GatherSceneCallbackFunc) error {

	opts := &GatherScenesOptions{
		Parameters: params,
		Callback:   cb,
		HashScenes: false,
	}

	return GatherScenesWithOptions(ctx, bucket, opts)
}

func GatherScenesWithOptions(ctx context.Context, bucket *blob.Bucket, opts *GatherScenesOptions) error {

	err := opts.Parameters.Verify()

	if err != nil {
		return fmt.Errorf("Failed to verify parameters, %w", err)
	}

	gather_ch := make(chan *GatherSceneResponse)

	done_ch := make(chan bool)
	err_ch := make(chan error)

	go func() {

		err := CrawlScenes(ctx, bucket, opts, gather_ch)

		if err != nil {
			err_ch <- err
		}

		done_ch <- true
	}()

	gathering := true
	wg := new(sync.WaitGroup)

	for {
		select {

		case <-done_ch:
			gathering = false
		case err := <-err_ch:
			return err
		case gather_rsp := <-gather_ch:

			wg.Add(1)

			go func(rsp *GatherSceneResponse) {

				defer wg.Done()

				err := opts.Callback(rsp)

				if err != nil {
					slog.Error("Failed to process scene", "path", rsp.Path, "error", err)
				}

			}(gather_rsp)

		}

		if !gathering {
			break
		}
	}

	wg.Wait()
	return nil
}

// CrawlScenes iterates through all the items stored in a blob.Bucket
// instance, generates a GatherSceneResponse for every metadata sidecar
// whose scene matches the parameter record and dispatches the response
// to a user-defined channel.
func CrawlScenes(ctx context.Context, bucket *blob.Bucket, opts *GatherScenesOptions, rsp_ch chan *GatherSceneResponse) error {

	bucket_iter := bucket.List(nil)

	for {

		select {
		case <-ctx.Done():
			return nil
		default:
			// pass
		}

		obj, err := bucket_iter.Next(ctx)

		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("Failed to iterate bucket, %w", err)
		}

		if filepath.Ext(obj.Key) != ".json" {
			continue
		}

		rsp, err := GatherSceneResponseWithPath(ctx, bucket, opts, obj.Key)

		if err != nil {
			return fmt.Errorf("Failed to gather scene for '%s', %w", obj.Key, err)
		}

		if rsp == nil {
			continue
		}

		rsp_ch <- rsp
	}

	return nil
}

// GatherSceneResponseWithPath derives a GatherSceneResponse for a
// single metadata sidecar document. It returns (nil, nil) when the
// scene exists but does not match the parameter record.
func GatherSceneResponseWithPath(ctx context.Context, bucket *blob.Bucket, opts *GatherScenesOptions, metadata_path string) (*GatherSceneResponse, error) {

	fh, err := bucket.NewReader(ctx, metadata_path, nil)

	if err != nil {
		return nil, fmt.Errorf("Failed to create reader for '%s', %w", metadata_path, err)
	}

	body, err := io.ReadAll(fh)

	fh.Close()

	if err != nil {
		return nil, fmt.Errorf("Failed to read '%s', %w", metadata_path, err)
	}

	raster_path := strings.TrimSuffix(metadata_path, ".json") + ".tif"

	scene, err := filmstrip.UnmarshalScene(metadata_path, raster_path, body)

	if err != nil {
		return nil, fmt.Errorf("Failed to unmarshal scene for '%s', %w", metadata_path, err)
	}

	if !scene.Matches(opts.Parameters) {
		return nil, nil
	}

	exists, err := bucket.Exists(ctx, raster_path)

	if err != nil {
		return nil, fmt.Errorf("Failed to determine if '%s' exists, %w", raster_path, err)
	}

	if !exists {
		slog.Warn("Scene metadata has no raster, skipping", "metadata", metadata_path, "raster", raster_path)
		return nil, nil
	}

	fp, err := common.FingerprintObject(ctx, bucket, raster_path)

	if err != nil {
		return nil, fmt.Errorf("Failed to fingerprint '%s', %w", raster_path, err)
	}

	rsp := &GatherSceneResponse{
		Path:         raster_path,
		MetadataPath: metadata_path,
		Scene:        scene,
		Fingerprint:  fp,
	}

	if opts.HashScenes {

		im_fh, err := bucket.NewReader(ctx, raster_path, nil)

		if err != nil {
			return nil, fmt.Errorf("Failed to create reader for '%s', %w", raster_path, err)
		}

		im, _, err := util.DecodeImageFromReader(im_fh)

		im_fh.Close()

		if err != nil {
			return nil, fmt.Errorf("Failed to decode image from '%s', %w", raster_path, err)
		}

		hashes, err := common.ImageHashes(ctx, im)

		if err != nil {
			return nil, fmt.Errorf("Failed to hash image from '%s', %w", raster_path, err)
		}

		rsp.ImageHashes = hashes
	}

	return rsp, nil
}
