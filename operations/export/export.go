package export

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/composite"
	"gocloud.dev/blob"
)

// ExportResponse describes a single exported composite group.
type ExportResponse struct {
	// The time-period label for the group.
	Label string `json:"label"`
	// The key the GeoTIFF was written to.
	Path string `json:"path"`
	// The SHA-1 fingerprint of the encoded raster.
	Fingerprint string `json:"fingerprint"`
	// Whether the write was skipped (existing object, or fingerprint
	// already published by an earlier run).
	Skipped bool `json:"skipped,omitempty"`
}

// ExportCallbackFunc is invoked once per group, after that group's
// write (or skip) completes and before the next group is touched.
type ExportCallbackFunc func(*ExportResponse) error

type ExportGeoTIFFsOptions struct {
	// The bucket exports are written to.
	Target *blob.Bucket
	// The output_name parameter used to compose file names.
	OutputName string
	// Overwrite objects that already exist.
	Force bool
	// Optional S3 canned ACL (for example "public-read") applied to
	// each write when the target bucket is S3-backed.
	ACL string
	// Also write an ESRI world file alongside each GeoTIFF.
	WorldFiles bool
	// Optional fingerprint lookup built from earlier run reports;
	// composites whose fingerprint is present are skipped.
	Lookup *sync.Map
	// Optional per-group callback.
	Callback ExportCallbackFunc
}

// ExportGeoTIFFs writes one GeoTIFF per composite group, in collection
// order, named geotiff_{output_name}_{label}.tif. A write failure
// aborts the remaining exports; the responses returned cover only the
// groups processed before the failure.
func ExportGeoTIFFs(ctx context.Context, opts *ExportGeoTIFFsOptions, composites ...*composite.Composite) ([]*ExportResponse, error) {

	if opts.OutputName == "" {
		return nil, fmt.Errorf("Missing output name")
	}

	responses := make([]*ExportResponse, 0, len(composites))

	for _, c := range composites {

		select {
		case <-ctx.Done():
			return responses, nil
		default:
			// pass
		}

		rsp, err := exportGeoTIFF(ctx, opts, c)

		if err != nil {
			return responses, fmt.Errorf("Failed to export '%s', %w", c.Label, err)
		}

		if opts.Callback != nil {

			err := opts.Callback(rsp)

			if err != nil {
				return responses, fmt.Errorf("Failed to execute export callback for '%s', %w", c.Label, err)
			}
		}

		responses = append(responses, rsp)
	}

	return responses, nil
}

func exportGeoTIFF(ctx context.Context, opts *ExportGeoTIFFsOptions, c *composite.Composite) (*ExportResponse, error) {

	target_path := fmt.Sprintf("geotiff_%s_%s.tif", opts.OutputName, c.Label)

	logger := slog.Default()
	logger = logger.With("path", target_path)

	rsp := &ExportResponse{
		Label: c.Label,
		Path:  target_path,
	}

	var buf bytes.Buffer

	err := c.Raster.Encode(&buf)

	if err != nil {
		return nil, fmt.Errorf("Failed to encode raster, %w", err)
	}

	h := sha1.Sum(buf.Bytes())
	rsp.Fingerprint = hex.EncodeToString(h[:])

	if opts.Lookup != nil {

		existing, ok := opts.Lookup.Load(rsp.Fingerprint)

		if ok {
			logger.Debug("Composite already published, skipping", "existing", existing)
			rsp.Skipped = true
			return rsp, nil
		}
	}

	if !opts.Force {

		exists, err := opts.Target.Exists(ctx, target_path)

		if err != nil {
			return nil, fmt.Errorf("Failed to determine if '%s' exists, %w", target_path, err)
		}

		if exists {
			logger.Debug("Export already exists, skipping")
			rsp.Skipped = true
			return rsp, nil
		}
	}

	var wr_opts *blob.WriterOptions

	if opts.ACL != "" {

		before := func(asFunc func(interface{}) bool) error {

			s3_req := &s3manager.UploadInput{}
			ok := asFunc(&s3_req)

			if ok {
				s3_req.ACL = aws.String(opts.ACL)
			}

			return nil
		}

		wr_opts = &blob.WriterOptions{
			BeforeWrite: before,
		}
	}

	wr, err := opts.Target.NewWriter(ctx, target_path, wr_opts)

	if err != nil {
		return nil, fmt.Errorf("Failed to create writer for '%s', %w", target_path, err)
	}

	_, err = wr.Write(buf.Bytes())

	if err != nil {
		wr.Close()
		opts.Target.Delete(ctx, target_path)
		return nil, fmt.Errorf("Failed to write '%s', %w", target_path, err)
	}

	err = wr.Close()

	if err != nil {
		return nil, fmt.Errorf("Failed to close '%s', %w", target_path, err)
	}

	if opts.WorldFiles {

		world_path := strings.TrimSuffix(target_path, ".tif") + ".tfw"

		err := opts.Target.WriteAll(ctx, world_path, []byte(c.Raster.WorldFile()), wr_opts)

		if err != nil {
			opts.Target.Delete(ctx, target_path)
			return nil, fmt.Errorf("Failed to write '%s', %w", world_path, err)
		}
	}

	return rsp, nil
}
