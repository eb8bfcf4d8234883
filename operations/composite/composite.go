package composite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sfomuseum/go-datacube-filmstrip"
	"github.com/sfomuseum/go-datacube-filmstrip/raster"
	"gocloud.dev/blob"
)

// Composite is one entry in the composite result collection: the
// geomedian raster for a single time-step group, labeled by the period
// that produced it.
type Composite struct {
	// The time-period label for the group, for example "1988".
	Label string
	// The period the group covers.
	Period *filmstrip.Period
	// The composited raster.
	Raster *raster.Raster
	// How many scenes were reduced in to the composite.
	SceneCount int
}

type CompositeScenesOptions struct {
	// The parameter record the scenes were gathered with.
	Parameters *filmstrip.Parameters
	// Optional projected extent to stamp on the composites, typically
	// the area-of-interest bounds.
	Bounds raster.Bounds
}

// CompositeScenes groups scenes in to time-step bins and reduces every
// non-empty bin to its geomedian composite. The returned collection is
// ordered chronologically and is iterated exactly once by the export
// loop.
func CompositeScenes(ctx context.Context, bucket *blob.Bucket, opts *CompositeScenesOptions, scenes []*filmstrip.Scene) ([]*Composite, error) {

	bins, err := opts.Parameters.Bins()

	if err != nil {
		return nil, fmt.Errorf("Failed to derive bins, %w", err)
	}

	groups := make([][]*filmstrip.Scene, len(bins))

	for _, s := range scenes {

		for i, bin := range bins {

			if bin.Contains(s.Datetime) {
				groups[i] = append(groups[i], s)
				break
			}
		}
	}

	type compositeRsp struct {
		Index     int
		Composite *Composite
	}

	done_ch := make(chan bool)
	err_ch := make(chan error)
	rsp_ch := make(chan *compositeRsp)

	remaining := 0

	for i, group := range groups {

		if len(group) == 0 {
			slog.Debug("No scenes for period, skipping", "label", bins[i].Label)
			continue
		}

		remaining += 1

		go func(idx int, bin *filmstrip.Period, group []*filmstrip.Scene) {

			defer func() {
				done_ch <- true
			}()

			c, err := compositeGroup(ctx, bucket, opts, bin, group)

			if err != nil {
				err_ch <- fmt.Errorf("Failed to composite period '%s', %w", bin.Label, err)
				return
			}

			rsp_ch <- &compositeRsp{
				Index:     idx,
				Composite: c,
			}

		}(i, bins[i], group)
	}

	by_index := make([]*Composite, len(bins))
	composite_errors := make([]string, 0)

	for remaining > 0 {
		select {
		case <-done_ch:
			remaining -= 1
		case err := <-err_ch:
			composite_errors = append(composite_errors, err.Error())
		case rsp := <-rsp_ch:
			by_index[rsp.Index] = rsp.Composite
		}
	}

	if len(composite_errors) > 0 {
		return nil, fmt.Errorf("One or more composite errors: %s", strings.Join(composite_errors, "; "))
	}

	composites := make([]*Composite, 0, len(bins))

	for _, c := range by_index {

		if c == nil {
			continue
		}

		composites = append(composites, c)
	}

	return composites, nil
}

func compositeGroup(ctx context.Context, bucket *blob.Bucket, opts *CompositeScenesOptions, bin *filmstrip.Period, group []*filmstrip.Scene) (*Composite, error) {

	select {
	case <-ctx.Done():
		return nil, nil
	default:
		// pass
	}

	stack := make([]*raster.Raster, len(group))

	for i, s := range group {

		fh, err := bucket.NewReader(ctx, s.Key, nil)

		if err != nil {
			return nil, fmt.Errorf("Failed to create reader for '%s', %w", s.Key, err)
		}

		r, err := raster.Decode(fh)

		fh.Close()

		if err != nil {
			return nil, fmt.Errorf("Failed to decode raster for '%s', %w", s.Key, err)
		}

		stack[i] = r
	}

	reduced, err := Geomedian(stack)

	if err != nil {
		return nil, fmt.Errorf("Failed to reduce stack, %w", err)
	}

	reduced.Bounds = opts.Bounds
	reduced.Resolution = opts.Parameters.Resolution

	c := &Composite{
		Label:      bin.Label,
		Period:     bin,
		Raster:     reduced,
		SceneCount: len(group),
	}

	return c, nil
}
