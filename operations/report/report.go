package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aaronland/go-string/random"
	"github.com/sfomuseum/go-datacube-filmstrip"
	"github.com/sfomuseum/go-datacube-filmstrip/common"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/export"
	"github.com/tidwall/sjson"
	"github.com/whosonfirst/go-ioutil"
	wof_export "github.com/whosonfirst/go-whosonfirst-export/v3"
)

// RunReport captures what a filmstrip run produced, for appending to
// the area-of-interest document it was run against.
type RunReport struct {
	// The parameter record the run used, recorded verbatim.
	Parameters *filmstrip.Parameters `json:"parameters"`
	// The key the filmstrip visualization was written to.
	Filmstrip string `json:"filmstrip"`
	// The per-group export results, in collection order.
	Exports []*export.ExportResponse `json:"exports"`
	// How many scenes survived filtering and fed the composites.
	SceneCount int `json:"scene_count"`
}

// ReportProcessor publishes run reports back on to their
// area-of-interest documents.
type ReportProcessor struct {
	// A valid whosonfirst/go-writer URI where updated documents are
	// published.
	WriterURI string
	// A valid whosonfirst/go-whosonfirst-export Exporter for
	// re-exporting the updated documents.
	Exporter wof_export.Exporter
}

// ProcessRun appends report properties to the AOI document, re-exports
// it and publishes the result to the processor's writer under the
// document's original path.
func (p *ReportProcessor) ProcessRun(ctx context.Context, aoi *filmstrip.AOI, report *RunReport) error {

	select {
	case <-ctx.Done():
		return nil
	default:
		// pass
	}

	body, err := appendRun(aoi.Body, report)

	if err != nil {
		return fmt.Errorf("Failed to append report to '%s', %w", aoi.Path, err)
	}

	_, body, err = p.Exporter.Export(ctx, body)

	if err != nil {
		return fmt.Errorf("Failed to re-export '%s', %w", aoi.Path, err)
	}

	wr, err := common.NewWriter(ctx, p.WriterURI)

	if err != nil {
		return fmt.Errorf("Failed to create writer for '%s', %w", p.WriterURI, err)
	}

	br := bytes.NewReader(body)
	fh, err := ioutil.NewReadSeekCloser(br)

	if err != nil {
		return fmt.Errorf("Failed to create ReadSeekCloser for '%s', %w", aoi.Path, err)
	}

	_, err = wr.Write(ctx, aoi.Path, fh)

	if err != nil {
		return fmt.Errorf("Failed to write report to '%s', %w", aoi.Path, err)
	}

	return nil
}

// appendRun assigns filmstrip:* properties from report to body.
func appendRun(body []byte, report *RunReport) ([]byte, error) {

	rand_opts := random.DefaultOptions()
	rand_opts.AlphaNumeric = true

	run_id, err := random.String(rand_opts)

	if err != nil {
		return nil, fmt.Errorf("Failed to generate run ID, %w", err)
	}

	logger := slog.Default()
	logger = logger.With("run id", run_id)

	logger.Debug("Append run report")

	updates := map[string]interface{}{
		"properties.filmstrip:run_id":      run_id,
		"properties.filmstrip:parameters":  report.Parameters,
		"properties.filmstrip:filmstrip":   report.Filmstrip,
		"properties.filmstrip:exports":     report.Exports,
		"properties.filmstrip:scene_count": report.SceneCount,
	}

	for path, value := range updates {

		body, err = sjson.SetBytes(body, path, value)

		if err != nil {
			return nil, fmt.Errorf("Failed to assign %s property, %w", path, err)
		}
	}

	logger.Debug("Finished appending run report")
	return body, nil
}
