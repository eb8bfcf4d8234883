// filmstrip gathers the satellite scenes matching a parameter record,
// composites them in to per-period geomedian rasters, renders a
// filmstrip visualization and exports one GeoTIFF per period.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"sync"

	"github.com/sfomuseum/go-datacube-filmstrip"
	"github.com/sfomuseum/go-datacube-filmstrip/lookup"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/composite"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/export"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/gather"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/render"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/report"
	wof_export "github.com/whosonfirst/go-whosonfirst-export/v3"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
)

func main() {

	scenes_uri := flag.String("scenes-bucket-uri", "", "A valid gocloud.dev/blob URI where scenes are stored.")
	outputs_uri := flag.String("outputs-bucket-uri", "", "A valid gocloud.dev/blob URI where the filmstrip and GeoTIFF exports are written.")

	aoi_reader_uri := flag.String("aoi-reader-uri", "", "An optional whosonfirst/go-reader URI where the area-of-interest document is read from.")
	aoi_path := flag.String("aoi-path", "", "The relative path of the area-of-interest GeoJSON document.")
	writer_uri := flag.String("writer-uri", "", "An optional whosonfirst/go-writer URI where the updated area-of-interest document is published.")
	exporter_uri := flag.String("exporter-uri", "whosonfirst://", "A valid whosonfirst/go-whosonfirst-export URI.")
	lookup_uri := flag.String("lookup-bucket-uri", "", "An optional gocloud.dev/blob URI holding earlier run reports, used to skip unchanged exports.")

	output_name := flag.String("output-name", "example", "A string label used to compose output file names.")
	start_date := flag.String("start-date", "1988-01-01", "The inclusive start of the analysis window (YYYY-MM-DD).")
	end_date := flag.String("end-date", "2017-12-31", "The inclusive end of the analysis window (YYYY-MM-DD).")
	step_years := flag.Int("step-years", 5, "The number of years per aggregation period.")
	step_months := flag.Int("step-months", 0, "The number of months per aggregation period.")
	step_days := flag.Int("step-days", 0, "The number of days per aggregation period.")
	tide_min := flag.Float64("tide-min", 0.0, "The lower bound of the tidal-height percentile window, in [0, 1].")
	tide_max := flag.Float64("tide-max", 1.0, "The upper bound of the tidal-height percentile window, in [0, 1].")
	resolution_y := flag.Float64("resolution-y", -30.0, "The pixel y size in projected units.")
	resolution_x := flag.Float64("resolution-x", 30.0, "The pixel x size in projected units.")
	max_cloud := flag.Int("max-cloud", 50, "The maximum acceptable cloud cover per scene, as a percentage.")
	slc_off := flag.Bool("ls7-slc-off", false, "Include Landsat-7 scenes acquired after the SLC failure.")

	hash_scenes := flag.Bool("hash-scenes", false, "Compute perceptual image hashes for every gathered scene.")
	panel_size := flag.Int("panel-size", 0, "The pixel width of each filmstrip panel. Zero means the default.")
	force := flag.Bool("force", false, "Overwrite exports that already exist.")
	acl := flag.String("acl", "", "An optional S3 canned ACL to apply to exports.")
	world_files := flag.Bool("world-files", false, "Write an ESRI world file alongside each GeoTIFF.")

	flag.Parse()

	ctx := context.Background()

	tr, err := filmstrip.NewTimeRange(*start_date, *end_date)

	if err != nil {
		log.Fatalf("Failed to parse time range, %v", err)
	}

	params := &filmstrip.Parameters{
		OutputName: *output_name,
		TimeRange:  tr,
		TimeStep: filmstrip.TimeStep{
			Years:  *step_years,
			Months: *step_months,
			Days:   *step_days,
		},
		TideRange:     [2]float64{*tide_min, *tide_max},
		Resolution:    [2]float64{*resolution_y, *resolution_x},
		MaxCloud:      *max_cloud,
		IncludeSLCOff: *slc_off,
	}

	err = params.Verify()

	if err != nil {
		log.Fatalf("Failed to verify parameters, %v", err)
	}

	scenes_bucket, err := blob.OpenBucket(ctx, *scenes_uri)

	if err != nil {
		log.Fatalf("Failed to open scenes bucket, %v", err)
	}

	defer scenes_bucket.Close()

	outputs_bucket, err := blob.OpenBucket(ctx, *outputs_uri)

	if err != nil {
		log.Fatalf("Failed to open outputs bucket, %v", err)
	}

	defer outputs_bucket.Close()

	var aoi *filmstrip.AOI

	if *aoi_reader_uri != "" && *aoi_path != "" {

		aoi, err = filmstrip.LoadAOI(ctx, *aoi_reader_uri, *aoi_path)

		if err != nil {
			log.Fatalf("Failed to load AOI, %v", err)
		}

		slog.Info("Loaded AOI", "path", aoi.Path, "bounds", aoi.Bounds)
	}

	mu := new(sync.Mutex)
	scenes := make([]*filmstrip.Scene, 0)

	cb := func(rsp *gather.GatherSceneResponse) error {

		mu.Lock()
		defer mu.Unlock()

		scenes = append(scenes, rsp.Scene)
		return nil
	}

	gather_opts := &gather.GatherScenesOptions{
		Parameters: params,
		Callback:   cb,
		HashScenes: *hash_scenes,
	}

	err = gather.GatherScenesWithOptions(ctx, scenes_bucket, gather_opts)

	if err != nil {
		log.Fatalf("Failed to gather scenes, %v", err)
	}

	slog.Info("Gathered scenes", "count", len(scenes))

	scenes, err = filmstrip.FilterTideRange(scenes, params.TideRange[0], params.TideRange[1])

	if err != nil {
		log.Fatalf("Failed to filter tide range, %v", err)
	}

	slog.Info("Filtered scenes by tide range", "count", len(scenes))

	composite_opts := &composite.CompositeScenesOptions{
		Parameters: params,
	}

	if aoi != nil {
		composite_opts.Bounds = aoi.Bounds
	}

	composites, err := composite.CompositeScenes(ctx, scenes_bucket, composite_opts, scenes)

	if err != nil {
		log.Fatalf("Failed to composite scenes, %v", err)
	}

	slog.Info("Composited scenes", "periods", len(composites))

	render_opts := &render.RenderFilmstripOptions{
		Parameters: params,
		Bucket:     outputs_bucket,
		PanelSize:  *panel_size,
	}

	filmstrip_path, err := render.RenderFilmstrip(ctx, render_opts, composites)

	if err != nil {
		log.Fatalf("Failed to render filmstrip, %v", err)
	}

	slog.Info("Rendered filmstrip", "path", filmstrip_path)

	var skip_lookup *sync.Map

	if *lookup_uri != "" {

		l, err := lookup.NewBlobLookerUpper(ctx, *lookup_uri)

		if err != nil {
			log.Fatalf("Failed to create lookup, %v", err)
		}

		looker_uppers := []lookup.LookerUpper{l}

		append_funcs := []lookup.AppendLookupFunc{
			lookup.ExportFingerprintAppendLookupFunc,
		}

		skip_lookup, err = lookup.NewLookupMap(ctx, looker_uppers, append_funcs)

		if err != nil {
			log.Fatalf("Failed to build lookup map, %v", err)
		}
	}

	export_opts := &export.ExportGeoTIFFsOptions{
		Target:     outputs_bucket,
		OutputName: params.OutputName,
		Force:      *force,
		ACL:        *acl,
		WorldFiles: *world_files,
		Lookup:     skip_lookup,
	}

	responses, err := export.ExportGeoTIFFs(ctx, export_opts, composites...)

	if err != nil {
		log.Fatalf("Failed to export GeoTIFFs, %v", err)
	}

	for _, rsp := range responses {
		slog.Info("Exported GeoTIFF", "label", rsp.Label, "path", rsp.Path, "skipped", rsp.Skipped)
	}

	if aoi != nil && *writer_uri != "" {

		ex, err := wof_export.NewExporter(ctx, *exporter_uri)

		if err != nil {
			log.Fatalf("Failed to create exporter, %v", err)
		}

		pr := &report.ReportProcessor{
			WriterURI: *writer_uri,
			Exporter:  ex,
		}

		run := &report.RunReport{
			Parameters: params,
			Filmstrip:  filmstrip_path,
			Exports:    responses,
			SceneCount: len(scenes),
		}

		err = pr.ProcessRun(ctx, aoi, run)

		if err != nil {
			log.Fatalf("Failed to publish run report, %v", err)
		}

		slog.Info("Published run report", "path", aoi.Path)
	}
}
