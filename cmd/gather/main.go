package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/sfomuseum/go-datacube-filmstrip"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/gather"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
)

func main() {

	output_name := flag.String("output-name", "example", "A string label used to compose output file names.")
	start_date := flag.String("start-date", "1988-01-01", "The inclusive start of the analysis window (YYYY-MM-DD).")
	end_date := flag.String("end-date", "2017-12-31", "The inclusive end of the analysis window (YYYY-MM-DD).")
	max_cloud := flag.Int("max-cloud", 50, "The maximum acceptable cloud cover per scene, as a percentage.")
	slc_off := flag.Bool("ls7-slc-off", false, "Include Landsat-7 scenes acquired after the SLC failure.")
	hash_scenes := flag.Bool("hash-scenes", false, "Compute perceptual image hashes for every gathered scene.")

	flag.Parse()

	ctx := context.Background()

	params := filmstrip.DefaultParameters()
	params.OutputName = *output_name
	params.MaxCloud = *max_cloud
	params.IncludeSLCOff = *slc_off

	tr, err := filmstrip.NewTimeRange(*start_date, *end_date)

	if err != nil {
		log.Fatal(err)
	}

	params.TimeRange = tr

	cb := func(rsp *gather.GatherSceneResponse) error {

		enc, err := json.Marshal(rsp)

		if err != nil {
			return err
		}

		fmt.Println(string(enc))
		return nil
	}

	opts := &gather.GatherScenesOptions{
		Parameters: params,
		Callback:   cb,
		HashScenes: *hash_scenes,
	}

	for _, uri := range flag.Args() {

		log.Println(uri)

		bucket, err := blob.OpenBucket(ctx, uri)

		if err != nil {
			log.Fatal(err)
		}

		err = gather.GatherScenesWithOptions(ctx, bucket, opts)

		if err != nil {
			log.Fatal(err)
		}

		bucket.Close()
	}
}
