package filmstrip

import (
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/stat"
)

// SLCFailureDate is the day the Landsat-7 scan line corrector failed.
// Scenes acquired after this date have gaps unless the sensor data is
// explicitly included.
var SLCFailureDate = time.Date(2003, time.May, 31, 0, 0, 0, 0, time.UTC)

// Scene is a single acquisition in the data cube: a raster object in a
// bucket plus the properties read from its metadata sidecar document.
type Scene struct {
	// The key for the raster object in the scene bucket.
	Key string `json:"key"`
	// The key for the metadata sidecar document.
	MetadataKey string `json:"metadata_key"`
	// The acquisition time of the scene.
	Datetime time.Time `json:"datetime"`
	// The platform that acquired the scene, for example "landsat-7".
	Platform string `json:"platform"`
	// Percentage cloud cover reported for the scene.
	CloudCover float64 `json:"cloud_cover"`
	// Modeled tide height, in metres, at acquisition time.
	TideHeight float64 `json:"tide_height"`
}

// UnmarshalScene derives a Scene from a metadata sidecar document. The
// document is expected to carry STAC-style properties: datetime,
// eo:cloud_cover, platform and tide:height.
func UnmarshalScene(metadata_key string, raster_key string, body []byte) (*Scene, error) {

	dt_rsp := gjson.GetBytes(body, "properties.datetime")

	if !dt_rsp.Exists() {
		return nil, fmt.Errorf("Metadata document '%s' is missing properties.datetime", metadata_key)
	}

	dt, err := time.Parse(time.RFC3339, dt_rsp.String())

	if err != nil {
		return nil, fmt.Errorf("Failed to parse datetime for '%s', %w", metadata_key, err)
	}

	s := &Scene{
		Key:         raster_key,
		MetadataKey: metadata_key,
		Datetime:    dt,
	}

	platform_rsp := gjson.GetBytes(body, "properties.platform")

	if platform_rsp.Exists() {
		s.Platform = platform_rsp.String()
	}

	cloud_rsp := gjson.GetBytes(body, "properties.eo:cloud_cover")

	if cloud_rsp.Exists() {
		s.CloudCover = cloud_rsp.Float()
	}

	tide_rsp := gjson.GetBytes(body, "properties.tide:height")

	if tide_rsp.Exists() {
		s.TideHeight = tide_rsp.Float()
	}

	return s, nil
}

// SLCOff reports whether the scene was acquired by Landsat-7 after the
// scan line corrector failed.
func (s *Scene) SLCOff() bool {

	if s.Platform != "landsat-7" {
		return false
	}

	return s.Datetime.After(SLCFailureDate)
}

// Matches reports whether the scene satisfies the analysis window,
// cloud ceiling and sensor-inclusion settings in p. Tide filtering is
// a property of the gathered set as a whole, so it is applied
// separately by FilterTideRange.
func (s *Scene) Matches(p *Parameters) bool {

	if !p.TimeRange.Contains(s.Datetime) {
		return false
	}

	if s.CloudCover > float64(p.MaxCloud) {
		return false
	}

	if s.SLCOff() && !p.IncludeSLCOff {
		return false
	}

	return true
}

// FilterTideRange keeps the scenes whose tide height falls inside the
// [lo, hi] percentile window of the set. A (0, 1) window applies no
// filtering at all.
func FilterTideRange(scenes []*Scene, lo float64, hi float64) ([]*Scene, error) {

	if lo < 0.0 || hi > 1.0 || lo > hi {
		return nil, fmt.Errorf("Invalid tide range (%0.2f, %0.2f)", lo, hi)
	}

	if lo == 0.0 && hi == 1.0 {
		return scenes, nil
	}

	if len(scenes) == 0 {
		return scenes, nil
	}

	heights := make([]float64, len(scenes))

	for i, s := range scenes {
		heights[i] = s.TideHeight
	}

	sort.Float64s(heights)

	min_height := stat.Quantile(lo, stat.Empirical, heights, nil)
	max_height := stat.Quantile(hi, stat.Empirical, heights, nil)

	filtered := make([]*Scene, 0, len(scenes))

	for _, s := range scenes {

		if s.TideHeight < min_height || s.TideHeight > max_height {
			continue
		}

		filtered = append(filtered, s)
	}

	return filtered, nil
}
