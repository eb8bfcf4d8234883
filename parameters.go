package filmstrip

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the layout used for dates in parameter records and
// period labels.
const DateFormat = "2006-01-02"

// Parameters is the user-editable configuration record consumed by the
// gather, composite, render and export operations. Fields pass through
// those operations unchanged.
type Parameters struct {
	// A string label used to compose output file names.
	OutputName string `json:"output_name"`
	// The inclusive date pair bounding the analysis window.
	TimeRange TimeRange `json:"time_range"`
	// The aggregation period size, for example {"years": 5}.
	TimeStep TimeStep `json:"time_step"`
	// A fraction pair in [0, 1] selecting a tidal-height percentile
	// window. (0, 1) applies no tide filtering.
	TideRange [2]float64 `json:"tide_range"`
	// Pixel size pair (y, x) in projected units.
	Resolution [2]float64 `json:"resolution"`
	// Integer percentage ceiling on acceptable cloud cover per scene.
	MaxCloud int `json:"max_cloud"`
	// Whether to include Landsat-7 scenes acquired after the SLC failure.
	IncludeSLCOff bool `json:"ls7_slc_off"`
}

// DefaultParameters returns a Parameters record populated with the
// documented defaults: a 1988-2017 window aggregated in 5-year steps,
// no tide filtering, 30m pixels, a 50 percent cloud ceiling and
// post-failure Landsat-7 data excluded.
func DefaultParameters() *Parameters {

	tr, _ := NewTimeRange("1988-01-01", "2017-12-31")

	return &Parameters{
		OutputName:    "example",
		TimeRange:     tr,
		TimeStep:      TimeStep{Years: 5},
		TideRange:     [2]float64{0.0, 1.0},
		Resolution:    [2]float64{-30, 30},
		MaxCloud:      50,
		IncludeSLCOff: false,
	}
}

// Verify ensures a Parameters record is internally consistent before
// any bucket I/O happens. Operations call this at their boundary.
func (p *Parameters) Verify() error {

	if p.OutputName == "" {
		return fmt.Errorf("Missing output_name")
	}

	if p.TimeRange.Start.IsZero() || p.TimeRange.End.IsZero() {
		return fmt.Errorf("Missing time_range")
	}

	if p.TimeRange.End.Before(p.TimeRange.Start) {
		return fmt.Errorf("Invalid time_range, %s is before %s", p.TimeRange.End.Format(DateFormat), p.TimeRange.Start.Format(DateFormat))
	}

	if p.TimeStep.IsZero() {
		return fmt.Errorf("Missing or zero time_step")
	}

	lo := p.TideRange[0]
	hi := p.TideRange[1]

	if lo < 0.0 || hi > 1.0 || lo > hi {
		return fmt.Errorf("Invalid tide_range (%0.2f, %0.2f)", lo, hi)
	}

	if p.Resolution[0] == 0.0 || p.Resolution[1] == 0.0 {
		return fmt.Errorf("Invalid resolution (%0.2f, %0.2f)", p.Resolution[0], p.Resolution[1])
	}

	if p.MaxCloud < 0 || p.MaxCloud > 100 {
		return fmt.Errorf("Invalid max_cloud %d", p.MaxCloud)
	}

	return nil
}

// TimeRange is an inclusive date pair. It marshals as a two-element
// array of YYYY-MM-DD strings.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange parses a start and end date in YYYY-MM-DD form.
func NewTimeRange(start string, end string) (TimeRange, error) {

	var tr TimeRange

	s, err := time.Parse(DateFormat, start)

	if err != nil {
		return tr, fmt.Errorf("Failed to parse start date '%s', %w", start, err)
	}

	e, err := time.Parse(DateFormat, end)

	if err != nil {
		return tr, fmt.Errorf("Failed to parse end date '%s', %w", end, err)
	}

	tr.Start = s
	tr.End = e

	return tr, nil
}

func (tr TimeRange) MarshalJSON() ([]byte, error) {

	pair := [2]string{
		tr.Start.Format(DateFormat),
		tr.End.Format(DateFormat),
	}

	return json.Marshal(pair)
}

func (tr *TimeRange) UnmarshalJSON(body []byte) error {

	var pair [2]string

	err := json.Unmarshal(body, &pair)

	if err != nil {
		return err
	}

	new_tr, err := NewTimeRange(pair[0], pair[1])

	if err != nil {
		return err
	}

	*tr = new_tr
	return nil
}

// Contains reports whether t falls inside the (inclusive) range. The
// end date bounds the whole day, so any time on the end date matches.
func (tr TimeRange) Contains(t time.Time) bool {

	if t.Before(tr.Start) {
		return false
	}

	return t.Before(tr.End.AddDate(0, 0, 1))
}

// TimeStep is an aggregation period size expressed as unit counts. It
// marshals as a unit-count object, for example {"years": 5}.
type TimeStep struct {
	Years  int `json:"years,omitempty"`
	Months int `json:"months,omitempty"`
	Days   int `json:"days,omitempty"`
}

func (ts TimeStep) IsZero() bool {
	return ts.Years == 0 && ts.Months == 0 && ts.Days == 0
}

// Advance returns t moved forward by one step.
func (ts TimeStep) Advance(t time.Time) time.Time {
	return t.AddDate(ts.Years, ts.Months, ts.Days)
}

// Label formats the start of a period to the coarsest unit the step
// uses. A step counted in whole years yields "2013", a step counted in
// months yields "2013-04" and anything finer yields a full date.
func (ts TimeStep) Label(t time.Time) string {

	switch {
	case ts.Months == 0 && ts.Days == 0:
		return t.Format("2006")
	case ts.Days == 0:
		return t.Format("2006-01")
	default:
		return t.Format(DateFormat)
	}
}

// String returns a compact form of the step suitable for file names,
// for example "5y" or "1y6m".
func (ts TimeStep) String() string {

	var b strings.Builder

	if ts.Years > 0 {
		fmt.Fprintf(&b, "%dy", ts.Years)
	}

	if ts.Months > 0 {
		fmt.Fprintf(&b, "%dm", ts.Months)
	}

	if ts.Days > 0 {
		fmt.Fprintf(&b, "%dd", ts.Days)
	}

	if b.Len() == 0 {
		return "0"
	}

	return b.String()
}
