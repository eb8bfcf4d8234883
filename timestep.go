package filmstrip

import (
	"fmt"
	"time"
)

// Period is a single half-open aggregation bin inside the analysis
// window. Label is derived from Start by the time step that produced
// the bin.
type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the period. Periods are
// half-open on the right except that the final period is clipped to
// the analysis window and includes its end date.
func (p *Period) Contains(t time.Time) bool {

	if t.Before(p.Start) {
		return false
	}

	return t.Before(p.End)
}

// Bins divides the analysis window in to consecutive periods of one
// time step each. A 1988-01-01 to 2017-12-31 window stepped in 5-year
// increments yields six bins labeled 1988, 1993, 1998, 2003, 2008 and
// 2013, in that order.
func (p *Parameters) Bins() ([]*Period, error) {

	err := p.Verify()

	if err != nil {
		return nil, fmt.Errorf("Failed to verify parameters, %w", err)
	}

	bins := make([]*Period, 0)

	// the end of the window bounds the whole final day

	window_end := p.TimeRange.End.AddDate(0, 0, 1)

	for start := p.TimeRange.Start; start.Before(window_end); start = p.TimeStep.Advance(start) {

		end := p.TimeStep.Advance(start)

		if end.After(window_end) {
			end = window_end
		}

		bin := &Period{
			Label: p.TimeStep.Label(start),
			Start: start,
			End:   end,
		}

		bins = append(bins, bin)
	}

	return bins, nil
}
