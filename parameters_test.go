package filmstrip

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParameters(t *testing.T) {

	p := DefaultParameters()

	assert.Equal(t, [2]float64{0.0, 1.0}, p.TideRange)
	assert.Equal(t, [2]float64{-30, 30}, p.Resolution)
	assert.Equal(t, 50, p.MaxCloud)
	assert.False(t, p.IncludeSLCOff)
	assert.Equal(t, TimeStep{Years: 5}, p.TimeStep)

	assert.Equal(t, "1988-01-01", p.TimeRange.Start.Format(DateFormat))
	assert.Equal(t, "2017-12-31", p.TimeRange.End.Format(DateFormat))

	require.NoError(t, p.Verify())
}

func TestParametersRoundTrip(t *testing.T) {

	p := DefaultParameters()
	p.OutputName = "westport"
	p.TideRange = [2]float64{0.25, 0.75}

	enc, err := json.Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"output_name": "westport",
		"time_range": ["1988-01-01", "2017-12-31"],
		"time_step": {"years": 5},
		"tide_range": [0.25, 0.75],
		"resolution": [-30, 30],
		"max_cloud": 50,
		"ls7_slc_off": false
	}`, string(enc))

	var decoded Parameters

	require.NoError(t, json.Unmarshal(enc, &decoded))
	assert.Equal(t, *p, decoded)
}

func TestParametersVerify(t *testing.T) {

	tests := []struct {
		name   string
		modify func(*Parameters)
	}{
		{"missing output name", func(p *Parameters) { p.OutputName = "" }},
		{"inverted time range", func(p *Parameters) { p.TimeRange.Start, p.TimeRange.End = p.TimeRange.End, p.TimeRange.Start }},
		{"zero time step", func(p *Parameters) { p.TimeStep = TimeStep{} }},
		{"tide range out of bounds", func(p *Parameters) { p.TideRange = [2]float64{-0.1, 1.0} }},
		{"inverted tide range", func(p *Parameters) { p.TideRange = [2]float64{0.8, 0.2} }},
		{"zero resolution", func(p *Parameters) { p.Resolution = [2]float64{0, 30} }},
		{"cloud percentage out of range", func(p *Parameters) { p.MaxCloud = 101 }},
	}

	for _, tc := range tests {

		t.Run(tc.name, func(t *testing.T) {

			p := DefaultParameters()
			tc.modify(p)

			assert.Error(t, p.Verify())
		})
	}
}

func TestTimeStepString(t *testing.T) {

	assert.Equal(t, "5y", TimeStep{Years: 5}.String())
	assert.Equal(t, "6m", TimeStep{Months: 6}.String())
	assert.Equal(t, "1y6m", TimeStep{Years: 1, Months: 6}.String())
	assert.Equal(t, "10d", TimeStep{Days: 10}.String())
	assert.Equal(t, "0", TimeStep{}.String())
}

func TestTimeRangeContains(t *testing.T) {

	tr, err := NewTimeRange("1988-01-01", "2017-12-31")
	require.NoError(t, err)

	require.NoError(t, err)

	for _, good := range []string{"1988-01-01", "2000-06-15", "2017-12-31"} {
		d, err := NewTimeRange(good, good)
		require.NoError(t, err)
		assert.True(t, tr.Contains(d.Start), good)
	}

	for _, bad := range []string{"1987-12-31", "2018-01-01"} {
		d, err := NewTimeRange(bad, bad)
		require.NoError(t, err)
		assert.False(t, tr.Contains(d.Start), bad)
	}
}
