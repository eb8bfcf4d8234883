package render

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sfomuseum/go-datacube-filmstrip"
	"github.com/sfomuseum/go-datacube-filmstrip/operations/composite"
	"github.com/sfomuseum/go-datacube-filmstrip/raster"
	"gocloud.dev/blob"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// The pixel width composite panels are resampled to before plotting.
const defaultPanelSize = 256

type RenderFilmstripOptions struct {
	// The parameter record the composites were produced with.
	Parameters *filmstrip.Parameters
	// The bucket the filmstrip image is written to.
	Bucket *blob.Bucket
	// The pixel width of each panel. Zero means the default (256).
	PanelSize int
	// The run date used in the output file name. Zero means today.
	Date time.Time
}

// RenderFilmstrip draws one panel per composite followed by a change
// heatmap panel (last period minus first) and writes the result as
// filmstrip_{output_name}_{date}_{time_step}.png. It returns the key
// the image was written to.
func RenderFilmstrip(ctx context.Context, opts *RenderFilmstripOptions, composites []*composite.Composite) (string, error) {

	select {
	case <-ctx.Done():
		return "", nil
	default:
		// pass
	}

	if len(composites) == 0 {
		return "", fmt.Errorf("Nothing to render")
	}

	panel_size := opts.PanelSize

	if panel_size == 0 {
		panel_size = defaultPanelSize
	}

	plots := make([]*plot.Plot, 0, len(composites)+1)

	for _, c := range composites {

		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s (%d scenes)", c.Label, c.SceneCount)
		p.HideAxes()

		thumb := imaging.Resize(c.Raster.ToImage(), panel_size, 0, imaging.Lanczos)
		bounds := thumb.Bounds()

		p.Add(plotter.NewImage(thumb, 0, 0, float64(bounds.Dx()), float64(bounds.Dy())))

		plots = append(plots, p)
	}

	heatmap, err := changePlot(composites[0].Raster, composites[len(composites)-1].Raster)

	if err != nil {
		return "", fmt.Errorf("Failed to derive change heatmap, %w", err)
	}

	plots = append(plots, heatmap)

	const panel_in = 3.0

	img := vgimg.New(vg.Length(len(plots))*panel_in*vg.Inch, (panel_in+0.5)*vg.Inch)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows: 1,
		Cols: len(plots),
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}

	canvases := plot.Align([][]*plot.Plot{plots}, tiles, dc)

	for i, p := range plots {
		p.Draw(canvases[0][i])
	}

	date := opts.Date

	if date.IsZero() {
		date = time.Now()
	}

	name := fmt.Sprintf("filmstrip_%s_%s_%s.png", opts.Parameters.OutputName, date.Format(filmstrip.DateFormat), opts.Parameters.TimeStep)

	wr, err := opts.Bucket.NewWriter(ctx, name, nil)

	if err != nil {
		return "", fmt.Errorf("Failed to create writer for '%s', %w", name, err)
	}

	png := vgimg.PngCanvas{Canvas: img}

	_, err = png.WriteTo(wr)

	if err != nil {
		opts.Bucket.Delete(ctx, name)
		return "", fmt.Errorf("Failed to write '%s', %w", name, err)
	}

	err = wr.Close()

	if err != nil {
		return "", fmt.Errorf("Failed to close '%s', %w", name, err)
	}

	return name, nil
}

// changePlot renders the per-pixel mean-band difference between the
// first and last composites as a diverging heatmap.
func changePlot(first *raster.Raster, last *raster.Raster) (*plot.Plot, error) {

	if !first.SameShape(last) {
		return nil, fmt.Errorf("First and last composites do not share a shape")
	}

	grid := &changeGrid{
		first: first,
		last:  last,
	}

	max_abs := 0.0

	cols, rows := grid.Dims()

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {

			z := grid.Z(c, r)

			if math.IsNaN(z) {
				continue
			}

			max_abs = math.Max(max_abs, math.Abs(z))
		}
	}

	if max_abs == 0.0 {
		max_abs = 1.0
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-max_abs)
	cm.SetMax(max_abs)

	p := plot.New()
	p.Title.Text = "change"
	p.HideAxes()

	p.Add(plotter.NewHeatMap(grid, cm.Palette(255)))

	return p, nil
}

// changeGrid adapts a pair of rasters to the plotter.GridXYZ interface.
type changeGrid struct {
	first *raster.Raster
	last  *raster.Raster
}

func (g *changeGrid) Dims() (int, int) {
	return g.first.Width, g.first.Height
}

func (g *changeGrid) X(c int) float64 {
	return float64(c)
}

func (g *changeGrid) Y(r int) float64 {
	return float64(r)
}

// Z is the mean-band difference, last minus first. Plot rows run
// bottom-up so the image row is flipped.
func (g *changeGrid) Z(c int, r int) float64 {

	y := g.first.Height - 1 - r

	sum := 0.0
	n := 0

	for b := 0; b < g.first.NumBands(); b++ {

		before := g.first.At(b, c, y)
		after := g.last.At(b, c, y)

		if math.IsNaN(before) || math.IsNaN(after) {
			continue
		}

		sum += after - before
		n += 1
	}

	if n == 0 {
		return math.NaN()
	}

	return sum / float64(n)
}
