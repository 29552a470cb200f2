package render

import (
	"context"
	"image/color"
	"os"
	"path/filepath"

	"gllvmord/domain/ordination"
	"gllvmord/internal"
	"gllvmord/internal/errors"
	"gllvmord/ports"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var speciesColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}

// PlotRenderer draws displays with gonum/plot. The output format follows the
// file extension (.png, .svg, .pdf, .eps, .jpg, .tif).
type PlotRenderer struct {
	logger *internal.Logger
}

// NewPlotRenderer creates a renderer logging to logger, or the default
// logger when nil
func NewPlotRenderer(logger *internal.Logger) *PlotRenderer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PlotRenderer{logger: logger}
}

var _ ports.Renderer = (*PlotRenderer)(nil)

// Render draws display into rc.OutputPath
func (r *PlotRenderer) Render(ctx context.Context, rc ports.RenderContext, display *ordination.Display) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if display == nil {
		return errors.InvalidInput("nothing to render")
	}
	if rc.OutputPath == "" {
		return errors.InvalidInput("render output path is empty")
	}

	p, err := r.build(rc, display)
	if err != nil {
		return errors.RenderError(err)
	}

	if dir := filepath.Dir(rc.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IOError(dir, err)
		}
	}

	w, h := rc.WidthInches, rc.HeightInches
	if w <= 0 {
		w = 6
	}
	if h <= 0 {
		h = 6
	}
	if err := p.Save(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch, rc.OutputPath); err != nil {
		return errors.RenderError(err)
	}
	r.logger.Info("Rendered %d sites, %d species, %d ellipses to %s",
		len(display.Sites), len(display.Species), len(display.Ellipses), rc.OutputPath)
	return nil
}

func (r *PlotRenderer) build(rc ports.RenderContext, display *ordination.Display) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = display.Title
	p.X.Label.Text = display.XLabel
	p.Y.Label.Text = display.YLabel
	p.Add(plotter.NewGrid())

	radius := vg.Points(3)
	if rc.PointRadius > 0 {
		radius = vg.Points(rc.PointRadius)
	}

	groups := groupCount(display)
	for g := 0; g < groups; g++ {
		pts := sitesInGroup(display, g)
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle.Color = paletteColor(rc.Palette, g)
		s.GlyphStyle.Radius = radius
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		if len(display.Groups) > 0 {
			p.Legend.Add(groupLabel(display, g), s)
		}
	}

	for _, e := range display.Ellipses {
		line, err := plotter.NewLine(outlineXYs(e.Outline))
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = paletteColor(rc.Palette, siteGroup(display, e.Site))
		line.LineStyle.Width = vg.Points(0.75)
		p.Add(line)
	}

	if rc.ShowLabels && len(display.Sites) > 0 {
		labels, err := plotter.NewLabels(pointLabels(display.Sites))
		if err != nil {
			return nil, err
		}
		labels.Offset = vg.Point{X: radius, Y: radius}
		p.Add(labels)
	}

	if display.HasSpecies() {
		if err := addSpecies(p, display, radius); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// addSpecies marks every species and names the labeled subset
func addSpecies(p *plot.Plot, display *ordination.Display, radius vg.Length) error {
	xys := make(plotter.XYs, len(display.Species))
	for i, sp := range display.Species {
		xys[i] = plotter.XY{X: sp.X, Y: sp.Y}
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = speciesColor
	s.GlyphStyle.Radius = radius
	s.GlyphStyle.Shape = draw.PlusGlyph{}
	p.Add(s)

	if len(display.LabeledSpecies) == 0 {
		return nil
	}
	labeled := make([]ordination.Point, 0, len(display.LabeledSpecies))
	for _, i := range display.LabeledSpecies {
		if i >= 0 && i < len(display.Species) {
			labeled = append(labeled, display.Species[i])
		}
	}
	labels, err := plotter.NewLabels(pointLabels(labeled))
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = speciesColor
	}
	p.Add(labels)
	return nil
}

func groupCount(display *ordination.Display) int {
	if len(display.Groups) == 0 {
		return 1
	}
	// One extra slot for sites with a missing covariate.
	return len(display.Groups) + 1
}

// siteGroup maps a point group to a palette slot; ungrouped and missing
// values share the last slot
func siteGroup(display *ordination.Display, site int) int {
	if len(display.Groups) == 0 || site < 0 || site >= len(display.Sites) {
		return 0
	}
	g := display.Sites[site].Group
	if g < 0 || g >= len(display.Groups) {
		return len(display.Groups)
	}
	return g
}

func sitesInGroup(display *ordination.Display, g int) plotter.XYs {
	var xys plotter.XYs
	for i, s := range display.Sites {
		if siteGroup(display, i) == g {
			xys = append(xys, plotter.XY{X: s.X, Y: s.Y})
		}
	}
	return xys
}

func groupLabel(display *ordination.Display, g int) string {
	if g < len(display.Groups) {
		return display.Groups[g]
	}
	return "NA"
}

func paletteColor(palette []color.Color, i int) color.Color {
	if len(palette) == 0 {
		return plotutil.Color(i)
	}
	return palette[i%len(palette)]
}

func outlineXYs(outline [][2]float64) plotter.XYs {
	xys := make(plotter.XYs, len(outline))
	for i, pt := range outline {
		xys[i] = plotter.XY{X: pt[0], Y: pt[1]}
	}
	return xys
}

func pointLabels(points []ordination.Point) plotter.XYLabels {
	l := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(points)),
		Labels: make([]string, len(points)),
	}
	for i, pt := range points {
		l.XYs[i] = plotter.XY{X: pt.X, Y: pt.Y}
		l.Labels[i] = pt.Label
	}
	return l
}
