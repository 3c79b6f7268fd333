package coefplot

import (
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const dpi = 200

var (
	truncRegColor = color.RGBA{G: 128, A: 255}
	lmColor       = color.RGBA{R: 255, A: 255}
	lm0Color      = color.RGBA{B: 255, A: 255}
)

// errorPoints pairs coefficients with their +/- 1 SE horizontal extent.
type errorPoints struct {
	plotter.XYs
	plotter.XErrors
}

// Plot draws one point per term and model, with standard error bars for the
// least squares fits, and saves it as a PNG.
func (fits *Fits) Plot(path string, fontSize float64) error {
	p := plot.New()
	p.Title.Text = "Coefficient plot"
	p.X.Label.Text = "Coefficients"
	p.Y.Label.Text = "Substitutions"
	p.Add(plotter.NewGrid())

	ticks := make([]plot.Tick, len(fits.Rows))
	for i, r := range fits.Rows {
		ticks[i] = plot.Tick{Value: float64(i), Label: strings.ReplaceAll(r.Term, ":", "\n")}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Tick.Label.Font.Size = vg.Points(fontSize)
	p.Y.Min = -1
	p.Y.Max = float64(len(fits.Rows))

	lm, err := fits.series(func(r Row) (float64, float64) { return r.LM, r.LMSE }, lmColor)
	if err != nil {
		return err
	}
	lm0, err := fits.series(func(r Row) (float64, float64) { return r.LM0, r.LM0SE }, lm0Color)
	if err != nil {
		return err
	}
	tr, err := fits.series(func(r Row) (float64, float64) { return r.TruncReg, math.NaN() }, truncRegColor)
	if err != nil {
		return err
	}

	for _, s := range []*series{lm, lm0, tr} {
		if s.bars != nil {
			p.Add(s.bars)
		}
		if s.points != nil {
			p.Add(s.points)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = true
	for _, entry := range []struct {
		label string
		s     *series
	}{
		{"Linear Model", lm},
		{"Forced Zero Intercept", lm0},
		{"Truncated Regression", tr},
	} {
		if entry.s.points != nil {
			p.Legend.Add(entry.label, entry.s.points)
		}
	}

	return savePNG(p, path, 6.4*vg.Inch, 4.8*vg.Inch)
}

type series struct {
	points *plotter.Scatter
	bars   *plotter.XErrorBars
}

// series builds the scatter and error bars for one model. Terms with a
// missing coefficient are left out, as are bars with a missing standard
// error.
func (fits *Fits) series(value func(Row) (float64, float64), c color.Color) (*series, error) {
	pts := make(plotter.XYs, 0, len(fits.Rows))
	barPts := errorPoints{}
	for i, r := range fits.Rows {
		v, se := value(r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: v, Y: float64(i)})
		if math.IsNaN(se) || math.IsInf(se, 0) {
			continue
		}
		barPts.XYs = append(barPts.XYs, plotter.XY{X: v, Y: float64(i)})
		barPts.XErrors = append(barPts.XErrors, struct{ Low, High float64 }{-se, se})
	}

	out := &series{}
	if len(pts) > 0 {
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, pfx.Err(err)
		}
		s.GlyphStyle.Color = c
		s.GlyphStyle.Radius = vg.Points(1)
		out.points = s
	}

	if len(barPts.XYs) > 0 {
		b, err := plotter.NewXErrorBars(barPts)
		if err != nil {
			return nil, pfx.Err(err)
		}
		b.LineStyle.Color = c
		b.CapWidth = 0
		out.bars = b
	}

	return out, nil
}

func savePNG(p *plot.Plot, path string, w, h vg.Length) error {
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))

	fw, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(fw); err != nil {
		fw.Close()
		return pfx.Err(err)
	}

	return pfx.Err(fw.Close())
}
