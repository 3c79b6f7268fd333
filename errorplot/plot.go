package errorplot

import (
	"fmt"
	"image/color"
	"math"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/carbocation/pfx"
)

func dotStyle(c drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    2,
		DotColor:    c,
	}
}

// PlotScatter draws the measured value, the prediction and the error of each
// point against its jittered date, and writes a PNG.
func PlotScatter(points []Point, x []float64, path string) error {
	if len(points) != len(x) {
		return pfx.Err(fmt.Errorf("%d points but %d x positions", len(points), len(x)))
	}
	if len(points) == 0 {
		return pfx.Err(fmt.Errorf("no points to plot"))
	}

	actual := make([]float64, len(points))
	predicted := make([]float64, len(points))
	errs := make([]float64, len(points))
	for i, p := range points {
		actual[i] = p.Actual
		predicted[i] = p.Predicted
		errs[i] = p.Error
	}

	ch := chart.Chart{
		Width:  1500,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{Name: "Strain 2 dates"},
		YAxis: chart.YAxis{Name: "Antigenic distance"},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Error", XValues: x, YValues: errs, Style: dotStyle(drawing.ColorRed)},
			chart.ContinuousSeries{Name: "True value", XValues: x, YValues: actual, Style: dotStyle(drawing.ColorGreen)},
			chart.ContinuousSeries{Name: "Predicted value", XValues: x, YValues: predicted, Style: dotStyle(drawing.ColorBlue)},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	// go-chart refuses to render an axis whose values are all equal, as with a
	// single test pair or unjittered pairs from one year.
	if r := padRange(x); r != nil {
		ch.XAxis.Range = r
	}
	if r := padRange(actual, predicted, errs); r != nil {
		ch.YAxis.Range = r
	}

	fw, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	if err := ch.Render(chart.PNG, fw); err != nil {
		fw.Close()
		return pfx.Err(err)
	}
	return pfx.Err(fw.Close())
}

// padRange returns a range one unit either side of the values when they span
// nothing, and nil otherwise.
func padRange(values ...[]float64) *chart.ContinuousRange {
	min, max := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			min = math.Min(min, v)
			max = math.Max(max, v)
		}
	}
	if min != max {
		return nil
	}
	return &chart.ContinuousRange{Min: min - 1, Max: max + 1}
}

// PlotHistogram draws a histogram of the errors with a vertical line at the
// mean error, and writes a PNG.
func PlotHistogram(points []Point, nbins int, path string) error {
	if len(points) == 0 {
		return pfx.Err(fmt.Errorf("no points to plot"))
	}
	if nbins < 1 {
		nbins = DefaultBins
	}

	errs := plotter.Values(Errors(points))
	h, err := plotter.NewHist(errs, nbins)
	if err != nil {
		return pfx.Err(err)
	}

	p := plot.New()
	p.X.Label.Text = "error size"
	p.Y.Label.Text = "frequency"
	p.Add(h)

	mean := 0.0
	for _, e := range errs {
		mean += e
	}
	mean /= float64(len(errs))

	top := 0.0
	for _, b := range h.Bins {
		top = math.Max(top, b.Weight)
	}

	line, err := plotter.NewLine(plotter.XYs{{X: mean, Y: 0}, {X: mean, Y: top}})
	if err != nil {
		return pfx.Err(err)
	}
	line.Color = color.RGBA{R: 255, A: 255}
	line.Width = vg.Points(1.5)
	p.Add(line)

	return pfx.Err(p.Save(8*vg.Inch, 6*vg.Inch, path))
}
