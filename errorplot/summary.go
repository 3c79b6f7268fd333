package errorplot

import (
	"fmt"
	"io"
	"math"

	hist "github.com/grd/histogram"
	"github.com/montanaflynn/stats"

	"github.com/carbocation/pfx"
)

// DefaultBins matches the histogram plot.
const DefaultBins = 30

type Bin struct {
	Low   float64
	High  float64
	Count int
}

type Summary struct {
	N      int
	Mean   float64
	Median float64
	SD     float64
	RMSE   float64
	MAE    float64
	Bins   []Bin
}

// Summarize describes the error distribution and bins it into nbins equal
// width bins spanning the observed range.
func Summarize(points []Point, nbins int) (Summary, error) {
	out := Summary{N: len(points)}
	if len(points) == 0 {
		return out, pfx.Err(fmt.Errorf("no points to summarize"))
	}
	if nbins < 1 {
		nbins = DefaultBins
	}

	errs := stats.Float64Data(Errors(points))
	sq := make(stats.Float64Data, len(errs))
	abs := make(stats.Float64Data, len(errs))
	for i, e := range errs {
		sq[i] = e * e
		abs[i] = math.Abs(e)
	}

	var err error
	if out.Mean, err = errs.Mean(); err != nil {
		return out, pfx.Err(err)
	}
	if out.Median, err = errs.Median(); err != nil {
		return out, pfx.Err(err)
	}
	if len(errs) > 1 {
		if out.SD, err = errs.StandardDeviationSample(); err != nil {
			return out, pfx.Err(err)
		}
	}
	meanSq, err := sq.Mean()
	if err != nil {
		return out, pfx.Err(err)
	}
	out.RMSE = math.Sqrt(meanSq)
	if out.MAE, err = abs.Mean(); err != nil {
		return out, pfx.Err(err)
	}

	if out.Bins, err = binErrors(errs, nbins); err != nil {
		return out, err
	}

	return out, nil
}

func binErrors(errs []float64, nbins int) ([]Bin, error) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, e := range errs {
		min = math.Min(min, e)
		max = math.Max(max, e)
	}

	width := (max - min) / float64(nbins)
	if width == 0 {
		width = 1
	}
	// Widen slightly so that the maximum lands inside the last bin
	width *= 1 + 1e-9

	hg, err := hist.NewHistogram(hist.Range(min, uint(nbins), width))
	if err != nil {
		return nil, pfx.Err(err)
	}
	for _, e := range errs {
		hg.Add(e)
	}

	out := make([]Bin, nbins)
	for i := range out {
		out[i] = Bin{
			Low:   min + float64(i)*width,
			High:  min + float64(i+1)*width,
			Count: hg.Get(i),
		}
	}
	return out, nil
}

// WriteTSV writes the bins as a tab separated table.
func (s Summary) WriteTSV(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "low\thigh\tcount"); err != nil {
		return pfx.Err(err)
	}
	for _, b := range s.Bins {
		if _, err := fmt.Fprintf(w, "%g\t%g\t%d\n", b.Low, b.High, b.Count); err != nil {
			return pfx.Err(err)
		}
	}
	return nil
}

func (s Summary) String() string {
	return fmt.Sprintf("N=%d mean=%.4f median=%.4f sd=%.4f rmse=%.4f mae=%.4f", s.N, s.Mean, s.Median, s.SD, s.RMSE, s.MAE)
}
