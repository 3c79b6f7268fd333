// Package errorplot compares a model's predictions on held out strain pairs
// with the measured antigenic distances, as a scatter over time and as a
// histogram of the errors.
package errorplot

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/carbocation/agdist/table"
	"github.com/carbocation/pfx"
)

// DefaultJitter is the half width, in years, of the uniform noise added to
// dates so that pairs from the same year do not overplot.
const DefaultJitter = 2.0

// Predictor is any fitted model that can score a predictor table.
type Predictor interface {
	Predict(t *table.Table) ([]float64, error)
}

// Point is one test pair. Error is Predicted - Actual.
type Point struct {
	Actual    float64
	Predicted float64
	Error     float64
	Date      float64
}

// Compute scores xtest with the model and pairs each prediction with its
// target and date. Rows the model cannot score (a missing predictor) are
// left out. The result is sorted by date, ties in input order.
func Compute(m Predictor, xtest *table.Table, ytest, dates []float64) ([]Point, error) {
	if len(ytest) != xtest.NRow() || len(dates) != xtest.NRow() {
		return nil, pfx.Err(fmt.Errorf("%d test rows but %d targets and %d dates", xtest.NRow(), len(ytest), len(dates)))
	}

	predicted, err := m.Predict(xtest)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]Point, 0, len(predicted))
	for i, p := range predicted {
		if math.IsNaN(p) {
			continue
		}
		out = append(out, Point{
			Actual:    ytest[i],
			Predicted: p,
			Error:     p - ytest[i],
			Date:      dates[i],
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	return out, nil
}

// Jitter returns the x positions to plot each point at: its date plus
// uniform noise in [-width, width). The points themselves are untouched.
func Jitter(points []Point, rng *rand.Rand, width float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Date + (2*rng.Float64()-1)*width
	}
	return out
}

// Errors extracts the error of each point.
func Errors(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Error
	}
	return out
}
