// Package truncreg fits linear regressions to a response that is only
// observed on one side of a truncation point, assuming normal errors.
//
// Two sessions are provided. NativeSession maximizes the likelihood directly.
// RSession hands the data to the R truncreg package through Rscript and reads
// its estimates back, for when results must match R to the last digit.
package truncreg

import (
	"context"
	"fmt"
	"math"

	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/table"
	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/mat"
)

// Names used for the intercept and the scale parameter, as R reports them.
const (
	InterceptName = "(Intercept)"
	SigmaName     = "sigma"
)

type Direction string

const (
	// Left truncation keeps observations above the point.
	Left Direction = "left"

	// Right truncation keeps observations below the point.
	Right Direction = "right"
)

// Truncation describes where the response distribution is cut.
type Truncation struct {
	Point     float64
	Direction Direction
}

// LeftAtZero is the truncation used for antigenic distances.
var LeftAtZero = Truncation{Point: 0, Direction: Left}

func (tr Truncation) sign() (float64, error) {
	switch tr.Direction {
	case Left, "":
		return 1, nil
	case Right:
		return -1, nil
	}
	return 0, fmt.Errorf("unknown truncation direction %q", tr.Direction)
}

// Session fits truncated regressions. The context bounds any external work a
// session does.
type Session interface {
	Fit(ctx context.Context, f *formula.Formula, t *table.Table) (*Result, error)
}

type Result struct {
	Formula    *formula.Formula
	Truncation Truncation

	// Names, Params and BSE hold the regression coefficients followed by
	// sigma.
	Names  []string
	Params []float64
	BSE    []float64

	LogLik     float64
	NObs       int
	Iterations int
	Status     string

	// Text is a summary produced by the fitting backend, if it has its own.
	Text string
}

// Sigma is the estimated standard deviation of the untruncated errors.
func (r *Result) Sigma() float64 {
	v, _ := r.Coefficient(SigmaName)
	return v
}

// Index returns the position of a term, matched on its normalized name.
func (r *Result) Index(name string) (int, bool) {
	key := normalize(name)
	for i, n := range r.Names {
		if normalize(n) == key {
			return i, true
		}
	}
	return -1, false
}

// Coefficient returns the fitted value of a term, matched on its normalized
// name.
func (r *Result) Coefficient(name string) (float64, bool) {
	i, ok := r.Index(name)
	if !ok {
		return math.NaN(), false
	}
	return r.Params[i], true
}

// Coefficients maps normalized term names to their estimates, sigma included.
func (r *Result) Coefficients() map[string]float64 {
	out := make(map[string]float64, len(r.Names))
	for i, n := range r.Names {
		out[normalize(n)] = r.Params[i]
	}
	return out
}

// StandardErrors maps normalized term names to their standard errors.
func (r *Result) StandardErrors() map[string]float64 {
	out := make(map[string]float64, len(r.Names))
	for i, n := range r.Names {
		out[normalize(n)] = r.BSE[i]
	}
	return out
}

// Predict returns the linear predictor for each row; rows with a missing
// predictor get NaN.
func (r *Result) Predict(t *table.Table) ([]float64, error) {
	if r.Formula == nil {
		return nil, pfx.Err(fmt.Errorf("model was not fit from a formula"))
	}

	x, rows, err := r.Formula.Matrix(t)
	if err != nil {
		return nil, pfx.Err(err)
	}

	_, p := x.Dims()
	beta := make([]float64, p)
	for j, name := range designNames(r.Formula) {
		v, ok := r.Coefficient(name)
		if !ok {
			return nil, pfx.Err(fmt.Errorf("no coefficient for %s", name))
		}
		beta[j] = v
	}

	var yhat mat.VecDense
	yhat.MulVec(x, mat.NewVecDense(p, beta))

	out := make([]float64, t.NRow())
	for i := range out {
		out[i] = math.NaN()
	}
	for i, row := range rows {
		out[row] = yhat.AtVec(i)
	}

	return out, nil
}

// designNames are the design matrix column names with the intercept spelled
// the way this package reports it.
func designNames(f *formula.Formula) []string {
	out := f.TermNames()
	if f.Intercept {
		out[0] = InterceptName
	}
	return out
}

func normalize(name string) string {
	if name == formula.InterceptName {
		return InterceptName
	}
	return formula.NormalizeTerm(name)
}
