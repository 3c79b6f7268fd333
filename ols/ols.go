// Package ols fits ordinary least squares regressions from a formula and a
// table, with or without an intercept, and reports coefficients, standard
// errors and a text summary in the layout analysts are used to reading.
package ols

import (
	"fmt"
	"math"

	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/table"
	"github.com/carbocation/pfx"
	"github.com/tokenme/probab/dst"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type Result struct {
	Formula *formula.Formula

	// Names, Params and BSE are aligned with the design matrix columns.
	Names  []string
	Params []float64
	BSE    []float64

	TValues []float64
	PValues []float64

	NObs    int
	Rank    int
	DFModel float64
	DFResid float64

	RSS     float64
	TSS     float64
	Scale   float64 // residual variance
	R2      float64
	AdjR2   float64
	FValue  float64
	FPValue float64
	LogLik  float64
	AIC     float64
	BIC     float64

	Residuals    []float64
	Skew         float64
	Kurtosis     float64
	JarqueBera   float64
	JBPValue     float64
	DurbinWatson float64
	CondNo       float64
}

// Fit regresses the formula's response on its terms. Rows with a missing value
// in any column the formula reads are dropped.
func Fit(f *formula.Formula, t *table.Table) (*Result, error) {
	d, err := f.Design(t)
	if err != nil {
		return nil, pfx.Err(err)
	}

	r, err := FitDesign(d.X, d.Y, d.Names, f.Intercept)
	if err != nil {
		return nil, err
	}
	r.Formula = f

	return r, nil
}

// FitDesign solves the least squares problem with the Moore-Penrose
// pseudo-inverse, so that collinear or all-zero columns do not abort the fit.
// Such columns receive coefficients that are not identifiable; the rank in the
// result reveals when that has happened.
func FitDesign(x *mat.Dense, y []float64, names []string, intercept bool) (*Result, error) {
	n, p := x.Dims()
	if len(y) != n {
		return nil, pfx.Err(fmt.Errorf("design has %d rows but y has %d", n, len(y)))
	}
	if len(names) != p {
		return nil, pfx.Err(fmt.Errorf("design has %d columns but %d names", p, len(names)))
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, pfx.Err(fmt.Errorf("SVD factorization failed"))
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := 0.0
	if len(s) > 0 {
		tol = s[0] * float64(maxInt(n, p)) * eps
	}

	yv := mat.NewVecDense(n, y)

	// beta = V * S^+ * U^T * y and (X'X)^+ = V * (S^+)^2 * V^T
	beta := mat.NewVecDense(p, nil)
	covUnscaled := mat.NewSymDense(p, nil)
	rank := 0
	for k, sk := range s {
		if sk <= tol {
			continue
		}
		rank++

		uk := u.ColView(k)
		vk := v.ColView(k)
		beta.AddScaledVec(beta, mat.Dot(uk, yv)/sk, vk)
		covUnscaled.SymRankOne(covUnscaled, 1/(sk*sk), vk)
	}

	r := &Result{
		Names:  append([]string(nil), names...),
		Params: make([]float64, p),
		NObs:   n,
		Rank:   rank,
	}
	for j := 0; j < p; j++ {
		r.Params[j] = beta.AtVec(j)
	}

	var fitted mat.VecDense
	fitted.MulVec(x, beta)
	r.Residuals = make([]float64, n)
	for i := 0; i < n; i++ {
		r.Residuals[i] = y[i] - fitted.AtVec(i)
		r.RSS += r.Residuals[i] * r.Residuals[i]
	}

	kConst := 0.0
	if intercept {
		kConst = 1
		mean := stat.Mean(y, nil)
		for _, yi := range y {
			r.TSS += (yi - mean) * (yi - mean)
		}
	} else {
		for _, yi := range y {
			r.TSS += yi * yi
		}
	}

	r.DFModel = float64(rank) - kConst
	r.DFResid = float64(n - rank)
	r.Scale = r.RSS / r.DFResid
	r.R2 = 1 - r.RSS/r.TSS
	r.AdjR2 = 1 - (float64(n)-kConst)/r.DFResid*(1-r.R2)

	r.FValue = math.NaN()
	r.FPValue = math.NaN()
	if r.DFModel > 0 && r.DFResid > 0 {
		r.FValue = ((r.TSS - r.RSS) / r.DFModel) / r.Scale
		r.FPValue = 1 - distuv.F{D1: r.DFModel, D2: r.DFResid}.CDF(r.FValue)
	}

	nf := float64(n)
	r.LogLik = -nf/2*math.Log(2*math.Pi) - nf/2*math.Log(r.RSS/nf) - nf/2
	r.AIC = -2*r.LogLik + 2*(r.DFModel+kConst)
	r.BIC = -2*r.LogLik + math.Log(nf)*(r.DFModel+kConst)

	r.BSE = make([]float64, p)
	r.TValues = make([]float64, p)
	r.PValues = make([]float64, p)
	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: r.DFResid}
	for j := 0; j < p; j++ {
		r.BSE[j] = math.Sqrt(covUnscaled.At(j, j) * r.Scale)
		r.TValues[j] = r.Params[j] / r.BSE[j]
		r.PValues[j] = 2 * (1 - tdist.CDF(math.Abs(r.TValues[j])))
	}

	r.residualDiagnostics()

	r.CondNo = math.Inf(1)
	if len(s) > 0 && s[len(s)-1] > 0 {
		r.CondNo = s[0] / s[len(s)-1]
	}

	return r, nil
}

func (r *Result) residualDiagnostics() {
	n := float64(len(r.Residuals))
	if n < 3 {
		r.Skew, r.Kurtosis, r.JarqueBera, r.JBPValue, r.DurbinWatson = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return
	}

	r.Skew = stat.Skew(r.Residuals, nil)
	exKurt := stat.ExKurtosis(r.Residuals, nil)
	r.Kurtosis = exKurt + 3
	r.JarqueBera = n / 6 * (r.Skew*r.Skew + exKurt*exKurt/4)
	r.JBPValue = jarqueBeraPValue(r.JarqueBera)

	num := 0.0
	for i := 1; i < len(r.Residuals); i++ {
		d := r.Residuals[i] - r.Residuals[i-1]
		num += d * d
	}
	r.DurbinWatson = num / r.RSS
}

// The Jarque-Bera statistic is chi square distributed with 2 degrees of
// freedom under normality.
func jarqueBeraPValue(jb float64) (p float64) {
	p = math.NaN()
	defer func() { recover() }()

	p = 1.0 - dst.ChiSquareCDF(2)(jb)

	return
}

// Index returns the position of a term, matched on its normalized name.
func (r *Result) Index(name string) (int, bool) {
	key := formula.NormalizeTerm(name)
	for i, n := range r.Names {
		if formula.NormalizeTerm(n) == key {
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

// Coefficients maps normalized term names to their coefficients.
func (r *Result) Coefficients() map[string]float64 {
	return keyed(r.Names, r.Params)
}

// StandardErrors maps normalized term names to their standard errors.
func (r *Result) StandardErrors() map[string]float64 {
	return keyed(r.Names, r.BSE)
}

func keyed(names []string, values []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, n := range names {
		out[formula.NormalizeTerm(n)] = values[i]
	}
	return out
}

// Predict evaluates the fitted model on new rows. Rows with a missing
// predictor get NaN.
func (r *Result) Predict(t *table.Table) ([]float64, error) {
	if r.Formula == nil {
		return nil, pfx.Err(fmt.Errorf("model was not fit from a formula"))
	}

	x, rows, err := r.Formula.Matrix(t)
	if err != nil {
		return nil, pfx.Err(err)
	}

	var yhat mat.VecDense
	yhat.MulVec(x, mat.NewVecDense(len(r.Params), r.Params))

	out := make([]float64, t.NRow())
	for i := range out {
		out[i] = math.NaN()
	}
	for i, row := range rows {
		out[row] = yhat.AtVec(i)
	}

	return out, nil
}

const eps = 2.220446049250313e-16

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
