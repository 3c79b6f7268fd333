package truncreg

import (
	"context"
	"fmt"
	"math"

	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/ols"
	"github.com/carbocation/agdist/table"
	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// NativeSession maximizes the truncated normal likelihood with BFGS, starting
// from the least squares fit. Standard errors come from the numerical Hessian
// of the log-likelihood at the optimum.
type NativeSession struct {
	Truncation Truncation

	// MaxIterations caps the BFGS major iterations; 0 means 1000.
	MaxIterations int
}

func NewNativeSession() *NativeSession {
	return &NativeSession{Truncation: LeftAtZero}
}

func (s *NativeSession) Fit(ctx context.Context, f *formula.Formula, t *table.Table) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, err := f.Design(t)
	if err != nil {
		return nil, pfx.Err(err)
	}

	sign, err := s.Truncation.sign()
	if err != nil {
		return nil, pfx.Err(err)
	}

	start, err := ols.FitDesign(d.X, d.Y, d.Names, f.Intercept)
	if err != nil {
		return nil, pfx.Err(err)
	}

	ll := &likelihood{x: d.X, y: d.Y, point: s.Truncation.Point, sign: sign}

	// theta = (beta, log sigma)
	p := len(start.Params)
	init := make([]float64, p+1)
	copy(init, start.Params)
	init[p] = 0.5 * math.Log(start.RSS/float64(start.NObs))
	if math.IsInf(init[p], 0) || math.IsNaN(init[p]) {
		init[p] = 0
	}

	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = 1000
	}

	problem := optimize.Problem{
		Func: func(theta []float64) float64 { return -ll.value(theta) },
		Grad: func(grad, theta []float64) {
			ll.gradient(grad, theta)
			floats.Scale(-1, grad)
		},
	}

	res, err := optimize.Minimize(problem, init, &optimize.Settings{
		GradientThreshold: 1e-8,
		MajorIterations:   maxIter,
	}, &optimize.BFGS{})
	if res == nil {
		return nil, pfx.Err(fmt.Errorf("truncated regression: %w", err))
	}
	status := res.Status.String()
	if err != nil {
		// BFGS often stops on a failed line search right at the optimum.
		// The result is still usable; keep the reason for the summary.
		status = fmt.Sprintf("%s (%v)", status, err)
	}

	theta := res.X
	logSigma := theta[p]
	sigma := math.Exp(logSigma)

	se := standardErrors(problem.Func, theta)

	out := &Result{
		Formula:    f,
		Truncation: s.Truncation,
		Names:      append(designNames(f), SigmaName),
		Params:     make([]float64, p+1),
		BSE:        make([]float64, p+1),
		LogLik:     -res.F,
		NObs:       len(d.Y),
		Iterations: res.Stats.MajorIterations,
		Status:     status,
	}
	copy(out.Params, theta[:p])
	copy(out.BSE, se[:p])
	out.Params[p] = sigma
	out.BSE[p] = sigma * se[p]

	return out, nil
}

// standardErrors inverts the Hessian of the negative log-likelihood.
// Parameters that cannot be resolved get NaN.
func standardErrors(negLogLik func([]float64) float64, theta []float64) []float64 {
	k := len(theta)
	out := make([]float64, k)
	for i := range out {
		out[i] = math.NaN()
	}

	hess := mat.NewSymDense(k, nil)
	fd.Hessian(hess, negLogLik, theta, nil)

	var chol mat.Cholesky
	if chol.Factorize(hess) {
		cov := mat.NewSymDense(k, nil)
		if err := chol.InverseTo(cov); err == nil {
			for i := 0; i < k; i++ {
				out[i] = math.Sqrt(cov.At(i, i))
			}
			return out
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(hess); err != nil {
		return out
	}
	for i := 0; i < k; i++ {
		if v := inv.At(i, i); v >= 0 {
			out[i] = math.Sqrt(v)
		}
	}
	return out
}

// likelihood is the log-likelihood of a normal linear model whose response
// is only observed on one side of point. sign is +1 when observations lie
// above point and -1 when they lie below.
type likelihood struct {
	x     *mat.Dense
	y     []float64
	point float64
	sign  float64
}

func (l *likelihood) value(theta []float64) float64 {
	n, p := l.x.Dims()
	beta, logSigma := theta[:p], theta[p]
	sigma := math.Exp(logSigma)

	out := 0.0
	for i := 0; i < n; i++ {
		mu := floats.Dot(l.x.RawRowView(i), beta)
		z := (l.y[i] - mu) / sigma
		a := l.sign * (mu - l.point) / sigma
		out += -0.5*z*z - halfLog2Pi - logSigma - logNormCDF(a)
	}
	return out
}

func (l *likelihood) gradient(grad, theta []float64) {
	n, p := l.x.Dims()
	beta, logSigma := theta[:p], theta[p]
	sigma := math.Exp(logSigma)

	for j := range grad {
		grad[j] = 0
	}

	for i := 0; i < n; i++ {
		row := l.x.RawRowView(i)
		mu := floats.Dot(row, beta)
		z := (l.y[i] - mu) / sigma
		a := l.sign * (mu - l.point) / sigma
		lambda := inverseMills(a)

		dmu := (z - l.sign*lambda) / sigma
		floats.AddScaled(grad[:p], dmu, row)
		grad[p] += z*z - 1 + lambda*a
	}
}

const (
	halfLog2Pi = 0.9189385332046727
	tailCutoff = -30
)

// logNormCDF is log Phi(a), with the asymptotic expansion far in the lower
// tail where Phi underflows.
func logNormCDF(a float64) float64 {
	if a > tailCutoff {
		return math.Log(0.5 * math.Erfc(-a/math.Sqrt2))
	}
	return -0.5*a*a - math.Log(-a) - halfLog2Pi
}

// inverseMills is phi(a) / Phi(a).
func inverseMills(a float64) float64 {
	if a > tailCutoff {
		return math.Exp(-0.5*a*a-halfLog2Pi) / (0.5 * math.Erfc(-a/math.Sqrt2))
	}
	return -a - 1/a
}
