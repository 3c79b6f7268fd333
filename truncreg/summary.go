package truncreg

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Summary returns the backend's own summary when there is one, and otherwise
// renders a coefficient table in the layout of R's summary.truncreg.
func (r *Result) Summary() string {
	if r.Text != "" {
		return r.Text
	}

	var b strings.Builder

	call := ""
	if r.Formula != nil {
		call = r.Formula.String()
	}
	dir := r.Truncation.Direction
	if dir == "" {
		dir = Left
	}

	fmt.Fprintf(&b, "\nCall:\ntruncreg(formula = %s, point = %g, direction = %q)\n\n", call, r.Truncation.Point, dir)
	fmt.Fprintf(&b, "BFGS maximization method\n%d iterations\nReturn code: %s\n\n", r.Iterations, r.Status)
	fmt.Fprintf(&b, "Coefficients :\n")

	nameWidth := 12
	for _, n := range r.Names {
		if len(n) > nameWidth {
			nameWidth = len(n)
		}
	}

	fmt.Fprintf(&b, "%-*s %11s %11s %8s %10s\n", nameWidth, "", "Estimate", "Std. Error", "t-value", "Pr(>|t|)")
	for i, n := range r.Names {
		z := r.Params[i] / r.BSE[i]
		pv := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
		fmt.Fprintf(&b, "%-*s %11.6f %11.6f %8.4f %10.4g %s\n", nameWidth, n, r.Params[i], r.BSE[i], z, pv, stars(pv))
	}
	fmt.Fprintf(&b, "---\nSignif. codes:  0 '***' 0.001 '**' 0.01 '*' 0.05 '.' 0.1 ' ' 1\n\n")
	fmt.Fprintf(&b, "Log-Likelihood: %.2f on %d Df\n", r.LogLik, len(r.Params))
	fmt.Fprintf(&b, "Observations: %d\n", r.NObs)

	return b.String()
}

func stars(p float64) string {
	switch {
	case math.IsNaN(p):
		return ""
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	case p < 0.1:
		return "."
	}
	return ""
}
