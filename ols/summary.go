package ols

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

const summaryWidth = 78

// Summary renders the fit as a plain text report: model statistics, the
// coefficient table with 95% confidence intervals, and residual diagnostics.
func (r *Result) Summary() string {
	var b strings.Builder

	depVar := ""
	if r.Formula != nil {
		depVar = r.Formula.Response
	}

	rule := strings.Repeat("=", summaryWidth)
	thin := strings.Repeat("-", summaryWidth)

	fmt.Fprintln(&b, center("OLS Regression Results", summaryWidth))
	fmt.Fprintln(&b, rule)
	twoCol(&b, "Dep. Variable:", depVar, "R-squared:", num(r.R2, 3))
	twoCol(&b, "Model:", "OLS", "Adj. R-squared:", num(r.AdjR2, 3))
	twoCol(&b, "Method:", "Least Squares", "F-statistic:", num(r.FValue, 4))
	twoCol(&b, "No. Observations:", fmt.Sprint(r.NObs), "Prob (F-statistic):", sci(r.FPValue))
	twoCol(&b, "Df Residuals:", fmt.Sprintf("%.0f", r.DFResid), "Log-Likelihood:", num(r.LogLik, 2))
	twoCol(&b, "Df Model:", fmt.Sprintf("%.0f", r.DFModel), "AIC:", num(r.AIC, 1))
	twoCol(&b, "Covariance Type:", "nonrobust", "BIC:", num(r.BIC, 1))
	fmt.Fprintln(&b, rule)

	nameWidth := 14
	for _, n := range r.Names {
		if len(n) > nameWidth {
			nameWidth = len(n)
		}
	}

	fmt.Fprintf(&b, "%-*s %10s %10s %10s %8s %10s %10s\n", nameWidth, "", "coef", "std err", "t", "P>|t|", "[0.025", "0.975]")
	fmt.Fprintln(&b, thin)

	q := math.NaN()
	if r.DFResid > 0 {
		q = distuv.StudentsT{Mu: 0, Sigma: 1, Nu: r.DFResid}.Quantile(0.975)
	}
	for i, n := range r.Names {
		lo, hi := r.Params[i]-q*r.BSE[i], r.Params[i]+q*r.BSE[i]
		fmt.Fprintf(&b, "%-*s %10s %10s %10s %8s %10s %10s\n", nameWidth, n,
			num(r.Params[i], 4), num(r.BSE[i], 3), num(r.TValues[i], 3), num(r.PValues[i], 3), num(lo, 3), num(hi, 3))
	}

	fmt.Fprintln(&b, rule)
	twoCol(&b, "Durbin-Watson:", num(r.DurbinWatson, 3), "Jarque-Bera (JB):", num(r.JarqueBera, 3))
	twoCol(&b, "Skew:", num(r.Skew, 3), "Prob(JB):", sci(r.JBPValue))
	twoCol(&b, "Kurtosis:", num(r.Kurtosis, 3), "Cond. No.", sci(r.CondNo))
	fmt.Fprintln(&b, rule)

	var notes []string
	if p := len(r.Params); r.Rank < p {
		notes = append(notes, fmt.Sprintf("The design matrix has rank %d but %d columns. Coefficients of collinear or constant columns are not identifiable.", r.Rank, p))
	}
	if r.Formula != nil && !r.Formula.Intercept {
		notes = append(notes, "R-squared is computed without centering since the model has no intercept.")
	}
	if len(notes) > 0 {
		fmt.Fprintln(&b, "\nNotes:")
		for i, n := range notes {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, n)
		}
	}

	return b.String()
}

func twoCol(b *strings.Builder, k1, v1, k2, v2 string) {
	fmt.Fprintf(b, "%-20s%18s   %-20s%17s\n", k1, v1, k2, v2)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}

func num(x float64, prec int) string {
	if math.IsNaN(x) {
		return "nan"
	}
	if math.IsInf(x, 0) {
		return "inf"
	}
	return fmt.Sprintf("%.*f", prec, x)
}

func sci(x float64) string {
	if math.IsNaN(x) {
		return "nan"
	}
	if math.IsInf(x, 0) {
		return "inf"
	}
	return fmt.Sprintf("%.3g", x)
}
