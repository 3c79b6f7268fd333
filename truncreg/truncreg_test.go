package truncreg

import (
	"context"
	"math"
	"math/rand"
	"os/exec"
	"strings"
	"testing"

	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/ols"
	"github.com/carbocation/agdist/table"
	"gonum.org/v1/gonum/diff/fd"
)

// simulate draws y = 1 + 2x + e, e ~ N(0, 1), keeping only y > 0.
func simulate(t *testing.T, n int, seed int64) *table.Table {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for len(y) < n {
		xi := rng.Float64()*2 - 1
		yi := 1 + 2*xi + rng.NormFloat64()
		if yi <= 0 {
			continue
		}
		x = append(x, xi)
		y = append(y, yi)
	}

	tab, err := table.New(&table.Column{Name: "y", Float: y}, &table.Column{Name: "x", Float: x})
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func mustFormula(t *testing.T, s string) *formula.Formula {
	t.Helper()
	f, err := formula.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestNativeRecoversParameters(t *testing.T) {
	tab := simulate(t, 3000, 1)
	f := mustFormula(t, "y ~ x")

	res, err := NewNativeSession().Fit(context.Background(), f, tab)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Join(res.Names, ",") != "(Intercept),x,sigma" {
		t.Fatalf("Unexpected names %v", res.Names)
	}

	for _, v := range []struct {
		Name      string
		Expected  float64
		Tolerance float64
	}{
		{"(Intercept)", 1, 0.2},
		{"x", 2, 0.25},
		{"sigma", 1, 0.1},
	} {
		got, ok := res.Coefficient(v.Name)
		if !ok {
			t.Fatalf("No coefficient %s", v.Name)
		}
		if math.Abs(got-v.Expected) > v.Tolerance {
			t.Errorf("%s: expected %v +/- %v, got %v", v.Name, v.Expected, v.Tolerance, got)
		}
	}

	for i, se := range res.BSE {
		if math.IsNaN(se) || se <= 0 || se > 0.5 {
			t.Errorf("%s: implausible standard error %v", res.Names[i], se)
		}
	}

	// Truncation flattens the least squares slope; the likelihood fit
	// should undo some of that.
	lm, err := ols.Fit(f, tab)
	if err != nil {
		t.Fatal(err)
	}
	if b, _ := res.Coefficient("x"); b <= lm.Params[1] {
		t.Errorf("Expected the truncated slope %v to exceed the OLS slope %v", b, lm.Params[1])
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	tab := simulate(t, 50, 2)
	f := mustFormula(t, "y ~ x")
	d, err := f.Design(tab)
	if err != nil {
		t.Fatal(err)
	}

	for _, sign := range []float64{1, -1} {
		ll := &likelihood{x: d.X, y: d.Y, point: 0.25, sign: sign}
		theta := []float64{0.7, 1.4, math.Log(1.3)}

		analytic := make([]float64, len(theta))
		ll.gradient(analytic, theta)
		numeric := fd.Gradient(nil, ll.value, theta, nil)

		for i := range theta {
			if math.Abs(analytic[i]-numeric[i]) > 1e-4*math.Max(1, math.Abs(numeric[i])) {
				t.Errorf("sign %v, parameter %d: analytic %v, numeric %v", sign, i, analytic[i], numeric[i])
			}
		}
	}
}

func TestTailFunctions(t *testing.T) {
	for _, a := range []float64{-40, -29.9, -30.1, -5, 0, 3} {
		if v := logNormCDF(a); math.IsInf(v, 0) || math.IsNaN(v) || v > 0 {
			t.Errorf("logNormCDF(%v) = %v", a, v)
		}
		if v := inverseMills(a); math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
			t.Errorf("inverseMills(%v) = %v", a, v)
		}
	}

	if v := inverseMills(0); math.Abs(v-math.Sqrt(2/math.Pi)) > 1e-12 {
		t.Errorf("Expected sqrt(2/pi) at 0, got %v", v)
	}

	// Both sides of the cutoff should agree closely
	if lo, hi := logNormCDF(-30.0001), logNormCDF(-29.9999); math.Abs(lo-hi) > 0.01 {
		t.Errorf("logNormCDF jumps at the cutoff: %v vs %v", lo, hi)
	}
}

func TestPredictAndLookup(t *testing.T) {
	f := mustFormula(t, "y ~ a + b:a")
	res := &Result{
		Formula: f,
		Names:   []string{"(Intercept)", "a", "a:b", "sigma"},
		Params:  []float64{1, 2, 3, 0.5},
		BSE:     []float64{0.1, 0.1, 0.1, 0.1},
	}

	if v, ok := res.Coefficient("b:a"); !ok || v != 3 {
		t.Fatalf("Expected b:a to find a:b, got %v %v", v, ok)
	}
	if v, ok := res.Coefficient(formula.InterceptName); !ok || v != 1 {
		t.Errorf("Expected the intercept under either spelling, got %v %v", v, ok)
	}
	if res.Sigma() != 0.5 {
		t.Errorf("Expected sigma 0.5, got %v", res.Sigma())
	}

	tab, err := table.New(
		&table.Column{Name: "a", Float: []float64{1, math.NaN()}},
		&table.Column{Name: "b", Float: []float64{2, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := res.Predict(tab)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1+2+3*2 || !math.IsNaN(got[1]) {
		t.Errorf("Unexpected predictions %v", got)
	}
}

func TestSummaryText(t *testing.T) {
	res := &Result{
		Formula:    mustFormula(t, "y ~ x"),
		Truncation: LeftAtZero,
		Names:      []string{"(Intercept)", "x", "sigma"},
		Params:     []float64{1, 2, 1},
		BSE:        []float64{0.1, 0.1, 0.05},
		LogLik:     -10,
		NObs:       20,
	}
	s := res.Summary()
	for _, want := range []string{"truncreg(formula = y ~ x, point = 0, direction = \"left\")", "sigma", "Log-Likelihood: -10.00 on 3 Df", "***"} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %q in:\n%s", want, s)
		}
	}

	res.Text = "from R"
	if res.Summary() != "from R" {
		t.Errorf("Expected the backend summary to win")
	}
}

func TestRFormula(t *testing.T) {
	for _, v := range []struct {
		In       string
		Expected string
	}{
		{"AGDIST ~ P1 + P2", "AGDIST ~ P1 + P2"},
		{"AG-DIST ~ NUM-MUTATIONS + P1:P2 + 0", "`AG-DIST` ~ `NUM-MUTATIONS` + P1:P2 + 0"},
		{`y ~ Q("145")`, "y ~ `145`"},
	} {
		if got := RFormula(mustFormula(t, v.In)); got != v.Expected {
			t.Errorf("%q: expected %q, got %q", v.In, v.Expected, got)
		}
	}

	if got := fromRName("`NUM-MUTATIONS`:P1"); got != "NUM-MUTATIONS:P1" {
		t.Errorf("Unexpected %q", got)
	}
}

func TestUnknownDirection(t *testing.T) {
	s := &NativeSession{Truncation: Truncation{Direction: "up"}}
	if _, err := s.Fit(context.Background(), mustFormula(t, "y ~ x"), simulate(t, 10, 3)); err == nil {
		t.Fatal("Expected an error for an unknown direction")
	}
}

func TestRSessionMatchesNative(t *testing.T) {
	if _, err := exec.LookPath("Rscript"); err != nil {
		t.Skip("Rscript not available")
	}
	if err := exec.Command("Rscript", "-e", "library(truncreg)").Run(); err != nil {
		t.Skip("R truncreg package not installed")
	}

	tab := simulate(t, 500, 4)
	f := mustFormula(t, "y ~ x")

	rs, err := NewRSession("")
	if err != nil {
		t.Fatal(err)
	}
	rs.ScratchDir = t.TempDir()

	fromR, err := rs.Fit(context.Background(), f, tab)
	if err != nil {
		t.Fatal(err)
	}
	native, err := NewNativeSession().Fit(context.Background(), f, tab)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"(Intercept)", "x", "sigma"} {
		a, _ := fromR.Coefficient(name)
		b, _ := native.Coefficient(name)
		if math.Abs(a-b) > 1e-3 {
			t.Errorf("%s: R %v, native %v", name, a, b)
		}
	}
	if math.Abs(fromR.LogLik-native.LogLik) > 1e-3 {
		t.Errorf("Log-likelihoods differ: R %v, native %v", fromR.LogLik, native.LogLik)
	}
	if !strings.Contains(fromR.Summary(), "Coefficients") {
		t.Errorf("Expected the R summary text, got %q", fromR.Summary())
	}
}
