package ols

import (
	"math"
	"strings"
	"testing"

	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/table"
)

func mustTable(t *testing.T, cols map[string][]float64, order ...string) *table.Table {
	t.Helper()

	out := make([]*table.Column, 0, len(order))
	for _, name := range order {
		out = append(out, &table.Column{Name: name, Float: cols[name]})
	}
	tab, err := table.New(out...)
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func mustFit(t *testing.T, f string, tab *table.Table) *Result {
	t.Helper()

	form, err := formula.Parse(f)
	if err != nil {
		t.Fatal(err)
	}
	r, err := Fit(form, tab)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-8
}

func TestSimpleRegression(t *testing.T) {
	tab := mustTable(t, map[string][]float64{
		"y": {1, 3, 2, 5, 4},
		"x": {1, 2, 3, 4, 5},
	}, "y", "x")

	r := mustFit(t, "y ~ x", tab)

	for _, v := range []struct {
		Name     string
		Got      float64
		Expected float64
	}{
		{"intercept", r.Params[0], 0.6},
		{"slope", r.Params[1], 0.8},
		{"rss", r.RSS, 3.6},
		{"scale", r.Scale, 1.2},
		{"r2", r.R2, 0.64},
		{"slope se", r.BSE[1], math.Sqrt(0.12)},
		{"df resid", r.DFResid, 3},
		{"df model", r.DFModel, 1},
	} {
		if !near(v.Got, v.Expected) {
			t.Errorf("%s: expected %v, got %v", v.Name, v.Expected, v.Got)
		}
	}

	if r.Rank != 2 || r.NObs != 5 {
		t.Errorf("Expected rank 2 and 5 observations, got %d and %d", r.Rank, r.NObs)
	}
	if r.PValues[1] <= 0 || r.PValues[1] >= 1 {
		t.Errorf("Slope p-value out of range: %v", r.PValues[1])
	}
}

func TestExactFit(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}
	b := []float64{2, 1, 4, 3, 6, 5}
	y := make([]float64, len(a))
	for i := range a {
		y[i] = 1 + 2*a[i] - b[i]
	}
	tab := mustTable(t, map[string][]float64{"y": y, "a": a, "b": b}, "y", "a", "b")

	r := mustFit(t, "y ~ a + b", tab)
	for i, expected := range []float64{1, 2, -1} {
		if !near(r.Params[i], expected) {
			t.Errorf("%s: expected %v, got %v", r.Names[i], expected, r.Params[i])
		}
	}
}

func TestNoIntercept(t *testing.T) {
	tab := mustTable(t, map[string][]float64{
		"y": {3, 6, 9.5, 12},
		"a": {1, 2, 3, 4},
	}, "y", "a")

	r := mustFit(t, "y ~ a + 0", tab)
	if len(r.Names) != 1 || r.Names[0] != "a" {
		t.Fatalf("Expected a single term, got %v", r.Names)
	}

	// sum(xy)/sum(xx) = 65.5/30
	if !near(r.Params[0], 65.5/30) {
		t.Errorf("Expected %v, got %v", 65.5/30, r.Params[0])
	}
	if r.DFModel != 1 || r.DFResid != 3 {
		t.Errorf("Unexpected degrees of freedom %v %v", r.DFModel, r.DFResid)
	}
	if !strings.Contains(r.Summary(), "without centering") {
		t.Errorf("Expected the uncentered R-squared note in the summary")
	}
}

func TestZeroColumnDoesNotAbort(t *testing.T) {
	tab := mustTable(t, map[string][]float64{
		"y": {1, 3, 2, 5, 4},
		"x": {1, 2, 3, 4, 5},
		"z": {0, 0, 0, 0, 0},
	}, "y", "x", "z")

	r := mustFit(t, "y ~ x + z", tab)
	if r.Rank != 2 {
		t.Fatalf("Expected rank 2, got %d", r.Rank)
	}

	z, ok := r.Coefficient("z")
	if !ok || math.Abs(z) > 1e-8 {
		t.Errorf("Expected a zero coefficient for the constant column, got %v", z)
	}
	if x, _ := r.Coefficient("x"); !near(x, 0.8) {
		t.Errorf("Expected the slope to survive, got %v", x)
	}
	if !strings.Contains(r.Summary(), "rank 2 but 3 columns") {
		t.Errorf("Expected a rank note in the summary:\n%s", r.Summary())
	}
}

func TestNormalizedLookup(t *testing.T) {
	tab := mustTable(t, map[string][]float64{
		"y": {1, 2, 4, 3, 7, 6, 9},
		"a": {1, 0, 1, 0, 1, 1, 0},
		"b": {0, 1, 1, 0, 1, 0, 1},
	}, "y", "a", "b")

	r := mustFit(t, "y ~ a + b + b:a", tab)

	i, ok := r.Index("a:b")
	if !ok || r.Names[i] != "b:a" {
		t.Fatalf("Expected a:b to find b:a, got %d %v", i, ok)
	}

	coefs := r.Coefficients()
	if _, exists := coefs["a:b"]; !exists {
		t.Errorf("Expected coefficients keyed by normalized names, got %v", coefs)
	}
	if _, exists := r.StandardErrors()["b:a"]; exists {
		t.Errorf("Expected no unnormalized key")
	}
}

func TestPredict(t *testing.T) {
	tab := mustTable(t, map[string][]float64{
		"y": {1, 3, 2, 5, 4},
		"x": {1, 2, 3, 4, 5},
	}, "y", "x")
	r := mustFit(t, "y ~ x", tab)

	newRows := mustTable(t, map[string][]float64{
		"x": {10, math.NaN(), 0},
	}, "x")

	got, err := r.Predict(newRows)
	if err != nil {
		t.Fatal(err)
	}
	if !near(got[0], 8.6) || !math.IsNaN(got[1]) || !near(got[2], 0.6) {
		t.Errorf("Unexpected predictions %v", got)
	}
}

func TestMissingColumn(t *testing.T) {
	tab := mustTable(t, map[string][]float64{"y": {1, 2}}, "y")
	f, err := formula.Parse("y ~ nope")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Fit(f, tab); err == nil {
		t.Fatal("Expected an error for a missing predictor")
	}
}

func TestSummary(t *testing.T) {
	tab := mustTable(t, map[string][]float64{
		"y": {1, 3, 2, 5, 4},
		"x": {1, 2, 3, 4, 5},
	}, "y", "x")
	s := mustFit(t, "y ~ x", tab).Summary()

	for _, want := range []string{"OLS Regression Results", "Dep. Variable:", "Intercept", "0.8000", "Durbin-Watson:"} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %q in summary:\n%s", want, s)
		}
	}
}
