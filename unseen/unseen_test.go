package unseen

import (
	"fmt"
	"math"
	"testing"

	"github.com/carbocation/agdist/table"
)

func xtrain(t *testing.T) *table.Table {
	t.Helper()
	tab, err := table.New(
		&table.Column{Name: "P1", Float: []float64{0, 0, 0}},
		&table.Column{Name: "P2", Float: []float64{1, 0, 2}},
		&table.Column{Name: "P3", Float: []float64{1, -1, 0}},
		&table.Column{Name: "P4", Float: []float64{0, 0, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func TestParameters(t *testing.T) {
	got, err := Parameters([]float64{0.5, 1, 2, 3}, xtrain(t))
	if err != nil {
		t.Fatal(err)
	}

	// P3 sums to zero without being all zero, and is reported too
	expected := []Parameter{{"P1", 0.5}, {"P3", 2}}
	if fmt.Sprint(got) != fmt.Sprint(expected) {
		t.Fatalf("Expected %v, got %v", expected, got)
	}
}

func TestParametersLengthMismatch(t *testing.T) {
	if _, err := Parameters([]float64{1, 2}, xtrain(t)); err == nil {
		t.Fatal("Expected an error")
	}
}

func TestParametersStringColumn(t *testing.T) {
	tab, err := table.New(&table.Column{Name: "AG1", String: []string{"A/68"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parameters([]float64{1}, tab); err == nil {
		t.Fatal("Expected an error for a string column")
	}
}

type lookup map[string]float64

func (l lookup) Coefficient(name string) (float64, bool) {
	v, ok := l[name]
	return v, ok
}

func TestFromModel(t *testing.T) {
	got, err := FromModel(lookup{"P1": 7, "P2": 1, "P4": 2}, xtrain(t))
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 || got[0].Name != "P1" || got[0].Coefficient != 7 {
		t.Fatalf("Unexpected %v", got)
	}
	if got[1].Name != "P3" || !math.IsNaN(got[1].Coefficient) {
		t.Errorf("Expected NaN for a column the model lacks, got %v", got[1])
	}
}
