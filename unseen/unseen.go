// Package unseen lists the predictors a model was trained without ever
// observing: columns that sum to zero across the training rows. Their fitted
// coefficients carry no information from the data.
package unseen

import (
	"fmt"
	"math"

	"github.com/carbocation/agdist/table"
	"github.com/carbocation/pfx"
)

type Parameter struct {
	Name        string  `csv:"parameter"`
	Coefficient float64 `csv:"coefficient"`
}

// Coefficients is satisfied by fitted models that can look up a term by name.
type Coefficients interface {
	Coefficient(name string) (float64, bool)
}

// Parameters returns, in column order, each column of xtrain that sums to
// zero, with its coefficient. coef must be aligned with the columns of
// xtrain.
func Parameters(coef []float64, xtrain *table.Table) ([]Parameter, error) {
	names := xtrain.Names()
	if len(coef) != len(names) {
		return nil, pfx.Err(fmt.Errorf("%d coefficients for %d columns", len(coef), len(names)))
	}

	out := make([]Parameter, 0)
	for i, name := range names {
		zero, err := sumsToZero(xtrain, name)
		if err != nil {
			return nil, err
		}
		if zero {
			out = append(out, Parameter{Name: name, Coefficient: coef[i]})
		}
	}
	return out, nil
}

// FromModel is Parameters with each coefficient looked up on m by column
// name. A column the model has no term for gets NaN.
func FromModel(m Coefficients, xtrain *table.Table) ([]Parameter, error) {
	names := xtrain.Names()
	coef := make([]float64, len(names))
	for i, name := range names {
		v, ok := m.Coefficient(name)
		if !ok {
			v = math.NaN()
		}
		coef[i] = v
	}
	return Parameters(coef, xtrain)
}

func sumsToZero(t *table.Table, name string) (bool, error) {
	c, err := t.Column(name)
	if err != nil {
		return false, pfx.Err(err)
	}
	if !c.Numeric() {
		return false, pfx.Err(fmt.Errorf("column %q is not numeric", name))
	}
	return c.Sum() == 0, nil
}
