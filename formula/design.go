package formula

import (
	"fmt"
	"math"

	"github.com/carbocation/agdist/table"
	"gonum.org/v1/gonum/mat"
)

// Design is a model matrix built from a formula and a table.
type Design struct {
	X     *mat.Dense
	Y     []float64
	Names []string

	// Rows are the table rows that made it into the matrix. Rows with a
	// missing value in any column the formula reads are left out.
	Rows []int
}

// Design builds the model matrix. Every column the formula reads must exist
// and be numeric.
func (f *Formula) Design(t *table.Table) (*Design, error) {
	y, err := t.Float(f.Response)
	if err != nil {
		return nil, fmt.Errorf("response: %w", err)
	}

	x, rows, err := f.matrix(t, y)
	if err != nil {
		return nil, err
	}

	out := &Design{
		X:     x,
		Y:     make([]float64, len(rows)),
		Names: f.TermNames(),
		Rows:  rows,
	}
	for i, r := range rows {
		out.Y[i] = y[r]
	}

	return out, nil
}

// Matrix builds the right hand side only; the response column need not exist.
// This is what prediction on new data uses.
func (f *Formula) Matrix(t *table.Table) (*mat.Dense, []int, error) {
	return f.matrix(t, nil)
}

func (f *Formula) matrix(t *table.Table, y []float64) (*mat.Dense, []int, error) {
	factors := make(map[string][]float64)
	for _, term := range f.Terms {
		for _, factor := range term {
			if _, done := factors[factor]; done {
				continue
			}
			v, err := t.Float(factor)
			if err != nil {
				return nil, nil, fmt.Errorf("term %s: %w", term.Name(), err)
			}
			factors[factor] = v
		}
	}

	rows := make([]int, 0, t.NRow())
Rows:
	for i := 0; i < t.NRow(); i++ {
		if y != nil && math.IsNaN(y[i]) {
			continue
		}
		for _, v := range factors {
			if math.IsNaN(v[i]) {
				continue Rows
			}
		}
		rows = append(rows, i)
	}

	ncol := len(f.Terms)
	if f.Intercept {
		ncol++
	}
	if len(rows) == 0 || ncol == 0 {
		return nil, rows, fmt.Errorf("formula %s leaves an empty design matrix (%d rows, %d columns)", f, len(rows), ncol)
	}

	x := mat.NewDense(len(rows), ncol, nil)
	for i, r := range rows {
		j := 0
		if f.Intercept {
			x.Set(i, j, 1)
			j++
		}
		for _, term := range f.Terms {
			v := 1.0
			for _, factor := range term {
				v *= factors[factor][r]
			}
			x.Set(i, j, v)
			j++
		}
	}

	return x, rows, nil
}
