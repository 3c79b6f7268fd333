package regressiondata

import (
	"sort"

	"github.com/carbocation/agdist/table"
	"github.com/carbocation/pfx"
)

// Fold is one cross-validation train/test pair of row indices.
type Fold struct {
	Label string
	Train []int
	Test  []int
}

// CV creates one fold per cluster label seen in either of the two columns, in
// sorted label order. The training set holds the pairs where neither strain
// is in the cluster; the test set holds the pairs where both strains are. A
// label that only ever appears in one of the columns yields an empty test set.
func (d *RegressionData) CV(cluster1, cluster2 string) ([]Fold, error) {
	c1, err := d.Table.Strings(cluster1)
	if err != nil {
		return nil, pfx.Err(err)
	}
	c2, err := d.Table.Strings(cluster2)
	if err != nil {
		return nil, pfx.Err(err)
	}

	seen := make(map[string]struct{})
	for i := range c1 {
		seen[c1[i]] = struct{}{}
		seen[c2[i]] = struct{}{}
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]Fold, 0, len(labels))
	for _, label := range labels {
		fold := Fold{Label: label, Train: []int{}, Test: []int{}}
		for i := range c1 {
			if c1[i] != label && c2[i] != label {
				fold.Train = append(fold.Train, i)
			} else if c1[i] == label && c2[i] == label {
				fold.Test = append(fold.Test, i)
			}
		}
		out = append(out, fold)
	}

	return out, nil
}

// Split is a chronological partition of the annotated table, along with the
// predictor (x) and target (y) views of the whole table and of each side.
type Split struct {
	Year int

	TrainRows []int
	TestRows  []int

	X *table.Table
	Y []float64

	Train  *table.Table
	XTrain *table.Table
	YTrain []float64

	Test  *table.Table
	XTest *table.Table
	YTest []float64
}

// SplitByYear puts every pair whose strains both date from year or earlier
// into the training set, and every other pair into the test set.
func (d *RegressionData) SplitByYear(year int) (Split, error) {
	out := Split{Year: year, TrainRows: []int{}, TestRows: []int{}}

	y1, y2 := d.Years()
	for i := range y1 {
		if y1[i] <= year && y2[i] <= year {
			out.TrainRows = append(out.TrainRows, i)
		} else {
			out.TestRows = append(out.TestRows, i)
		}
	}

	var err error
	if out.X, out.Y, err = d.xy(d.Table); err != nil {
		return out, err
	}

	if out.Train, err = d.Table.Subset(out.TrainRows); err != nil {
		return out, pfx.Err(err)
	}
	if out.XTrain, out.YTrain, err = d.xy(out.Train); err != nil {
		return out, err
	}

	if out.Test, err = d.Table.Subset(out.TestRows); err != nil {
		return out, pfx.Err(err)
	}
	if out.XTest, out.YTest, err = d.xy(out.Test); err != nil {
		return out, err
	}

	return out, nil
}

func (d *RegressionData) xy(t *table.Table) (*table.Table, []float64, error) {
	x, err := t.Drop(d.NonPredictors()...)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	y, err := t.Float(d.Options.Target)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}

	return x, y, nil
}

// Rows returns the annotated table restricted to the given rows.
func (d *RegressionData) Rows(rows []int) (*table.Table, error) {
	return d.Table.Subset(rows)
}

// XY returns the predictor and target views of the given rows.
func (d *RegressionData) XY(rows []int) (*table.Table, []float64, error) {
	t, err := d.Table.Subset(rows)
	if err != nil {
		return nil, nil, pfx.Err(err)
	}
	return d.xy(t)
}
