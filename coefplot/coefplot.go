// Package coefplot fits three views of the same regression (least squares,
// least squares through the origin, and left-truncated at zero), lines their
// coefficients up term by term, and renders them side by side.
package coefplot

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/ols"
	"github.com/carbocation/agdist/table"
	"github.com/carbocation/agdist/truncreg"
	"github.com/carbocation/pfx"
)

// Output file names, relative to the output directory.
const (
	PlotFile            = "coefplot.png"
	LMSummaryFile       = "lm_summary.txt"
	LM0SummaryFile      = "lm0_summary.txt"
	TruncRegSummaryFile = "truncreg_summary.txt"
)

const DefaultFontSize = 5

type Options struct {
	// Session fits the truncated regression; nil means the native session.
	Session truncreg.Session

	// OutputDir receives the plot and the summaries; empty means ".".
	OutputDir string

	// FontSize of the term labels on the y axis, in points.
	FontSize float64
}

// Estimates is what the merge needs from a fitted model: coefficients and
// standard errors keyed by normalized term name.
type Estimates interface {
	Coefficients() map[string]float64
	StandardErrors() map[string]float64
}

// Row is one term of the merged coefficient table. Any value may be NaN when
// the term was absent from that fit.
type Row struct {
	Term     string
	TruncReg float64
	LM       float64
	LMSE     float64
	LM0      float64
	LM0SE    float64
}

type Fits struct {
	Formula  *formula.Formula
	LM       *ols.Result
	LM0      *ols.Result
	TruncReg *truncreg.Result
	Rows     []Row
}

// Fit runs the three regressions and merges their coefficients.
func Fit(ctx context.Context, f *formula.Formula, t *table.Table, opts Options) (*Fits, error) {
	session := opts.Session
	if session == nil {
		session = truncreg.NewNativeSession()
	}

	lm, err := ols.Fit(f, t)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("OLS: %w", err))
	}

	lm0, err := ols.Fit(f.WithIntercept(false), t)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("zero intercept OLS: %w", err))
	}

	tr, err := session.Fit(ctx, f, t)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("truncated regression: %w", err))
	}

	return &Fits{
		Formula:  f,
		LM:       lm,
		LM0:      lm0,
		TruncReg: tr,
		Rows:     Merge(tr, lm, lm0),
	}, nil
}

// Merge takes the truncated regression's terms, less the intercept and sigma,
// as the rows, and joins both least squares fits onto them by normalized
// name. Rows are sorted by the least squares coefficient, with NaN last and
// ties kept in their original order.
func Merge(tr *truncreg.Result, lm, lm0 Estimates) []Row {
	lmCoef, lmSE := lm.Coefficients(), lm.StandardErrors()
	lm0Coef, lm0SE := lm0.Coefficients(), lm0.StandardErrors()

	rows := make([]Row, 0, len(tr.Names))
	for i, name := range tr.Names {
		if name == truncreg.InterceptName || name == truncreg.SigmaName {
			continue
		}
		key := formula.NormalizeTerm(name)
		rows = append(rows, Row{
			Term:     key,
			TruncReg: tr.Params[i],
			LM:       lookup(lmCoef, key),
			LMSE:     lookup(lmSE, key),
			LM0:      lookup(lm0Coef, key),
			LM0SE:    lookup(lm0SE, key),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].LM, rows[j].LM
		if math.IsNaN(a) {
			return false
		}
		if math.IsNaN(b) {
			return true
		}
		return a < b
	})

	return rows
}

func lookup(m map[string]float64, key string) float64 {
	if v, exists := m[key]; exists {
		return v
	}
	return math.NaN()
}

// Run fits the models and writes the plot and the three summaries, replacing
// any earlier output.
func Run(ctx context.Context, f *formula.Formula, t *table.Table, opts Options) (*Fits, error) {
	fits, err := Fit(ctx, f, t, opts)
	if err != nil {
		return nil, err
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, pfx.Err(err)
	}

	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}

	if err := fits.Plot(filepath.Join(dir, PlotFile), fontSize); err != nil {
		return nil, err
	}

	if err := fits.WriteSummaries(dir); err != nil {
		return nil, err
	}

	return fits, nil
}

// WriteSummaries writes the text summary of each fit into dir.
func (fits *Fits) WriteSummaries(dir string) error {
	for name, text := range map[string]string{
		LMSummaryFile:       fits.LM.Summary(),
		LM0SummaryFile:      fits.LM0.Summary(),
		TruncRegSummaryFile: fits.TruncReg.Summary(),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0644); err != nil {
			return pfx.Err(err)
		}
	}
	return nil
}
