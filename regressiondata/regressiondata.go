// Package regressiondata manages antigenic cartography data for regression
// analysis: it loads a table of strain pairs, annotates each pair with the
// year and antigenic cluster of both strains, and partitions the rows for
// cross-validation and chronological train/test evaluation.
package regressiondata

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/carbocation/agdist"
	"github.com/carbocation/agdist/table"
	"github.com/carbocation/pfx"
)

// Names of the columns added during annotation.
const (
	Strain1Dates = "strain_1_dates"
	Strain2Dates = "strain_2_dates"
	Cluster1     = "cluster1"
	Cluster2     = "cluster2"
)

type Options struct {
	// LabelColumns name the two strain label columns.
	LabelColumns [2]string

	// Target is the antigenic distance column.
	Target string

	// MutationCount is dropped along with the labels and target when the
	// predictor matrix is built. Empty means the file has no such column.
	MutationCount string

	// Delimiter of the input; 0 auto-detects.
	Delimiter rune

	// DropFirstRow discards the first data row, which in some exports is a
	// prototype entry rather than a real strain pair.
	DropFirstRow bool

	// DropColumns are removed right after reading, e.g. the "Unnamed: 75"
	// produced by a trailing delimiter.
	DropColumns []string

	// StorageClient is only needed for gs:// paths.
	StorageClient *storage.Client
}

func DefaultOptions() Options {
	return Options{
		LabelColumns:  [2]string{"AG1", "AG2"},
		Target:        "AG-DIST",
		MutationCount: "NUM-MUTATIONS",
	}
}

type RegressionData struct {
	// Table is the annotated table. It is never modified after construction.
	Table   *table.Table
	Options Options
}

// Load reads and annotates a strain pair file.
func Load(ctx context.Context, path string, opts Options) (*RegressionData, error) {
	in, err := agdist.Open(ctx, path, opts.StorageClient)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	delim := opts.Delimiter
	if delim == 0 {
		delim = agdist.PeekDelimiter(in.Reader)
	}

	raw, err := table.Read(in, table.ReadOptions{
		Delimiter:        delim,
		SkipInitialSpace: delim == ' ',
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return New(raw, opts)
}

// New annotates an already parsed table.
func New(raw *table.Table, opts Options) (*RegressionData, error) {
	var err error

	if len(opts.DropColumns) > 0 {
		if raw, err = raw.Drop(opts.DropColumns...); err != nil {
			return nil, pfx.Err(err)
		}
	}

	if opts.DropFirstRow {
		if raw, err = raw.DropRows(1); err != nil {
			return nil, pfx.Err(err)
		}
	}

	d := &RegressionData{Options: opts}

	annotated, err := separateDates(raw, opts.LabelColumns[0], opts.LabelColumns[1])
	if err != nil {
		return nil, err
	}

	if d.Table, err = addClusters(annotated, Strain1Dates, Strain2Dates); err != nil {
		return nil, err
	}

	return d, nil
}

// separateDates adds the strain years, with the century, parsed from the two
// label columns.
func separateDates(t *table.Table, col1, col2 string) (*table.Table, error) {
	out := make([]*table.Column, 0, 2)

	for _, cols := range [][2]string{{col1, Strain1Dates}, {col2, Strain2Dates}} {
		labels, err := t.Strings(cols[0])
		if err != nil {
			return nil, pfx.Err(err)
		}

		years := make([]float64, len(labels))
		for i, label := range labels {
			year, err := StrainYear(label)
			if err != nil {
				return nil, pfx.Err(fmt.Errorf("row %d, column %s: %w", i, cols[0], err))
			}
			years[i] = float64(year)
		}

		out = append(out, &table.Column{Name: cols[1], Float: years})
	}

	return t.With(out...)
}

// addClusters buckets each strain's year into its antigenic cluster. Both
// columns go through the same function, one year column each.
func addClusters(t *table.Table, date1, date2 string) (*table.Table, error) {
	out := make([]*table.Column, 0, 2)

	for _, cols := range [][2]string{{date1, Cluster1}, {date2, Cluster2}} {
		years, err := t.Float(cols[0])
		if err != nil {
			return nil, pfx.Err(err)
		}

		clusters := make([]string, len(years))
		for i, year := range years {
			clusters[i] = string(bucket(int(year)))
		}

		out = append(out, &table.Column{Name: cols[1], String: clusters})
	}

	return t.With(out...)
}

// Years returns the parsed years of both strains, row by row.
func (d *RegressionData) Years() (strain1, strain2 []int) {
	y1, _ := d.Table.Float(Strain1Dates)
	y2, _ := d.Table.Float(Strain2Dates)

	strain1 = make([]int, len(y1))
	strain2 = make([]int, len(y2))
	for i := range y1 {
		strain1[i] = int(y1[i])
		strain2[i] = int(y2[i])
	}
	return
}

// NonPredictors lists the columns that are not regression predictors: the
// labels, the target, the mutation count and the four annotation columns.
func (d *RegressionData) NonPredictors() []string {
	out := []string{d.Options.LabelColumns[0], d.Options.LabelColumns[1], d.Options.Target}
	if d.Options.MutationCount != "" {
		out = append(out, d.Options.MutationCount)
	}
	return append(out, Strain1Dates, Strain2Dates, Cluster1, Cluster2)
}

// Predictors returns the predictor names, in table order.
func (d *RegressionData) Predictors() ([]string, error) {
	x, err := d.Table.Drop(d.NonPredictors()...)
	if err != nil {
		return nil, pfx.Err(err)
	}
	return x.Names(), nil
}

// OptionsFromConfig translates the shared run configuration.
func OptionsFromConfig(cfg agdist.JSONConfig) (Options, error) {
	opts := DefaultOptions()

	if len(cfg.LabelColumns) != 0 {
		if len(cfg.LabelColumns) != 2 {
			return opts, fmt.Errorf("expected 2 label columns, got %d: %v", len(cfg.LabelColumns), cfg.LabelColumns)
		}
		opts.LabelColumns = [2]string{cfg.LabelColumns[0], cfg.LabelColumns[1]}
	}
	if cfg.Target != "" {
		opts.Target = cfg.Target
	}
	opts.MutationCount = cfg.MutationCount
	opts.Delimiter = agdist.DelimiterRune(cfg.Delimiter)
	opts.DropFirstRow = cfg.DropFirstRow
	opts.DropColumns = append(opts.DropColumns, cfg.DropColumns...)

	return opts, nil
}
