// splityear trains a least squares model on the strain pairs from a cutoff
// year or earlier, predicts the later pairs, and plots how far off the
// predictions are over time. It also lists the predictors never seen during
// training, whose coefficients are meaningless.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/agdist"
	_ "github.com/carbocation/agdist/compileinfoprint"
	"github.com/carbocation/agdist/errorplot"
	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/ols"
	"github.com/carbocation/agdist/regressiondata"
	"github.com/carbocation/agdist/unseen"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// Output file names, relative to the output directory.
const (
	ScatterFile   = "errorplot_scatter.png"
	HistogramFile = "errorplot_histogram.png"
	ErrorsFile    = "errors.tsv"
	BinsFile      = "error_histogram.tsv"
	UnseenFile    = "unseen_parameters.csv"
)

var client *storage.Client

type errorRow struct {
	Date         float64 `csv:"date"`
	JitteredDate float64 `csv:"jittered_date"`
	Actual       float64 `csv:"actual"`
	Predicted    float64 `csv:"predicted"`
	Error        float64 `csv:"error"`
}

func main() {
	var configPath string
	var seed int64
	var jitter float64

	fromFlags := agdist.DefaultJSONConfig()

	flag.StringVar(&configPath, "config", "", "Optional JSON config file. Flags set explicitly override its values.")
	flag.Int64Var(&seed, "seed", 0, "Seed for the date jitter. 0 seeds from the clock.")
	flag.Float64Var(&jitter, "jitter", errorplot.DefaultJitter, "Half width, in years, of the noise added to plotted dates")
	fromFlags.BindFlags(flag.CommandLine, map[string]string{
		"input":          "Strain pair file (local, ~/..., or gs://). May be compressed.",
		"delimiter":      "Input delimiter: a character, 'tab' or 'space'. Empty means auto-detect.",
		"label_columns":  "The two strain label columns",
		"target":         "Antigenic distance column, the regression response",
		"mutation_count": "Mutation count column; empty if the file has none",
		"drop_columns":   "Columns to drop right after reading",
		"drop_first_row": "Discard the first data row",
		"predictors":     "Optional file with one predictor name per line. If empty, every predictor column is used.",
		"max_predictors": "Use only the first N predictors from the predictors file",
		"output_dir":     "Directory for the plots and tables",
		"cutoff_year":    "Pairs with both strains from this year or earlier are used for training",
	})
	flag.Parse()

	cfg := fromFlags
	if configPath != "" {
		var err error
		if cfg, err = agdist.ParseJSONConfigFromPath(configPath); err != nil {
			log.Fatalln(err)
		}
		cfg.Override(fromFlags, agdist.ExplicitFlags(flag.CommandLine))
	}

	if cfg.Input == "" || cfg.CutoffYear == 0 {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Println("Jitter seed:", seed)

	ctx := context.Background()

	if agdist.NeedsStorageClient(cfg.Input, cfg.Predictors) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	if err := run(ctx, cfg, rand.New(rand.NewSource(seed)), jitter); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, cfg agdist.JSONConfig, rng *rand.Rand, jitter float64) error {
	opts, err := regressiondata.OptionsFromConfig(cfg)
	if err != nil {
		return pfx.Err(err)
	}
	opts.StorageClient = client

	data, err := regressiondata.Load(ctx, cfg.Input, opts)
	if err != nil {
		return err
	}

	split, err := data.SplitByYear(cfg.CutoffYear)
	if err != nil {
		return err
	}
	log.Printf("Split at %d: %d training and %d test pairs\n", cfg.CutoffYear, len(split.TrainRows), len(split.TestRows))

	predictors := split.XTrain.NumericNames()
	if cfg.Predictors != "" {
		if predictors, err = agdist.ReadLines(ctx, cfg.Predictors, client, cfg.MaxPredictors); err != nil {
			return err
		}
	}

	f := formula.FromPredictors(opts.Target, predictors, true)
	model, err := ols.Fit(f, split.Train)
	if err != nil {
		return err
	}
	log.Printf("Fit %d terms on %d pairs (rank %d), R-squared %.3f\n", len(model.Params), model.NObs, model.Rank, model.R2)

	dates, err := split.Test.Float(regressiondata.Strain2Dates)
	if err != nil {
		return pfx.Err(err)
	}

	points, err := errorplot.Compute(model, split.XTest, split.YTest, dates)
	if err != nil {
		return err
	}
	x := errorplot.Jitter(points, rng, jitter)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return pfx.Err(err)
	}
	out := func(name string) string { return filepath.Join(cfg.OutputDir, name) }

	if err := errorplot.PlotScatter(points, x, out(ScatterFile)); err != nil {
		return err
	}
	if err := errorplot.PlotHistogram(points, errorplot.DefaultBins, out(HistogramFile)); err != nil {
		return err
	}

	summary, err := errorplot.Summarize(points, errorplot.DefaultBins)
	if err != nil {
		return err
	}
	log.Println("Prediction errors:", summary)

	hist := histogram.Hist(errorplot.DefaultBins, errorplot.Errors(points))
	if err := histogram.Fprint(os.Stderr, hist, histogram.Linear(40)); err != nil {
		return pfx.Err(err)
	}

	if err := writeBins(out(BinsFile), summary); err != nil {
		return err
	}

	rows := make([]*errorRow, len(points))
	for i, p := range points {
		rows[i] = &errorRow{Date: p.Date, JitteredDate: x[i], Actual: p.Actual, Predicted: p.Predicted, Error: p.Error}
	}
	if err := marshalFile(out(ErrorsFile), '\t', &rows); err != nil {
		return err
	}

	// Interaction terms have no column of their own to inspect
	columns := make([]string, 0, len(predictors))
	for _, p := range predictors {
		if split.XTrain.Has(p) {
			columns = append(columns, p)
		}
	}
	xtrain, err := split.XTrain.Select(columns...)
	if err != nil {
		return pfx.Err(err)
	}

	params, err := unseen.FromModel(model, xtrain)
	if err != nil {
		return err
	}
	log.Printf("%d predictors never seen in training: %s\n", len(params), unseenNames(params))

	return marshalFile(out(UnseenFile), ',', &params)
}

func unseenNames(params []unseen.Parameter) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func writeBins(path string, summary errorplot.Summary) error {
	fw, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	if err := summary.WriteTSV(fw); err != nil {
		fw.Close()
		return err
	}
	return pfx.Err(fw.Close())
}

func marshalFile(path string, delim rune, rows interface{}) error {
	fw, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	cw := csv.NewWriter(fw)
	cw.Comma = delim
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		fw.Close()
		return pfx.Err(err)
	}

	return pfx.Err(fw.Close())
}
