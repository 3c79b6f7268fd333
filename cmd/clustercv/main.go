// clustercv evaluates how well a least squares model of antigenic distance
// generalizes to an antigenic cluster it has never seen. For each cluster, it
// trains on the pairs where neither strain belongs to the cluster and tests
// on the pairs where both do.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/carbocation/agdist"
	_ "github.com/carbocation/agdist/compileinfoprint"
	"github.com/carbocation/agdist/errorplot"
	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/ols"
	"github.com/carbocation/agdist/regressiondata"
	"github.com/carbocation/pfx"
	"github.com/carbocation/runningvariance"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

const OutputFile = "clustercv.csv"

var client *storage.Client

// metric is blank in the output when a fold has nothing to measure.
type metric struct {
	null.Float
}

func (m metric) MarshalCSV() (string, error) {
	if !m.Valid {
		return "", nil
	}
	return strconv.FormatFloat(m.Float64, 'g', 6, 64), nil
}

func valid(v float64) metric { return metric{null.FloatFrom(v)} }

type foldResult struct {
	Cluster   string `csv:"cluster"`
	NTrain    int    `csv:"n_train"`
	NTest     int    `csv:"n_test"`
	TrainR2   metric `csv:"train_r2"`
	MeanError metric `csv:"mean_error"`
	RMSE      metric `csv:"rmse"`
	MAE       metric `csv:"mae"`
}

func main() {
	var configPath string

	fromFlags := agdist.DefaultJSONConfig()

	flag.StringVar(&configPath, "config", "", "Optional JSON config file. Flags set explicitly override its values.")
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
		"output_dir":     "Directory for clustercv.csv",
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

	if cfg.Input == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	if agdist.NeedsStorageClient(cfg.Input, cfg.Predictors) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, cfg agdist.JSONConfig) error {
	opts, err := regressiondata.OptionsFromConfig(cfg)
	if err != nil {
		return pfx.Err(err)
	}
	opts.StorageClient = client

	data, err := regressiondata.Load(ctx, cfg.Input, opts)
	if err != nil {
		return err
	}

	predictors, err := data.Predictors()
	if err != nil {
		return err
	}
	if cfg.Predictors != "" {
		if predictors, err = agdist.ReadLines(ctx, cfg.Predictors, client, cfg.MaxPredictors); err != nil {
			return err
		}
	}
	f := formula.FromPredictors(opts.Target, predictors, true)

	folds, err := data.CV(regressiondata.Cluster1, regressiondata.Cluster2)
	if err != nil {
		return err
	}

	rmse := runningvariance.NewRunningStat()
	results := make([]*foldResult, 0, len(folds))
	for _, fold := range folds {
		res, err := evaluate(data, f, fold)
		if err != nil {
			return err
		}
		if res.RMSE.Valid {
			rmse.Push(res.RMSE.Float64)
		}
		results = append(results, res)
	}

	log.Printf("RMSE across %d scored folds: mean %.4f, SD %.4f\n", rmse.N, rmse.Mean(), rmse.StandardDeviation())

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return pfx.Err(err)
	}

	fw, err := os.Create(filepath.Join(cfg.OutputDir, OutputFile))
	if err != nil {
		return pfx.Err(err)
	}
	if err := gocsv.MarshalCSV(&results, gocsv.NewSafeCSVWriter(csv.NewWriter(fw))); err != nil {
		fw.Close()
		return pfx.Err(err)
	}
	return pfx.Err(fw.Close())
}

// evaluate fits on the fold's training rows and scores its test rows. Folds
// with no training or no test rows are reported with blank metrics.
func evaluate(data *regressiondata.RegressionData, f *formula.Formula, fold regressiondata.Fold) (*foldResult, error) {
	out := &foldResult{Cluster: fold.Label, NTrain: len(fold.Train), NTest: len(fold.Test)}

	if len(fold.Train) == 0 {
		log.Printf("%s: no training pairs\n", fold.Label)
		return out, nil
	}

	train, err := data.Rows(fold.Train)
	if err != nil {
		return nil, pfx.Err(err)
	}
	model, err := ols.Fit(f, train)
	if err != nil {
		return nil, fmt.Errorf("fold %s: %w", fold.Label, err)
	}
	out.TrainR2 = valid(model.R2)

	if len(fold.Test) == 0 {
		log.Printf("%s: no test pairs\n", fold.Label)
		return out, nil
	}

	test, err := data.Rows(fold.Test)
	if err != nil {
		return nil, pfx.Err(err)
	}
	xtest, ytest, err := data.XY(fold.Test)
	if err != nil {
		return nil, err
	}
	dates, err := test.Float(regressiondata.Strain2Dates)
	if err != nil {
		return nil, pfx.Err(err)
	}

	points, err := errorplot.Compute(model, xtest, ytest, dates)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return out, nil
	}

	summary, err := errorplot.Summarize(points, errorplot.DefaultBins)
	if err != nil {
		return nil, err
	}
	out.MeanError = valid(summary.Mean)
	out.RMSE = valid(summary.RMSE)
	out.MAE = valid(summary.MAE)

	log.Printf("%s: %d train, %d test, RMSE %.4f\n", fold.Label, out.NTrain, out.NTest, summary.RMSE)

	return out, nil
}
