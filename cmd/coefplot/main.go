// coefplot fits ordinary least squares, zero intercept least squares and a
// left-truncated regression of antigenic distance on the listed predictors,
// then plots the three sets of coefficients side by side and writes each
// model's summary.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/agdist"
	"github.com/carbocation/agdist/coefplot"
	_ "github.com/carbocation/agdist/compileinfoprint"
	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/regressiondata"
	"github.com/carbocation/agdist/truncreg"
	"github.com/carbocation/pfx"
)

var client *storage.Client

func main() {
	var configPath string

	fromFlags := agdist.DefaultJSONConfig()
	fromFlags.Input = "culled.csv"
	fromFlags.Delimiter = "space"
	fromFlags.DropColumns = []string{"Unnamed: 75"}
	fromFlags.MutationCount = ""
	fromFlags.Target = "AGDIST"
	fromFlags.Predictors = "predictors.csv"

	flag.StringVar(&configPath, "config", "", "Optional JSON config file. Flags set explicitly override its values.")
	fromFlags.BindFlags(flag.CommandLine, map[string]string{
		"input":            "Strain pair file (local, ~/..., or gs://). May be compressed.",
		"delimiter":        "Input delimiter: a character, 'tab' or 'space'. Empty means auto-detect.",
		"label_columns":    "The two strain label columns",
		"target":           "Antigenic distance column, the regression response",
		"mutation_count":   "Mutation count column; empty if the file has none",
		"drop_columns":     "Columns to drop right after reading",
		"drop_first_row":   "Discard the first data row",
		"predictors":       "File with one predictor name per line",
		"max_predictors":   "Use only the first N predictors from the predictors file",
		"output_dir":       "Directory for coefplot.png and the model summaries",
		"font_size":        "Font size, in points, of the term labels",
		"truncreg_backend": "Truncated regression backend: 'native' or 'r'",
		"rscript":          "Path to Rscript, for the 'r' backend",
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

	if cfg.Input == "" || cfg.Predictors == "" {
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
	log.Printf("Loaded %d strain pairs with %d columns from %s\n", data.Table.NRow(), data.Table.NCol(), cfg.Input)

	predictors, err := agdist.ReadLines(ctx, cfg.Predictors, client, cfg.MaxPredictors)
	if err != nil {
		return err
	}
	log.Printf("Using %d predictors: %s\n", len(predictors), strings.Join(predictors, ", "))

	f := formula.FromPredictors(opts.Target, predictors, true)
	log.Println("Formula:", f)

	session, err := newSession(cfg)
	if err != nil {
		return err
	}

	fits, err := coefplot.Run(ctx, f, data.Table, coefplot.Options{
		Session:   session,
		OutputDir: cfg.OutputDir,
		FontSize:  cfg.FontSize,
	})
	if err != nil {
		return err
	}

	log.Printf("Plotted %d terms. OLS R-squared %.3f, truncated regression log-likelihood %.2f\n", len(fits.Rows), fits.LM.R2, fits.TruncReg.LogLik)
	log.Println("Wrote output to", cfg.OutputDir)

	return nil
}

func newSession(cfg agdist.JSONConfig) (truncreg.Session, error) {
	switch cfg.TruncregBackend {
	case "", "native":
		return truncreg.NewNativeSession(), nil
	case "r", "R":
		return truncreg.NewRSession(cfg.Rscript)
	}
	return nil, pfx.Err("unknown truncreg_backend " + cfg.TruncregBackend)
}
