package truncreg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/carbocation/agdist/formula"
	"github.com/carbocation/agdist/table"
	"github.com/carbocation/pfx"
)

// RSession fits through R's truncreg package. Each Fit writes the rows the
// formula uses to a scratch directory, runs Rscript on them, and reads the
// estimates, standard errors, log-likelihood and printed summary back.
type RSession struct {
	Truncation Truncation

	// Rscript is the path to the Rscript binary.
	Rscript string

	// ScratchDir is where per-fit working directories are created; empty
	// means the system temp directory.
	ScratchDir string
}

// NewRSession locates Rscript, either at the given path or on $PATH.
func NewRSession(rscript string) (*RSession, error) {
	if rscript == "" {
		rscript = "Rscript"
	}
	path, err := exec.LookPath(rscript)
	if err != nil {
		return nil, pfx.Err(err)
	}
	return &RSession{Truncation: LeftAtZero, Rscript: path}, nil
}

func (s *RSession) Fit(ctx context.Context, f *formula.Formula, t *table.Table) (*Result, error) {
	if _, err := s.Truncation.sign(); err != nil {
		return nil, pfx.Err(err)
	}

	d, err := f.Design(t)
	if err != nil {
		return nil, pfx.Err(err)
	}
	used, err := t.Select(f.Columns()...)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if used, err = used.Subset(d.Rows); err != nil {
		return nil, pfx.Err(err)
	}

	dir, err := os.MkdirTemp(s.ScratchDir, "truncreg")
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer os.RemoveAll(dir)

	dataPath := filepath.Join(dir, "data.csv")
	if err := writeTable(dataPath, used); err != nil {
		return nil, err
	}

	scriptPath := filepath.Join(dir, "fit.R")
	script := rScript(f, s.Truncation, dir)
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		return nil, pfx.Err(err)
	}

	if out, err := exec.CommandContext(ctx, s.Rscript, scriptPath).CombinedOutput(); err != nil {
		return nil, pfx.Err(fmt.Errorf("Output: %s | Error: %w", string(out), err))
	}

	return readRResults(dir, f, s.Truncation, len(d.Rows))
}

func writeTable(path string, t *table.Table) error {
	fw, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	if err := t.Write(fw, ','); err != nil {
		fw.Close()
		return pfx.Err(err)
	}
	return pfx.Err(fw.Close())
}

func readRResults(dir string, f *formula.Formula, tr Truncation, nobs int) (*Result, error) {
	fr, err := os.Open(filepath.Join(dir, "coefficients.csv"))
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer fr.Close()

	coefs, err := table.Read(fr, table.ReadOptions{Delimiter: ','})
	if err != nil {
		return nil, pfx.Err(err)
	}
	terms, err := coefs.Strings("term")
	if err != nil {
		return nil, pfx.Err(err)
	}
	est, err := coefs.Float("estimate")
	if err != nil {
		return nil, pfx.Err(err)
	}
	se, err := coefs.Float("se")
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := &Result{
		Formula:    f,
		Truncation: tr,
		Names:      make([]string, len(terms)),
		Params:     append([]float64(nil), est...),
		BSE:        append([]float64(nil), se...),
		NObs:       nobs,
		Status:     "R truncreg",
	}
	for i, term := range terms {
		out.Names[i] = fromRName(term)
	}

	ll, err := os.ReadFile(filepath.Join(dir, "loglik.txt"))
	if err != nil {
		return nil, pfx.Err(err)
	}
	if out.LogLik, err = strconv.ParseFloat(strings.TrimSpace(string(ll)), 64); err != nil {
		return nil, pfx.Err(err)
	}

	summ, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	if err != nil {
		return nil, pfx.Err(err)
	}
	out.Text = string(summ)

	return out, nil
}

func rScript(f *formula.Formula, tr Truncation, dir string) string {
	dir = filepath.ToSlash(dir)
	dirn := tr.Direction
	if dirn == "" {
		dirn = Left
	}

	var b strings.Builder
	fmt.Fprintf(&b, "suppressPackageStartupMessages(library(truncreg))\n")
	fmt.Fprintf(&b, "setwd(%q)\n", dir)
	fmt.Fprintf(&b, "data <- read.csv(\"data.csv\", check.names = FALSE, na.strings = \"NA\")\n")
	fmt.Fprintf(&b, "fit <- truncreg(%s, data = data, point = %s, direction = '%s')\n", RFormula(f), strconv.FormatFloat(tr.Point, 'g', -1, 64), dirn)
	fmt.Fprintf(&b, "summ <- summary(fit)\n")
	fmt.Fprintf(&b, "co <- coef(summ)\n")
	fmt.Fprintf(&b, "write.csv(data.frame(term = rownames(co), estimate = co[, 1], se = co[, 2]), \"coefficients.csv\", row.names = FALSE)\n")
	fmt.Fprintf(&b, "writeLines(format(as.numeric(logLik(fit)), digits = 17), \"loglik.txt\")\n")
	fmt.Fprintf(&b, "writeLines(capture.output(print(summ)), \"summary.txt\")\n")
	return b.String()
}

var rSyntactic = regexp.MustCompile(`^[A-Za-z.][A-Za-z0-9._]*$`)

// RFormula renders f in R syntax, backquoting names R would not accept bare.
func RFormula(f *formula.Formula) string {
	rhs := make([]string, 0, len(f.Terms)+1)
	for _, term := range f.Terms {
		factors := make([]string, len(term))
		for i, factor := range term {
			factors[i] = rName(factor)
		}
		rhs = append(rhs, strings.Join(factors, ":"))
	}
	if !f.Intercept {
		rhs = append(rhs, "0")
	}
	if len(rhs) == 0 {
		rhs = append(rhs, "1")
	}
	return rName(f.Response) + " ~ " + strings.Join(rhs, " + ")
}

func rName(name string) string {
	if rSyntactic.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// fromRName strips the backquotes R keeps around non-syntactic names in
// coefficient labels, including within interactions.
func fromRName(name string) string {
	parts := strings.Split(name, ":")
	for i, p := range parts {
		parts[i] = strings.Trim(p, "`")
	}
	return strings.Join(parts, ":")
}
