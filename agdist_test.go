package agdist

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDetectDataType(t *testing.T) {
	for _, v := range []struct {
		Head     []byte
		Expected DataType
	}{
		{[]byte{0x1f, 0x8b, 0x08, 0x00}, DataTypeGzip},
		{[]byte{0x50, 0x4b, 0x03, 0x04, 0x00}, DataTypeZip},
		{[]byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, DataTypeXZ},
		{[]byte{0x42, 0x5a, 0x68, 0x39}, DataTypeBZip2},
		{[]byte{0x1f, 0x9d, 0x90}, DataTypeZ},
		{[]byte("AG1,AG2"), DataTypeNoCompression},
		{[]byte{}, DataTypeNoCompression},
	} {
		if got := DetectDataType(v.Head); got != v.Expected {
			t.Errorf("Head %v: expected %v, got %v", v.Head, v.Expected, got)
		}
	}
}

func TestMaybeDecompressGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte("a,b\n1,2\n")); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := MaybeDecompress(&buf)
	if err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "a,b\n1,2\n" {
		t.Errorf("Unexpected content %q", out)
	}
}

func TestMaybeDecompressUnixCompress(t *testing.T) {
	_, err := MaybeDecompress(bytes.NewReader([]byte{0x1f, 0x9d, 0x90, 0x41, 0x00}))
	if !errors.Is(err, ErrUnsupportedCompression) {
		t.Fatalf("Expected ErrUnsupportedCompression, got %v", err)
	}
}

func TestMaybeDecompressPassthrough(t *testing.T) {
	r, err := MaybeDecompress(strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	out, _ := io.ReadAll(r)
	if string(out) != "x" {
		t.Errorf("Unexpected content %q", out)
	}
}

func TestDetermineDelimiter(t *testing.T) {
	in := "AG1\tAG2\tAG-DIST\nA/68\tB/85\t1.5\nC/72\tD/75\t2.5\n"
	if d := DetermineDelimiter(strings.NewReader(in)); d != '\t' {
		t.Errorf("Expected tab, got %q", d)
	}
}

func TestReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictors.csv")
	if err := os.WriteFile(path, []byte("P1\nP2\n\nP3\nP4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	lines, err := ReadLines(context.Background(), path, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(lines, ",") != "P1,P2,P3" {
		t.Errorf("Unexpected lines %v", lines)
	}

	all, err := ReadLines(context.Background(), path, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("Expected 4 lines, got %v", all)
	}
}

func TestOpenGSWithoutClient(t *testing.T) {
	if _, err := Open(context.Background(), "gs://bucket/object.csv", nil); err == nil {
		t.Error("Expected an error opening gs:// without a client")
	}
}

func TestParseJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"input": "culled.csv", "delimiter": "space", "max_predictors": 20, "label_columns": ["AG1", "AG2"]}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseJSONConfigFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Input != "culled.csv" || cfg.MaxPredictors != 20 || len(cfg.LabelColumns) != 2 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if DelimiterRune(cfg.Delimiter) != ' ' {
		t.Errorf("Expected space delimiter")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"input": `), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJSONConfigFromPath(bad); err == nil {
		t.Error("Expected a parse error")
	}
}

func TestExplicitFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.String("input", "", "")
	fs.Int("cutoff", 1994, "")
	if err := fs.Parse([]string{"-cutoff", "1990"}); err != nil {
		t.Fatal(err)
	}

	set := ExplicitFlags(fs)
	if !set["cutoff"] || set["input"] {
		t.Errorf("Unexpected explicit flags %v", set)
	}
}

func TestConfigDefaultsSurviveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"target": "AGDIST"}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseJSONConfigFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Target != "AGDIST" || cfg.MutationCount != "NUM-MUTATIONS" || cfg.FontSize != 5 {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

func TestBindFlagsAndOverride(t *testing.T) {
	fromFile := DefaultJSONConfig()
	fromFile.Input = "file.csv"
	fromFile.CutoffYear = 1994

	fromFlags := DefaultJSONConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fromFlags.BindFlags(fs, map[string]string{
		"input":         "input",
		"cutoff_year":   "cutoff",
		"drop_columns":  "drop",
		"font_size":     "font",
		"label_columns": "labels",
	})

	if fs.Lookup("target") != nil {
		t.Fatalf("Expected only the named fields to be bound")
	}

	if err := fs.Parse([]string{"-cutoff_year", "1990", "-drop_columns", "Unnamed: 75, X", "-font_size", "7"}); err != nil {
		t.Fatal(err)
	}

	fromFile.Override(fromFlags, ExplicitFlags(fs))

	if fromFile.Input != "file.csv" {
		t.Errorf("Expected the file's input to survive, got %q", fromFile.Input)
	}
	if fromFile.CutoffYear != 1990 || fromFile.FontSize != 7 {
		t.Errorf("Expected explicit flags to win, got %+v", fromFile)
	}
	if strings.Join(fromFile.DropColumns, "|") != "Unnamed: 75|X" {
		t.Errorf("Unexpected drop columns %q", fromFile.DropColumns)
	}
	if strings.Join(fromFile.LabelColumns, ",") != "AG1,AG2" {
		t.Errorf("Unexpected label columns %v", fromFile.LabelColumns)
	}
}
