package regressiondata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/agdist"
	"github.com/carbocation/agdist/table"
)

func TestCentury(t *testing.T) {
	for s := 0; s < 100; s++ {
		expected := s + 1900
		if s < 60 {
			expected = s + 2000
		}
		if got := Century(s); got != expected {
			t.Fatalf("Century(%d): expected %d, got %d", s, expected, got)
		}

		label := fmt.Sprintf("A/Strain/1/%02d", s)
		year, err := StrainYear(label)
		if err != nil {
			t.Fatal(err)
		}
		if year != expected {
			t.Fatalf("StrainYear(%q): expected %d, got %d", label, expected, year)
		}
	}
}

func TestStrainYearMalformed(t *testing.T) {
	for _, label := range []string{"HK68", "A/HK/xx", "A/HK/", "", "A/2004", "A/123", "A/-5", "A/+7", "A/7", "A/６８"} {
		if _, err := StrainYear(label); !errors.Is(err, ErrMalformedLabel) {
			t.Errorf("%q: expected ErrMalformedLabel, got %v", label, err)
		}
	}
}

func TestBucket(t *testing.T) {
	for _, v := range []struct {
		Year     int
		Expected Cluster
	}{
		{1968, HK68},
		{1971, HK68},
		{1972, EN72},
		{1974, EN72},
		{1975, VI75},
		{1977, TX77},
		{1979, BK79},
		{1985, BK79},
		{1987, SI87},
		{1989, BE89},
		{1992, BE92},
		{1995, WU95},
		{1997, SY97},
		{2001, SY97},
		{2002, FU02},
		{2059, FU02},
	} {
		if got := Bucket(v.Year); got != v.Expected {
			t.Errorf("Bucket(%d): expected %s, got %s", v.Year, v.Expected, got)
		}
		if got := bucket(v.Year); got != v.Expected {
			t.Errorf("bucket(%d): expected %s, got %s", v.Year, v.Expected, got)
		}
	}
}

func TestBucketMonotonic(t *testing.T) {
	order := make(map[Cluster]int)
	for i, c := range Clusters() {
		order[c] = i
	}

	last := -1
	for year := 1900; year < 2060; year++ {
		pos, exists := order[Bucket(year)]
		if !exists {
			t.Fatalf("Year %d mapped to unknown cluster %s", year, Bucket(year))
		}
		if pos < last {
			t.Fatalf("Year %d moved back to cluster %s", year, Bucket(year))
		}
		last = pos
	}
}

func mustData(t *testing.T, body string, opts Options) *RegressionData {
	t.Helper()
	raw, err := table.Read(strings.NewReader(body), table.ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(raw, opts)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestAnnotation(t *testing.T) {
	d := mustData(t, "AG1,AG2,AG-DIST,NUM-MUTATIONS,P1\nX/68,Y/85,2.5,3,1\n", DefaultOptions())

	y1, y2 := d.Years()
	if y1[0] != 1968 || y2[0] != 1985 {
		t.Fatalf("Expected 1968 and 1985, got %d and %d", y1[0], y2[0])
	}

	c1, _ := d.Table.Strings(Cluster1)
	c2, _ := d.Table.Strings(Cluster2)
	if c1[0] != string(HK68) || c2[0] != string(BK79) {
		t.Fatalf("Expected HK68 and BK79, got %s and %s", c1[0], c2[0])
	}
}

// Each strain's cluster must come from its own year.
func TestClustersComeFromTheirOwnStrain(t *testing.T) {
	d := mustData(t, "AG1,AG2,AG-DIST,NUM-MUTATIONS\nX/04,Y/70,1,1\n", DefaultOptions())

	c1, _ := d.Table.Strings(Cluster1)
	c2, _ := d.Table.Strings(Cluster2)
	if c1[0] != string(FU02) || c2[0] != string(HK68) {
		t.Fatalf("Expected FU02 and HK68, got %s and %s", c1[0], c2[0])
	}
}

func TestMalformedLabelFailsConstruction(t *testing.T) {
	raw, err := table.Read(strings.NewReader("AG1,AG2,AG-DIST\nX/68,Y85,1\n"), table.ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(raw, DefaultOptions()); !errors.Is(err, ErrMalformedLabel) {
		t.Fatalf("Expected ErrMalformedLabel, got %v", err)
	}
}

func TestDropFirstRow(t *testing.T) {
	body := "AG1,AG2,AG-DIST,NUM-MUTATIONS\nPROTO/00,PROTO/00,0,0\nX/68,Y/85,2.5,3\n"

	opts := DefaultOptions()
	opts.DropFirstRow = true
	d := mustData(t, body, opts)

	if d.Table.NRow() != 1 {
		t.Fatalf("Expected 1 row, got %d", d.Table.NRow())
	}
	labels, _ := d.Table.Strings("AG1")
	if labels[0] != "X/68" {
		t.Errorf("Expected the prototype row to be dropped, got %v", labels)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "culled.csv")
	body := "AG1 AG2 AG-DIST NUM-MUTATIONS P1 P2 \nX/68 Y/85 2.5 3 1 0 \nX/70 Y/72 1.5 1 0 1 \n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.Delimiter = ' '
	opts.DropColumns = []string{"Unnamed: 6"}
	d, err := Load(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}

	preds, err := d.Predictors()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(preds, ",") != "P1,P2" {
		t.Errorf("Unexpected predictors %v", preds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), DefaultOptions()); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := agdist.DefaultJSONConfig()
	cfg.Delimiter = "space"
	cfg.DropColumns = []string{"Unnamed: 75"}
	cfg.MutationCount = ""

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Delimiter != ' ' || opts.MutationCount != "" || opts.LabelColumns != [2]string{"AG1", "AG2"} || len(opts.DropColumns) != 1 {
		t.Errorf("Unexpected options %+v", opts)
	}

	cfg.LabelColumns = []string{"AG1"}
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("Expected an error for a single label column")
	}
}
