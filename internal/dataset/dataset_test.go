package dataset

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadBasicStats(t *testing.T) {
	csv := "name,age,city\n" +
		"alice,30,Berlin\n" +
		"bob,40,Berlin\n" +
		"carol,,Paris\n" +
		"dave,50,Paris\n"
	ds, err := Load(writeTemp(t, "people.csv", csv), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows, cols := ds.Shape()
	if rows != 4 || cols != 3 {
		t.Fatalf("shape = (%d, %d), want (4, 3)", rows, cols)
	}

	byName := map[string]Column{}
	for _, c := range ds.Columns {
		byName[c.Name] = c
	}
	age := byName["age"]
	if age.Kind != KindNumeric {
		t.Fatalf("age kind = %s, want numeric", age.Kind)
	}
	if age.Missing != 1 || age.NonNull != 3 {
		t.Fatalf("age missing/nonnull = %d/%d, want 1/3", age.Missing, age.NonNull)
	}
	if age.Min != 30 || age.Max != 50 || math.Abs(age.Mean-40) > 1e-9 {
		t.Fatalf("age stats min=%v max=%v mean=%v", age.Min, age.Max, age.Mean)
	}
	city := byName["city"]
	if city.Kind != KindCategorical {
		t.Fatalf("city kind = %s, want categorical", city.Kind)
	}
	if city.Unique != 2 {
		t.Fatalf("city unique = %d, want 2", city.Unique)
	}
	if len(city.TopValues) == 0 || city.TopValues[0].Count != 2 {
		t.Fatalf("city top values: %+v", city.TopValues)
	}
}

func TestLoadTSVSniffsDelimiter(t *testing.T) {
	tsv := "a\tb\n1\t2\n3\t4\n"
	ds, err := Load(writeTemp(t, "data.tsv", tsv), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rows, cols := ds.Shape(); rows != 2 || cols != 2 {
		t.Fatalf("shape = (%d, %d), want (2, 2)", rows, cols)
	}
	if ds.Columns[0].Kind != KindNumeric {
		t.Fatalf("column a kind = %s, want numeric", ds.Columns[0].Kind)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	ds, err := Load(writeTemp(t, "empty.csv", ""), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rows, cols := ds.Shape(); rows != 0 || cols != 0 {
		t.Fatalf("shape = (%d, %d), want (0, 0)", rows, cols)
	}
}

func TestLoadRaggedRowsPadded(t *testing.T) {
	csv := "a,b,c\n1,2,3\n4,5\n"
	ds, err := Load(writeTemp(t, "ragged.csv", csv), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	byName := map[string]Column{}
	for _, c := range ds.Columns {
		byName[c.Name] = c
	}
	if byName["c"].Missing != 1 {
		t.Fatalf("c missing = %d, want 1", byName["c"].Missing)
	}
}

func TestCorrelations(t *testing.T) {
	var b strings.Builder
	b.WriteString("x,y\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "%d,%d\n", i, 2*i)
	}
	ds, err := Load(writeTemp(t, "corr.csv", b.String()), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Corr == nil {
		t.Fatalf("expected correlation matrix")
	}
	if len(ds.Corr.Columns) != 2 {
		t.Fatalf("corr columns = %v", ds.Corr.Columns)
	}
	if r := ds.Corr.Values[0][1]; math.Abs(r-1) > 1e-9 {
		t.Fatalf("r(x,y) = %v, want 1", r)
	}
	top := ds.TopCorrelations(5)
	if len(top) != 1 || math.Abs(top[0].R-1) > 1e-9 {
		t.Fatalf("top correlations: %+v", top)
	}
}

func TestGroupBy(t *testing.T) {
	csv := "region,sales\n" +
		"east,10\n" +
		"east,30\n" +
		"west,100\n"
	opt := DefaultOptions()
	opt.GroupBy = []string{"region"}
	ds, err := Load(writeTemp(t, "sales.csv", csv), opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(ds.Groups))
	}
	// Largest group first.
	g := ds.Groups[0]
	if g.Key != "region=east" || g.Size != 2 {
		t.Fatalf("first group: %+v", g)
	}
	m := g.Metrics["sales"]
	if m.Count != 2 || m.Min != 10 || m.Max != 30 || math.Abs(m.Mean-20) > 1e-9 {
		t.Fatalf("east sales summary: %+v", m)
	}
}

func TestOutlierDetection(t *testing.T) {
	var b strings.Builder
	b.WriteString("v\n")
	for i := 1; i <= 9; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}
	b.WriteString("1000\n")
	ds, err := Load(writeTemp(t, "out.csv", b.String()), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := ds.Columns[0]
	if c.Kind != KindNumeric {
		t.Fatalf("kind = %s, want numeric", c.Kind)
	}
	if c.OutlierCount < 1 {
		t.Fatalf("outlier count = %d, want >= 1", c.OutlierCount)
	}
	if c.OutlierMaxAbsZ <= c.OutlierThreshold {
		t.Fatalf("max |z| = %v, threshold = %v", c.OutlierMaxAbsZ, c.OutlierThreshold)
	}
}

func TestMaxRowsWarning(t *testing.T) {
	csv := "a\n1\n2\n3\n4\n5\n"
	opt := DefaultOptions()
	opt.MaxRows = 2
	ds, err := Load(writeTemp(t, "cap.csv", csv), opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Rows != 5 || ds.Processed != 2 {
		t.Fatalf("rows/processed = %d/%d, want 5/2", ds.Rows, ds.Processed)
	}
	if len(ds.Warnings) == 0 {
		t.Fatalf("expected a row-limit warning")
	}
}

func TestLocaleNumericParsing(t *testing.T) {
	csv := "price\n\"1.234,56\"\n\"2.000,00\"\n"
	opt := DefaultOptions()
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	ds, err := Load(writeTemp(t, "eu.csv", csv), opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := ds.Columns[0]
	if c.Kind != KindNumeric {
		t.Fatalf("kind = %s, want numeric", c.Kind)
	}
	if math.Abs(c.Min-1234.56) > 1e-9 || math.Abs(c.Max-2000) > 1e-9 {
		t.Fatalf("min=%v max=%v", c.Min, c.Max)
	}
}

func TestInfoSplitsColumnKinds(t *testing.T) {
	csv := "name,age\nalice,30\nbob,40\n"
	ds, err := Load(writeTemp(t, "info.csv", csv), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	info := ds.Info()
	if info.Rows != 2 || info.Cols != 2 {
		t.Fatalf("info shape: %+v", info)
	}
	if len(info.NumericColumns) != 1 || info.NumericColumns[0] != "age" {
		t.Fatalf("numeric columns: %v", info.NumericColumns)
	}
	if len(info.CategoricalColumns) != 1 || info.CategoricalColumns[0] != "name" {
		t.Fatalf("categorical columns: %v", info.CategoricalColumns)
	}
}

func TestSummaryTruncatesLongValuesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 120)
	csv := "note\n" + long + "\n"
	ds, err := Load(writeTemp(t, "long.csv", csv), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	md := ds.Summary()
	if !utf8.ValidString(md) {
		t.Fatalf("summary contains invalid UTF-8:\n%s", md)
	}
	want := strings.Repeat("é", 77) + "..."
	if !strings.Contains(md, want) {
		t.Fatalf("summary missing rune-truncated sample value:\n%s", md)
	}
}

func TestSummarySections(t *testing.T) {
	csv := "name,age\nalice,30\nbob,40\n"
	ds, err := Load(writeTemp(t, "sum.csv", csv), DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	md := ds.Summary()
	for _, want := range []string{"[DATASET]", "[SCHEMA]", "[SAMPLE ROWS]", "age", "alice"} {
		if !strings.Contains(md, want) {
			t.Fatalf("summary missing %q:\n%s", want, md)
		}
	}
}
