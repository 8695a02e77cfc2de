// Package dataset loads CSV/TSV files in a single streaming pass and
// accumulates the per-column statistics that feed the terminal summary,
// the LLM prompt context, and the chart generator.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Column kinds inferred from the predominant parsed type.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Options controls loading and analysis behavior.
type Options struct {
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to keep for the report.
	SampleRows int
	// Delimiter for CSV. If 0, sniffed from the file extension.
	Delimiter rune
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// CorrPerGroup computes correlation pairs within each group key.
	CorrPerGroup bool
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Outlier detection via robust Z-score (MAD). Counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// ValuesCap bounds the numeric values retained per column for plotting.
	ValuesCap int
}

// DefaultOptions returns reasonable defaults for interactive use.
func DefaultOptions() Options {
	return Options{
		MaxRows:          100000,
		SampleRows:       5,
		Correlations:     true,
		Outliers:         true,
		OutlierThreshold: 3.5,
		ValuesCap:        20000,
	}
}

// ValueCount is one categorical value with its occurrence count.
type ValueCount struct {
	Value string
	Count int
}

// Column holds the inferred kind and accumulated statistics for one column.
type Column struct {
	Name    string
	Unit    string
	Kind    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutlierCount     int
	OutlierMaxAbsZ   float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []ValueCount
	ExampleTexts []string
	// Values is a capped sample of parsed numeric values, retained so the
	// visualizer can draw histograms and box plots without a second pass.
	Values []float64
}

// GroupSummary aggregates numeric metrics for one group-by key.
type GroupSummary struct {
	Key       string
	Size      int
	Metrics   map[string]NumSummary
	CorrPairs []PairCorr
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Dataset is the loaded table plus everything derived from it.
type Dataset struct {
	Name      string
	Path      string
	Rows      int
	Processed int
	Columns   []Column
	Samples   [][]string
	Warnings  []string
	Groups    []GroupSummary
	Corr      *CorrMatrix
}

// Info mirrors the structured dataset description handed to prompt builders.
type Info struct {
	Rows               int
	Cols               int
	Columns            []string
	NumericColumns     []string
	CategoricalColumns []string
	MissingValues      map[string]int
}

// pairAcc accumulates exact pairwise Pearson terms with missingness handling.
type pairAcc struct {
	n     float64
	sumX  float64
	sumY  float64
	sumXX float64
	sumYY float64
	sumXY float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sumX += x
	p.sumY += y
	p.sumXX += x * x
	p.sumYY += y * y
	p.sumXY += x * y
}

func (p *pairAcc) r() (float64, bool) {
	if p == nil || p.n < 2 {
		return 0, false
	}
	denom := math.Sqrt((p.n*p.sumXX - p.sumX*p.sumX) * (p.n*p.sumYY - p.sumY*p.sumY))
	if denom == 0 {
		return 0, false
	}
	r := (p.n*p.sumXY - p.sumX*p.sumY) / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

type colAcc struct {
	name   string
	unit   string
	nonNil int
	miss   int
	// numeric stats via Welford
	n      int
	mean   float64
	m2     float64
	min    float64
	max    float64
	numCnt int
	dtCnt  int
	txtCnt int
	cats   map[string]int
	exText []string
	values []float64
}

type groupAcc struct {
	size int
	sum  map[int]float64
	cnt  map[int]int
	min  map[int]float64
	max  map[int]float64
}

func newGroupAcc() *groupAcc {
	return &groupAcc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}}
}

// Load reads a CSV/TSV file and builds the Dataset in one pass.
func Load(path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	ds := &Dataset{Name: filepath.Base(path), Path: path}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ds, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	if ncol == 0 {
		return ds, nil
	}

	cols := make([]*colAcc, ncol)
	gbIndex := map[string]int{}
	for i := range header {
		clean, unit := splitUnits(strings.TrimSpace(header[i]))
		cols[i] = &colAcc{name: clean, unit: unit, min: math.Inf(1), max: math.Inf(-1), cats: make(map[string]int)}
		gbIndex[strings.ToLower(clean)] = i
	}

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	valuesCap := opt.ValuesCap
	if valuesCap <= 0 {
		valuesCap = 20000
	}

	pairs := map[int]*pairAcc{} // key = i*ncol + j with i>j
	groups := map[string]*groupAcc{}
	groupPairs := map[string]map[int]*pairAcc{}

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", ds.Rows+1, err)
		}
		ds.Rows++
		if len(rec) < ncol {
			tmp := make([]string, ncol)
			copy(tmp, rec)
			rec = tmp
		}
		if ds.Processed >= maxRows {
			continue
		}
		ds.Processed++

		if len(ds.Samples) < sampleRows {
			rowCopy := make([]string, ncol)
			copy(rowCopy, rec)
			ds.Samples = append(ds.Samples, rowCopy)
		}

		gkey := groupKey(rec, cols, gbIndex, opt.GroupBy)

		rowNums := make(map[int]float64)
		for j := 0; j < ncol; j++ {
			v := strings.TrimSpace(rec[j])
			if v == "" {
				cols[j].miss++
				continue
			}
			c := cols[j]
			c.nonNil++
			if strings.Contains(v, "%") && c.unit == "" {
				c.unit = "%"
			}
			if x, ok := parseNumeric(v, opt); ok {
				c.numCnt++
				c.n++
				if x < c.min {
					c.min = x
				}
				if x > c.max {
					c.max = x
				}
				delta := x - c.mean
				c.mean += delta / float64(c.n)
				c.m2 += delta * (x - c.mean)
				if len(c.values) < valuesCap {
					c.values = append(c.values, x)
				}
				rowNums[j] = x
				if gkey != "" {
					ga := groups[gkey]
					if ga == nil {
						ga = newGroupAcc()
						groups[gkey] = ga
					}
					ga.sum[j] += x
					ga.cnt[j]++
					if _, ok := ga.min[j]; !ok || x < ga.min[j] {
						ga.min[j] = x
					}
					if _, ok := ga.max[j]; !ok || x > ga.max[j] {
						ga.max[j] = x
					}
				}
				continue
			}
			if _, ok := parseTimeMaybe(v); ok {
				c.dtCnt++
				continue
			}
			c.txtCnt++
			if len(c.cats) <= 10000 && len(v) <= 64 { // guard memory; short tokens are categories
				c.cats[v]++
			}
			if len(c.exText) < 3 {
				c.exText = append(c.exText, v)
			}
		}
		if gkey != "" {
			ga := groups[gkey]
			if ga == nil {
				ga = newGroupAcc()
				groups[gkey] = ga
			}
			ga.size++
		}
		if opt.Correlations && len(rowNums) >= 2 {
			accumulatePairs(pairs, rowNums, ncol)
		}
		if opt.CorrPerGroup && gkey != "" && len(rowNums) >= 2 {
			gp := groupPairs[gkey]
			if gp == nil {
				gp = map[int]*pairAcc{}
				groupPairs[gkey] = gp
			}
			accumulatePairs(gp, rowNums, ncol)
		}
	}

	numCols := buildColumns(ds, cols, opt)

	if ds.Processed < ds.Rows {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("processed only %d/%d rows due to row limit", ds.Processed, ds.Rows))
	}

	buildGroups(ds, cols, groups, groupPairs, numCols, ncol, opt)

	if opt.Correlations && len(numCols) >= 2 {
		ds.Corr = buildCorrMatrix(cols, pairs, numCols, ncol)
	}
	return ds, nil
}

func groupKey(rec []string, cols []*colAcc, gbIndex map[string]int, groupBy []string) string {
	if len(groupBy) == 0 {
		return ""
	}
	var parts []string
	for _, name := range groupBy {
		idx, ok := gbIndex[strings.ToLower(strings.TrimSpace(name))]
		if !ok || idx >= len(rec) {
			continue
		}
		val := strings.TrimSpace(rec[idx])
		parts = append(parts, fmt.Sprintf("%s=%s", cols[idx].name, safeVal(val)))
	}
	return strings.Join(parts, " | ")
}

func accumulatePairs(pairs map[int]*pairAcc, rowNums map[int]float64, ncol int) {
	idxs := make([]int, 0, len(rowNums))
	for j := range rowNums {
		idxs = append(idxs, j)
	}
	sort.Ints(idxs)
	for a := 1; a < len(idxs); a++ {
		j := idxs[a]
		for b := 0; b < a; b++ {
			k := idxs[b]
			key := j*ncol + k
			pa := pairs[key]
			if pa == nil {
				pa = &pairAcc{}
				pairs[key] = pa
			}
			pa.add(rowNums[j], rowNums[k])
		}
	}
}

func buildColumns(ds *Dataset, cols []*colAcc, opt Options) []int {
	ds.Columns = make([]Column, 0, len(cols))
	numCols := []int{}
	for idx, c := range cols {
		if c == nil {
			continue
		}
		s := Column{Name: c.name, Unit: c.unit, NonNull: c.nonNil, Missing: c.miss}
		kind := KindUnknown
		switch {
		case c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt && c.numCnt > 0:
			kind = KindNumeric
			s.Min = c.min
			s.Max = c.max
			s.Mean = c.mean
			if c.n > 1 {
				s.Std = math.Sqrt(c.m2 / float64(c.n-1))
			}
			s.Values = c.values
			numCols = append(numCols, idx)
			if opt.Outliers && len(c.values) >= 8 {
				median, mad := medianMAD(c.values)
				thr := opt.OutlierThreshold
				if thr <= 0 {
					thr = 3.5
				}
				if mad > 0 {
					var cnt int
					maxAbsZ := 0.0
					for _, v := range c.values {
						az := math.Abs(0.6745 * (v - median) / mad)
						if az > thr {
							cnt++
						}
						if az > maxAbsZ {
							maxAbsZ = az
						}
					}
					s.OutlierCount = cnt
					s.OutlierMaxAbsZ = maxAbsZ
				}
				s.OutlierThreshold = thr
			}
		case c.dtCnt >= c.txtCnt && c.dtCnt > 0:
			kind = KindDatetime
		case len(c.cats) > 0:
			kind = KindCategorical
			tops := make([]ValueCount, 0, len(c.cats))
			for k, v := range c.cats {
				tops = append(tops, ValueCount{Value: k, Count: v})
			}
			sort.Slice(tops, func(i, j int) bool {
				if tops[i].Count == tops[j].Count {
					return tops[i].Value < tops[j].Value
				}
				return tops[i].Count > tops[j].Count
			})
			s.Unique = len(tops)
			if len(tops) > 10 {
				tops = tops[:10]
			}
			s.TopValues = tops
		case c.txtCnt > 0:
			kind = KindText
			s.ExampleTexts = c.exText
		}
		s.Kind = kind
		ds.Columns = append(ds.Columns, s)
	}
	return numCols
}

func buildGroups(ds *Dataset, cols []*colAcc, groups map[string]*groupAcc, groupPairs map[string]map[int]*pairAcc, numCols []int, ncol int, opt Options) {
	if len(groups) == 0 {
		return
	}
	out := make([]GroupSummary, 0, len(groups))
	for key, ga := range groups {
		gr := GroupSummary{Key: key, Size: ga.size, Metrics: map[string]NumSummary{}}
		for _, idx := range numCols {
			if ga.cnt[idx] == 0 {
				continue
			}
			gr.Metrics[cols[idx].name] = NumSummary{
				Count: ga.cnt[idx],
				Min:   ga.min[idx],
				Max:   ga.max[idx],
				Mean:  ga.sum[idx] / float64(ga.cnt[idx]),
			}
		}
		if opt.CorrPerGroup {
			if gp := groupPairs[key]; gp != nil {
				var pcs []PairCorr
				for pk, pa := range gp {
					r, ok := pa.r()
					if !ok {
						continue
					}
					j := pk / ncol
					k2 := pk % ncol
					pcs = append(pcs, PairCorr{A: cols[k2].name, B: cols[j].name, R: r})
				}
				sort.Slice(pcs, func(i, j int) bool {
					ai, aj := math.Abs(pcs[i].R), math.Abs(pcs[j].R)
					if ai == aj {
						return pcs[i].A+pcs[i].B < pcs[j].A+pcs[j].B
					}
					return ai > aj
				})
				if len(pcs) > 10 {
					pcs = pcs[:10]
				}
				gr.CorrPairs = pcs
			}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	ds.Groups = out
}

func buildCorrMatrix(cols []*colAcc, pairs map[int]*pairAcc, numCols []int, ncol int) *CorrMatrix {
	names := make([]string, len(numCols))
	for i, idx := range numCols {
		names[i] = cols[idx].name
	}
	n := len(numCols)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		ia := numCols[a]
		for b := 0; b < n; b++ {
			if a == b {
				mat[a][b] = 1
				continue
			}
			ib := numCols[b]
			hi, lo := ia, ib
			if hi < lo {
				hi, lo = lo, hi
			}
			if r, ok := pairs[hi*ncol+lo].r(); ok {
				mat[a][b] = r
			}
		}
	}
	return &CorrMatrix{Columns: names, Values: mat}
}

// Shape returns (rows, columns).
func (d *Dataset) Shape() (int, int) { return d.Rows, len(d.Columns) }

// NumericColumns returns the columns inferred as numeric.
func (d *Dataset) NumericColumns() []Column {
	var out []Column
	for _, c := range d.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// CategoricalColumns returns the columns inferred as categorical.
func (d *Dataset) CategoricalColumns() []Column {
	var out []Column
	for _, c := range d.Columns {
		if c.Kind == KindCategorical {
			out = append(out, c)
		}
	}
	return out
}

// Info returns the structured description used when building prompts.
func (d *Dataset) Info() Info {
	info := Info{
		Rows:          d.Rows,
		Cols:          len(d.Columns),
		MissingValues: make(map[string]int, len(d.Columns)),
	}
	for _, c := range d.Columns {
		info.Columns = append(info.Columns, c.Name)
		info.MissingValues[c.Name] = c.Missing
		switch c.Kind {
		case KindNumeric:
			info.NumericColumns = append(info.NumericColumns, c.Name)
		case KindCategorical, KindText:
			info.CategoricalColumns = append(info.CategoricalColumns, c.Name)
		}
	}
	return info
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
