// Package visualizer renders PNG charts for a loaded dataset: histograms
// and box plots for numeric columns, bar charts for categorical columns,
// and a correlation heatmap when enough numeric columns exist.
package visualizer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/tablechat-cli/internal/dataset"
)

// Options controls chart generation.
type Options struct {
	// MaxColumns caps how many numeric and categorical columns get charts.
	MaxColumns int
	// Bins for histograms.
	Bins int
	// TopValues caps bar-chart categories.
	TopValues int
}

// DefaultOptions mirrors the chart set of the interactive session.
func DefaultOptions() Options {
	return Options{MaxColumns: 5, Bins: 30, TopValues: 10}
}

// Visualizer writes charts for datasets into an output directory.
type Visualizer struct {
	opt Options
	log *zap.Logger
}

// New creates a Visualizer. A nil logger disables diagnostics.
func New(opt Options, log *zap.Logger) *Visualizer {
	if opt.MaxColumns <= 0 {
		opt.MaxColumns = 5
	}
	if opt.Bins <= 0 {
		opt.Bins = 30
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Visualizer{opt: opt, log: log}
}

// Generate renders all charts for the dataset into outDir (created if
// missing) and returns the paths of the files written. A single failed
// chart is logged and skipped, not fatal.
func (v *Visualizer) Generate(ds *dataset.Dataset, outDir string) ([]string, error) {
	if ds == nil {
		return nil, fmt.Errorf("no dataset loaded")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create plots dir: %w", err)
	}

	var paths []string
	numeric := ds.NumericColumns()
	if len(numeric) > v.opt.MaxColumns {
		numeric = numeric[:v.opt.MaxColumns]
	}
	for _, col := range numeric {
		if len(col.Values) == 0 {
			continue
		}
		path := filepath.Join(outDir, "distribution_"+fileSafe(col.Name)+".png")
		if err := v.histogram(col, path); err != nil {
			v.log.Warn("histogram failed", zap.String("column", col.Name), zap.Error(err))
			continue
		}
		paths = append(paths, path)
	}

	if len(ds.NumericColumns()) >= 2 && ds.Corr != nil {
		path := filepath.Join(outDir, "correlation_heatmap.png")
		if err := v.heatmap(ds.Corr, path); err != nil {
			v.log.Warn("heatmap failed", zap.Error(err))
		} else {
			paths = append(paths, path)
		}
	}

	for _, col := range numeric {
		if len(col.Values) == 0 {
			continue
		}
		path := filepath.Join(outDir, "boxplot_"+fileSafe(col.Name)+".png")
		if err := v.boxplot(col, path); err != nil {
			v.log.Warn("boxplot failed", zap.String("column", col.Name), zap.Error(err))
			continue
		}
		paths = append(paths, path)
	}

	categorical := ds.CategoricalColumns()
	if len(categorical) > v.opt.MaxColumns {
		categorical = categorical[:v.opt.MaxColumns]
	}
	for _, col := range categorical {
		if len(col.TopValues) == 0 {
			continue
		}
		path := filepath.Join(outDir, "countplot_"+fileSafe(col.Name)+".png")
		if err := v.barchart(col, path); err != nil {
			v.log.Warn("barchart failed", zap.String("column", col.Name), zap.Error(err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (v *Visualizer) histogram(col dataset.Column, path string) error {
	p := plot.New()
	p.Title.Text = "Distribution of " + col.Name
	p.X.Label.Text = col.Name
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(plotter.Values(col.Values), v.opt.Bins)
	if err != nil {
		return fmt.Errorf("build histogram: %w", err)
	}
	p.Add(h)
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

func (v *Visualizer) boxplot(col dataset.Column, path string) error {
	p := plot.New()
	p.Title.Text = "Box Plot of " + col.Name
	p.Y.Label.Text = col.Name
	p.NominalX(col.Name)

	b, err := plotter.NewBoxPlot(vg.Points(40), 0, plotter.Values(col.Values))
	if err != nil {
		return fmt.Errorf("build boxplot: %w", err)
	}
	p.Add(b)
	return p.Save(6*vg.Inch, 5*vg.Inch, path)
}

func (v *Visualizer) barchart(col dataset.Column, path string) error {
	tops := col.TopValues
	if len(tops) > v.opt.TopValues {
		tops = tops[:v.opt.TopValues]
	}
	counts := make(plotter.Values, len(tops))
	labels := make([]string, len(tops))
	for i, tv := range tops {
		counts[i] = float64(tv.Count)
		labels[i] = shorten(tv.Value, 14)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d Values in %s", len(tops), col.Name)
	p.Y.Label.Text = "Count"

	bars, err := plotter.NewBarChart(counts, vg.Points(24))
	if err != nil {
		return fmt.Errorf("build barchart: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

func (v *Visualizer) heatmap(corr *dataset.CorrMatrix, path string) error {
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	p := plot.New()
	p.Title.Text = "Correlation Heatmap"
	hm := plotter.NewHeatMap(corrGrid{corr}, cm.Palette(255))
	hm.Min = -1
	hm.Max = 1
	p.Add(hm)

	ticks := make([]plot.Tick, len(corr.Columns))
	for i, name := range corr.Columns {
		ticks[i] = plot.Tick{Value: float64(i), Label: shorten(name, 12)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	return p.Save(8*vg.Inch, 7*vg.Inch, path)
}

// corrGrid adapts a correlation matrix to the heatmap grid interface.
type corrGrid struct{ m *dataset.CorrMatrix }

func (g corrGrid) Dims() (int, int)   { n := len(g.m.Columns); return n, n }
func (g corrGrid) Z(c, r int) float64 { return g.m.Values[r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileSafe(name string) string {
	s := unsafeFileChars.ReplaceAllString(strings.TrimSpace(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "column"
	}
	return s
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
