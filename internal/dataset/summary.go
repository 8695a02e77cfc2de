package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Summary renders a compact markdown report of the dataset. The same text
// is shown in the terminal and embedded as data context in LLM prompts.
func (d *Dataset) Summary() string {
	var b strings.Builder
	b.WriteString("[DATASET]\n")
	if d.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", d.Name)
	}
	if d.Rows > 0 {
		if d.Processed > 0 && d.Processed < d.Rows {
			fmt.Fprintf(&b, "Rows: ~%d (processed %d)\n", d.Rows, d.Processed)
		} else {
			fmt.Fprintf(&b, "Rows: %d\n", d.Rows)
		}
	}
	fmt.Fprintf(&b, "Columns: %d\n\n", len(d.Columns))

	b.WriteString("[SCHEMA]\n")
	for _, c := range d.Columns {
		d.writeColumnLine(&b, c)
	}

	if len(d.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range d.Groups {
			fmt.Fprintf(&b, "- %s (n=%d)\n", g.Key, g.Size)
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				fmt.Fprintf(&b, "  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max)
			}
		}
		d.writeGroupCorr(&b)
	}

	if d.Corr != nil && len(d.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range d.TopCorrelations(10) {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}

	if len(d.Samples) > 0 {
		b.WriteString("\n[SAMPLE ROWS]\n")
		d.writeSampleTable(&b)
	}

	if len(d.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range d.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func (d *Dataset) writeColumnLine(b *strings.Builder, c Column) {
	total := c.NonNull + c.Missing
	missPct := 0.0
	if total > 0 {
		missPct = float64(c.Missing) * 100.0 / float64(total)
	}
	name := safeName(c.Name)
	if c.Unit != "" {
		name = fmt.Sprintf("%s [%s]", name, c.Unit)
	}
	fmt.Fprintf(b, "- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct)
	switch c.Kind {
	case KindNumeric:
		fmt.Fprintf(b, " — min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
		if c.OutlierThreshold > 0 {
			fmt.Fprintf(b, "; outliers: %d above |z|>%.1f", c.OutlierCount, c.OutlierThreshold)
			if c.OutlierMaxAbsZ > 0 {
				fmt.Fprintf(b, " (max |z|≈%.2f)", c.OutlierMaxAbsZ)
			}
		}
	case KindCategorical:
		if len(c.TopValues) > 0 {
			b.WriteString(" — top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(b, "%s(%d)", safeVal(kv.Value), kv.Count)
			}
			if c.Unique > len(c.TopValues) {
				fmt.Fprintf(b, "; unique=%d", c.Unique)
			}
		}
	case KindText:
		if len(c.ExampleTexts) > 0 {
			b.WriteString(" — e.g., ")
			for i, ex := range c.ExampleTexts {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(ex))
			}
		}
	}
	b.WriteString("\n")
}

func (d *Dataset) writeGroupCorr(b *strings.Builder) {
	hasAny := false
	for _, g := range d.Groups {
		if len(g.CorrPairs) > 0 {
			hasAny = true
			break
		}
	}
	if !hasAny {
		return
	}
	b.WriteString("\n[PER-GROUP CORRELATIONS]\n")
	for _, g := range d.Groups {
		if len(g.CorrPairs) == 0 {
			continue
		}
		fmt.Fprintf(b, "- %s:\n", g.Key)
		lim := len(g.CorrPairs)
		if lim > 8 {
			lim = 8
		}
		for i := 0; i < lim; i++ {
			p := g.CorrPairs[i]
			fmt.Fprintf(b, "  • %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}
}

func (d *Dataset) writeSampleTable(b *strings.Builder) {
	b.WriteString("| ")
	for i, c := range d.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(c.Name))
	}
	b.WriteString(" |\n| ")
	for i := range d.Columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range d.Samples {
		b.WriteString("| ")
		for i := range d.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if runes := []rune(val); len(runes) > 80 {
				val = string(runes[:77]) + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
}

// TopCorrelations returns up to n column pairs ordered by |r|.
func (d *Dataset) TopCorrelations(n int) []PairCorr {
	if d.Corr == nil {
		return nil
	}
	var pairs []PairCorr
	cols := d.Corr.Columns
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			pairs = append(pairs, PairCorr{A: cols[i], B: cols[j], R: d.Corr.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}
