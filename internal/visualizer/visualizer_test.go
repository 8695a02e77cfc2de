package visualizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tablechat-cli/internal/dataset"
)

func loadSample(t *testing.T) *dataset.Dataset {
	t.Helper()
	var b strings.Builder
	b.WriteString("price,quantity,category\n")
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "%d,%d,%s\n", i*10, i, []string{"food", "tools", "books"}[i%3])
	}
	path := filepath.Join(t.TempDir(), "items.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	ds, err := dataset.Load(path, dataset.DefaultOptions())
	require.NoError(t, err)
	return ds
}

func TestGenerateWritesCharts(t *testing.T) {
	ds := loadSample(t)
	outDir := filepath.Join(t.TempDir(), "plots")

	paths, err := New(DefaultOptions(), nil).Generate(ds, outDir)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	want := []string{
		"distribution_price.png",
		"distribution_quantity.png",
		"correlation_heatmap.png",
		"boxplot_price.png",
		"boxplot_quantity.png",
		"countplot_category.png",
	}
	byName := map[string]bool{}
	for _, p := range paths {
		byName[filepath.Base(p)] = true
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), "chart %s should not be empty", p)
	}
	for _, name := range want {
		assert.True(t, byName[name], "missing chart %s", name)
	}
}

func TestGenerateNilDataset(t *testing.T) {
	_, err := New(DefaultOptions(), nil).Generate(nil, t.TempDir())
	require.Error(t, err)
}

func TestGenerateRespectsMaxColumns(t *testing.T) {
	ds := loadSample(t)
	opt := DefaultOptions()
	opt.MaxColumns = 1

	paths, err := New(opt, nil).Generate(ds, filepath.Join(t.TempDir(), "plots"))
	require.NoError(t, err)

	var dists int
	for _, p := range paths {
		if strings.HasPrefix(filepath.Base(p), "distribution_") {
			dists++
		}
	}
	assert.Equal(t, 1, dists)
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "unit_price_USD", fileSafe("unit price (USD)"))
	assert.Equal(t, "column", fileSafe("???"))
}

func TestShortenKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("é", 20)
	got := shorten(long, 12)
	assert.True(t, utf8.ValidString(got), "shortened label must stay valid UTF-8: %q", got)
	assert.Equal(t, strings.Repeat("é", 11)+"…", got)
	assert.Equal(t, "short", shorten("short", 12))
}
