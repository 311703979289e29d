package series

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ib-history/internal/model"
	"ib-history/internal/saver"
)

func writePartition(t *testing.T, s saver.PartitionSaver, root string, d time.Time, bars []model.Bar) {
	t.Helper()
	dir := filepath.Join(root, d.Format("2006"), d.Format("01"))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, s.Save(bars, filepath.Join(dir, d.Format(time.DateOnly)+"."+s.Extension())))
}

func TestLoadDirRoundTrip(t *testing.T) {
	s := saver.ParquetSaver{}
	root := t.TempDir()

	d1 := time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	b1 := minuteBars(d1.Add(14*time.Hour), 3)
	b2 := minuteBars(d2.Add(14*time.Hour), 2)
	writePartition(t, s, root, d2, b2)
	writePartition(t, s, root, d1, b1)

	// noise the loader must skip
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.parquet"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024-01-01.csv"), []byte("x"), 0o644))

	got, err := LoadDir(root, s)
	require.NoError(t, err)
	assert.Equal(t, append(append([]model.Bar{}, b1...), b2...), got)
}

func TestLoadDirMissingOrEmpty(t *testing.T) {
	got, err := LoadDir(filepath.Join(t.TempDir(), "nope"), saver.CSVSaver{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = LoadDir(t.TempDir(), saver.CSVSaver{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPartitionsOrderedByDate(t *testing.T) {
	s := saver.CSVSaver{}
	root := t.TempDir()
	for _, d := range []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	} {
		writePartition(t, s, root, d, minuteBars(d, 1))
	}
	paths, err := Partitions(root, "csv")
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, "2023-12-31.csv", filepath.Base(paths[0]))
}
