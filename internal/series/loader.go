package series

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ib-history/internal/model"
	"ib-history/internal/saver"
)

// partition is one YYYY-MM-DD.<ext> file found under a store directory.
type partition struct {
	date string
	path string
}

// Partitions lists the day partition files under dir ordered by date.
// A missing dir yields no partitions.
func Partitions(dir, ext string) ([]string, error) {
	suffix := "." + ext
	var parts []partition
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, suffix) {
			return nil
		}
		date := strings.TrimSuffix(name, suffix)
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return nil
		}
		parts = append(parts, partition{date: date, path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].date < parts[j].date })

	paths := make([]string, len(parts))
	for i, p := range parts {
		paths[i] = p.path
	}
	return paths, nil
}

// LoadDir reads every day partition under dir and concatenates them into one
// ascending, deduplicated series. Later files win on duplicate timestamps.
func LoadDir(dir string, s saver.PartitionSaver) ([]model.Bar, error) {
	paths, err := Partitions(dir, s.Extension())
	if err != nil {
		return nil, err
	}
	var all []model.Bar
	for _, p := range paths {
		bars, err := s.Load(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		all = append(all, bars...)
	}
	return Normalize(all), nil
}
