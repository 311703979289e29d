package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoadTickersFromFile reads a list of tickers from a file.
// Supported formats:
//   - .txt  : one ticker per line, '#' lines are treated as comments
//   - .json : JSON array of strings
func LoadTickersFromFile(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tickers file %s: %w", path, err)
	}

	var tickers []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(content, &tickers); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	case ".txt", "":
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				tickers = append(tickers, line)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported ticker file extension %q (use .txt or .json)", filepath.Ext(path))
	}

	// Remove empty and duplicates
	seen := make(map[string]bool)
	var unique []string
	for _, t := range tickers {
		t = strings.TrimSpace(strings.ToUpper(t))
		if t != "" && !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	slog.Debug("loaded tickers from file", "count", len(unique), "path", path)
	return unique, nil
}
