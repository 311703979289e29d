package download

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Failure is one day (or range) that could not be fetched.
type Failure struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// Summary is the outcome of one run, also written as the run report.
type Summary struct {
	Ticker     string    `json:"ticker"`
	Kind       string    `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Saved      []string  `json:"saved,omitempty"`
	Empty      []string  `json:"empty,omitempty"`
	Failed     []Failure `json:"failed,omitempty"`
	Bars       int       `json:"bars"`
}

func (s *Summary) saved(date string, bars int) {
	s.Saved = append(s.Saved, date)
	s.Bars += bars
}

func (s *Summary) empty(date string) {
	s.Empty = append(s.Empty, date)
}

func (s *Summary) fail(date string, err error) {
	s.Failed = append(s.Failed, Failure{Date: date, Reason: err.Error()})
}

// ReportPath is <storageDir>/<TICKER>/.lastrun.json.
func ReportPath(storageDir, ticker string) string {
	return filepath.Join(storageDir, ticker, ".lastrun.json")
}

func writeReport(path string, s Summary) error {
	return WriteJSON(path, s)
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FailedReasons joins failures for a single log line, eliding after five.
func FailedReasons(failed []Failure) string {
	return JoinReasons(failed, func(f Failure) (string, string) { return f.Date, f.Reason })
}

// JoinReasons renders items as "label: reason" pairs separated by "; ".
// Long lists keep the first five and note how many were left out.
func JoinReasons[T any](items []T, pair func(T) (label, reason string)) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("; ")
		}
		label, reason := pair(it)
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(reason)
		if i >= 4 && len(items) > 6 {
			fmt.Fprintf(&b, " (+%d more)", len(items)-5)
			break
		}
	}
	return b.String()
}
