package app

import (
	"log/slog"
	"path/filepath"
	"slices"

	"ib-history/internal/download"
)

const (
	successReport = ".lastrun.success.json"
	failedReport  = ".lastrun.failed.json"
)

// failedEntry is one ticker and bar kind that could not be refreshed.
type failedEntry struct {
	Ticker    string `json:"ticker"`
	Kind      string `json:"kind"`
	DateRange string `json:"date_range,omitempty"`
	Reason    string `json:"reason"`
}

// writeRunReport records the outcome of a scheduler pass under storageDir.
// Empty lists leave the previous report file in place.
func writeRunReport(storageDir string, successList []string, failedList []failedEntry) error {
	if len(successList) > 0 {
		p := filepath.Join(storageDir, successReport)
		if err := download.WriteJSON(p, successList); err != nil {
			return err
		}
		slog.Debug("report wrote success", "path", p, "tickers", len(successList))
	}
	if len(failedList) > 0 {
		p := filepath.Join(storageDir, failedReport)
		if err := download.WriteJSON(p, failedList); err != nil {
			return err
		}
		slog.Debug("report wrote failed", "path", p, "count", len(failedList))
	}
	return nil
}

func appendSuccess(list []string, ticker string) []string {
	if slices.Contains(list, ticker) {
		return list
	}
	return append(list, ticker)
}

func failedReasons(failedList []failedEntry) string {
	return download.JoinReasons(failedList, func(f failedEntry) (string, string) {
		return f.Ticker + "/" + f.Kind, f.Reason
	})
}
