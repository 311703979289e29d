package saver

import (
	"strings"

	"ib-history/internal/model"
)

// PartitionSaver persists one partition file of bars and reads it back.
// Save always overwrites path; merge policy belongs to the caller.
type PartitionSaver interface {
	Save(bars []model.Bar, path string) error
	Load(path string) ([]model.Bar, error)
	Extension() string
}

// NewPartitionSaver creates implementation by format (parquet, csv, json, msgpack).
// Returns nil if format not supported.
func NewPartitionSaver(format string) PartitionSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "parquet", "":
		return ParquetSaver{}
	case "csv":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "msgpack":
		return MsgpackSaver{}
	default:
		return nil
	}
}
