package saver

import (
	"fmt"

	"github.com/parquet-go/parquet-go"

	"ib-history/internal/model"
)

// ParquetSaver stores partitions as snappy-compressed Parquet, one row per bar.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(bars []model.Bar, path string) error {
	if err := parquet.WriteFile(path, bars, parquet.Compression(&parquet.Snappy)); err != nil {
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	return nil
}

func (ParquetSaver) Load(path string) ([]model.Bar, error) {
	bars, err := parquet.ReadFile[model.Bar](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return bars, nil
}
