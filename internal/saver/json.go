package saver

import (
	"encoding/json"
	"os"

	"ib-history/internal/model"
)

// JSONSaver stores partitions as an indented JSON array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(bars []model.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(bars)
}

func (JSONSaver) Load(path string) ([]model.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bars []model.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}
