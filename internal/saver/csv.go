package saver

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"ib-history/internal/model"
)

var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// CSVSaver stores partitions as CSV (header: timestamp,open,high,low,close,volume).
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(bars []model.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			strconv.FormatInt(b.Timestamp, 10),
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			strconv.FormatInt(b.Volume, 10),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (CSVSaver) Load(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)

	var bars []model.Bar
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		if line == 1 && rec[0] == csvHeader[0] {
			continue
		}
		b, err := parseCSVRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseCSVRecord(rec []string) (model.Bar, error) {
	var b model.Bar
	var err error
	if b.Timestamp, err = strconv.ParseInt(rec[0], 10, 64); err != nil {
		return b, err
	}
	prices := []*float64{&b.Open, &b.High, &b.Low, &b.Close}
	for i, p := range prices {
		if *p, err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return b, err
		}
	}
	if b.Volume, err = strconv.ParseInt(rec[5], 10, 64); err != nil {
		return b, err
	}
	return b, nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
