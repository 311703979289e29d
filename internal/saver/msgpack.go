package saver

import (
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"ib-history/internal/model"
)

// MsgpackSaver stores partitions as a single msgpack-encoded array.
type MsgpackSaver struct{}

func (MsgpackSaver) Extension() string { return "msgpack" }

func (MsgpackSaver) Save(bars []model.Bar, path string) error {
	data, err := msgpack.Marshal(bars)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (MsgpackSaver) Load(path string) ([]model.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bars []model.Bar
	if err := msgpack.Unmarshal(data, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}
