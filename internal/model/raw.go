package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RawBar is a bar as delivered by the provider, before timestamp normalization.
// Date is either "YYYYMMDD" or "YYYYMMDD HH:MM:SS TZNAME".
type RawBar struct {
	Date   string        `json:"date"`
	Open   float64       `json:"open"`
	High   float64       `json:"high"`
	Low    float64       `json:"low"`
	Close  float64       `json:"close"`
	Volume FlexibleInt64 `json:"volume"`
}

// FlexibleInt64 parses int, float (scientific notation) or quoted numbers to int64.
// The provider reports volume as a decimal for some instruments.
type FlexibleInt64 int64

// UnmarshalJSON parses int or float
func (f *FlexibleInt64) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		val, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return err
		}
		*f = FlexibleInt64(int64(val))
		return nil
	}

	var floatVal float64
	if err := json.Unmarshal(data, &floatVal); err == nil {
		*f = FlexibleInt64(int64(floatVal))
		return nil
	}

	return fmt.Errorf("cannot parse as int64: %s", string(data))
}

// Int64 returns int64 value
func (f FlexibleInt64) Int64() int64 {
	return int64(f)
}
