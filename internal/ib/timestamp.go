package ib

import (
	"fmt"
	"strings"
	"time"

	_ "time/tzdata"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102 15:04:05"
)

// ParseBarTime converts a provider bar date to a UTC instant.
//
// "YYYYMMDD" is stamped at 00:00:00 UTC on that date. This is a placeholder
// key for daily and weekly bars, not the exchange's local midnight.
// "YYYYMMDD HH:MM:SS TZNAME" is read as wall time in the named zone.
func ParseBarTime(raw string) (time.Time, error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 1:
		t, err := time.ParseInLocation(dateLayout, fields[0], time.UTC)
		if err != nil {
			return time.Time{}, &MalformedBarError{Raw: raw, Err: err}
		}
		return t, nil
	case 3:
		loc, err := time.LoadLocation(fields[2])
		if err != nil {
			return time.Time{}, &MalformedBarError{Raw: raw, Err: err}
		}
		t, err := time.ParseInLocation(dateTimeLayout, fields[0]+" "+fields[1], loc)
		if err != nil {
			return time.Time{}, &MalformedBarError{Raw: raw, Err: err}
		}
		return t.UTC(), nil
	default:
		return time.Time{}, &MalformedBarError{Raw: raw, Err: fmt.Errorf("expected date or date time zone, got %d fields", len(fields))}
	}
}

// EndDateTime formats the request end for day d as "YYYYMMDD 23:59:59 <tz>".
func EndDateTime(d time.Time, tz string) string {
	return d.Format(dateLayout) + " 23:59:59 " + tz
}
