package database

import (
	"fmt"
	"time"
)

// TimeLayout is the text form of every timestamp column.
const TimeLayout = "2006-01-02T15:04:05.000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func NowUTC() string {
	return FormatTime(time.Now())
}

// ParseTime accepts TimeLayout as well as SQLite's CURRENT_TIMESTAMP form.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q", s)
}
