package utils

import (
	"fmt"
	"time"
)

const ServiceDateFormat = "2006-01-02"

// ParseServiceDate parses a strict YYYY-MM-DD calendar date as used by agenda
// day keys and contract proposals.
func ParseServiceDate(value string) (time.Time, error) {
	parsed, err := time.Parse(ServiceDateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid service date %q: %w", value, err)
	}
	return parsed, nil
}

// FormatServiceDate renders a time as an agenda day key.
func FormatServiceDate(t time.Time) string {
	return t.Format(ServiceDateFormat)
}

// IsPastDate reports whether the date falls strictly before today in UTC.
func IsPastDate(value string, now time.Time) bool {
	parsed, err := ParseServiceDate(value)
	if err != nil {
		return false
	}
	today := now.UTC().Truncate(24 * time.Hour)
	return parsed.Before(today)
}
