package normalize

import (
	"strings"
	"time"
)

// Date formats seen in warehouse exports: DICOM compact dates plus the
// ISO/US variants that show up after intermediate CSV round-trips.
var dateFormats = []string{
	"20060102",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate attempts to parse a date string in multiple common formats.
// Returns nil if the input is empty or unparseable.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, fmt := range dateFormats {
		if t, err := time.Parse(fmt, s); err == nil {
			return &t
		}
	}
	return nil
}

// FormatDate renders a date as ISO yyyy-mm-dd for CSV artifacts.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
