// Package dateutil holds the calendar-date conventions shared by the clinic
// services: HTML date-input strings, ISO date prefixes and Indonesian display
// dates.
package dateutil

import (
	"fmt"
	"time"
)

// InputLayout is the layout of an HTML date input value.
const InputLayout = "2006-01-02"

var monthNamesID = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatDateForInput renders the calendar date of t as YYYY-MM-DD.
func FormatDateForInput(t time.Time) string {
	return t.Format(InputLayout)
}

// ParseDateInput parses a YYYY-MM-DD value as local midnight.
func ParseDateInput(s string) (time.Time, error) {
	t, err := time.ParseInLocation(InputLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// DatePrefix returns the leading YYYY-MM-DD of an ISO-8601 string. Shorter
// strings are returned unchanged so that lexicographic comparison still
// behaves sensibly.
func DatePrefix(s string) string {
	if len(s) < len(InputLayout) {
		return s
	}
	return s[:len(InputLayout)]
}

// MonthPrefix returns the leading YYYY-MM of an ISO-8601 string.
func MonthPrefix(s string) string {
	if len(s) < 7 {
		return s
	}
	return s[:7]
}

// FormatDateID renders t as an Indonesian long date, e.g. "15 Januari 2026".
func FormatDateID(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), monthNamesID[t.Month()-1], t.Year())
}

// ISO renders t the way records are stored in string form (RFC 3339, UTC).
func ISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
