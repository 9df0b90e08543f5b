package util

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the layout of trading dates exchanged with the price API.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, a plain trading date, and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseDate parses a YYYY-MM-DD trading date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// ResolveWindow fills in a missing end date with today and a missing start date
// with end minus lookbackDays. It fails when start is after end.
func ResolveWindow(start, end string, lookbackDays int, now time.Time) (string, string, error) {
	endT := now.UTC()
	if end != "" {
		t, err := ParseDate(end)
		if err != nil {
			return "", "", err
		}
		endT = t
	}
	startT := endT.AddDate(0, 0, -lookbackDays)
	if start != "" {
		t, err := ParseDate(start)
		if err != nil {
			return "", "", err
		}
		startT = t
	}
	if startT.After(endT) {
		return "", "", fmt.Errorf("start date %s is after end date %s", FormatDate(startT), FormatDate(endT))
	}
	return FormatDate(startT), FormatDate(endT), nil
}
