// Package normalize converts raw grid cells into typed ledger values.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial day numbers are only trusted inside this open range,
// roughly 1954 to 2119. Anything else is more likely an amount or a code.
const (
	serialMin = 20000
	serialMax = 80000
)

// serialEpoch is day zero of the 1900 spreadsheet date system, shifted by
// the leap-year bug so that serial 1 is 1899-12-31.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var (
	reISO     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reCompact = regexp.MustCompile(`^\d{8}$`)
	reYMD     = regexp.MustCompile(`^(\d{4}|\d{2})\s*[-./년]\s*(\d{1,2})\s*[-./월]\s*(\d{1,2})\s*[.일]?$`)
	reISOTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[T ]`)
)

var genericLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006.01.02 15:04:05",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// SerialToDate converts a spreadsheet serial day number to a calendar date.
// No range check is applied here.
func SerialToDate(serial int) time.Time {
	return serialEpoch.AddDate(0, 0, serial)
}

// ParseDate interprets a raw cell as a calendar date. Accepted encodings,
// in order: ISO, YYYYMMDD, spreadsheet serial, Y-M-D with any of - . /
// or Korean unit separators (two-digit years are 20xx), then a handful of
// generic layouts.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if reISO.MatchString(s) {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return t, true
		}
	}

	if reCompact.MatchString(s) {
		if t, err := time.Parse("20060102", s); err == nil {
			return t, true
		}
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n > serialMin && n < serialMax {
			return SerialToDate(int(math.Floor(n))), true
		}

		return time.Time{}, false
	}

	if m := reYMD.FindStringSubmatch(s); m != nil {
		if t, ok := ymd(m[1], m[2], m[3]); ok {
			return t, true
		}
	}

	if m := reISOTime.FindStringSubmatch(s); m != nil {
		if t, err := time.Parse(time.DateOnly, m[1]); err == nil {
			return t, true
		}
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

// Date returns the ISO form of raw, falling back to base (already ISO) when
// raw carries no recognisable date. An empty result means the date is
// missing.
func Date(raw, base string) string {
	if t, ok := ParseDate(raw); ok {
		return t.Format(time.DateOnly)
	}

	return base
}

// BaseDate normalises a caller-supplied fallback date. Blank input yields
// an empty base; unparseable input is reported as not ok.
func BaseDate(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}

	t, ok := ParseDate(raw)
	if !ok {
		return "", false
	}

	return t.Format(time.DateOnly), true
}

func ymd(ys, ms, ds string) (time.Time, bool) {
	y, _ := strconv.Atoi(ys)
	m, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)

	if len(ys) == 2 {
		y += 2000
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}

	return t, true
}
