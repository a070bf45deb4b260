// Package dates interprets the loosely formatted, bilingual date strings
// found in billing portal listings and invoice documents.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned for malformed machine-formatted range bounds.
var ErrInvalidDate = errors.New("invalid date")

// Max sorts after every real invoice date. Entries whose date is unknown
// are ordered as if dated Max.
var Max = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// months maps normalized Spanish and English month names and
// abbreviations to their month number. Three-letter tokens shared by
// both languages (mar, may, jun, jul) resolve to the same month, so the
// overlap is harmless.
var months = map[string]time.Month{
	// Spanish
	"ene": time.January, "enero": time.January,
	"feb": time.February, "febrero": time.February,
	"marzo": time.March,
	"abr":   time.April, "abril": time.April,
	"mayo": time.May,
	"junio": time.June,
	"julio": time.July,
	"ago": time.August, "agosto": time.August,
	"sep": time.September, "sept": time.September, "septi": time.September,
	"septiembre": time.September, "set": time.September, "setiembre": time.September,
	"oct": time.October, "octubre": time.October,
	"nov": time.November, "noviembre": time.November,
	"dic": time.December, "diciembre": time.December,
	// English
	"jan": time.January, "january": time.January,
	"february": time.February,
	"mar":      time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"dec":       time.December, "december": time.December,
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ç", "c",
)

// Normalize lowercases, trims and strips accented vowels so portal text
// can be matched regardless of language or typography.
func Normalize(s string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

var (
	// "25 de octubre de 2025"
	spanishLongRe = regexp.MustCompile(`(\d{1,2})\s+de\s+([a-zñ]+)\s+de\s+(\d{4})`)
	// "25 oct 2025", "25 october 2025"
	dayMonthYearRe = regexp.MustCompile(`(\d{1,2})\s+([a-zñ]+)\s+(\d{4})`)
	// "October 25, 2025"
	monthDayYearRe = regexp.MustCompile(`([a-z]+)\s+(\d{1,2}),\s*(\d{4})`)
)

// numericLayouts are tried in order against the whole trimmed input.
var numericLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "02-01-2006"}

// Parse extracts a calendar date from human-readable text. It searches
// anywhere in the text, so it can be fed whole documents. The second
// return value reports whether a date was recognized; absence is an
// expected outcome, not an error.
func Parse(text string) (time.Time, bool) {
	t := Normalize(text)

	// A month token outside the lexicon falls through to the next form;
	// a recognized month with an impossible day does not.
	if m := spanishLongRe.FindStringSubmatch(t); m != nil {
		if _, known := months[m[2]]; known {
			return resolve(m[2], m[1], m[3])
		}
	}
	if m := dayMonthYearRe.FindStringSubmatch(t); m != nil {
		if _, known := months[m[2]]; known {
			return resolve(m[2], m[1], m[3])
		}
	}
	if m := monthDayYearRe.FindStringSubmatch(t); m != nil {
		if _, known := months[m[1]]; known {
			return resolve(m[1], m[2], m[3])
		}
	}

	trimmed := strings.TrimSpace(text)
	for _, layout := range numericLayouts {
		if d, err := time.Parse(layout, trimmed); err == nil {
			return asDay(d), true
		}
	}
	return time.Time{}, false
}

// resolve maps a month token plus day/year digit strings to a date,
// rejecting days that don't exist in the month.
func resolve(monthToken, dayStr, yearStr string) (time.Time, bool) {
	month, ok := months[monthToken]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || d.Month() != month {
		// time.Date normalizes overflow (Feb 31 -> Mar 3); treat as no match.
		return time.Time{}, false
	}
	return d, true
}

var (
	fullBoundRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthBoundRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// ParseBound interprets a machine-formatted range bound: YYYY-MM-DD, or
// YYYY-MM which resolves to the first day of the month, or the last day
// when end is true. Malformed input fails with ErrInvalidDate; an empty
// string means the bound is absent and yields the zero time.
func ParseBound(s string, end bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if fullBoundRe.MatchString(s) {
		d, err := time.Parse("2006-01-02", s)
		if err == nil {
			return asDay(d), nil
		}
	}
	if monthBoundRe.MatchString(s) {
		d, err := time.Parse("2006-01", s)
		if err == nil {
			if end {
				return endOfMonth(d.Year(), d.Month()), nil
			}
			return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (use YYYY-MM or YYYY-MM-DD)", ErrInvalidDate, s)
}

func endOfMonth(year int, month time.Month) time.Time {
	if month == time.December {
		return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// InRange reports whether d falls within [from, to] inclusive. A zero
// bound is unconstrained on that side.
func InRange(d, from, to time.Time) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}

// Format renders a date back to its canonical YYYY-MM-DD form.
func Format(d time.Time) string {
	return d.Format("2006-01-02")
}

func asDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
