// Package normalize holds the field-level rewriting rules used by the cleaner:
// canonical dates, kilogram weights and small stateless scrubbers.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
)

// CanonicalDateLayout is the output layout of every normalized date
const CanonicalDateLayout = "2006-01-02"

// extraDateLayouts cover shapes the generic parser does not accept.
// Slashed dates are tried month-first, then day-first.
var extraDateLayouts = []string{
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"20060102",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
	"2006 January 2",
	"January 2006 2",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2006 Jan 2",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"2/1/2006",
}

var monthNames = func() map[string]time.Month {
	m := make(map[string]time.Month, 12)
	for mo := time.January; mo <= time.December; mo++ {
		m[foldCase(mo.String())] = mo
	}
	return m
}()

func foldCase(s string) string {
	return cases.Fold().String(s)
}

// Date converts a date-like value to its canonical YYYY-MM-DD form.
// Non-string input and anything that cannot be resolved yield nil.
func Date(value interface{}) *string {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	out, ok := DateString(s)
	if !ok {
		return nil
	}
	return &out
}

// DateString is Date for a plain string
func DateString(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	if t, ok := parseFlexible(s); ok {
		return t.Format(CanonicalDateLayout), true
	}

	return parseThreeTokens(s)
}

// parseFlexible tries the generic parser, then the extra layouts.
// Year 0 results (time-only layouts) are not dates.
func parseFlexible(s string) (time.Time, bool) {
	if t, err := cast.ToTimeE(s); err == nil && t.Year() > 0 {
		return t, true
	}
	for _, layout := range extraDateLayouts {
		if t, err := time.Parse(layout, s); err == nil && t.Year() > 0 {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseThreeTokens handles "1968 October 16" and "October 1968 16"
func parseThreeTokens(s string) (string, bool) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return "", false
	}

	var yearTok, monthTok string
	if isDigits(parts[0]) {
		yearTok, monthTok = parts[0], parts[1]
	} else {
		monthTok, yearTok = parts[0], parts[1]
	}
	if !isDigits(yearTok) {
		return "", false
	}

	month, ok := monthNames[foldCase(monthTok)]
	if !ok {
		return "", false
	}

	return fmt.Sprintf("%s-%02d-%s", yearTok, int(month), parts[2]), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
