// Package period parses free-text statement-period strings and expands the
// result into the calendar months it covers.
package period

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Range is a parsed statement period. Months are 1-based.
type Range struct {
	StartMonth int `json:"start_month"`
	StartYear  int `json:"start_year"`
	EndMonth   int `json:"end_month"`
	EndYear    int `json:"end_year"`
}

// MonthYear is a single calendar month.
type MonthYear struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Key returns the canonical "YYYY-MM" cycle key.
func (m MonthYear) Key() string {
	return strconv.Itoa(m.Year) + "-" + pad2(m.Month)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

var monthNames = map[string]int{
	"january": 1, "jan": 1,
	"february": 2, "feb": 2,
	"march": 3, "mar": 3,
	"april": 4, "apr": 4,
	"may": 5,
	"june": 6, "jun": 6,
	"july": 7, "jul": 7,
	"august": 8, "aug": 8,
	"september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10,
	"november": 11, "nov": 11,
	"december": 12, "dec": 12,
}

const sep = `\s*(?:-|–|—|to)\s*`

var (
	// (a) DD/MM/YYYY - DD/MM/YYYY
	numericRange = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})` + sep + `(\d{1,2})/(\d{1,2})/(\d{4})`)
	// (b) "January - July 2024"
	nameRangeOneYear = regexp.MustCompile(`(?i)([A-Za-z]+)` + sep + `([A-Za-z]+)\s+(\d{4})`)
	// (c) "January 2023 - February 2024"
	nameRangeTwoYears = regexp.MustCompile(`(?i)([A-Za-z]+)\.?\s+(\d{4})` + sep + `([A-Za-z]+)\.?\s+(\d{4})`)
	// (d) MM/YYYY
	numericSingle = regexp.MustCompile(`\b(\d{1,2})/(\d{4})\b`)
	// (e) "January 2024"
	nameSingle = regexp.MustCompile(`(?i)\b([A-Za-z]+)\.?\s+(\d{4})\b`)
	// (f) "Q1 2024"
	quarter = regexp.MustCompile(`(?i)\bQ([1-4])\s*(\d{4})\b`)

	numericToken = regexp.MustCompile(`\d+`)
)

// Parse converts a free-text period string into a Range. Grammars are tried
// in fixed priority order; the first that matches wins. Reversed ranges are
// swapped so the result always walks forward. Returns ok=false when nothing
// matches; callers must fall back to their own month/year context.
func Parse(s string) (Range, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, false
	}

	if m := numericRange.FindStringSubmatch(s); m != nil {
		r := Range{
			StartMonth: atoi(m[2]), StartYear: atoi(m[3]),
			EndMonth: atoi(m[5]), EndYear: atoi(m[6]),
		}
		if validMonths(r) {
			return normalize(r), true
		}
	}

	if m := nameRangeOneYear.FindStringSubmatch(s); m != nil {
		start, okStart := monthNumber(m[1])
		end, okEnd := monthNumber(m[2])
		if okStart && okEnd {
			year := atoi(m[3])
			return normalize(Range{start, year, end, year}), true
		}
	}

	if m := nameRangeTwoYears.FindStringSubmatch(s); m != nil {
		start, okStart := monthNumber(m[1])
		end, okEnd := monthNumber(m[3])
		if okStart && okEnd {
			return normalize(Range{start, atoi(m[2]), end, atoi(m[4])}), true
		}
	}

	if m := numericSingle.FindStringSubmatch(s); m != nil {
		month := atoi(m[1])
		if month >= 1 && month <= 12 {
			year := atoi(m[2])
			return Range{month, year, month, year}, true
		}
	}

	if m := nameSingle.FindStringSubmatch(s); m != nil {
		if month, ok := monthNumber(m[1]); ok {
			year := atoi(m[2])
			return Range{month, year, month, year}, true
		}
	}

	if m := quarter.FindStringSubmatch(s); m != nil {
		q := atoi(m[1])
		year := atoi(m[2])
		start := (q-1)*3 + 1
		return Range{start, year, start + 2, year}, true
	}

	// (g) generic "<Month> <Year>" date parse.
	for _, layout := range []string{"January 2006", "Jan 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Range{int(t.Month()), t.Year(), int(t.Month()), t.Year()}, true
		}
	}

	// (h) last resort: pick a 4-digit year token and a 1-12 month token.
	return salvage(s)
}

// salvage extracts all numeric tokens and treats the 4-digit one as the
// year and any 1-12-valued one as the month.
func salvage(s string) (Range, bool) {
	year, month := 0, 0
	for _, tok := range numericToken.FindAllString(s, -1) {
		n := atoi(tok)
		if len(tok) == 4 && year == 0 {
			year = n
			continue
		}
		if n >= 1 && n <= 12 && month == 0 {
			month = n
		}
	}
	if year == 0 || month == 0 {
		return Range{}, false
	}
	return Range{month, year, month, year}, true
}

// normalize swaps reversed endpoints. Defends against cross-year ranges
// written back to front.
func normalize(r Range) Range {
	if r.EndYear*12+r.EndMonth < r.StartYear*12+r.StartMonth {
		r.StartMonth, r.EndMonth = r.EndMonth, r.StartMonth
		r.StartYear, r.EndYear = r.EndYear, r.StartYear
	}
	return r
}

func validMonths(r Range) bool {
	return r.StartMonth >= 1 && r.StartMonth <= 12 && r.EndMonth >= 1 && r.EndMonth <= 12
}

func monthNumber(name string) (int, bool) {
	n, ok := monthNames[strings.ToLower(strings.TrimSuffix(name, "."))]
	return n, ok
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
