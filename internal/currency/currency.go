// Package currency normalizes the free-form currency spellings found in
// extracted statements to canonical ISO-style codes.
package currency

import "strings"

// aliases maps cleaned spellings to a canonical code. Keys are upper-case
// with punctuation and spaces stripped.
var aliases = map[string]string{
	"KES":      "KES",
	"KSH":      "KES",
	"KSHS":     "KES",
	"KENYASHILLING":  "KES",
	"KENYASHILLINGS": "KES",
	"SHILLING":  "KES",
	"SHILLINGS": "KES",
	"USD":     "USD",
	"US$":     "USD",
	"DOLLAR":  "USD",
	"DOLLARS": "USD",
	"GBP":    "GBP",
	"POUND":  "GBP",
	"POUNDS": "GBP",
	"STERLING": "GBP",
	"EUR":   "EUR",
	"EURO":  "EUR",
	"EUROS": "EUR",
	"UGX": "UGX",
	"USH": "UGX",
	"TZS": "TZS",
	"TSH": "TZS",
}

// Normalize maps a currency spelling to its canonical code. Comparison is
// case-insensitive and ignores dots, spaces and a trailing "s" is covered by
// the alias table. Unknown spellings are returned cleaned so that two
// occurrences of the same unknown currency still compare equal.
func Normalize(s string) string {
	cleaned := clean(s)
	if canonical, ok := aliases[cleaned]; ok {
		return canonical
	}
	return cleaned
}

// Equal reports whether two currency spellings normalize to the same code.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

func clean(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
