// Package filehints extracts weak, best-effort hints from an uploaded
// statement's filename. The filename is the only structured channel
// available before extraction, so everything here is heuristic and every
// field is independently optional.
package filehints

import (
	"regexp"
	"strings"
)

// Hints holds whatever could be recovered from a filename. Empty string
// means the hint was not found.
type Hints struct {
	Password      string `json:"password,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
}

// knownBanks is the fixed list used for substring bank-name detection.
var knownBanks = []string{
	"absa",
	"barclays",
	"chase",
	"citibank",
	"co-operative",
	"coop",
	"dtb",
	"equity",
	"family bank",
	"gtbank",
	"hsbc",
	"i&m",
	"kcb",
	"lloyds",
	"metro",
	"natwest",
	"ncba",
	"santander",
	"sidian",
	"stanbic",
	"standard chartered",
}

var (
	digitRunPattern    = regexp.MustCompile(`\d{5,}`)
	groupedDigits      = regexp.MustCompile(`\d{2,}(?:[-\s]\d{2,})+`)
	explicitPassword   = regexp.MustCompile(`(?i)(?:password|pass|pwd)\s*[:=_-]\s*([A-Za-z0-9@#$%]+)`)
	bareFourDigitToken = regexp.MustCompile(`(?:^|[^\d])(\d{4})(?:[^\d]|$)`)
)

// Detect scans a filename and returns whatever hints it carries. Pure
// function of the input string.
//
// The bare 4-digit password fallback is deliberately loose: any four-digit
// token that is not part of the detected account number is offered as a
// candidate, so fragments of dates or account numbers regularly produce
// false positives. Candidates are only ever tried against the extraction
// service, so a wrong guess costs one failed attempt.
func Detect(filename string) Hints {
	h := Hints{}

	acct, acctStart, acctEnd := detectAccountNumber(filename)
	h.AccountNumber = acct
	h.BankName = detectBankName(filename)
	h.Password = detectPassword(filename, acctStart, acctEnd)

	return h
}

// detectAccountNumber returns the best account-number candidate and the
// span of the raw match inside the filename (-1, -1 when absent).
func detectAccountNumber(filename string) (string, int, int) {
	// Longest run of 5+ digits; first among equals.
	best := ""
	bestStart, bestEnd := -1, -1
	for _, loc := range digitRunPattern.FindAllStringIndex(filename, -1) {
		run := filename[loc[0]:loc[1]]
		if len(run) > len(best) {
			best = run
			bestStart, bestEnd = loc[0], loc[1]
		}
	}

	// Grouped digits like "12-345-678" or "01 00234 567". A group outranks
	// a bare run when its joined form is longer: the run is then just a
	// fragment of the group.
	if loc := groupedDigits.FindStringIndex(filename); loc != nil {
		joined := stripSeparators(filename[loc[0]:loc[1]])
		if len(joined) >= 5 && len(joined) > len(best) {
			return joined, loc[0], loc[1]
		}
	}

	if best != "" {
		return best, bestStart, bestEnd
	}
	return "", -1, -1
}

func detectBankName(filename string) string {
	lower := strings.ToLower(filename)
	for _, bank := range knownBanks {
		if strings.Contains(lower, bank) {
			return bank
		}
	}
	return ""
}

func detectPassword(filename string, acctStart, acctEnd int) string {
	// Explicit pass:/pwd= tokens take priority.
	if m := explicitPassword.FindStringSubmatch(filename); m != nil {
		return m[1]
	}

	// Fallback: first bare 4-digit token outside the account-number span.
	for _, loc := range bareFourDigitToken.FindAllStringSubmatchIndex(filename, -1) {
		start, end := loc[2], loc[3]
		if acctStart >= 0 && start >= acctStart && end <= acctEnd {
			continue
		}
		return filename[start:end]
	}
	return ""
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
