// Package validation compares extracted statement fields against the
// matched roster account. Its output is purely advisory: mismatches inform
// the user's proceed/cancel decision and never block persistence.
package validation

import (
	"strconv"
	"strings"

	"statement-ingestion-backend/internal/currency"
	"statement-ingestion-backend/internal/extraction"
	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"
)

// Mismatch is one named discrepancy between the extracted fields and the
// matched bank record.
type Mismatch struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Report is the validation outcome for one document.
type Report struct {
	IsValid    bool       `json:"is_valid"`
	Mismatches []Mismatch `json:"mismatches"`
}

// notAvailable lists the sentinels the extraction service emits when a
// field could not be read. A sentinel bank name skips the bank check.
var notAvailable = map[string]bool{
	"":              true,
	"-":             true,
	"n/a":           true,
	"na":            true,
	"not available": true,
}

var monthTokens = [][]string{
	{"january", "jan"},
	{"february", "feb"},
	{"march", "mar"},
	{"april", "apr"},
	{"may"},
	{"june", "jun"},
	{"july", "jul"},
	{"august", "aug"},
	{"september", "sep"},
	{"october", "oct"},
	{"november", "nov"},
	{"december", "dec"},
}

// Validate runs every check independently and collects named mismatches.
// target is the cycle the statement is being filed under.
func Validate(fields *extraction.Fields, account *models.BankAccount, target period.MonthYear) Report {
	report := Report{IsValid: true}
	if fields == nil || account == nil {
		return report
	}

	if extracted := strings.TrimSpace(fields.CompanyName); extracted != "" {
		if !containsFold(account.CompanyName, extracted) && !containsFold(extracted, account.CompanyName) {
			report.add("company_name", account.CompanyName, fields.CompanyName)
		}
	}

	if extracted := strings.ToLower(strings.TrimSpace(fields.BankName)); !notAvailable[extracted] {
		if !containsFold(account.BankName, extracted) && !containsFold(extracted, account.BankName) {
			report.add("bank_name", account.BankName, fields.BankName)
		}
	}

	if extracted := digitsOnly(fields.AccountNumber); extracted != "" {
		roster := digitsOnly(account.AccountNumber)
		if roster != "" && !strings.Contains(extracted, roster) && !strings.Contains(roster, extracted) {
			report.add("account_number", account.AccountNumber, fields.AccountNumber)
		}
	}

	if extracted := strings.TrimSpace(fields.Currency); extracted != "" && account.Currency != "" {
		if !currency.Equal(extracted, account.Currency) {
			report.add("currency", account.Currency, fields.Currency)
		}
	}

	if extracted := strings.TrimSpace(fields.StatementPeriod); extracted != "" {
		if !periodCovers(extracted, target) {
			report.add("statement_period", target.Key(), fields.StatementPeriod)
		}
	}

	return report
}

func (r *Report) add(field, expected, actual string) {
	r.IsValid = false
	r.Mismatches = append(r.Mismatches, Mismatch{Field: field, Expected: expected, Actual: actual})
}

// periodCovers reports whether the extracted period string semantically
// includes the target cycle, either by month-name-in-year inspection or by
// parsed range containment.
func periodCovers(periodText string, target period.MonthYear) bool {
	if target.Month < 1 || target.Month > 12 || target.Year <= 0 {
		return true
	}

	lower := strings.ToLower(periodText)
	if strings.Contains(lower, strconv.Itoa(target.Year)) {
		for _, token := range monthTokens[target.Month-1] {
			if strings.Contains(lower, token) {
				return true
			}
		}
	}

	r, ok := period.Parse(periodText)
	if !ok {
		// Unparseable free text gives no evidence either way; advisory
		// checks stay silent rather than cry wolf.
		return true
	}
	for _, my := range period.Expand(r) {
		if my == target {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
