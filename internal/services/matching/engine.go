package matching

import (
	"strings"

	"statement-ingestion-backend/internal/filehints"
	"statement-ingestion-backend/internal/models"
)

// Confidence is the qualitative tier of how a document was matched to a
// bank account.
type Confidence string

const (
	ConfidenceExact   Confidence = "exact"            // normalized account numbers equal
	ConfidencePartial Confidence = "partial"          // bidirectional account-number substring
	ConfidenceName    Confidence = "bank_name"        // bidirectional bank-name substring
	ConfidenceWeak    Confidence = "name_in_filename" // bank or company name appears in the filename
	ConfidenceManual  Confidence = "manual"           // user-selected, overrides everything
	ConfidenceNone    Confidence = "unmatched"
)

// tierRank orders tiers; higher wins.
func tierRank(c Confidence) int {
	switch c {
	case ConfidenceManual:
		return 5
	case ConfidenceExact:
		return 4
	case ConfidencePartial:
		return 3
	case ConfidenceName:
		return 2
	case ConfidenceWeak:
		return 1
	default:
		return 0
	}
}

// Result is the outcome of matching one document against the roster.
// An unmatched result is a valid terminal state; it only blocks
// persistence, not the rest of the pipeline.
type Result struct {
	Account    *models.BankAccount `json:"account"`
	Confidence Confidence          `json:"confidence"`
}

// Matched reports whether the document was tied to a roster account.
func (r Result) Matched() bool {
	return r.Account != nil && r.Confidence != ConfidenceNone
}

// Match ranks the candidate accounts for a document using its filename
// hints. accounts is the target company's roster slice, or the whole
// roster in auto-detect mode. The highest tier reached wins; ties are
// broken by slice order. Match never fails.
func Match(hints filehints.Hints, filename string, accounts []models.BankAccount) Result {
	best := Result{Confidence: ConfidenceNone}

	for i := range accounts {
		tier := evaluate(hints, filename, &accounts[i])
		if tierRank(tier) > tierRank(best.Confidence) {
			best = Result{Account: &accounts[i], Confidence: tier}
		}
	}

	return best
}

// Manual records a user-selected match. No confidence ambiguity: manual
// always overrides automatic matching.
func Manual(account *models.BankAccount) Result {
	return Result{Account: account, Confidence: ConfidenceManual}
}

func evaluate(hints filehints.Hints, filename string, account *models.BankAccount) Confidence {
	hintAcct := normalizeAccountNumber(hints.AccountNumber)
	rosterAcct := normalizeAccountNumber(account.AccountNumber)

	if hintAcct != "" && rosterAcct != "" {
		if hintAcct == rosterAcct {
			return ConfidenceExact
		}
		if len(hintAcct) >= 4 && len(rosterAcct) >= 4 &&
			(strings.Contains(hintAcct, rosterAcct) || strings.Contains(rosterAcct, hintAcct)) {
			return ConfidencePartial
		}
	}

	hintBank := strings.ToLower(strings.TrimSpace(hints.BankName))
	rosterBank := strings.ToLower(strings.TrimSpace(account.BankName))
	if hintBank != "" && rosterBank != "" &&
		(strings.Contains(hintBank, rosterBank) || strings.Contains(rosterBank, hintBank)) {
		return ConfidenceName
	}

	lowerName := strings.ToLower(filename)
	if rosterBank != "" && strings.Contains(lowerName, rosterBank) {
		return ConfidenceWeak
	}
	if company := strings.ToLower(strings.TrimSpace(account.CompanyName)); company != "" && strings.Contains(lowerName, company) {
		return ConfidenceWeak
	}

	return ConfidenceNone
}

func normalizeAccountNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}
