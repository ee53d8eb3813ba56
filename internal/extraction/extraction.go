// Package extraction defines the boundary to the external document
// extraction service. The service is opaque: it takes the statement binary
// plus an optional password and returns structured fields, or signals that
// a password is required.
package extraction

import "context"

// Request carries the target period context and an optional password.
type Request struct {
	Month    int
	Year     int
	Password string
}

// Fields are the structured values recovered from a statement.
type Fields struct {
	CompanyName     string  `json:"company_name"`
	BankName        string  `json:"bank_name"`
	AccountNumber   string  `json:"account_number"`
	Currency        string  `json:"currency"`
	StatementPeriod string  `json:"statement_period"`
	OpeningBalance  float64 `json:"opening_balance"`
	ClosingBalance  float64 `json:"closing_balance"`
}

// Result is the outcome of one extraction attempt. RequiresPassword set
// means the document is protected and the supplied password (if any) did
// not open it; the call may be retried with a different password.
type Result struct {
	Success          bool
	RequiresPassword bool
	Fields           *Fields
}

// Client is the external extraction service.
type Client interface {
	Extract(ctx context.Context, blob []byte, req Request) (Result, error)
}
