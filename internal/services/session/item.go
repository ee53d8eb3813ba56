package session

import (
	"encoding/json"

	"statement-ingestion-backend/internal/extraction"
	"statement-ingestion-backend/internal/filehints"
	"statement-ingestion-backend/internal/period"
	"statement-ingestion-backend/internal/services/matching"
	"statement-ingestion-backend/internal/services/password"
	"statement-ingestion-backend/internal/services/validation"

	"github.com/google/uuid"
)

// Status is the per-item lifecycle. Transitions run in order:
// pending → processing → matched|unmatched → uploaded|failed → vouched.
type Status int

const (
	StatusPending Status = iota
	StatusProcessing
	StatusMatched
	StatusUnmatched
	StatusUploaded
	StatusFailed
	StatusVouched
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusMatched:
		return "matched"
	case StatusUnmatched:
		return "unmatched"
	case StatusUploaded:
		return "uploaded"
	case StatusFailed:
		return "failed"
	case StatusVouched:
		return "vouched"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Item is one uploaded document inside a session. Items live only in the
// session arena and are addressed by index; only persisted statement
// records outlive the session.
type Item struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Payload  []byte `json:"-"`

	Hints filehints.Hints `json:"hints"`
	Match matching.Result `json:"match"`

	PasswordState   password.State `json:"password_state"`
	AppliedPassword string         `json:"-"`

	Fields            *extraction.Fields `json:"extracted_fields"`
	ExtractionWarning string            `json:"extraction_warning,omitempty"`
	Period            period.Range      `json:"period"`
	PeriodParsed      bool              `json:"period_parsed"`
	Validation        validation.Report `json:"validation"`

	Status          Status `json:"status"`
	FailureReason   string `json:"failure_reason,omitempty"`
	CancelRequested bool   `json:"-"`

	RecordID    *uuid.UUID  `json:"record_id"`
	DocumentRef string      `json:"document_ref,omitempty"`
	ChildIDs    []uuid.UUID `json:"child_ids,omitempty"`
	Vouched     bool        `json:"vouched"`
}

// terminal reports whether the item can no longer change through the
// queue. Vouched is set only by the vouching tracker.
func (it *Item) terminal() bool {
	return it.Status == StatusUploaded || it.Status == StatusFailed || it.Status == StatusVouched
}

func (it *Item) fail(reason string) {
	it.Status = StatusFailed
	it.FailureReason = reason
}
