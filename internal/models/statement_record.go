package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StatementRecord is a persisted bank statement assigned to one accounting
// cycle. At most one primary (ParentID == nil) record exists per
// (bank_account_id, month, year); range children reference their parent.
type StatementRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID     uuid.UUID `gorm:"type:uuid;index" json:"session_id"`
	BankAccountID uuid.UUID `gorm:"type:uuid;index:idx_bank_period" json:"bank_account_id"`
	CompanyID     uuid.UUID `gorm:"type:uuid;index" json:"company_id"`
	CycleID       uuid.UUID `gorm:"type:uuid;index" json:"cycle_id"`
	Month         int       `gorm:"index:idx_bank_period" json:"month"`
	Year          int       `gorm:"index:idx_bank_period" json:"year"`

	DocumentRef      string         `json:"document_ref"`
	OriginalFilename string         `json:"original_filename"`
	ExtractedFields  datatypes.JSON `json:"extracted_fields"`

	IsValid    bool           `json:"is_valid"`
	Validated  bool           `json:"validated"`
	Mismatches datatypes.JSON `json:"mismatches"`

	// Audit of how the document was matched to the bank account.
	MatchConfidence string `json:"match_confidence"`
	ManualMatch     bool   `json:"manual_match"`

	ParentID *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	Vouched  bool       `gorm:"index" json:"vouched"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsChild reports whether the record was generated from a range statement.
func (r *StatementRecord) IsChild() bool {
	return r.ParentID != nil
}
