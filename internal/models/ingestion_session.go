package models

import (
	"time"

	"github.com/google/uuid"
)

// IngestionSession is the persisted audit row for one upload batch. The live
// document items are in-memory only; this row records outcome counts.
type IngestionSession struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TargetCompanyID *uuid.UUID `gorm:"type:uuid;index" json:"target_company_id"`
	TargetMonth     int        `json:"target_month"`
	TargetYear      int        `json:"target_year"`
	TotalDocuments  int        `json:"total_documents"`
	UploadedCount   int        `json:"uploaded_count"`
	FailedCount     int        `json:"failed_count"`
	Status          string     `gorm:"index" json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
}
