package models

import (
	"time"

	"github.com/google/uuid"
)

// StatementCycle is an accounting-period bucket. MonthYear is the canonical
// "YYYY-MM" key; cycles are created lazily and must stay globally unique.
type StatementCycle struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MonthYear string    `gorm:"uniqueIndex" json:"month_year"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"`
}
