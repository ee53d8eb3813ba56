package models

import (
	"time"

	"github.com/google/uuid"
)

// BankAccount is one row of the bank/company roster. The roster is
// maintained elsewhere; this service only reads it.
type BankAccount struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID      uuid.UUID `gorm:"type:uuid;index" json:"company_id"`
	CompanyName    string    `gorm:"index" json:"company_name"`
	BankName       string    `gorm:"index" json:"bank_name"`
	AccountNumber  string    `gorm:"index" json:"account_number"`
	StoredPassword string    `json:"-"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}
