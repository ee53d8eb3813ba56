package repository

import (
	"context"
	"fmt"

	"statement-ingestion-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BankAccountRepository reads the bank/company roster. The roster is owned
// by another system; this repository never writes it.
type BankAccountRepository struct {
	db *gorm.DB
}

func NewBankAccountRepository(db *gorm.DB) *BankAccountRepository {
	return &BankAccountRepository{db: db}
}

// ListBanks returns the entire roster, used for auto-detect matching and
// manual match pickers.
func (r *BankAccountRepository) ListBanks(ctx context.Context) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	err := r.db.WithContext(ctx).Order("company_name ASC, bank_name ASC").Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return accounts, nil
}

// ListByCompany returns the roster rows for one company.
func (r *BankAccountRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.BankAccount, error) {
	var accounts []models.BankAccount
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("bank_name ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("list banks for company %s: %w", companyID, err)
	}
	return accounts, nil
}

// GetBank fetches a single roster row by id.
func (r *BankAccountRepository) GetBank(ctx context.Context, id uuid.UUID) (*models.BankAccount, error) {
	var account models.BankAccount
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bank %s: %w", id, err)
	}
	return &account, nil
}
