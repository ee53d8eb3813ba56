package repository

import (
	"context"
	"fmt"

	"statement-ingestion-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatementRepository struct {
	db *gorm.DB
}

func NewStatementRepository(db *gorm.DB) *StatementRepository {
	return &StatementRepository{db: db}
}

// FindPrimary returns the primary (non-child) record at the persistence
// key, or nil when absent.
func (r *StatementRepository) FindPrimary(ctx context.Context, bankID uuid.UUID, month, year int) (*models.StatementRecord, error) {
	var rec models.StatementRecord
	err := r.db.WithContext(ctx).
		Where("bank_account_id = ? AND month = ? AND year = ? AND parent_id IS NULL", bankID, month, year).
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find primary statement: %w", err)
	}
	return &rec, nil
}

// FindChild returns the range child at the persistence key, or nil.
func (r *StatementRepository) FindChild(ctx context.Context, bankID uuid.UUID, month, year int) (*models.StatementRecord, error) {
	var rec models.StatementRecord
	err := r.db.WithContext(ctx).
		Where("bank_account_id = ? AND month = ? AND year = ? AND parent_id IS NOT NULL", bankID, month, year).
		First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find child statement: %w", err)
	}
	return &rec, nil
}

// Upsert writes a record, updating in place when the persistence key is
// already occupied by a record of the same kind (primary or child).
func (r *StatementRepository) Upsert(ctx context.Context, rec *models.StatementRecord) error {
	var existing *models.StatementRecord
	var err error
	if rec.ParentID == nil {
		existing, err = r.FindPrimary(ctx, rec.BankAccountID, rec.Month, rec.Year)
	} else {
		existing, err = r.FindChild(ctx, rec.BankAccountID, rec.Month, rec.Year)
	}
	if err != nil {
		return err
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if err := r.db.WithContext(ctx).Save(rec).Error; err != nil {
			return fmt.Errorf("update statement record: %w", err)
		}
		return nil
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create statement record: %w", err)
	}
	return nil
}

// ListBySession returns all records persisted from one ingestion session.
func (r *StatementRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.StatementRecord, error) {
	var recs []models.StatementRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("year ASC, month ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list session statements: %w", err)
	}
	return recs, nil
}

// SetVouchedForCompany writes the vouched flag to every record of one
// company in a session. All-or-nothing: runs in a single transaction.
func (r *StatementRepository) SetVouchedForCompany(ctx context.Context, sessionID, companyID uuid.UUID, vouched bool) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.StatementRecord{}).
			Where("session_id = ? AND company_id = ?", sessionID, companyID).
			Update("vouched", vouched)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("set vouched for company %s: %w", companyID, err)
	}
	return affected, nil
}
