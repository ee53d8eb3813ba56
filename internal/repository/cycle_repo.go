package repository

import (
	"context"
	"fmt"
	"time"

	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CycleRepository struct {
	db *gorm.DB
}

func NewCycleRepository(db *gorm.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// Find returns the cycle for a "YYYY-MM" key, or nil when absent.
func (r *CycleRepository) Find(ctx context.Context, monthYear string) (*models.StatementCycle, error) {
	var cycle models.StatementCycle
	err := r.db.WithContext(ctx).First(&cycle, "month_year = ?", monthYear).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cycle %q: %w", monthYear, err)
	}
	return &cycle, nil
}

// Create inserts the cycle for a "YYYY-MM" key. Creation is idempotent:
// a duplicate-key outcome is treated as "already exists" and the existing
// row is returned.
func (r *CycleRepository) Create(ctx context.Context, monthYear string) (*models.StatementCycle, error) {
	my, err := parseKey(monthYear)
	if err != nil {
		return nil, err
	}

	// Re-check immediately before insert; another caller may have won.
	if existing, err := r.Find(ctx, monthYear); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	cycle := &models.StatementCycle{
		ID:        uuid.New(),
		MonthYear: monthYear,
		Month:     my.Month,
		Year:      my.Year,
		CreatedAt: time.Now(),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(cycle).Error
	if err != nil {
		return nil, fmt.Errorf("create cycle %q: %w", monthYear, err)
	}

	// OnConflict DoNothing leaves our generated ID unused when we lost the
	// race; fetch the winning row either way.
	return r.Find(ctx, monthYear)
}

// FindOrCreate resolves a cycle key to its row, creating lazily.
func (r *CycleRepository) FindOrCreate(ctx context.Context, monthYear string) (*models.StatementCycle, error) {
	if cycle, err := r.Find(ctx, monthYear); err != nil {
		return nil, err
	} else if cycle != nil {
		return cycle, nil
	}
	return r.Create(ctx, monthYear)
}

func parseKey(monthYear string) (period.MonthYear, error) {
	var year, month int
	if _, err := fmt.Sscanf(monthYear, "%4d-%2d", &year, &month); err != nil || month < 1 || month > 12 {
		return period.MonthYear{}, fmt.Errorf("invalid cycle key %q", monthYear)
	}
	return period.MonthYear{Month: month, Year: year}, nil
}
