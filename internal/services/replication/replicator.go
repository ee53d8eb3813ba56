// Package replication creates per-month child records for range
// statements: a single document whose stated period covers more than one
// calendar month is filed once as a primary record and replicated as a
// linked child for every other covered month.
package replication

import (
	"context"
	"fmt"
	"time"

	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/period"
	"statement-ingestion-backend/internal/services/cycles"

	"github.com/google/uuid"
)

// StatementStore is the subset of statement persistence the replicator
// needs.
type StatementStore interface {
	FindChild(ctx context.Context, bankID uuid.UUID, month, year int) (*models.StatementRecord, error)
	Upsert(ctx context.Context, rec *models.StatementRecord) error
}

// Replicate upserts one child record per given month, all referencing the
// parent. Each month's cycle is resolved or created first, with the same
// lookup-then-insert discipline as cycle confirmation. The parent's month
// is skipped. Children carry the parent's document reference and extracted
// payload but start unvalidated.
func Replicate(ctx context.Context, statements StatementStore, cycleStore cycles.Store, parent *models.StatementRecord, months []period.MonthYear) ([]*models.StatementRecord, error) {
	var children []*models.StatementRecord

	for _, my := range months {
		if my.Month == parent.Month && my.Year == parent.Year {
			continue
		}

		cycle, err := findOrCreateCycle(ctx, cycleStore, my.Key())
		if err != nil {
			return children, fmt.Errorf("replicate %s: %w", my.Key(), err)
		}

		child := &models.StatementRecord{
			ID:               uuid.New(),
			SessionID:        parent.SessionID,
			BankAccountID:    parent.BankAccountID,
			CompanyID:        parent.CompanyID,
			CycleID:          cycle.ID,
			Month:            my.Month,
			Year:             my.Year,
			DocumentRef:      parent.DocumentRef,
			OriginalFilename: parent.OriginalFilename,
			ExtractedFields:  parent.ExtractedFields,
			MatchConfidence:  parent.MatchConfidence,
			ManualMatch:      parent.ManualMatch,
			ParentID:         &parent.ID,
			CreatedAt:        time.Now(),
		}

		// Reuse an existing child at this key so replication stays
		// idempotent across re-runs.
		existing, err := statements.FindChild(ctx, parent.BankAccountID, my.Month, my.Year)
		if err != nil {
			return children, fmt.Errorf("replicate %s: %w", my.Key(), err)
		}
		if existing != nil {
			child.ID = existing.ID
			child.CreatedAt = existing.CreatedAt
		}

		if err := statements.Upsert(ctx, child); err != nil {
			return children, fmt.Errorf("replicate %s: %w", my.Key(), err)
		}
		children = append(children, child)
	}

	return children, nil
}

func findOrCreateCycle(ctx context.Context, store cycles.Store, key string) (*models.StatementCycle, error) {
	cycle, err := store.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if cycle != nil {
		return cycle, nil
	}
	return store.Create(ctx, key)
}
