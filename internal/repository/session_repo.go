package repository

import (
	"context"
	"fmt"
	"time"

	"statement-ingestion-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionRepository persists the per-batch audit rows. The live item arena
// stays in memory; these rows only record outcomes.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.IngestionSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create ingestion session: %w", err)
	}
	return nil
}

// UpdateCounts writes progress counters for a session.
func (r *SessionRepository) UpdateCounts(ctx context.Context, id uuid.UUID, total, uploaded, failed int) error {
	err := r.db.WithContext(ctx).Model(&models.IngestionSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_documents": total,
			"uploaded_count":  uploaded,
			"failed_count":    failed,
		}).Error
	if err != nil {
		return fmt.Errorf("update session counts: %w", err)
	}
	return nil
}

// MarkCompleted sets the terminal status for a session.
func (r *SessionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, status string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&models.IngestionSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": &now,
		}).Error
	if err != nil {
		return fmt.Errorf("mark session completed: %w", err)
	}
	return nil
}
