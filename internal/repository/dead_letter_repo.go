package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rjnat/cursorpos/internal/model"
)

// DeadLetterRepository parks jobs and orders that exhausted their retries for
// manual inspection.
type DeadLetterRepository interface {
	Add(ctx context.Context, source, jobType string, payload json.RawMessage, reason string, attempts int) error
	List(ctx context.Context, source string) ([]model.DeadLetter, error)
	Count(ctx context.Context) (int64, error)
}

type deadLetterRepo struct{ db *gorm.DB }

func NewDeadLetterRepository(db *gorm.DB) DeadLetterRepository {
	return &deadLetterRepo{db: db}
}

func (r *deadLetterRepo) Add(ctx context.Context, source, jobType string, payload json.RawMessage, reason string, attempts int) error {
	entry := model.DeadLetter{
		ID:       uuid.NewString(),
		Source:   source,
		JobType:  jobType,
		Payload:  payload,
		Reason:   reason,
		Attempts: attempts,
		FailedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *deadLetterRepo) List(ctx context.Context, source string) ([]model.DeadLetter, error) {
	q := r.db.WithContext(ctx).Order("failed_at DESC")
	if source != "" {
		q = q.Where("source = ?", source)
	}
	var entries []model.DeadLetter
	err := q.Find(&entries).Error
	return entries, err
}

func (r *deadLetterRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.DeadLetter{}).Count(&n).Error
	return n, err
}
