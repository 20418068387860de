package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rjnat/cursorpos/internal/model"
)

// cartSnapshotKey: the snapshot table holds exactly one row per terminal.
const cartSnapshotKey = 1

// CartSnapshotRepository persists the in-memory cart across restarts,
// independently of the order queue.
type CartSnapshotRepository interface {
	Save(ctx context.Context, payload json.RawMessage) error
	// Load returns nil (no error) when no snapshot exists.
	Load(ctx context.Context) (json.RawMessage, error)
	Clear(ctx context.Context) error
}

type cartSnapshotRepo struct{ db *gorm.DB }

func NewCartSnapshotRepository(db *gorm.DB) CartSnapshotRepository {
	return &cartSnapshotRepo{db: db}
}

func (r *cartSnapshotRepo) Save(ctx context.Context, payload json.RawMessage) error {
	snap := model.CartSnapshot{
		ID:        cartSnapshotKey,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&snap).Error
}

func (r *cartSnapshotRepo) Load(ctx context.Context) (json.RawMessage, error) {
	var snap model.CartSnapshot
	err := r.db.WithContext(ctx).Where("id = ?", cartSnapshotKey).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap.Payload, nil
}

func (r *cartSnapshotRepo) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("id = ?", cartSnapshotKey).
		Delete(&model.CartSnapshot{}).Error
}
