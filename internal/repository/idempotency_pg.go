package repository

import (
	"context"
	"time"

	"github.com/mcbn/tradepost/internal/middleware"
	"github.com/mcbn/tradepost/internal/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresIdempotencyStore struct {
	db *gorm.DB
}

func NewPostgresIdempotencyStore(db *gorm.DB) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{db: db}
}

func (s *PostgresIdempotencyStore) GetOrLock(key string) (*middleware.IdempotencyRecord, bool) {
	ctx := context.Background()
	lock := idempotencyRecord{Key: key, Processing: true, CreatedAt: time.Now().UTC()}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if res.Error != nil {
		logger.LogError(ctx, res.Error, "idempotency lock failed, processing request", "key", key)
		return nil, false
	}
	if res.RowsAffected > 0 {
		return nil, false
	}

	var rec idempotencyRecord
	if err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error; err != nil {
		return nil, false
	}
	return &middleware.IdempotencyRecord{
		Status:     rec.StatusCode,
		Body:       rec.ResponseBody,
		CreatedAt:  rec.CreatedAt,
		Processing: rec.Processing,
	}, true
}

func (s *PostgresIdempotencyStore) Save(key string, status int, body []byte) {
	ctx := context.Background()
	err := s.db.WithContext(ctx).Model(&idempotencyRecord{}).Where("key = ?", key).Updates(map[string]interface{}{
		"status_code":   status,
		"response_body": body,
		"processing":    false,
	}).Error
	if err != nil {
		logger.LogError(ctx, err, "idempotency save failed", "key", key)
	}
}

func (s *PostgresIdempotencyStore) Unlock(key string) {
	_ = s.db.WithContext(context.Background()).Delete(&idempotencyRecord{}, "key = ?", key).Error
}

func (s *PostgresIdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&idempotencyRecord{}).Error
}
