package repository

import (
	"context"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresAuditRepo struct {
	db *gorm.DB
}

func NewPostgresAuditRepo(db *gorm.DB) *PostgresAuditRepo {
	return &PostgresAuditRepo{db: db}
}

func (r *PostgresAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	rec := auditRecord{
		ID:           entry.ID,
		PlayerID:     entry.PlayerID,
		Method:       entry.Method,
		Path:         entry.Path,
		IP:           entry.IP,
		UserAgent:    entry.UserAgent,
		RequestBody:  entry.RequestBody,
		StatusCode:   entry.StatusCode,
		ResponseBody: entry.ResponseBody,
		LatencyMs:    entry.LatencyMs,
		Context:      entry.Context,
		CreatedAt:    entry.CreatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (r *PostgresAuditRepo) List(ctx context.Context, playerID string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	q := r.db.WithContext(ctx).Model(&auditRecord{})
	if playerID != "" {
		q = q.Where("player_id = ?", playerID)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}

	var recs []auditRecord
	if err := q.Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	records := make([]*model.AuditLog, 0, len(recs))
	for _, rec := range recs {
		ctxMap := rec.Context
		if ctxMap == nil {
			ctxMap = map[string]interface{}{}
		}
		records = append(records, &model.AuditLog{
			ID:           rec.ID,
			PlayerID:     rec.PlayerID,
			Method:       rec.Method,
			Path:         rec.Path,
			IP:           rec.IP,
			UserAgent:    rec.UserAgent,
			RequestBody:  rec.RequestBody,
			StatusCode:   rec.StatusCode,
			ResponseBody: rec.ResponseBody,
			LatencyMs:    rec.LatencyMs,
			Context:      ctxMap,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return records, nil
}

func (r *PostgresAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&auditRecord{}).Error
}
