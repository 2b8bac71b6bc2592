package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// OutboxRepository 出站事件仓库
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// FindPending 取一批到期未投递的事件，按创建顺序
func (r *OutboxRepository) FindPending(ctx context.Context, limit int) ([]entity.OutboxEvent, error) {
	var events []entity.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL AND next_attempt_at <= ?", time.Now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// MarkSent 标记事件已投递
func (r *OutboxRepository) MarkSent(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sent_at": &now,
		}).Error
}

// MarkFailed 记录投递失败，累加重试次数并设置下次尝试时间
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, lastError string, nextAttempt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retries":         gorm.Expr("retries + 1"),
			"last_error":      lastError,
			"next_attempt_at": nextAttempt,
		}).Error
}

// CountPending 未投递事件数量（运维观测用）
func (r *OutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.OutboxEvent{}).
		Where("sent_at IS NULL").
		Count(&count).Error
	return count, err
}
