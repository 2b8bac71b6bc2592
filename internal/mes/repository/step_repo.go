package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// StepRepository 生产工序仓库
type StepRepository struct {
	db *gorm.DB
}

func NewStepRepository(db *gorm.DB) *StepRepository {
	return &StepRepository{db: db}
}

// FindByID 根据ID查找工序
func (r *StepRepository) FindByID(ctx context.Context, id string) (*entity.ProductionStep, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var step entity.ProductionStep
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&step).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &step, nil
}

// FindByBatchID 查询批次下全部工序，按执行顺序排列
func (r *StepRepository) FindByBatchID(ctx context.Context, batchID string) ([]entity.ProductionStep, error) {
	if err := ValidateID(batchID); err != nil {
		return nil, err
	}
	var steps []entity.ProductionStep
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("step_order ASC").
		Find(&steps).Error
	return steps, err
}

// CountStarted 统计批次下已离开 pending 的工序数量（删除守卫用）
// 在调用方事务内执行
func (r *StepRepository) CountStarted(ctx context.Context, tx *gorm.DB, batchID string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&entity.ProductionStep{}).
		Where("batch_id = ? AND status <> ?", batchID, entity.StepStatusPending).
		Count(&count).Error
	return count, err
}
