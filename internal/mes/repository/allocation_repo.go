package repository

import (
	"context"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// AllocationRepository 物料分配仓库
type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// FindByID 根据ID查找物料分配
func (r *AllocationRepository) FindByID(ctx context.Context, id string) (*entity.MaterialAllocation, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var alloc entity.MaterialAllocation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&alloc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &alloc, nil
}

// FindByBatchID 查询批次下全部物料分配
func (r *AllocationRepository) FindByBatchID(ctx context.Context, batchID string) ([]entity.MaterialAllocation, error) {
	if err := ValidateID(batchID); err != nil {
		return nil, err
	}
	var allocs []entity.MaterialAllocation
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at ASC").
		Find(&allocs).Error
	return allocs, err
}
