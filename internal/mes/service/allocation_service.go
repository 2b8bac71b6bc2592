package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"gorm.io/gorm"
)

// AllocationService 物料分配追踪器
// 按单条分配记录操作，不与同批次的兄弟分配发生隐式交互
// （跨分配的库存预留由外部库存服务负责）
type AllocationService struct {
	db    *gorm.DB
	repos *repository.Repositories
}

// NewAllocationService 创建物料分配服务
func NewAllocationService(db *gorm.DB, repos *repository.Repositories) *AllocationService {
	return &AllocationService{db: db, repos: repos}
}

// Get 获取分配详情
func (s *AllocationService) Get(ctx context.Context, id string) (*entity.MaterialAllocation, error) {
	return s.repos.Allocation.FindByID(ctx, id)
}

// ListByBatch 查询批次下全部分配
func (s *AllocationService) ListByBatch(ctx context.Context, batchID string) ([]entity.MaterialAllocation, error) {
	return s.repos.Allocation.FindByBatchID(ctx, batchID)
}

// Allocate 按绝对数量记录分配
// quantity > required 报 ErrOverAllocation 且不产生任何变更；
// 等于需求量置 allocated，否则置 partial，并记录分配时间
func (s *AllocationService) Allocate(ctx context.Context, id string, quantity float64) (*entity.MaterialAllocation, error) {
	if err := repository.ValidateID(id); err != nil {
		return nil, err
	}
	var result *entity.MaterialAllocation

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var alloc entity.MaterialAllocation
		if err := tx.WithContext(ctx).Where("id = ?", id).First(&alloc).Error; err != nil {
			return notFoundErr(err)
		}

		if quantity < 0 {
			return fmt.Errorf("%w: 分配数量不能为负 %v", ErrValidation, quantity)
		}
		if quantity > alloc.QuantityRequired {
			return fmt.Errorf("%w: %v > %v", ErrOverAllocation, quantity, alloc.QuantityRequired)
		}

		target := entity.AllocationStatusPartial
		if quantity == alloc.QuantityRequired {
			target = entity.AllocationStatusAllocated
		}
		if !entity.AllocationTransitionAllowed(alloc.Status, target) {
			return invalidTransition(entity.EntityAllocation, alloc.Status, target)
		}

		now := time.Now()
		alloc.QuantityAllocated = quantity
		alloc.Status = target
		alloc.AllocationDate = &now
		if err := tx.WithContext(ctx).Save(&alloc).Error; err != nil {
			return fmt.Errorf("更新物料分配失败: %w", err)
		}

		result = &alloc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Consume 消耗物料：要求当前状态为 allocated，consumed 为终态
func (s *AllocationService) Consume(ctx context.Context, id string) (*entity.MaterialAllocation, error) {
	if err := repository.ValidateID(id); err != nil {
		return nil, err
	}
	var result *entity.MaterialAllocation

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var alloc entity.MaterialAllocation
		if err := tx.WithContext(ctx).Where("id = ?", id).First(&alloc).Error; err != nil {
			return notFoundErr(err)
		}

		if !entity.AllocationTransitionAllowed(alloc.Status, entity.AllocationStatusConsumed) {
			return invalidTransition(entity.EntityAllocation, alloc.Status, entity.AllocationStatusConsumed)
		}

		alloc.Status = entity.AllocationStatusConsumed
		if err := tx.WithContext(ctx).Save(&alloc).Error; err != nil {
			return fmt.Errorf("更新物料分配失败: %w", err)
		}

		result = &alloc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete 删除分配记录，等价于取消该物料需求
// 仅允许尚未发生分配的 pending 记录
func (s *AllocationService) Delete(ctx context.Context, id string) error {
	if err := repository.ValidateID(id); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var alloc entity.MaterialAllocation
		if err := tx.WithContext(ctx).Where("id = ?", id).First(&alloc).Error; err != nil {
			return notFoundErr(err)
		}

		if alloc.QuantityAllocated > 0 || alloc.Status != entity.AllocationStatusPending {
			return ErrAllocationLocked
		}
		if err := tx.WithContext(ctx).Delete(&alloc).Error; err != nil {
			return fmt.Errorf("删除物料分配失败: %w", err)
		}
		return nil
	})
}

// AdjustRequired 调整需求数量
// 一旦发生过分配即拒绝，避免悄悄破坏 allocated/required 的关系
func (s *AllocationService) AdjustRequired(ctx context.Context, id string, required float64) (*entity.MaterialAllocation, error) {
	if err := repository.ValidateID(id); err != nil {
		return nil, err
	}
	var result *entity.MaterialAllocation

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var alloc entity.MaterialAllocation
		if err := tx.WithContext(ctx).Where("id = ?", id).First(&alloc).Error; err != nil {
			return notFoundErr(err)
		}

		if required <= 0 {
			return fmt.Errorf("%w: 需求数量必须为正 %v", ErrValidation, required)
		}
		if alloc.QuantityAllocated > 0 || alloc.Status != entity.AllocationStatusPending {
			return ErrAllocationLocked
		}

		alloc.QuantityRequired = required
		if err := tx.WithContext(ctx).Save(&alloc).Error; err != nil {
			return fmt.Errorf("更新物料分配失败: %w", err)
		}

		result = &alloc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
