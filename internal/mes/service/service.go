package service

import (
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 错误定义
var (
	// ErrNotFound 实体不存在
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidTransition 状态转换表拒绝该转换
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrOverAllocation 分配数量超过需求数量
	ErrOverAllocation = errors.New("allocated quantity exceeds required quantity")
	// ErrDuplicateStepOrder 批次内工序顺序号重复
	ErrDuplicateStepOrder = errors.New("duplicate step order in batch")
	// ErrHasStartedSteps 已有工序离开 pending，禁止删除
	ErrHasStartedSteps = errors.New("batch has started steps")
	// ErrAllocationLocked 已发生分配，禁止调整需求数量
	ErrAllocationLocked = errors.New("allocation already in progress, required quantity is locked")
	// ErrValidation 输入参数校验失败
	ErrValidation = errors.New("validation failed")
)

// invalidTransition 构造带实体和状态上下文的转换错误
func invalidTransition(entityType, from, to string) error {
	return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, entityType, from, to)
}

// Services 服务集合
type Services struct {
	Lifecycle  *LifecycleService
	Allocation *AllocationService
	Quality    *QualityService
}

// NewServices 创建服务集合
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	lifecycle := NewLifecycleService(db, repos, rdb, logger)
	return &Services{
		Lifecycle:  lifecycle,
		Allocation: NewAllocationService(db, repos),
		Quality:    NewQualityService(db, repos, logger),
	}
}
