package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// ValidateID 校验外部传入的主键格式
// 主键列均为 uuid 类型，非法格式的id在驱动编码阶段就会报错，
// 这里先行拦截并按不存在处理
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Repositories 仓库集合
type Repositories struct {
	Request    *RequestRepository
	Batch      *BatchRepository
	Step       *StepRepository
	Allocation *AllocationRepository
	Quality    *QualityRepository
	Outbox     *OutboxRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Request:    NewRequestRepository(db),
		Batch:      NewBatchRepository(db),
		Step:       NewStepRepository(db),
		Allocation: NewAllocationRepository(db),
		Quality:    NewQualityRepository(db),
		Outbox:     NewOutboxRepository(db),
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
