package entity

import (
	"time"
)

// ProductionBatchStatus 生产批次状态
const (
	BatchStatusPending    = "pending"
	BatchStatusScheduled  = "scheduled"
	BatchStatusInProgress = "in_progress"
	BatchStatusCompleted  = "completed"
	BatchStatusCancelled  = "cancelled"
	BatchStatusOnHold     = "on_hold"
)

// ProductionBatch 生产批次，隶属于一个生产请求
// 批次状态由其工序状态派生（取消级联除外）
type ProductionBatch struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	BatchNumber    string     `json:"batch_number" gorm:"size:50;not null;uniqueIndex"`
	RequestID      string     `json:"request_id" gorm:"type:uuid;not null;index"`
	Quantity       int        `json:"quantity" gorm:"not null"`
	Status         string     `json:"status" gorm:"size:20;not null;default:pending"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	ActualStart    *time.Time `json:"actual_start"`
	ActualEnd      *time.Time `json:"actual_end"`
	Notes          string     `json:"notes" gorm:"type:text"`
	CreatedBy      string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at" gorm:"index"`

	Request     *ProductionRequest   `json:"request,omitempty" gorm:"foreignKey:RequestID"`
	Steps       []ProductionStep     `json:"steps,omitempty" gorm:"foreignKey:BatchID"`
	Allocations []MaterialAllocation `json:"allocations,omitempty" gorm:"foreignKey:BatchID"`
}

func (ProductionBatch) TableName() string {
	return "mes_production_batches"
}
