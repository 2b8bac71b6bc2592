package entity

import (
	"time"
)

// ProductionStepStatus 工序状态
const (
	StepStatusPending    = "pending"
	StepStatusScheduled  = "scheduled"
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
	StepStatusCancelled  = "cancelled"
	StepStatusSkipped    = "skipped"
	StepStatusFailed     = "failed"
)

// ProductionStep 生产工序，隶属于一个批次
// StepOrder 在批次内唯一且从1连续，决定执行顺序
type ProductionStep struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	BatchID        string     `json:"batch_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_batch_step_order"`
	StepName       string     `json:"step_name" gorm:"size:128;not null"`
	StepOrder      int        `json:"step_order" gorm:"not null;uniqueIndex:idx_batch_step_order"`
	MachineType    string     `json:"machine_type" gorm:"size:64"`
	MachineID      *string    `json:"machine_id" gorm:"size:64"`
	OperatorID     *string    `json:"operator_id" gorm:"size:64"`
	Status         string     `json:"status" gorm:"size:20;not null;default:pending"`
	ScheduledStart *time.Time `json:"scheduled_start"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`
	ActualStart    *time.Time `json:"actual_start"`
	ActualEnd      *time.Time `json:"actual_end"`
	Duration       *int       `json:"duration"` // 分钟，actualEnd - actualStart
	Notes          string     `json:"notes" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (ProductionStep) TableName() string {
	return "mes_production_steps"
}
