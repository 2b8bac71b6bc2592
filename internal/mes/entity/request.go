package entity

import (
	"time"
)

// ProductionRequestStatus 生产请求状态
const (
	RequestStatusReceived     = "received"
	RequestStatusPlanned      = "planned"
	RequestStatusInProduction = "in_production"
	RequestStatusCompleted    = "completed"
	RequestStatusCancelled    = "cancelled"
)

// 请求优先级
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ProductionRequest 生产请求
// 状态只能由级联更新器或显式取消操作修改
type ProductionRequest struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	RequestCode string     `json:"request_code" gorm:"size:50;not null;uniqueIndex"`
	ProductName string     `json:"product_name" gorm:"size:128;not null"`
	Quantity    int        `json:"quantity" gorm:"not null"`
	Priority    string     `json:"priority" gorm:"size:16;not null;default:normal"`
	DueDate     *time.Time `json:"due_date" gorm:"type:date"`
	Status      string     `json:"status" gorm:"size:20;not null;default:received"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	Batches  []ProductionBatch `json:"batches,omitempty" gorm:"foreignKey:RequestID"`
	Feedback *Feedback         `json:"feedback,omitempty" gorm:"foreignKey:RequestID"`
}

func (ProductionRequest) TableName() string {
	return "mes_production_requests"
}
