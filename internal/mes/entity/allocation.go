package entity

import (
	"time"
)

// MaterialAllocationStatus 物料分配状态
const (
	AllocationStatusPending   = "pending"
	AllocationStatusPartial   = "partial"
	AllocationStatusAllocated = "allocated"
	AllocationStatusConsumed  = "consumed"
)

// MaterialAllocation 批次物料分配
// 不变式: 0 ≤ QuantityAllocated ≤ QuantityRequired；
// status=allocated 当且仅当 QuantityAllocated == QuantityRequired
type MaterialAllocation struct {
	ID                string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	BatchID           string     `json:"batch_id" gorm:"type:uuid;not null;index"`
	MaterialID        string     `json:"material_id" gorm:"size:64;not null;index"`
	MaterialName      string     `json:"material_name" gorm:"size:128"`
	UnitOfMeasure     string     `json:"unit_of_measure" gorm:"size:20;not null;default:pcs"`
	QuantityRequired  float64    `json:"quantity_required" gorm:"type:decimal(12,4);not null"`
	QuantityAllocated float64    `json:"quantity_allocated" gorm:"type:decimal(12,4);default:0"`
	Status            string     `json:"status" gorm:"size:20;not null;default:pending"`
	AllocationDate    *time.Time `json:"allocation_date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (MaterialAllocation) TableName() string {
	return "mes_material_allocations"
}
