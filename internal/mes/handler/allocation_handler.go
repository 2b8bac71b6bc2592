package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// AllocationHandler 物料分配处理器
type AllocationHandler struct {
	svc *service.AllocationService
}

func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{svc: svc}
}

// GetAllocation 分配详情
// GET /api/v1/mes/allocations/:id
func (h *AllocationHandler) GetAllocation(c *gin.Context) {
	alloc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, alloc)
}

// ListBatchAllocations 批次下的分配列表
// GET /api/v1/mes/batches/:id/allocations
func (h *AllocationHandler) ListBatchAllocations(c *gin.Context) {
	allocs, err := h.svc.ListByBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取物料分配列表失败: "+err.Error())
		return
	}
	Success(c, allocs)
}

// AllocateRequest 记录分配数量
type AllocateRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gte=0"`
}

// Allocate 记录物料分配
// POST /api/v1/mes/allocations/:id/allocate
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	alloc, err := h.svc.Allocate(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, alloc)
}

// Consume 消耗物料
// POST /api/v1/mes/allocations/:id/consume
func (h *AllocationHandler) Consume(c *gin.Context) {
	alloc, err := h.svc.Consume(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, alloc)
}

// DeleteAllocation 删除分配记录（已发生分配后拒绝）
// DELETE /api/v1/mes/allocations/:id
func (h *AllocationHandler) DeleteAllocation(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}

// AdjustRequiredRequest 调整需求数量
type AdjustRequiredRequest struct {
	QuantityRequired float64 `json:"quantity_required" binding:"required,gt=0"`
}

// AdjustRequired 调整需求数量（已发生分配后拒绝）
// PUT /api/v1/mes/allocations/:id/required
func (h *AllocationHandler) AdjustRequired(c *gin.Context) {
	var req AdjustRequiredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	alloc, err := h.svc.AdjustRequired(c.Request.Context(), c.Param("id"), req.QuantityRequired)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, alloc)
}
