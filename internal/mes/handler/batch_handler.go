package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// BatchHandler 生产批次处理器
type BatchHandler struct {
	svc *service.LifecycleService
}

func NewBatchHandler(svc *service.LifecycleService) *BatchHandler {
	return &BatchHandler{svc: svc}
}

// CreateBatch 创建批次（可带工序和物料需求）
// POST /api/v1/mes/batches
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	batch, err := h.svc.CreateBatch(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Created(c, batch)
}

// ListBatches 批次列表
// GET /api/v1/mes/batches?request_id=xxx&status=xxx
func (h *BatchHandler) ListBatches(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{}
	if v := c.Query("request_id"); v != "" {
		filters["request_id"] = v
	}
	if v := c.Query("status"); v != "" {
		filters["status"] = v
	}

	items, total, err := h.svc.ListBatches(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取批次列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetBatch 批次详情（含工序和物料分配）
// GET /api/v1/mes/batches/:id
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batch, err := h.svc.GetBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, batch)
}

// ListBatchSteps 批次下的工序列表
// GET /api/v1/mes/batches/:id/steps
func (h *BatchHandler) ListBatchSteps(c *gin.Context) {
	steps, err := h.svc.ListBatchSteps(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, steps)
}

// UpdateBatchStatusRequest 更新批次状态
type UpdateBatchStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateBatchStatus 显式更新批次状态
// PUT /api/v1/mes/batches/:id/status
func (h *BatchHandler) UpdateBatchStatus(c *gin.Context) {
	var req UpdateBatchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	batch, err := h.svc.UpdateBatchStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, batch)
}

// ReconcileBatch 重跑批次及其请求的级联派生
// POST /api/v1/mes/batches/:id/reconcile
func (h *BatchHandler) ReconcileBatch(c *gin.Context) {
	batch, err := h.svc.ReconcileBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, batch)
}

// DeleteBatch 删除批次（有工序已开始时拒绝）
// DELETE /api/v1/mes/batches/:id
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	if err := h.svc.DeleteBatch(c.Request.Context(), c.Param("id")); err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}
