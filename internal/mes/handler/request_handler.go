package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// RequestHandler 生产请求处理器
type RequestHandler struct {
	svc *service.LifecycleService
}

func NewRequestHandler(svc *service.LifecycleService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// CreateRequest 创建生产请求
// POST /api/v1/mes/requests
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	request, err := h.svc.CreateRequest(c.Request.Context(), &req, GetUserID(c))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Created(c, request)
}

// ListRequests 请求列表
// GET /api/v1/mes/requests?status=xxx&priority=xxx&product_name=xxx
func (h *RequestHandler) ListRequests(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{}
	if v := c.Query("status"); v != "" {
		filters["status"] = v
	}
	if v := c.Query("priority"); v != "" {
		filters["priority"] = v
	}
	if v := c.Query("product_name"); v != "" {
		filters["product_name"] = v
	}

	items, total, err := h.svc.ListRequests(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取请求列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

// GetRequest 请求详情（含批次）
// GET /api/v1/mes/requests/:id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	request, err := h.svc.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, request)
}

// ListRequestBatches 请求下的批次列表
// GET /api/v1/mes/requests/:id/batches
func (h *RequestHandler) ListRequestBatches(c *gin.Context) {
	batches, err := h.svc.ListRequestBatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, batches)
}

// CancelRequest 取消请求（级联取消全部未终态批次和工序）
// POST /api/v1/mes/requests/:id/cancel
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	request, err := h.svc.CancelRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, request)
}
