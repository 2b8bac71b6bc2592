package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// QualityHandler 质检处理器
type QualityHandler struct {
	svc *service.QualityService
}

func NewQualityHandler(svc *service.QualityService) *QualityHandler {
	return &QualityHandler{svc: svc}
}

// GetFeedback 反馈详情（含质检项和质量分）
// GET /api/v1/mes/feedbacks/:id
func (h *QualityHandler) GetFeedback(c *gin.Context) {
	fb, err := h.svc.GetFeedback(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, fb)
}

// GetCheck 质检项详情
// GET /api/v1/mes/checks/:id
func (h *QualityHandler) GetCheck(c *gin.Context) {
	check, err := h.svc.GetCheck(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, check)
}

// GetRequestFeedback 根据请求ID获取反馈
// GET /api/v1/mes/requests/:id/feedback
func (h *QualityHandler) GetRequestFeedback(c *gin.Context) {
	fb, err := h.svc.GetFeedbackByRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, fb)
}

// RecordQualityCheck 录入质检项
// POST /api/v1/mes/feedbacks/:id/checks
func (h *QualityHandler) RecordQualityCheck(c *gin.Context) {
	var req service.RecordQualityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	check, err := h.svc.RecordQualityCheck(c.Request.Context(), c.Param("id"), &req, GetUserID(c))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Created(c, check)
}

// UpdateQualityCheck 更新质检项
// PUT /api/v1/mes/checks/:id
func (h *QualityHandler) UpdateQualityCheck(c *gin.Context) {
	var req service.UpdateQualityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	check, err := h.svc.UpdateQualityCheck(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, check)
}

// DeleteQualityCheck 删除质检项
// DELETE /api/v1/mes/checks/:id
func (h *QualityHandler) DeleteQualityCheck(c *gin.Context) {
	if err := h.svc.DeleteQualityCheck(c.Request.Context(), c.Param("id")); err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, nil)
}
