package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// StepHandler 生产工序处理器
type StepHandler struct {
	svc *service.LifecycleService
}

func NewStepHandler(svc *service.LifecycleService) *StepHandler {
	return &StepHandler{svc: svc}
}

// GetStep 工序详情
// GET /api/v1/mes/steps/:id
func (h *StepHandler) GetStep(c *gin.Context) {
	step, err := h.svc.GetStep(c.Request.Context(), c.Param("id"))
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, step)
}

// StartStep 开始工序
// POST /api/v1/mes/steps/:id/start
func (h *StepHandler) StartStep(c *gin.Context) {
	var req service.StartStepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}

	step, err := h.svc.StartStep(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, step)
}

// stepNotesRequest 带备注的工序操作
type stepNotesRequest struct {
	Notes string `json:"notes"`
}

// CompleteStep 完成工序
// POST /api/v1/mes/steps/:id/complete
func (h *StepHandler) CompleteStep(c *gin.Context) {
	var req stepNotesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}

	step, err := h.svc.CompleteStep(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, step)
}

// FailStep 工序失败
// POST /api/v1/mes/steps/:id/fail
func (h *StepHandler) FailStep(c *gin.Context) {
	var req stepNotesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}

	step, err := h.svc.FailStep(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, step)
}

// SkipStep 跳过工序
// POST /api/v1/mes/steps/:id/skip
func (h *StepHandler) SkipStep(c *gin.Context) {
	var req stepNotesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}

	step, err := h.svc.SkipStep(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, step)
}

// ScheduleStepRequest 排程工序
type ScheduleStepRequest struct {
	ScheduledStart string `json:"scheduled_start"`
	ScheduledEnd   string `json:"scheduled_end"`
}

// ScheduleStep 排程工序
// POST /api/v1/mes/steps/:id/schedule
func (h *StepHandler) ScheduleStep(c *gin.Context) {
	var req ScheduleStepRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "参数错误: "+err.Error())
			return
		}
	}

	step, err := h.svc.ScheduleStep(c.Request.Context(), c.Param("id"), req.ScheduledStart, req.ScheduledEnd)
	if err != nil {
		FailFrom(c, err)
		return
	}
	Success(c, step)
}
