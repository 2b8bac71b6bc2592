package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const requestListCacheKey = "mes:requests:recent"

// LifecycleService 生产生命周期编排器
// 所有变更操作的唯一入口：校验状态转换、落本地变更、触发级联派生、
// 在同一事务内写出站事件。对端通知的投递在事务之外（见 notify.Dispatcher）
type LifecycleService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	rdb    *redis.Client
	logger *zap.Logger
}

// NewLifecycleService 创建生命周期服务
func NewLifecycleService(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{db: db, repos: repos, rdb: rdb, logger: logger}
}

// ==================== 请求 ====================

// CreateRequestRequest 创建生产请求
type CreateRequestRequest struct {
	ProductName string `json:"product_name" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"` // YYYY-MM-DD
	Notes       string `json:"notes"`
}

// CreateRequest 生产请求入库，同时创建配套的反馈记录
func (s *LifecycleService) CreateRequest(ctx context.Context, req *CreateRequestRequest, userID string) (*entity.ProductionRequest, error) {
	priority := req.Priority
	if priority == "" {
		priority = entity.PriorityNormal
	}
	switch priority {
	case entity.PriorityLow, entity.PriorityNormal, entity.PriorityHigh, entity.PriorityUrgent:
	default:
		return nil, fmt.Errorf("%w: 未知的优先级 %s", ErrValidation, priority)
	}

	code, err := s.repos.Request.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成请求编码失败: %w", err)
	}

	request := &entity.ProductionRequest{
		ID:          uuid.New().String(),
		RequestCode: code,
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		Priority:    priority,
		Status:      entity.RequestStatusReceived,
		Notes:       req.Notes,
		CreatedBy:   userID,
	}
	due, err := parseTimeField("2006-01-02", req.DueDate, "due_date")
	if err != nil {
		return nil, err
	}
	request.DueDate = due

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(request).Error; err != nil {
			return fmt.Errorf("创建生产请求失败: %w", err)
		}
		feedback := &entity.Feedback{
			ID:        uuid.New().String(),
			RequestID: request.ID,
			Status:    "open",
		}
		if err := tx.WithContext(ctx).Create(feedback).Error; err != nil {
			return fmt.Errorf("创建反馈记录失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRequestCache(ctx)
	return request, nil
}

// GetRequest 获取请求详情及其批次
func (s *LifecycleService) GetRequest(ctx context.Context, id string) (*entity.ProductionRequest, error) {
	return s.repos.Request.FindByIDWithBatches(ctx, id)
}

// cachedRequestList 请求列表缓存载体
type cachedRequestList struct {
	Items []entity.ProductionRequest `json:"items"`
	Total int64                      `json:"total"`
}

// ListRequests 查询请求列表
// 无过滤条件的首页走30秒的redis缓存，任何请求变更时失效
func (s *LifecycleService) ListRequests(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionRequest, int64, error) {
	cacheable := s.rdb != nil && page == 1 && len(filters) == 0

	if cacheable {
		if raw, err := s.rdb.Get(ctx, requestListCacheKey).Result(); err == nil {
			var cached cachedRequestList
			if json.Unmarshal([]byte(raw), &cached) == nil && len(cached.Items) <= pageSize {
				return cached.Items, cached.Total, nil
			}
		}
	}

	items, total, err := s.repos.Request.FindAll(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheable {
		if raw, err := json.Marshal(cachedRequestList{Items: items, Total: total}); err == nil {
			s.rdb.Set(ctx, requestListCacheKey, raw, 30*time.Second)
		}
	}
	return items, total, err
}

// CancelRequest 取消请求：唯一自上而下的级联
// 请求、全部未终态批次和工序在同一个事务内置为 cancelled，
// 每个受影响批次发一条机台队列取消事件，再发一条反馈状态事件
func (s *LifecycleService) CancelRequest(ctx context.Context, requestID string) (*entity.ProductionRequest, error) {
	var request *entity.ProductionRequest

	if err := repository.ValidateID(requestID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var req entity.ProductionRequest
		if err := tx.WithContext(ctx).Where("id = ?", requestID).First(&req).Error; err != nil {
			return notFoundErr(err)
		}
		if !entity.RequestTransitionAllowed(req.Status, entity.RequestStatusCancelled) {
			return invalidTransition(entity.EntityRequest, req.Status, entity.RequestStatusCancelled)
		}

		// 先锁并取消批次，最后才写请求行。
		// 工序变更走的是批次锁→请求写的顺序，这里保持一致避免两边互等；
		// 多个批次按主键序加锁
		var batches []entity.ProductionBatch
		if err := tx.WithContext(ctx).
			Where("request_id = ?", requestID).
			Order("id ASC").
			Find(&batches).Error; err != nil {
			return fmt.Errorf("查询批次失败: %w", err)
		}

		for i := range batches {
			if entity.IsTerminalBatchStatus(batches[i].Status) {
				continue
			}
			batch, err := s.repos.Batch.LockByID(ctx, tx, batches[i].ID)
			if err != nil {
				return err
			}
			if entity.IsTerminalBatchStatus(batch.Status) {
				continue
			}
			batch.Status = entity.BatchStatusCancelled
			if err := tx.WithContext(ctx).Save(batch).Error; err != nil {
				return fmt.Errorf("取消批次失败: %w", err)
			}
			// 未终态工序一并取消
			err = tx.WithContext(ctx).
				Model(&entity.ProductionStep{}).
				Where("batch_id = ? AND status IN ?", batch.ID,
					[]string{entity.StepStatusPending, entity.StepStatusScheduled, entity.StepStatusInProgress}).
				Update("status", entity.StepStatusCancelled).Error
			if err != nil {
				return fmt.Errorf("取消工序失败: %w", err)
			}
			if err := enqueueEvent(ctx, tx, entity.TopicQueueCancel, entity.JSONB{
				"batchId": batch.ID,
			}); err != nil {
				return err
			}
		}

		req.Status = entity.RequestStatusCancelled
		if err := tx.WithContext(ctx).Save(&req).Error; err != nil {
			return fmt.Errorf("更新请求状态失败: %w", err)
		}

		if err := enqueueEvent(ctx, tx, entity.TopicFeedbackStatus, entity.JSONB{
			"requestId": req.ID,
			"status":    req.Status,
			"notes":     "production request cancelled",
		}); err != nil {
			return err
		}

		request = &req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRequestCache(ctx)
	s.logger.Info("Production request cancelled",
		zap.String("request_id", request.ID),
		zap.String("request_code", request.RequestCode),
	)
	return request, nil
}

// ==================== 批次 ====================

// StepInput 批次工序输入
type StepInput struct {
	StepName       string `json:"step_name" binding:"required"`
	StepOrder      int    `json:"step_order"`
	MachineType    string `json:"machine_type"`
	ScheduledStart string `json:"scheduled_start"` // RFC3339
	ScheduledEnd   string `json:"scheduled_end"`
}

// MaterialInput 批次物料需求输入
type MaterialInput struct {
	MaterialID       string  `json:"material_id" binding:"required"`
	MaterialName     string  `json:"material_name"`
	QuantityRequired float64 `json:"quantity_required" binding:"required,gt=0"`
	UnitOfMeasure    string  `json:"unit_of_measure"`
}

// CreateBatchRequest 创建批次请求
type CreateBatchRequest struct {
	RequestID      string          `json:"request_id" binding:"required"`
	Quantity       int             `json:"quantity" binding:"required,gt=0"`
	ScheduledStart string          `json:"scheduled_start"`
	ScheduledEnd   string          `json:"scheduled_end"`
	Notes          string          `json:"notes"`
	Steps          []StepInput     `json:"steps"`
	Materials      []MaterialInput `json:"materials"`
}

// CreateBatch 在请求下创建批次，可同时带工序和物料需求
// 请求状态 received → planned；带工序时发机台排队事件，带物料时发库存预留事件
func (s *LifecycleService) CreateBatch(ctx context.Context, req *CreateBatchRequest, userID string) (*entity.ProductionBatch, error) {
	if err := repository.ValidateID(req.RequestID); err != nil {
		return nil, err
	}
	steps, err := buildSteps(req.Steps)
	if err != nil {
		return nil, err
	}

	number, err := s.repos.Batch.GenerateNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成批次号失败: %w", err)
	}

	batch := &entity.ProductionBatch{
		ID:          uuid.New().String(),
		BatchNumber: number,
		RequestID:   req.RequestID,
		Quantity:    req.Quantity,
		Status:      entity.BatchStatusPending,
		Notes:       req.Notes,
		CreatedBy:   userID,
	}
	if batch.ScheduledStart, err = parseTimeField(time.RFC3339, req.ScheduledStart, "scheduled_start"); err != nil {
		return nil, err
	}
	if batch.ScheduledEnd, err = parseTimeField(time.RFC3339, req.ScheduledEnd, "scheduled_end"); err != nil {
		return nil, err
	}

	for i := range steps {
		steps[i].BatchID = batch.ID
	}
	batch.Steps = steps

	for _, m := range req.Materials {
		uom := m.UnitOfMeasure
		if uom == "" {
			uom = "pcs"
		}
		batch.Allocations = append(batch.Allocations, entity.MaterialAllocation{
			ID:               uuid.New().String(),
			BatchID:          batch.ID,
			MaterialID:       m.MaterialID,
			MaterialName:     m.MaterialName,
			UnitOfMeasure:    uom,
			QuantityRequired: m.QuantityRequired,
			Status:           entity.AllocationStatusPending,
		})
	}

	var request entity.ProductionRequest
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("id = ?", req.RequestID).First(&request).Error; err != nil {
			return notFoundErr(err)
		}
		if entity.IsTerminalRequestStatus(request.Status) {
			return invalidTransition(entity.EntityRequest, request.Status, entity.RequestStatusPlanned)
		}

		if err := tx.WithContext(ctx).Create(batch).Error; err != nil {
			return fmt.Errorf("创建批次失败: %w", err)
		}

		if request.Status == entity.RequestStatusReceived {
			request.Status = entity.RequestStatusPlanned
			if err := tx.WithContext(ctx).Save(&request).Error; err != nil {
				return fmt.Errorf("更新请求状态失败: %w", err)
			}
		}

		if len(batch.Steps) > 0 {
			stepPayloads := make([]interface{}, 0, len(batch.Steps))
			for _, st := range batch.Steps {
				stepPayloads = append(stepPayloads, map[string]interface{}{
					"stepId":             st.ID,
					"stepName":           st.StepName,
					"machineType":        st.MachineType,
					"scheduledStartTime": st.ScheduledStart,
					"scheduledEndTime":   st.ScheduledEnd,
				})
			}
			if err := enqueueEvent(ctx, tx, entity.TopicQueueAdd, entity.JSONB{
				"batchId":     batch.ID,
				"batchNumber": batch.BatchNumber,
				"requestId":   request.ID,
				"productName": request.ProductName,
				"priority":    request.Priority,
				"steps":       stepPayloads,
			}); err != nil {
				return err
			}
		}

		if len(batch.Allocations) > 0 {
			materialPayloads := make([]interface{}, 0, len(batch.Allocations))
			for _, alloc := range batch.Allocations {
				materialPayloads = append(materialPayloads, map[string]interface{}{
					"materialId":       alloc.MaterialID,
					"quantityRequired": alloc.QuantityRequired,
					"unitOfMeasure":    alloc.UnitOfMeasure,
				})
			}
			if err := enqueueEvent(ctx, tx, entity.TopicReserve, entity.JSONB{
				"batchId":   batch.ID,
				"materials": materialPayloads,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRequestCache(ctx)
	return batch, nil
}

// GetBatch 获取批次详情及其工序和物料分配
func (s *LifecycleService) GetBatch(ctx context.Context, id string) (*entity.ProductionBatch, error) {
	return s.repos.Batch.FindByIDWithChildren(ctx, id)
}

// ListBatches 查询批次列表
func (s *LifecycleService) ListBatches(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionBatch, int64, error) {
	return s.repos.Batch.FindAll(ctx, page, pageSize, filters)
}

// UpdateBatchStatus 显式更新批次状态（如 pending→scheduled、in_progress→on_hold）
// 取消批次时未终态工序一并取消并通知机台队列
func (s *LifecycleService) UpdateBatchStatus(ctx context.Context, batchID, status string) (*entity.ProductionBatch, error) {
	var result *entity.ProductionBatch

	err := s.db.Transaction(func(tx *gorm.DB) error {
		batch, err := s.repos.Batch.LockByID(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if !entity.BatchTransitionAllowed(batch.Status, status) {
			return invalidTransition(entity.EntityBatch, batch.Status, status)
		}

		now := time.Now()
		batch.Status = status
		switch status {
		case entity.BatchStatusInProgress:
			if batch.ActualStart == nil {
				batch.ActualStart = &now
			}
		case entity.BatchStatusCompleted:
			batch.ActualEnd = &now
		}
		if err := tx.WithContext(ctx).Save(batch).Error; err != nil {
			return fmt.Errorf("更新批次状态失败: %w", err)
		}

		if status == entity.BatchStatusCancelled {
			err := tx.WithContext(ctx).
				Model(&entity.ProductionStep{}).
				Where("batch_id = ? AND status IN ?", batch.ID,
					[]string{entity.StepStatusPending, entity.StepStatusScheduled, entity.StepStatusInProgress}).
				Update("status", entity.StepStatusCancelled).Error
			if err != nil {
				return fmt.Errorf("取消工序失败: %w", err)
			}
			if err := enqueueEvent(ctx, tx, entity.TopicQueueCancel, entity.JSONB{
				"batchId": batch.ID,
			}); err != nil {
				return err
			}
		}

		if err := s.cascadeRequest(ctx, tx, batch.RequestID); err != nil {
			return err
		}

		result = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRequestCache(ctx)
	return result, nil
}

// ListRequestBatches 查询请求下全部批次
func (s *LifecycleService) ListRequestBatches(ctx context.Context, requestID string) ([]entity.ProductionBatch, error) {
	return s.repos.Batch.FindByRequestID(ctx, requestID)
}

// ListBatchSteps 查询批次下全部工序，按执行顺序排列
func (s *LifecycleService) ListBatchSteps(ctx context.Context, batchID string) ([]entity.ProductionStep, error) {
	return s.repos.Step.FindByBatchID(ctx, batchID)
}

// ReconcileBatch 对账入口：重跑批次及其请求的级联派生
// 派生是子集当前状态的纯函数，重复调用无副作用
func (s *LifecycleService) ReconcileBatch(ctx context.Context, batchID string) (*entity.ProductionBatch, error) {
	var result *entity.ProductionBatch

	err := s.db.Transaction(func(tx *gorm.DB) error {
		batch, err := s.repos.Batch.LockByID(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if err := s.cascadeBatch(ctx, tx, batch); err != nil {
			return err
		}
		if err := s.cascadeRequest(ctx, tx, batch.RequestID); err != nil {
			return err
		}
		result = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 对账可能改掉请求状态，列表缓存一并失效
	s.invalidateRequestCache(ctx)
	return result, nil
}

// DeleteBatch 删除批次及其工序和物料分配
// 任何工序一旦离开 pending 即禁止删除；删除后重算请求状态，
// 并向机台队列服务发取消事件撤掉建批时的排队
func (s *LifecycleService) DeleteBatch(ctx context.Context, batchID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		batch, err := s.repos.Batch.LockByID(ctx, tx, batchID)
		if err != nil {
			return err
		}

		started, err := s.repos.Step.CountStarted(ctx, tx, batch.ID)
		if err != nil {
			return fmt.Errorf("检查工序状态失败: %w", err)
		}
		if started > 0 {
			return fmt.Errorf("%w: %d 道工序已开始", ErrHasStartedSteps, started)
		}

		if err := tx.WithContext(ctx).Where("batch_id = ?", batch.ID).Delete(&entity.ProductionStep{}).Error; err != nil {
			return fmt.Errorf("删除工序失败: %w", err)
		}
		if err := tx.WithContext(ctx).Where("batch_id = ?", batch.ID).Delete(&entity.MaterialAllocation{}).Error; err != nil {
			return fmt.Errorf("删除物料分配失败: %w", err)
		}
		if err := tx.WithContext(ctx).Delete(batch).Error; err != nil {
			return fmt.Errorf("删除批次失败: %w", err)
		}

		if err := enqueueEvent(ctx, tx, entity.TopicQueueCancel, entity.JSONB{
			"batchId": batch.ID,
		}); err != nil {
			return err
		}
		return s.cascadeRequest(ctx, tx, batch.RequestID)
	})
	if err != nil {
		return err
	}

	s.invalidateRequestCache(ctx)
	return nil
}

// ==================== 工序 ====================

// GetStep 获取工序详情
func (s *LifecycleService) GetStep(ctx context.Context, id string) (*entity.ProductionStep, error) {
	return s.repos.Step.FindByID(ctx, id)
}

// StartStepRequest 开始工序
type StartStepRequest struct {
	OperatorID string `json:"operator_id"`
	MachineID  string `json:"machine_id"`
}

// StartStep 开始工序：置 in_progress 并记录实际开始时间，级联到批次和请求
func (s *LifecycleService) StartStep(ctx context.Context, stepID string, req *StartStepRequest) (*entity.ProductionStep, error) {
	return s.transitionStep(ctx, stepID, entity.StepStatusInProgress, func(step *entity.ProductionStep, now time.Time) {
		step.ActualStart = &now
		if req != nil {
			if req.OperatorID != "" {
				step.OperatorID = &req.OperatorID
			}
			if req.MachineID != "" {
				step.MachineID = &req.MachineID
			}
		}
	})
}

// CompleteStep 完成工序：记录实际结束时间和耗时，级联到批次和请求
func (s *LifecycleService) CompleteStep(ctx context.Context, stepID string, notes string) (*entity.ProductionStep, error) {
	return s.transitionStep(ctx, stepID, entity.StepStatusCompleted, func(step *entity.ProductionStep, now time.Time) {
		step.ActualEnd = &now
		if step.ActualStart != nil {
			minutes := int(now.Sub(*step.ActualStart).Minutes())
			step.Duration = &minutes
		}
		if notes != "" {
			step.Notes = notes
		}
	})
}

// FailStep 工序失败：批次派生为 on_hold
func (s *LifecycleService) FailStep(ctx context.Context, stepID string, notes string) (*entity.ProductionStep, error) {
	return s.transitionStep(ctx, stepID, entity.StepStatusFailed, func(step *entity.ProductionStep, now time.Time) {
		step.ActualEnd = &now
		if notes != "" {
			step.Notes = notes
		}
	})
}

// SkipStep 跳过工序：派生时与 completed 等同计入完成数
func (s *LifecycleService) SkipStep(ctx context.Context, stepID string, notes string) (*entity.ProductionStep, error) {
	return s.transitionStep(ctx, stepID, entity.StepStatusSkipped, func(step *entity.ProductionStep, now time.Time) {
		if notes != "" {
			step.Notes = notes
		}
	})
}

// ScheduleStep 排程工序：pending → scheduled
func (s *LifecycleService) ScheduleStep(ctx context.Context, stepID string, scheduledStart, scheduledEnd string) (*entity.ProductionStep, error) {
	start, err := parseTimeField(time.RFC3339, scheduledStart, "scheduled_start")
	if err != nil {
		return nil, err
	}
	end, err := parseTimeField(time.RFC3339, scheduledEnd, "scheduled_end")
	if err != nil {
		return nil, err
	}
	return s.transitionStep(ctx, stepID, entity.StepStatusScheduled, func(step *entity.ProductionStep, now time.Time) {
		if start != nil {
			step.ScheduledStart = start
		}
		if end != nil {
			step.ScheduledEnd = end
		}
	})
}

// transitionStep 工序状态变更的公共骨架：
// 锁父批次行 → 校验转换表 → 本地变更 → 批次/请求级联，全程一个事务
func (s *LifecycleService) transitionStep(ctx context.Context, stepID, target string, mutate func(*entity.ProductionStep, time.Time)) (*entity.ProductionStep, error) {
	var result *entity.ProductionStep

	if err := repository.ValidateID(stepID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var step entity.ProductionStep
		if err := tx.WithContext(ctx).Where("id = ?", stepID).First(&step).Error; err != nil {
			return notFoundErr(err)
		}

		// 同批次的并发工序变更在批次行锁上串行化
		batch, err := s.repos.Batch.LockByID(ctx, tx, step.BatchID)
		if err != nil {
			return err
		}

		// 拿到锁后重读工序：等锁期间并发事务可能已提交了状态变更，
		// 用锁前快照校验会放过对终态的二次写入
		if err := tx.WithContext(ctx).Where("id = ?", stepID).First(&step).Error; err != nil {
			return notFoundErr(err)
		}

		if !entity.StepTransitionAllowed(step.Status, target) {
			return invalidTransition(entity.EntityStep, step.Status, target)
		}

		now := time.Now()
		step.Status = target
		mutate(&step, now)
		if err := tx.WithContext(ctx).Save(&step).Error; err != nil {
			return fmt.Errorf("更新工序失败: %w", err)
		}

		if err := s.cascadeBatch(ctx, tx, batch); err != nil {
			return err
		}
		if err := s.cascadeRequest(ctx, tx, batch.RequestID); err != nil {
			return err
		}

		result = &step
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateRequestCache(ctx)
	return result, nil
}

// ==================== 级联 ====================

// cascadeBatch 重算批次状态并在变化时写回
func (s *LifecycleService) cascadeBatch(ctx context.Context, tx *gorm.DB, batch *entity.ProductionBatch) error {
	var steps []entity.ProductionStep
	if err := tx.WithContext(ctx).
		Where("batch_id = ?", batch.ID).
		Order("step_order ASC").
		Find(&steps).Error; err != nil {
		return fmt.Errorf("查询工序失败: %w", err)
	}

	derived := DeriveBatchStatus(batch.Status, steps)
	if derived == batch.Status || entity.IsTerminalBatchStatus(batch.Status) {
		return nil
	}

	now := time.Now()
	batch.Status = derived
	switch derived {
	case entity.BatchStatusInProgress:
		if batch.ActualStart == nil {
			batch.ActualStart = &now
		}
	case entity.BatchStatusCompleted:
		batch.ActualEnd = &now
	}
	if err := tx.WithContext(ctx).Save(batch).Error; err != nil {
		return fmt.Errorf("更新批次状态失败: %w", err)
	}
	return nil
}

// cascadeRequest 重算请求状态并在变化时写回
// 进入 in_production/completed 时向反馈服务发状态事件
func (s *LifecycleService) cascadeRequest(ctx context.Context, tx *gorm.DB, requestID string) error {
	var request entity.ProductionRequest
	if err := tx.WithContext(ctx).Where("id = ?", requestID).First(&request).Error; err != nil {
		return notFoundErr(err)
	}
	if entity.IsTerminalRequestStatus(request.Status) {
		return nil
	}

	var batches []entity.ProductionBatch
	if err := tx.WithContext(ctx).Where("request_id = ?", requestID).Find(&batches).Error; err != nil {
		return fmt.Errorf("查询批次失败: %w", err)
	}

	derived := DeriveRequestStatus(request.Status, batches)
	if derived == request.Status {
		return nil
	}

	request.Status = derived
	if err := tx.WithContext(ctx).Save(&request).Error; err != nil {
		return fmt.Errorf("更新请求状态失败: %w", err)
	}

	if derived == entity.RequestStatusInProduction || derived == entity.RequestStatusCompleted {
		if err := enqueueEvent(ctx, tx, entity.TopicFeedbackStatus, entity.JSONB{
			"requestId": request.ID,
			"status":    derived,
			"notes":     "status derived from batch progress",
		}); err != nil {
			return err
		}
	}
	return nil
}

// ==================== 辅助 ====================

// buildSteps 构建工序并校验顺序号：批次内唯一且从1连续
// 未指定顺序号时按输入顺序自动编号
func buildSteps(inputs []StepInput) ([]entity.ProductionStep, error) {
	steps := make([]entity.ProductionStep, 0, len(inputs))

	autoOrder := true
	for _, in := range inputs {
		if in.StepOrder != 0 {
			autoOrder = false
			break
		}
	}

	seen := make(map[int]bool, len(inputs))
	for i, in := range inputs {
		order := in.StepOrder
		if autoOrder {
			order = i + 1
		}
		if seen[order] {
			return nil, fmt.Errorf("%w: order %d", ErrDuplicateStepOrder, order)
		}
		seen[order] = true

		step := entity.ProductionStep{
			ID:          uuid.New().String(),
			StepName:    in.StepName,
			StepOrder:   order,
			MachineType: in.MachineType,
			Status:      entity.StepStatusPending,
		}
		start, err := parseTimeField(time.RFC3339, in.ScheduledStart, "steps.scheduled_start")
		if err != nil {
			return nil, err
		}
		end, err := parseTimeField(time.RFC3339, in.ScheduledEnd, "steps.scheduled_end")
		if err != nil {
			return nil, err
		}
		step.ScheduledStart = start
		step.ScheduledEnd = end
		steps = append(steps, step)
	}

	for order := 1; order <= len(steps); order++ {
		if !seen[order] {
			return nil, fmt.Errorf("%w: 工序顺序号必须从1连续, 缺少 %d", ErrValidation, order)
		}
	}
	return steps, nil
}

// parseTimeField 可选时间字段：空串视为未提供，非法格式按参数错误拒绝
func parseTimeField(layout, value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s 需要 %s 格式", ErrValidation, field, layout)
	}
	return &t, nil
}

// enqueueEvent 在当前事务内写一条出站事件
func enqueueEvent(ctx context.Context, tx *gorm.DB, topic string, payload entity.JSONB) error {
	event := &entity.OutboxEvent{
		ID:            uuid.New().String(),
		Topic:         topic,
		Payload:       payload,
		NextAttemptAt: time.Now(),
	}
	if err := tx.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("写出站事件失败: %w", err)
	}
	return nil
}

func notFoundErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// invalidateRequestCache 请求数据变更后失效列表缓存
func (s *LifecycleService) invalidateRequestCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	s.rdb.Del(ctx, requestListCacheKey)
}
