package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupServices(t *testing.T) (*gorm.DB, *Services) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	logger := zap.NewNop()
	return db, &Services{
		Lifecycle:  NewLifecycleService(db, repos, nil, logger),
		Allocation: NewAllocationService(db, repos),
		Quality:    NewQualityService(db, repos, logger),
	}
}

func createRequest(t *testing.T, svc *Services) *entity.ProductionRequest {
	t.Helper()
	req, err := svc.Lifecycle.CreateRequest(context.Background(), &CreateRequestRequest{
		ProductName: "智能音箱外壳",
		Quantity:    500,
		Priority:    entity.PriorityHigh,
		DueDate:     "2026-10-01",
	}, "test-user")
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}
	return req
}

func createBatchWithSteps(t *testing.T, svc *Services, requestID string) *entity.ProductionBatch {
	t.Helper()
	batch, err := svc.Lifecycle.CreateBatch(context.Background(), &CreateBatchRequest{
		RequestID: requestID,
		Quantity:  250,
		Steps: []StepInput{
			{StepName: "注塑", MachineType: "injection_molding"},
			{StepName: "喷涂", MachineType: "painting"},
		},
		Materials: []MaterialInput{
			{MaterialID: "MAT-ABS-001", MaterialName: "ABS颗粒", QuantityRequired: 100, UnitOfMeasure: "kg"},
		},
	}, "test-user")
	if err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}
	return batch
}

func countEvents(t *testing.T, db *gorm.DB, topic string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&entity.OutboxEvent{}).Where("topic = ?", topic).Count(&count).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	return count
}

// TestEndToEndLifecycle walks a request through planning, execution and completion
func TestEndToEndLifecycle(t *testing.T) {
	db, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	if request.Status != entity.RequestStatusReceived {
		t.Fatalf("new request status = %s, want received", request.Status)
	}

	batch := createBatchWithSteps(t, svc, request.ID)
	if batch.Status != entity.BatchStatusPending {
		t.Fatalf("new batch status = %s, want pending", batch.Status)
	}
	if len(batch.Steps) != 2 || len(batch.Allocations) != 1 {
		t.Fatalf("batch children = %d steps, %d allocations", len(batch.Steps), len(batch.Allocations))
	}

	reloaded, err := svc.Lifecycle.GetRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if reloaded.Status != entity.RequestStatusPlanned {
		t.Fatalf("request status after batch = %s, want planned", reloaded.Status)
	}

	if got := countEvents(t, db, entity.TopicQueueAdd); got != 1 {
		t.Errorf("queue add events = %d, want 1", got)
	}
	if got := countEvents(t, db, entity.TopicReserve); got != 1 {
		t.Errorf("reserve events = %d, want 1", got)
	}

	// 开始第一道工序：批次→in_progress，请求→in_production
	step1 := batch.Steps[0]
	started, err := svc.Lifecycle.StartStep(ctx, step1.ID, &StartStepRequest{OperatorID: "op-001"})
	if err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}
	if started.ActualStart == nil {
		t.Error("ActualStart not recorded")
	}

	afterStart, err := svc.Lifecycle.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if afterStart.Status != entity.BatchStatusInProgress {
		t.Fatalf("batch status = %s, want in_progress", afterStart.Status)
	}
	reloaded, _ = svc.Lifecycle.GetRequest(ctx, request.ID)
	if reloaded.Status != entity.RequestStatusInProduction {
		t.Fatalf("request status = %s, want in_production", reloaded.Status)
	}
	if got := countEvents(t, db, entity.TopicFeedbackStatus); got != 1 {
		t.Errorf("feedback status events = %d, want 1", got)
	}

	// 部分分配
	alloc, err := svc.Allocation.Allocate(ctx, batch.Allocations[0].ID, 60)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if alloc.Status != entity.AllocationStatusPartial {
		t.Fatalf("allocation status = %s, want partial", alloc.Status)
	}

	// 完成两道工序：批次→completed，请求→completed
	if _, err := svc.Lifecycle.CompleteStep(ctx, step1.ID, ""); err != nil {
		t.Fatalf("CompleteStep 1 failed: %v", err)
	}
	step2 := batch.Steps[1]
	if _, err := svc.Lifecycle.StartStep(ctx, step2.ID, nil); err != nil {
		t.Fatalf("StartStep 2 failed: %v", err)
	}
	if _, err := svc.Lifecycle.CompleteStep(ctx, step2.ID, ""); err != nil {
		t.Fatalf("CompleteStep 2 failed: %v", err)
	}

	final, _ := svc.Lifecycle.GetBatch(ctx, batch.ID)
	if final.Status != entity.BatchStatusCompleted {
		t.Fatalf("batch status = %s, want completed", final.Status)
	}
	if final.ActualEnd == nil {
		t.Error("batch ActualEnd not recorded")
	}
	reloaded, _ = svc.Lifecycle.GetRequest(ctx, request.ID)
	if reloaded.Status != entity.RequestStatusCompleted {
		t.Fatalf("request status = %s, want completed", reloaded.Status)
	}
	if got := countEvents(t, db, entity.TopicFeedbackStatus); got != 2 {
		t.Errorf("feedback status events = %d, want 2", got)
	}
}

// TestInvalidTransitionLeavesStateUnchanged covers the no-mutation guarantee
func TestInvalidTransitionLeavesStateUnchanged(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)
	step := batch.Steps[0]

	// pending 工序不能直接完成
	_, err := svc.Lifecycle.CompleteStep(ctx, step.ID, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	reloaded, _ := svc.Lifecycle.GetStep(ctx, step.ID)
	if reloaded.Status != entity.StepStatusPending {
		t.Errorf("step status mutated to %s on rejected transition", reloaded.Status)
	}
	batchReloaded, _ := svc.Lifecycle.GetBatch(ctx, batch.ID)
	if batchReloaded.Status != entity.BatchStatusPending {
		t.Errorf("batch status mutated to %s on rejected transition", batchReloaded.Status)
	}
}

// TestDuplicateStepOrderRejected covers the step order guard at batch creation
func TestDuplicateStepOrderRejected(t *testing.T) {
	_, svc := setupServices(t)
	request := createRequest(t, svc)

	_, err := svc.Lifecycle.CreateBatch(context.Background(), &CreateBatchRequest{
		RequestID: request.ID,
		Quantity:  10,
		Steps: []StepInput{
			{StepName: "组装", StepOrder: 1},
			{StepName: "检验", StepOrder: 1},
		},
	}, "test-user")
	if !errors.Is(err, ErrDuplicateStepOrder) {
		t.Fatalf("expected ErrDuplicateStepOrder, got %v", err)
	}
}

// TestAllocationInvariant covers over-allocation rejection and consume preconditions
func TestAllocationInvariant(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)
	allocID := batch.Allocations[0].ID

	// 超量分配拒绝且不产生变更
	_, err := svc.Allocation.Allocate(ctx, allocID, 150)
	if !errors.Is(err, ErrOverAllocation) {
		t.Fatalf("expected ErrOverAllocation, got %v", err)
	}
	alloc, _ := svc.Allocation.Get(ctx, allocID)
	if alloc.QuantityAllocated != 0 || alloc.Status != entity.AllocationStatusPending {
		t.Fatalf("allocation mutated on rejected call: %+v", alloc)
	}

	// 未满额不能消耗
	if _, err := svc.Allocation.Allocate(ctx, allocID, 60); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if _, err := svc.Allocation.Consume(ctx, allocID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on partial consume, got %v", err)
	}

	// 已分配后禁止调整需求量
	if _, err := svc.Allocation.AdjustRequired(ctx, allocID, 200); !errors.Is(err, ErrAllocationLocked) {
		t.Fatalf("expected ErrAllocationLocked, got %v", err)
	}

	// 满额后可消耗，consumed 为终态
	if _, err := svc.Allocation.Allocate(ctx, allocID, 100); err != nil {
		t.Fatalf("full Allocate failed: %v", err)
	}
	consumed, err := svc.Allocation.Consume(ctx, allocID)
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if consumed.Status != entity.AllocationStatusConsumed {
		t.Fatalf("status = %s, want consumed", consumed.Status)
	}
	if _, err := svc.Allocation.Allocate(ctx, allocID, 50); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after consume, got %v", err)
	}
}

// TestFailedStepPutsBatchOnHold covers the on_hold derivation
func TestFailedStepPutsBatchOnHold(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)

	if _, err := svc.Lifecycle.StartStep(ctx, batch.Steps[0].ID, nil); err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}
	if _, err := svc.Lifecycle.FailStep(ctx, batch.Steps[0].ID, "模具温度超限"); err != nil {
		t.Fatalf("FailStep failed: %v", err)
	}

	reloaded, _ := svc.Lifecycle.GetBatch(ctx, batch.ID)
	if reloaded.Status != entity.BatchStatusOnHold {
		t.Fatalf("batch status = %s, want on_hold", reloaded.Status)
	}
}

// TestCancelRequestCascades covers the single top-down cascade
func TestCancelRequestCascades(t *testing.T) {
	db, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)
	if _, err := svc.Lifecycle.StartStep(ctx, batch.Steps[0].ID, nil); err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}

	cancelled, err := svc.Lifecycle.CancelRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("CancelRequest failed: %v", err)
	}
	if cancelled.Status != entity.RequestStatusCancelled {
		t.Fatalf("request status = %s, want cancelled", cancelled.Status)
	}

	batchReloaded, _ := svc.Lifecycle.GetBatch(ctx, batch.ID)
	if batchReloaded.Status != entity.BatchStatusCancelled {
		t.Fatalf("batch status = %s, want cancelled", batchReloaded.Status)
	}
	for _, step := range batchReloaded.Steps {
		if step.Status != entity.StepStatusCancelled {
			t.Errorf("step %s status = %s, want cancelled", step.StepName, step.Status)
		}
	}

	if got := countEvents(t, db, entity.TopicQueueCancel); got != 1 {
		t.Errorf("queue cancel events = %d, want 1", got)
	}

	// 终态单调：取消后不再接受任何转换
	if _, err := svc.Lifecycle.CancelRequest(ctx, request.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double cancel, got %v", err)
	}
}

// TestReconcileBatchIdempotent re-runs derivation with no observable change
func TestReconcileBatchIdempotent(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)
	if _, err := svc.Lifecycle.StartStep(ctx, batch.Steps[0].ID, nil); err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}

	first, err := svc.Lifecycle.ReconcileBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("ReconcileBatch failed: %v", err)
	}
	second, err := svc.Lifecycle.ReconcileBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("second ReconcileBatch failed: %v", err)
	}
	if first.Status != second.Status || second.Status != entity.BatchStatusInProgress {
		t.Fatalf("reconcile statuses = %s / %s, want stable in_progress", first.Status, second.Status)
	}
}

// TestDeleteBatchGuard covers the no-hard-delete rule once a step has started
func TestDeleteBatchGuard(t *testing.T) {
	db, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)
	if _, err := svc.Lifecycle.StartStep(ctx, batch.Steps[0].ID, nil); err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}

	if err := svc.Lifecycle.DeleteBatch(ctx, batch.ID); !errors.Is(err, ErrHasStartedSteps) {
		t.Fatalf("expected ErrHasStartedSteps, got %v", err)
	}
	if _, err := svc.Lifecycle.GetBatch(ctx, batch.ID); err != nil {
		t.Fatalf("batch deleted despite guard: %v", err)
	}

	// 全部工序还在 pending 的批次可删，连同子项一起
	fresh := createBatchWithSteps(t, svc, request.ID)
	if err := svc.Lifecycle.DeleteBatch(ctx, fresh.ID); err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}
	if _, err := svc.Lifecycle.GetBatch(ctx, fresh.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	var stepCount int64
	if err := db.Model(&entity.ProductionStep{}).Where("batch_id = ?", fresh.ID).Count(&stepCount).Error; err != nil {
		t.Fatalf("count steps: %v", err)
	}
	if stepCount != 0 {
		t.Errorf("orphan steps left after batch delete: %d", stepCount)
	}
}

// TestSkippedStepsCountAsCompleted covers skip semantics in derivation
func TestSkippedStepsCountAsCompleted(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)

	if _, err := svc.Lifecycle.StartStep(ctx, batch.Steps[0].ID, nil); err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}
	if _, err := svc.Lifecycle.CompleteStep(ctx, batch.Steps[0].ID, ""); err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}
	if _, err := svc.Lifecycle.SkipStep(ctx, batch.Steps[1].ID, "客户免检"); err != nil {
		t.Fatalf("SkipStep failed: %v", err)
	}

	reloaded, _ := svc.Lifecycle.GetBatch(ctx, batch.ID)
	if reloaded.Status != entity.BatchStatusCompleted {
		t.Fatalf("batch status = %s, want completed", reloaded.Status)
	}
}

// TestLookupByMalformedID 非uuid的路径id按不存在处理而不是落到数据库报错
func TestLookupByMalformedID(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	if _, err := svc.Lifecycle.GetRequest(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRequest = %v, want ErrNotFound", err)
	}
	if _, err := svc.Lifecycle.GetBatch(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBatch = %v, want ErrNotFound", err)
	}
	if _, err := svc.Lifecycle.CompleteStep(ctx, "no-such-id", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteStep = %v, want ErrNotFound", err)
	}
	if _, err := svc.Lifecycle.CancelRequest(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CancelRequest = %v, want ErrNotFound", err)
	}
	if err := svc.Lifecycle.DeleteBatch(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteBatch = %v, want ErrNotFound", err)
	}
	if _, err := svc.Allocation.Allocate(ctx, "no-such-id", 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("Allocate = %v, want ErrNotFound", err)
	}
	if _, err := svc.Lifecycle.CreateBatch(ctx, &CreateBatchRequest{
		RequestID: "no-such-id",
		Quantity:  10,
	}, "test-user"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateBatch = %v, want ErrNotFound", err)
	}

	// 非uuid的过滤条件不可能命中任何行，列表退化为空集而非报错
	items, total, err := svc.Lifecycle.ListBatches(ctx, 1, 20, map[string]string{"request_id": "no-such-id"})
	if err != nil {
		t.Fatalf("ListBatches failed: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("ListBatches on malformed filter = %d items, total %d, want empty", len(items), total)
	}
}

// TestConcurrentCompleteStepOnce 并发重复完成同一道工序只允许一次生效
func TestConcurrentCompleteStepOnce(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)
	stepID := batch.Steps[0].ID
	if _, err := svc.Lifecycle.StartStep(ctx, stepID, nil); err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Lifecycle.CompleteStep(ctx, stepID, "")
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInvalidTransition):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("outcomes = %d succeeded / %d rejected, want exactly one each", succeeded, rejected)
	}

	reloaded, err := svc.Lifecycle.GetStep(ctx, stepID)
	if err != nil {
		t.Fatalf("GetStep failed: %v", err)
	}
	if reloaded.Status != entity.StepStatusCompleted {
		t.Fatalf("step status = %s, want completed", reloaded.Status)
	}
	if reloaded.ActualEnd == nil {
		t.Error("ActualEnd not recorded by the winning completion")
	}
}

// TestConcurrentCancelAndStepTransition 请求取消与工序变更并发时双方都能结束
func TestConcurrentCancelAndStepTransition(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch1 := createBatchWithSteps(t, svc, request.ID)
	batch2 := createBatchWithSteps(t, svc, request.ID)
	if _, err := svc.Lifecycle.StartStep(ctx, batch1.Steps[0].ID, nil); err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}
	if _, err := svc.Lifecycle.StartStep(ctx, batch2.Steps[0].ID, nil); err != nil {
		t.Fatalf("StartStep failed: %v", err)
	}

	var wg sync.WaitGroup
	var cancelErr, completeErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = svc.Lifecycle.CancelRequest(ctx, request.ID)
	}()
	go func() {
		defer wg.Done()
		_, completeErr = svc.Lifecycle.CompleteStep(ctx, batch2.Steps[0].ID, "")
	}()
	wg.Wait()

	if cancelErr != nil {
		t.Fatalf("CancelRequest failed: %v", cancelErr)
	}
	// 完成在取消之前提交则成功，之后则被转换表拒绝，两者都合法
	if completeErr != nil && !errors.Is(completeErr, ErrInvalidTransition) {
		t.Fatalf("CompleteStep failed: %v", completeErr)
	}

	reloaded, err := svc.Lifecycle.GetRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if reloaded.Status != entity.RequestStatusCancelled {
		t.Fatalf("request status = %s, want cancelled", reloaded.Status)
	}
}

// TestMalformedTimestampsRejected 非法时间格式按参数错误拒绝且不落变更
func TestMalformedTimestampsRejected(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	_, err := svc.Lifecycle.CreateRequest(ctx, &CreateRequestRequest{
		ProductName: "变速箱壳体",
		Quantity:    10,
		DueDate:     "2026/10/01",
	}, "test-user")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("bad due_date: got %v, want ErrValidation", err)
	}

	request := createRequest(t, svc)

	_, err = svc.Lifecycle.CreateBatch(ctx, &CreateBatchRequest{
		RequestID:      request.ID,
		Quantity:       5,
		ScheduledStart: "明天上午",
	}, "test-user")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("bad batch scheduled_start: got %v, want ErrValidation", err)
	}

	// 缺时区的日期不是完整的 RFC3339
	_, err = svc.Lifecycle.CreateBatch(ctx, &CreateBatchRequest{
		RequestID: request.ID,
		Quantity:  5,
		Steps: []StepInput{
			{StepName: "铣削", ScheduledStart: "2026-10-01"},
		},
	}, "test-user")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("bad step scheduled_start: got %v, want ErrValidation", err)
	}

	batch := createBatchWithSteps(t, svc, request.ID)
	stepID := batch.Steps[0].ID
	if _, err := svc.Lifecycle.ScheduleStep(ctx, stepID, "not-a-time", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad schedule time: got %v, want ErrValidation", err)
	}
	reloaded, _ := svc.Lifecycle.GetStep(ctx, stepID)
	if reloaded.Status != entity.StepStatusPending {
		t.Errorf("step status mutated to %s on rejected schedule", reloaded.Status)
	}
}

// TestListRequestBatchesAndSteps 按父实体列出子集
func TestListRequestBatchesAndSteps(t *testing.T) {
	_, svc := setupServices(t)
	ctx := context.Background()

	request := createRequest(t, svc)
	batch := createBatchWithSteps(t, svc, request.ID)
	createBatchWithSteps(t, svc, request.ID)

	batches, err := svc.Lifecycle.ListRequestBatches(ctx, request.ID)
	if err != nil {
		t.Fatalf("ListRequestBatches failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}

	steps, err := svc.Lifecycle.ListBatchSteps(ctx, batch.ID)
	if err != nil {
		t.Fatalf("ListBatchSteps failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(steps))
	}
	if steps[0].StepOrder != 1 || steps[1].StepOrder != 2 {
		t.Errorf("steps not ordered: %d, %d", steps[0].StepOrder, steps[1].StepOrder)
	}

	if _, err := svc.Lifecycle.ListBatchSteps(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ListBatchSteps on malformed id = %v, want ErrNotFound", err)
	}
}
