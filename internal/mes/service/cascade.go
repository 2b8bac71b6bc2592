package service

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
)

// 级联更新器：批次状态是其工序状态的纯函数，请求状态是其批次状态的纯函数。
// 每次派生都基于子集的当前快照整体重算，不做增量修补，
// 因此乱序或重复调用最终收敛到同一结果。派生值与存量相同时不产生写入。

// DeriveBatchStatus 由工序状态集派生批次状态
// 返回派生状态；无法判定（空集或仅 scheduled 混合）时返回当前状态
func DeriveBatchStatus(current string, steps []entity.ProductionStep) string {
	if len(steps) == 0 {
		return current
	}

	var completed, skipped, failed, inProgress, pending int
	for _, step := range steps {
		switch step.Status {
		case entity.StepStatusCompleted:
			completed++
		case entity.StepStatusSkipped:
			skipped++
		case entity.StepStatusFailed:
			failed++
		case entity.StepStatusInProgress:
			inProgress++
		case entity.StepStatusPending:
			pending++
		}
	}

	switch {
	case completed+skipped == len(steps):
		return entity.BatchStatusCompleted
	case failed > 0:
		return entity.BatchStatusOnHold
	case inProgress > 0:
		return entity.BatchStatusInProgress
	case pending == len(steps):
		return entity.BatchStatusPending
	default:
		return current
	}
}

// DeriveRequestStatus 由批次状态集派生请求状态
// 显式取消不走这里（取消是唯一自上而下的级联，见 CancelRequest）
func DeriveRequestStatus(current string, batches []entity.ProductionBatch) string {
	if len(batches) == 0 {
		return current
	}

	allDone := true
	anyInProgress := false
	for _, batch := range batches {
		if batch.Status != entity.BatchStatusCompleted && batch.Status != entity.BatchStatusCancelled {
			allDone = false
		}
		if batch.Status == entity.BatchStatusInProgress {
			anyInProgress = true
		}
	}

	switch {
	case allDone:
		return entity.RequestStatusCompleted
	case anyInProgress:
		return entity.RequestStatusInProduction
	default:
		return current
	}
}
