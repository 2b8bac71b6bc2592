package entity

// 实体类型名，用于状态转换错误信息
const (
	EntityRequest    = "request"
	EntityBatch      = "batch"
	EntityStep       = "step"
	EntityAllocation = "allocation"
)

// 各实体的合法状态转换表，是状态迁移的唯一事实来源
// 不在表中的边一律拒绝，终态没有出边

var stepTransitions = map[string][]string{
	StepStatusPending:    {StepStatusScheduled, StepStatusInProgress, StepStatusCancelled, StepStatusSkipped},
	StepStatusScheduled:  {StepStatusInProgress, StepStatusCancelled, StepStatusSkipped},
	StepStatusInProgress: {StepStatusCompleted, StepStatusFailed, StepStatusCancelled},
}

var batchTransitions = map[string][]string{
	BatchStatusPending:    {BatchStatusScheduled, BatchStatusInProgress, BatchStatusCancelled},
	BatchStatusScheduled:  {BatchStatusInProgress, BatchStatusCancelled},
	BatchStatusInProgress: {BatchStatusCompleted, BatchStatusOnHold, BatchStatusCancelled},
	BatchStatusOnHold:     {BatchStatusInProgress, BatchStatusCancelled},
}

var requestTransitions = map[string][]string{
	RequestStatusReceived:     {RequestStatusPlanned, RequestStatusCancelled},
	RequestStatusPlanned:      {RequestStatusInProduction, RequestStatusCancelled},
	RequestStatusInProduction: {RequestStatusCompleted, RequestStatusCancelled},
}

var allocationTransitions = map[string][]string{
	AllocationStatusPending:   {AllocationStatusPartial, AllocationStatusAllocated},
	AllocationStatusPartial:   {AllocationStatusPartial, AllocationStatusAllocated},
	AllocationStatusAllocated: {AllocationStatusConsumed},
}

func transitionAllowed(table map[string][]string, from, to string) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StepTransitionAllowed 工序状态转换是否合法
func StepTransitionAllowed(from, to string) bool {
	return transitionAllowed(stepTransitions, from, to)
}

// BatchTransitionAllowed 批次状态转换是否合法
func BatchTransitionAllowed(from, to string) bool {
	return transitionAllowed(batchTransitions, from, to)
}

// RequestTransitionAllowed 请求状态转换是否合法
func RequestTransitionAllowed(from, to string) bool {
	return transitionAllowed(requestTransitions, from, to)
}

// AllocationTransitionAllowed 物料分配状态转换是否合法
func AllocationTransitionAllowed(from, to string) bool {
	return transitionAllowed(allocationTransitions, from, to)
}

// IsTerminalStepStatus 工序终态: completed/failed/cancelled/skipped
func IsTerminalStepStatus(s string) bool {
	return len(stepTransitions[s]) == 0
}

// IsTerminalBatchStatus 批次终态: completed/cancelled
func IsTerminalBatchStatus(s string) bool {
	return len(batchTransitions[s]) == 0
}

// IsTerminalRequestStatus 请求终态: completed/cancelled
func IsTerminalRequestStatus(s string) bool {
	return len(requestTransitions[s]) == 0
}
