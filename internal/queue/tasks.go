package queue

import (
	"encoding/json"

	"github.com/pazar-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSettlementRun 结算批次任务
	TaskSettlementRun = constants.TaskSettlementRun
	// TaskOrderSettlement 单笔订单结算任务
	TaskOrderSettlement = constants.TaskOrderSettlement
)

// SettlementRunPayload 结算批次任务载荷
type SettlementRunPayload struct {
	RunID uint `json:"run_id"`
}

// OrderSettlementPayload 单笔订单结算任务载荷
// ReturnRequestID 非零时表示由退款触发的反冲结算
type OrderSettlementPayload struct {
	OrderID         uint `json:"order_id"`
	ReturnRequestID uint `json:"return_request_id,omitempty"`
}

// NewSettlementRunTask 创建结算批次任务
func NewSettlementRunTask(payload SettlementRunPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSettlementRun, body), nil
}

// NewOrderSettlementTask 创建单笔订单结算任务
func NewOrderSettlementTask(payload OrderSettlementPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderSettlement, body), nil
}
