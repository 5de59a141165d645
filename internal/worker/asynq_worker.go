package worker

import (
	"context"
	"encoding/json"

	"github.com/pazar-next/internal/logger"
	"github.com/pazar-next/internal/provider"
	"github.com/pazar-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 结算任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// RegisterRunHandlers 注册结算批次任务处理器
func (c *Consumer) RegisterRunHandlers(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSettlementRun, c.handleSettlementRun)
}

// RegisterOrderHandlers 注册单笔订单结算任务处理器
func (c *Consumer) RegisterOrderHandlers(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderSettlement, c.handleOrderSettlement)
}

func (c *Consumer) handleSettlementRun(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_settlement_run_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.SettlementRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_settlement_run_unmarshal_failed", "error", err)
		return err
	}
	if payload.RunID == 0 {
		logger.Debugw("worker_settlement_run_skip_invalid_payload", "run_id", payload.RunID)
		return nil
	}
	if c.SettlementService == nil {
		logger.Warnw("worker_settlement_run_skip_service_nil", "run_id", payload.RunID)
		return nil
	}
	if err := c.SettlementService.ProcessRun(ctx, payload.RunID); err != nil {
		logger.Warnw("worker_settlement_run_failed", "run_id", payload.RunID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderSettlement(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_settlement_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderSettlementPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_settlement_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_settlement_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.SettlementService == nil {
		logger.Warnw("worker_order_settlement_skip_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.SettlementService.ProcessOrder(ctx, payload.OrderID); err != nil {
		logger.Warnw("worker_order_settlement_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}
