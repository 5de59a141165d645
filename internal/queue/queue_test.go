package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
)

func TestDisabledClientNoop(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	if client.Enabled() {
		t.Fatal("未启用的客户端不应 Enabled")
	}
	if err := client.EnqueueSettlementRun(SettlementRunPayload{RunID: 1}, constants.RunTypeManual); err != nil {
		t.Fatalf("未启用时入队应为空操作: %v", err)
	}
	if err := client.EnqueueOrderSettlement(OrderSettlementPayload{OrderID: 1}); err != nil {
		t.Fatalf("未启用时入队应为空操作: %v", err)
	}
}

func TestRunQueueNameByRunType(t *testing.T) {
	// 订单触发的即时批次才走高优先队列, 定时与手工批次走普通队列
	cases := map[string]string{
		constants.RunTypeOrderTriggered: constants.QueueSettlementsHigh,
		constants.RunTypeManual:         constants.QueueSettlements,
		constants.RunTypeScheduled:      constants.QueueSettlements,
	}
	for runType, want := range cases {
		if got := runQueueName(runType); got != want {
			t.Errorf("%s 批次队列: 期望 %s, 实际 %s", runType, want, got)
		}
	}
}

func TestTaskPayloads(t *testing.T) {
	task, err := NewOrderSettlementTask(OrderSettlementPayload{OrderID: 7, ReturnRequestID: 3})
	if err != nil {
		t.Fatalf("创建任务失败: %v", err)
	}
	if task.Type() != constants.TaskOrderSettlement {
		t.Fatalf("任务类型异常: %s", task.Type())
	}
	var payload OrderSettlementPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("载荷解析失败: %v", err)
	}
	if payload.OrderID != 7 || payload.ReturnRequestID != 3 {
		t.Fatalf("载荷内容异常: %+v", payload)
	}
}

func TestServerConfigs(t *testing.T) {
	cfg := &config.QueueConfig{Enabled: true, RunConcurrency: 2, OrderConcurrency: 10}

	_, runCfg := BuildRunServerConfig(cfg)
	if runCfg.Concurrency != 2 {
		t.Fatalf("批次 worker 并发应为 2, 实际 %d", runCfg.Concurrency)
	}
	if runCfg.Queues[constants.QueueSettlementsHigh] != 10 || runCfg.Queues[constants.QueueSettlements] != 5 {
		t.Fatalf("批次队列权重异常: %+v", runCfg.Queues)
	}
	if _, ok := runCfg.Queues[constants.QueueOrderSettlements]; ok {
		t.Fatal("批次 worker 不应消费订单队列")
	}

	_, orderCfg := BuildOrderServerConfig(cfg)
	if orderCfg.Concurrency != 10 {
		t.Fatalf("订单 worker 并发应为 10, 实际 %d", orderCfg.Concurrency)
	}
	if orderCfg.Queues[constants.QueueOrderSettlements] != 15 {
		t.Fatalf("订单队列权重异常: %+v", orderCfg.Queues)
	}
}

func TestRetryDelayFunc(t *testing.T) {
	fn := RetryDelayFunc(&config.QueueConfig{RetryBaseDelaySeconds: 2})
	cases := map[int]time.Duration{
		0: 2 * time.Second,
		1: 4 * time.Second,
		2: 8 * time.Second,
	}
	for n, want := range cases {
		if got := fn(n, nil, nil); got != want {
			t.Errorf("第 %d 次重试间隔: 期望 %v, 实际 %v", n, want, got)
		}
	}
}
