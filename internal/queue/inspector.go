package queue

import (
	"errors"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"

	"github.com/hibiken/asynq"
)

// ErrInspectorDisabled 队列未启用时的巡检错误
var ErrInspectorDisabled = errors.New("队列未启用")

// settlementQueues 本系统使用的全部队列
var settlementQueues = []string{
	constants.QueueOrderSettlements,
	constants.QueueSettlementsHigh,
	constants.QueueSettlements,
}

// QueueStats 单个队列的运行统计
type QueueStats struct {
	Queue     string `json:"queue"`
	Priority  int    `json:"priority"`
	Paused    bool   `json:"paused"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"` // 重试耗尽的死信任务
	Completed int    `json:"completed"`
}

// ArchivedTask 死信任务摘要
type ArchivedTask struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Queue     string `json:"queue"`
	Payload   string `json:"payload"`
	LastError string `json:"last_error"`
	Retried   int    `json:"retried"`
}

// Inspector 队列巡检与运维控制
type Inspector struct {
	inspector *asynq.Inspector
}

// NewInspector 创建队列巡检器, 队列关闭时返回空实现
func NewInspector(cfg *config.QueueConfig) *Inspector {
	if cfg == nil || !cfg.Enabled {
		return &Inspector{}
	}
	return &Inspector{inspector: asynq.NewInspector(BuildRedisOpt(cfg))}
}

// Enabled 判断是否可用
func (i *Inspector) Enabled() bool {
	return i != nil && i.inspector != nil
}

// Stats 汇总全部结算队列的统计
func (i *Inspector) Stats() ([]QueueStats, error) {
	if !i.Enabled() {
		return nil, ErrInspectorDisabled
	}
	stats := make([]QueueStats, 0, len(settlementQueues))
	for _, name := range settlementQueues {
		info, err := i.inspector.GetQueueInfo(name)
		if err != nil {
			// 从未入过任务的队列在 Redis 中不存在
			stats = append(stats, QueueStats{Queue: name, Priority: constants.QueuePriorities[name]})
			continue
		}
		stats = append(stats, QueueStats{
			Queue:     name,
			Priority:  constants.QueuePriorities[name],
			Paused:    info.Paused,
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Archived:  info.Archived,
			Completed: info.Completed,
		})
	}
	return stats, nil
}

// PauseWorkers 暂停全部结算队列的消费, 已入队任务保留
func (i *Inspector) PauseWorkers() error {
	if !i.Enabled() {
		return ErrInspectorDisabled
	}
	for _, name := range settlementQueues {
		if err := i.inspector.PauseQueue(name); err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			return err
		}
	}
	return nil
}

// ResumeWorkers 恢复全部结算队列的消费
func (i *Inspector) ResumeWorkers() error {
	if !i.Enabled() {
		return ErrInspectorDisabled
	}
	for _, name := range settlementQueues {
		if err := i.inspector.UnpauseQueue(name); err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			return err
		}
	}
	return nil
}

// ListArchived 列出死信任务, 供人工排查重试耗尽的结算
func (i *Inspector) ListArchived(queueName string, page, size int) ([]ArchivedTask, error) {
	if !i.Enabled() {
		return nil, ErrInspectorDisabled
	}
	tasks, err := i.inspector.ListArchivedTasks(queueName, asynq.Page(page), asynq.PageSize(size))
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return []ArchivedTask{}, nil
		}
		return nil, err
	}
	result := make([]ArchivedTask, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, ArchivedTask{
			ID:        t.ID,
			Type:      t.Type,
			Queue:     t.Queue,
			Payload:   string(t.Payload),
			LastError: t.LastErr,
			Retried:   t.Retried,
		})
	}
	return result, nil
}

// Close 释放巡检器连接
func (i *Inspector) Close() error {
	if !i.Enabled() {
		return nil
	}
	return i.inspector.Close()
}
