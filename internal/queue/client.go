package queue

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	defaultMaxRetry       = 3
	defaultRunTimeout     = 5 * time.Minute
	defaultOrderTimeout   = 30 * time.Second
	defaultRetryBaseDelay = 2 * time.Second
)

// Client 队列客户端封装
type Client struct {
	client  *asynq.Client
	cfg     *config.QueueConfig
	enabled bool
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, cfg: cfg}, nil
	}
	client := asynq.NewClient(BuildRedisOpt(cfg))
	return &Client{client: client, cfg: cfg, enabled: true}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueSettlementRun 推送结算批次任务
func (c *Client) EnqueueSettlementRun(payload SettlementRunPayload, runType string) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewSettlementRunTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task,
		asynq.Queue(runQueueName(runType)),
		asynq.MaxRetry(c.maxRetry()),
		asynq.Timeout(c.runTimeout()),
	)
	return err
}

// runQueueName 订单触发的即时批次进高优先队列, 定时与手工批次进普通队列
func runQueueName(runType string) string {
	if runType == constants.RunTypeOrderTriggered {
		return constants.QueueSettlementsHigh
	}
	return constants.QueueSettlements
}

// EnqueueOrderSettlement 推送单笔订单结算任务
func (c *Client) EnqueueOrderSettlement(payload OrderSettlementPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewOrderSettlementTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task,
		asynq.Queue(constants.QueueOrderSettlements),
		asynq.MaxRetry(c.maxRetry()),
		asynq.Timeout(c.orderTimeout()),
	)
	return err
}

func (c *Client) maxRetry() int {
	if c.cfg != nil && c.cfg.MaxRetry > 0 {
		return c.cfg.MaxRetry
	}
	return defaultMaxRetry
}

func (c *Client) runTimeout() time.Duration {
	if c.cfg != nil && c.cfg.RunTimeoutMinutes > 0 {
		return time.Duration(c.cfg.RunTimeoutMinutes) * time.Minute
	}
	return defaultRunTimeout
}

func (c *Client) orderTimeout() time.Duration {
	if c.cfg != nil && c.cfg.OrderTimeoutSeconds > 0 {
		return time.Duration(c.cfg.OrderTimeoutSeconds) * time.Second
	}
	return defaultOrderTimeout
}

// RetryDelayFunc 指数退避重试, 基础间隔随失败次数翻倍
func RetryDelayFunc(cfg *config.QueueConfig) asynq.RetryDelayFunc {
	base := defaultRetryBaseDelay
	if cfg != nil && cfg.RetryBaseDelaySeconds > 0 {
		base = time.Duration(cfg.RetryBaseDelaySeconds) * time.Second
	}
	return func(n int, err error, task *asynq.Task) time.Duration {
		return base * time.Duration(math.Pow(2, float64(n)))
	}
}

// BuildRunServerConfig 结算批次 worker 配置, 批次与订单队列按权重混抢
func BuildRunServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 2
	if cfg != nil && cfg.RunConcurrency > 0 {
		concurrency = cfg.RunConcurrency
	}
	return BuildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			constants.QueueSettlementsHigh: constants.QueuePriorities[constants.QueueSettlementsHigh],
			constants.QueueSettlements:     constants.QueuePriorities[constants.QueueSettlements],
		},
		RetryDelayFunc: RetryDelayFunc(cfg),
	}
}

// BuildOrderServerConfig 单笔订单结算 worker 配置
func BuildOrderServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	if cfg != nil && cfg.OrderConcurrency > 0 {
		concurrency = cfg.OrderConcurrency
	}
	return BuildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			constants.QueueOrderSettlements: constants.QueuePriorities[constants.QueueOrderSettlements],
		},
		RetryDelayFunc: RetryDelayFunc(cfg),
	}
}

// BuildRedisOpt 生成 asynq Redis 连接参数
func BuildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
