package worker

import (
	"context"
	"errors"
	"time"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/logger"
	"github.com/pazar-next/internal/queue"
	"github.com/pazar-next/internal/service"

	"github.com/hibiken/asynq"
)

const (
	defaultReconcileInterval = 5 * time.Minute
	defaultSchedulePeriod    = 24 * time.Hour
)

// Service 异步结算服务, 批次队列与订单队列各一个 asynq 实例, 互不抢占并发额度
type Service struct {
	name        string
	runServer   *asynq.Server
	runMux      *asynq.ServeMux
	orderServer *asynq.Server
	orderMux    *asynq.ServeMux
	consumer    *Consumer
	settlement  *config.SettlementConfig
}

// NewService 创建异步结算服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}

	runOpt, runCfg := queue.BuildRunServerConfig(&cfg.Queue)
	runServer := asynq.NewServer(runOpt, runCfg)
	runMux := asynq.NewServeMux()
	consumer.RegisterRunHandlers(runMux)

	orderOpt, orderCfg := queue.BuildOrderServerConfig(&cfg.Queue)
	orderServer := asynq.NewServer(orderOpt, orderCfg)
	orderMux := asynq.NewServeMux()
	consumer.RegisterOrderHandlers(orderMux)

	return &Service{
		name:        "worker",
		runServer:   runServer,
		runMux:      runMux,
		orderServer: orderServer,
		orderMux:    orderMux,
		consumer:    consumer,
		settlement:  &cfg.Settlement,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.runServer == nil || s.orderServer == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.ReconcileService != nil {
		go s.runReconcileLoop(ctx)
	}
	if s.consumer != nil && s.consumer.SettlementService != nil && s.scheduleInterval() > 0 {
		go s.runScheduleLoop(ctx)
	}
	go func() {
		if err := s.orderServer.Run(s.orderMux); err != nil {
			logger.Errorw("worker_order_server_exit", "error", err)
		}
	}()
	return s.runServer.Run(s.runMux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	_ = ctx
	if s.orderServer != nil {
		s.orderServer.Shutdown()
	}
	if s.runServer != nil {
		s.runServer.Shutdown()
	}
	return nil
}

// runReconcileLoop 周期巡检滞留退款与滞留打款
func (s *Service) runReconcileLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ReconcileService == nil {
		return
	}
	runOnce := func() {
		if err := s.consumer.ReconcileService.ReconcileOnce(ctx); err != nil {
			logger.Warnw("worker_reconcile_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.reconcileInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// runScheduleLoop 周期发起定时结算批次, 账期为 [now-period, now)
func (s *Service) runScheduleLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.SettlementService == nil {
		return
	}
	runOnce := func() {
		end := time.Now()
		start := end.Add(-s.schedulePeriod())
		_, err := s.consumer.SettlementService.StartRun(ctx, service.StartRunInput{
			RunType:     constants.RunTypeScheduled,
			PeriodStart: &start,
			PeriodEnd:   &end,
		})
		if err != nil {
			logger.Warnw("worker_scheduled_run_failed", "error", err)
		}
	}

	ticker := time.NewTicker(s.scheduleInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) reconcileInterval() time.Duration {
	if s != nil && s.settlement != nil && s.settlement.ReconcileIntervalMinutes > 0 {
		return time.Duration(s.settlement.ReconcileIntervalMinutes) * time.Minute
	}
	return defaultReconcileInterval
}

func (s *Service) scheduleInterval() time.Duration {
	if s != nil && s.settlement != nil && s.settlement.ScheduleIntervalMinutes > 0 {
		return time.Duration(s.settlement.ScheduleIntervalMinutes) * time.Minute
	}
	return 0
}

func (s *Service) schedulePeriod() time.Duration {
	if s != nil && s.settlement != nil && s.settlement.SchedulePeriodHours > 0 {
		return time.Duration(s.settlement.SchedulePeriodHours) * time.Hour
	}
	return defaultSchedulePeriod
}
