package service

import (
	"context"
	"testing"
	"time"

	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/gateway"
	"github.com/pazar-next/internal/models"
	"github.com/pazar-next/internal/repository"
)

func setupReconcileTest(t *testing.T, env *refundTestEnv) *ReconcileService {
	t.Helper()
	return NewReconcileService(
		repository.NewReturnRepository(env.db),
		repository.NewSettlementRepository(env.db),
		env.svc,
		gateway.NewDispatcher(env.gw),
		env.cfg,
	)
}

func TestReconcileCompletesStuckRefund(t *testing.T) {
	env := setupRefundServiceTest(t)
	env.gw.pending = true
	order, item := env.settleOneOrder(t, "100.00")
	request := env.approvedReturn(t, order, item, constants.RefundMethodOriginal, "100.00")

	if _, err := env.svc.ProcessRefund(context.Background(), request.ID); err != nil {
		t.Fatalf("退款失败: %v", err)
	}

	// 模拟处理时间超过滞留阈值
	stale := time.Now().Add(-2 * time.Hour)
	if err := env.db.Model(&models.ReturnRequest{}).
		Where("id = ?", request.ID).
		Update("processed_at", stale).Error; err != nil {
		t.Fatalf("回拨处理时间失败: %v", err)
	}

	reconcile := setupReconcileTest(t, env)
	if err := reconcile.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("巡检失败: %v", err)
	}

	refreshed, err := env.svc.GetReturn(request.ID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if refreshed.Status != constants.ReturnStatusCompleted {
		t.Fatalf("巡检应补账完成: %s", refreshed.Status)
	}
}

func TestReconcileRevertsFailedRefundAndClearsGatewayID(t *testing.T) {
	env := setupRefundServiceTest(t)
	env.gw.pending = true
	order, item := env.settleOneOrder(t, "100.00")
	request := env.approvedReturn(t, order, item, constants.RefundMethodOriginal, "100.00")

	if _, err := env.svc.ProcessRefund(context.Background(), request.ID); err != nil {
		t.Fatalf("退款失败: %v", err)
	}

	stale := time.Now().Add(-2 * time.Hour)
	if err := env.db.Model(&models.ReturnRequest{}).
		Where("id = ?", request.ID).
		Update("processed_at", stale).Error; err != nil {
		t.Fatalf("回拨处理时间失败: %v", err)
	}

	// 渠道确认退款失败: 回退 approved, 作废渠道单号, 重试时重新发起
	env.gw.statusResult = gateway.RefundStatusFailed
	reconcile := setupReconcileTest(t, env)
	if err := reconcile.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("巡检失败: %v", err)
	}

	refreshed, err := env.svc.GetReturn(request.ID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if refreshed.Status != constants.ReturnStatusApproved || refreshed.FailureReason == "" {
		t.Fatalf("巡检应回退等待重试: %+v", refreshed)
	}
	if refreshed.GatewayRefundID != "" {
		t.Fatalf("失败的渠道退款单号应作废: %q", refreshed.GatewayRefundID)
	}
}

func TestReconcileSkipsFreshProcessing(t *testing.T) {
	env := setupRefundServiceTest(t)
	env.gw.pending = true
	order, item := env.settleOneOrder(t, "100.00")
	request := env.approvedReturn(t, order, item, constants.RefundMethodOriginal, "100.00")

	if _, err := env.svc.ProcessRefund(context.Background(), request.ID); err != nil {
		t.Fatalf("退款失败: %v", err)
	}

	reconcile := setupReconcileTest(t, env)
	if err := reconcile.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("巡检失败: %v", err)
	}

	// 未超过滞留阈值, 不应动它
	refreshed, _ := env.svc.GetReturn(request.ID)
	if refreshed.Status != constants.ReturnStatusProcessing {
		t.Fatalf("新鲜的 processing 不应被巡检处理: %s", refreshed.Status)
	}
}
