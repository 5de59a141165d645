package service

import (
	"context"
	"time"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/gateway"
	"github.com/pazar-next/internal/logger"
	"github.com/pazar-next/internal/models"
	"github.com/pazar-next/internal/repository"
)

const defaultStuckRefundAge = 30 * time.Minute

// ReconcileService 滞留退款巡检
// 渠道退款成功但完成写入失败时, 退货单会停在 processing。
// 巡检定期重查渠道状态把这类请求推到终态, 消解双写缺口。
type ReconcileService struct {
	returnRepo     repository.ReturnRepository
	settlementRepo repository.SettlementRepository
	refundService  *RefundService
	dispatcher     *gateway.Dispatcher
	cfg            *config.SettlementConfig
}

// NewReconcileService 创建巡检服务
func NewReconcileService(
	returnRepo repository.ReturnRepository,
	settlementRepo repository.SettlementRepository,
	refundService *RefundService,
	dispatcher *gateway.Dispatcher,
	cfg *config.SettlementConfig,
) *ReconcileService {
	return &ReconcileService{
		returnRepo:     returnRepo,
		settlementRepo: settlementRepo,
		refundService:  refundService,
		dispatcher:     dispatcher,
		cfg:            cfg,
	}
}

// ReconcileOnce 执行一轮巡检
func (s *ReconcileService) ReconcileOnce(ctx context.Context) error {
	olderThan := time.Now().Add(-s.stuckAge())

	stuck, err := s.returnRepo.ListStuckProcessing(olderThan)
	if err != nil {
		return err
	}
	for _, request := range stuck {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.reconcileReturn(ctx, request)
	}

	payouts, err := s.settlementRepo.ListStuckPayouts(olderThan)
	if err != nil {
		return err
	}
	for _, payout := range payouts {
		var sellerID uint
		if payout.SellerID != nil {
			sellerID = *payout.SellerID
		}
		logger.Warnw("打款单长时间处于 processing, 需人工跟进",
			"payout_id", payout.ID,
			"payout_no", payout.PayoutNo,
			"seller_id", sellerID,
			"updated_at", payout.UpdatedAt,
		)
	}
	return nil
}

func (s *ReconcileService) reconcileReturn(ctx context.Context, request models.ReturnRequest) {
	// 银行转账等人工流程没有渠道状态可查, 只告警
	if request.RefundMethod != constants.RefundMethodOriginal || request.GatewayRefundID == "" {
		logger.Warnw("退货请求滞留 processing, 需人工跟进",
			"return_id", request.ID,
			"method", request.RefundMethod,
			"processed_at", request.ProcessedAt,
		)
		return
	}

	result, err := s.dispatcher.RefundStatus(ctx, request.Order.PaymentMethod, request.GatewayRefundID)
	if err != nil {
		logger.Warnw("渠道退款状态查询失败", "return_id", request.ID, "error", err)
		return
	}

	switch result.Status {
	case gateway.RefundStatusSucceeded:
		if _, err := s.refundService.CompleteRefund(ctx, request.ID); err != nil {
			logger.Errorw("滞留退款补账失败", "return_id", request.ID, "error", err)
		} else {
			logger.Infow("滞留退款已补账完成", "return_id", request.ID)
		}
	case gateway.RefundStatusFailed:
		fresh, err := s.returnRepo.GetByID(request.ID)
		if err != nil || fresh == nil || fresh.Status != constants.ReturnStatusProcessing {
			return
		}
		fresh.Status = constants.ReturnStatusApproved
		fresh.FailureReason = "渠道退款失败, 等待重试"
		// 渠道已确认失败的退款单号作废, 重试时重新发起
		fresh.GatewayRefundID = ""
		if err := s.returnRepo.Update(fresh); err != nil {
			logger.Errorw("滞留退款状态回退失败", "return_id", request.ID, "error", err)
		} else {
			logger.Warnw("渠道退款失败, 已回退等待重试", "return_id", request.ID)
		}
	default:
		logger.Debugw("渠道退款仍在处理中", "return_id", request.ID, "gateway_status", result.Status)
	}
}

func (s *ReconcileService) stuckAge() time.Duration {
	if s.cfg != nil && s.cfg.StuckRefundMinutes > 0 {
		return time.Duration(s.cfg.StuckRefundMinutes) * time.Minute
	}
	return defaultStuckRefundAge
}
