package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pazar-next/internal/cache"
	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/gateway"
	"github.com/pazar-next/internal/logger"
	"github.com/pazar-next/internal/models"
	"github.com/pazar-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundService 退款对账业务服务
// 退货请求状态机即退款单写者闸门: approved → processing 只允许一个执行者推进,
// Redis 锁用于挡住并发重复的渠道调用, 状态机兜底。
type RefundService struct {
	returnRepo     repository.ReturnRepository
	orderRepo      repository.OrderRepository
	settlementRepo repository.SettlementRepository
	creditRepo     repository.CreditRepository
	productRepo    repository.ProductRepository
	userRepo       repository.UserRepository
	sellerRepo     repository.SellerRepository
	dispatcher     *gateway.Dispatcher
	notifier       RefundNotifier
	cfg            *config.SettlementConfig
}

// RefundNotifier 退款通知发送方, 由 EmailService 实现
type RefundNotifier interface {
	SendRefundNotification(toEmail string, input RefundEmailInput) error
}

// NewRefundService 创建退款服务
func NewRefundService(
	returnRepo repository.ReturnRepository,
	orderRepo repository.OrderRepository,
	settlementRepo repository.SettlementRepository,
	creditRepo repository.CreditRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	sellerRepo repository.SellerRepository,
	dispatcher *gateway.Dispatcher,
	notifier RefundNotifier,
	cfg *config.SettlementConfig,
) *RefundService {
	return &RefundService{
		returnRepo:     returnRepo,
		orderRepo:      orderRepo,
		settlementRepo: settlementRepo,
		creditRepo:     creditRepo,
		productRepo:    productRepo,
		userRepo:       userRepo,
		sellerRepo:     sellerRepo,
		dispatcher:     dispatcher,
		notifier:       notifier,
		cfg:            cfg,
	}
}

// CreateReturnInput 创建退货请求输入
type CreateReturnInput struct {
	OrderID      uint
	OrderItemID  *uint // 为空表示整单退货
	UserID       uint
	Reason       string
	RefundMethod string
	RefundAmount decimal.Decimal
}

// CreateReturn 创建退货请求
func (s *RefundService) CreateReturn(input CreateReturnInput) (*models.ReturnRequest, error) {
	if input.OrderID == 0 || input.UserID == 0 {
		return nil, ErrInvalidInput
	}
	if !isValidRefundMethod(input.RefundMethod) {
		return nil, ErrInvalidInput
	}
	if input.RefundAmount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidInput
	}

	order, err := s.orderRepo.GetByIDWithItems(input.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserID != input.UserID {
		return nil, ErrNotFound
	}

	// 可退上限: 单项退货不超过订单项小计, 整单退货不超过实付金额
	limit := order.TotalAmount.Decimal
	if input.OrderItemID != nil {
		item := findOrderItem(order.Items, *input.OrderItemID)
		if item == nil {
			return nil, ErrNotFound
		}
		limit = item.Subtotal.Decimal
	}
	if input.RefundAmount.GreaterThan(limit) {
		return nil, ErrRefundAmountExceeded
	}

	request := &models.ReturnRequest{
		OrderID:      input.OrderID,
		OrderItemID:  input.OrderItemID,
		UserID:       input.UserID,
		Status:       constants.ReturnStatusPending,
		Reason:       input.Reason,
		RefundMethod: input.RefundMethod,
		RefundAmount: models.NewMoneyFromDecimal(input.RefundAmount),
	}
	if err := s.returnRepo.Create(request); err != nil {
		return nil, err
	}
	return request, nil
}

// ApproveReturn 审核通过退货请求
func (s *RefundService) ApproveReturn(returnID uint) (*models.ReturnRequest, error) {
	request, err := s.getReturn(returnID)
	if err != nil {
		return nil, err
	}
	if request.Status != constants.ReturnStatusPending {
		return nil, ErrReturnNotProcessable
	}
	now := time.Now()
	request.Status = constants.ReturnStatusApproved
	request.ApprovedAt = &now
	if err := s.returnRepo.Update(request); err != nil {
		return nil, err
	}
	return request, nil
}

// RejectReturn 拒绝退货请求
func (s *RefundService) RejectReturn(returnID uint, reason string) (*models.ReturnRequest, error) {
	request, err := s.getReturn(returnID)
	if err != nil {
		return nil, err
	}
	if request.Status != constants.ReturnStatusPending {
		return nil, ErrReturnNotProcessable
	}
	request.Status = constants.ReturnStatusRejected
	request.RejectReason = reason
	if err := s.returnRepo.Update(request); err != nil {
		return nil, err
	}
	return request, nil
}

// CancelReturn 买家撤销退货请求, 渠道退款一旦发起不可撤销
func (s *RefundService) CancelReturn(returnID, userID uint) (*models.ReturnRequest, error) {
	request, err := s.getReturn(returnID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && request.UserID != userID {
		return nil, ErrNotFound
	}
	if request.Status != constants.ReturnStatusPending && request.Status != constants.ReturnStatusApproved {
		return nil, ErrReturnNotProcessable
	}
	request.Status = constants.ReturnStatusCanceled
	if err := s.returnRepo.Update(request); err != nil {
		return nil, err
	}
	return request, nil
}

// ProcessRefund 执行退款
// 先调渠道后落库: 宁可渠道成功而本地滞留 processing(巡检补账),
// 不可本地完成而渠道未退款。
func (s *RefundService) ProcessRefund(ctx context.Context, returnID uint) (*models.ReturnRequest, error) {
	locked, err := cache.TryLockRefund(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRefundLocked
	}
	defer func() {
		if err := cache.UnlockRefund(ctx, returnID); err != nil {
			logger.Warnw("退款锁释放失败", "return_id", returnID, "error", err)
		}
	}()

	request, err := s.getReturn(returnID)
	if err != nil {
		return nil, err
	}
	if request.Status != constants.ReturnStatusApproved {
		return nil, ErrReturnNotProcessable
	}

	now := time.Now()
	request.Status = constants.ReturnStatusProcessing
	request.ProcessedAt = &now
	request.FailureReason = ""
	if err := s.returnRepo.Update(request); err != nil {
		return nil, err
	}

	switch request.RefundMethod {
	case constants.RefundMethodOriginal:
		return s.processOriginalRefund(ctx, request)
	case constants.RefundMethodStoreCredit:
		return s.processStoreCreditRefund(ctx, request)
	case constants.RefundMethodBankTransfer:
		return s.processBankTransferRefund(request)
	default:
		return nil, ErrInvalidInput
	}
}

// processOriginalRefund 原路退回: 调用支付渠道
func (s *RefundService) processOriginalRefund(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error) {
	order := &request.Order
	if order.PaymentRef == "" {
		return nil, s.markRefundFailed(request, gateway.ErrMissingPaymentRef.Error())
	}

	// 上次重试可能已在渠道发起过退款(本地落库失败被回退): 先查渠道状态, 绝不二次扣渠道
	if request.GatewayRefundID != "" {
		status, err := s.dispatcher.RefundStatus(ctx, order.PaymentMethod, request.GatewayRefundID)
		if err != nil {
			return nil, s.markRefundFailed(request, err.Error())
		}
		switch status.Status {
		case gateway.RefundStatusSucceeded:
			return s.CompleteRefund(ctx, request.ID)
		case gateway.RefundStatusPending:
			s.notifyRefund(request, "退款处理中")
			return request, nil
		}
		// 渠道确认失败, 清掉旧单号重新发起
		request.GatewayRefundID = ""
	}

	result, err := s.dispatcher.Refund(ctx, order.PaymentMethod, &gateway.RefundInput{
		PaymentRef: order.PaymentRef,
		RefundNo:   refundReference(request.ID),
		Amount:     request.RefundAmount.Decimal,
		OrderTotal: order.TotalAmount.Decimal,
		Currency:   order.Currency,
		Reason:     request.Reason,
	})
	if err != nil {
		return nil, s.markRefundFailed(request, err.Error())
	}

	request.GatewayRefundID = result.RefundID
	if err := s.returnRepo.Update(request); err != nil {
		return nil, err
	}
	logger.Infow("渠道退款已发起",
		"return_id", request.ID,
		"provider", order.PaymentMethod,
		"gateway_refund_id", result.RefundID,
		"gateway_status", result.Status,
	)

	// 渠道异步退款的停留在 processing, 由巡检轮询收尾
	if result.Status == gateway.RefundStatusSucceeded {
		return s.CompleteRefund(ctx, request.ID)
	}
	s.notifyRefund(request, "退款处理中")
	return request, nil
}

// processStoreCreditRefund 退为商城积分, 参考号唯一保证重试不重复加分
func (s *RefundService) processStoreCreditRefund(ctx context.Context, request *models.ReturnRequest) (*models.ReturnRequest, error) {
	reference := refundReference(request.ID)
	existing, err := s.creditRepo.GetTransactionByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		points := request.RefundAmount.Decimal.
			Mul(decimal.NewFromInt(constants.CreditPointsPerCurrencyUnit)).
			Round(0).IntPart()
		returnID := request.ID
		err = s.returnRepo.Transaction(func(tx *gorm.DB) error {
			repo := s.creditRepo.WithTx(tx)
			if err := repo.CreateTransaction(&models.CreditTransaction{
				UserID:          request.UserID,
				Points:          points,
				Direction:       constants.CreditDirectionIn,
				Reference:       reference,
				ReturnRequestID: &returnID,
				Remark:          fmt.Sprintf("订单 %s 退款转积分", request.Order.OrderNo),
			}); err != nil {
				return err
			}
			return repo.AddPoints(tx, request.UserID, points)
		})
		if err != nil {
			return nil, s.markRefundFailed(request, fmt.Sprintf("积分入账失败: %v", err))
		}
	}
	return s.CompleteRefund(ctx, request.ID)
}

// processBankTransferRefund 银行转账退款: 生成待人工处理的客户打款单,
// 财务线下转账后走 CompleteRefund 收尾。单号由退货请求ID派生, 重试不重复建单。
func (s *RefundService) processBankTransferRefund(request *models.ReturnRequest) (*models.ReturnRequest, error) {
	payoutNo := refundTransferNo(request.ID)
	existing, err := s.settlementRepo.GetPayoutByNo(payoutNo)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		userID := request.UserID
		payout := &models.Payout{
			PayoutNo: payoutNo,
			UserID:   &userID,
			Amount:   request.RefundAmount,
			Currency: request.Order.Currency,
			Status:   constants.PayoutStatusScheduled,
			Meta: models.NewManualPayoutMeta(models.ManualPayoutMeta{
				RequiresManualProcessing: true,
				ReturnRequestID:          request.ID,
				Note:                     "客户银行转账退款, 财务人工打款",
			}),
		}
		if err := s.settlementRepo.CreatePayout(payout); err != nil {
			return nil, s.markRefundFailed(request, fmt.Sprintf("转账打款单创建失败: %v", err))
		}
	}
	logger.Infow("退款待人工银行转账",
		"return_id", request.ID,
		"payout_no", payoutNo,
		"amount", request.RefundAmount.String(),
	)
	s.notifyRefund(request, "待银行转账")
	return request, nil
}

// CompleteRefund 完成退款: 卖家账本反冲、负数调整打款单、库存回补、订单状态汇总
// 全部写入在一个事务内, 邮件通知在事务外(失败仅告警)。
func (s *RefundService) CompleteRefund(ctx context.Context, returnID uint) (*models.ReturnRequest, error) {
	request, err := s.getReturn(returnID)
	if err != nil {
		return nil, err
	}
	if request.Status == constants.ReturnStatusCompleted {
		return request, nil
	}
	if request.Status != constants.ReturnStatusProcessing {
		return nil, ErrReturnNotProcessable
	}

	items, err := s.itemsToReverse(request)
	if err != nil {
		return nil, err
	}

	err = s.returnRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.reverseEntries(tx, request, items); err != nil {
			return err
		}
		if err := s.restockItems(tx, items); err != nil {
			return err
		}
		if err := s.rollupOrderStatus(tx, request); err != nil {
			return err
		}

		now := time.Now()
		request.Status = constants.ReturnStatusCompleted
		request.CompletedAt = &now
		request.FailureReason = ""
		return s.returnRepo.WithTx(tx).Update(request)
	})
	if err != nil {
		return nil, s.markRefundFailed(request, err.Error())
	}

	s.notifyRefund(request, "退款完成")
	logger.Infow("退款完成", "return_id", request.ID, "method", request.RefundMethod)
	return request, nil
}

// reverseEntries 为已入账的订单项追加反冲分录, 并按卖家生成负数调整打款单
// 未入账的订单项无需反冲: 退款完成后订单转 refunded, 不再进入结算收集范围
func (s *RefundService) reverseEntries(tx *gorm.DB, request *models.ReturnRequest, items []models.OrderItem) error {
	// 积分退款默认平台承担成本: 卖家账本不反冲, 不生成扣款调整
	if request.RefundMethod == constants.RefundMethodStoreCredit &&
		(s.cfg == nil || !s.cfg.StoreCreditDebitsSeller) {
		return nil
	}

	repo := s.settlementRepo.WithTx(tx)
	sellerDebits := make(map[uint]decimal.Decimal)
	currencies := make(map[uint]string)
	returnID := request.ID

	for _, item := range items {
		earn, err := repo.GetEarnEntryByItemID(item.ID)
		if err != nil {
			return err
		}
		if earn == nil {
			// 未结算的订单项没有可反冲的分录
			continue
		}
		reversed, err := repo.GetReversalEntryByItemID(item.ID)
		if err != nil {
			return err
		}
		if reversed != nil {
			// 此前重试已反冲过, 不再重复扣卖家
			continue
		}
		reversal := &models.SettlementEntry{
			SellerID:         earn.SellerID,
			OrderID:          earn.OrderID,
			OrderItemID:      earn.OrderItemID,
			Direction:        constants.EntryDirectionReversal,
			GrossAmount:      earn.GrossAmount.Neg(),
			CommissionRate:   earn.CommissionRate,
			CommissionAmount: earn.CommissionAmount.Neg(),
			NetAmount:        earn.NetAmount.Neg(),
			ReversedEntryID:  &earn.ID,
			Reason:           fmt.Sprintf("退货请求 %d 反冲", returnID),
		}
		if err := repo.CreateEntry(reversal); err != nil {
			return err
		}
		sellerDebits[earn.SellerID] = sellerDebits[earn.SellerID].Add(earn.NetAmount.Decimal)
		currencies[earn.SellerID] = request.Order.Currency
	}

	for sellerID, debit := range sellerDebits {
		if debit.LessThanOrEqual(decimal.Zero) {
			continue
		}
		meta := models.NewRefundPayoutMeta(models.RefundMeta{
			ReturnRequestID: returnID,
			RefundMethod:    request.RefundMethod,
			GatewayRefundID: request.GatewayRefundID,
		})
		if request.RefundMethod == constants.RefundMethodBankTransfer {
			meta = models.NewManualPayoutMeta(models.ManualPayoutMeta{
				RequiresManualProcessing: true,
				ReturnRequestID:          returnID,
				Note:                     "银行转账退款的卖家扣款调整",
			})
		}
		adjustment := &models.Payout{
			PayoutNo: generatePayoutNo(),
			SellerID: &sellerID,
			Amount:   models.NewMoneyFromDecimal(debit.Neg()),
			Currency: currencies[sellerID],
			Status:   constants.PayoutStatusScheduled,
			Meta:     meta,
		}
		if err := repo.CreatePayout(adjustment); err != nil {
			return err
		}
	}
	return nil
}

func (s *RefundService) restockItems(tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		if err := s.productRepo.IncrementStock(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// rollupOrderStatus 所有订单项都完成退货后, 订单聚合状态置为 refunded
func (s *RefundService) rollupOrderStatus(tx *gorm.DB, request *models.ReturnRequest) error {
	allItems, err := s.orderRepo.WithTx(tx).ListItemsByOrderID(request.OrderID)
	if err != nil {
		return err
	}
	if request.OrderItemID != nil {
		itemIDs := make([]uint, 0, len(allItems))
		for _, item := range allItems {
			if item.ID != *request.OrderItemID {
				itemIDs = append(itemIDs, item.ID)
			}
		}
		if len(itemIDs) > 0 {
			pending, err := s.returnRepo.WithTx(tx).CountPendingCompletionByOrder(request.OrderID, itemIDs)
			if err != nil {
				return err
			}
			// 还有订单项未完成退货, 订单保持原状态
			if pending > 0 {
				return nil
			}
		}
	}
	now := time.Now()
	return s.orderRepo.UpdateStatus(tx, request.OrderID, constants.OrderStatusRefunded, &now)
}

// markRefundFailed 记录失败原因并回退到 approved, 允许重试
func (s *RefundService) markRefundFailed(request *models.ReturnRequest, reason string) error {
	request.Status = constants.ReturnStatusApproved
	request.FailureReason = reason
	if err := s.returnRepo.Update(request); err != nil {
		logger.Errorw("退款失败状态回写失败", "return_id", request.ID, "error", err)
	}
	logger.Errorw("退款处理失败", "return_id", request.ID, "reason", reason)
	return fmt.Errorf("退款处理失败: %s", reason)
}

func (s *RefundService) notifyRefund(request *models.ReturnRequest, statusText string) {
	if s.notifier == nil {
		return
	}
	user, err := s.userRepo.GetByID(request.UserID)
	if err != nil || user == nil {
		logger.Warnw("退款通知收件人查询失败", "return_id", request.ID, "error", err)
		return
	}
	err = s.notifier.SendRefundNotification(user.Email, RefundEmailInput{
		OrderNo:  request.Order.OrderNo,
		Amount:   request.RefundAmount,
		Currency: request.Order.Currency,
		Method:   request.RefundMethod,
		Status:   statusText,
	})
	if err != nil {
		logger.Warnw("退款通知邮件发送失败", "return_id", request.ID, "error", err)
	}
}

func (s *RefundService) itemsToReverse(request *models.ReturnRequest) ([]models.OrderItem, error) {
	if request.OrderItemID != nil {
		if request.OrderItem == nil {
			return nil, ErrNotFound
		}
		return []models.OrderItem{*request.OrderItem}, nil
	}
	return s.orderRepo.ListItemsByOrderID(request.OrderID)
}

func (s *RefundService) getReturn(returnID uint) (*models.ReturnRequest, error) {
	request, err := s.returnRepo.GetByID(returnID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, ErrNotFound
	}
	return request, nil
}

// GetReturn 查询退货请求
func (s *RefundService) GetReturn(returnID uint) (*models.ReturnRequest, error) {
	return s.getReturn(returnID)
}

// ListReturns 分页查询退货请求
func (s *RefundService) ListReturns(filter repository.ReturnListFilter) ([]models.ReturnRequest, int64, error) {
	return s.returnRepo.List(filter)
}

// refundReference 退款幂等参考号, 由退货请求ID派生, 重试不变
func refundReference(returnID uint) string {
	return fmt.Sprintf("RT%d", returnID)
}

// refundTransferNo 银行转账退款打款单号, 同样由退货请求ID派生
func refundTransferNo(returnID uint) string {
	return fmt.Sprintf("RFT%d", returnID)
}

func isValidRefundMethod(method string) bool {
	switch method {
	case constants.RefundMethodOriginal, constants.RefundMethodStoreCredit, constants.RefundMethodBankTransfer:
		return true
	}
	return false
}

func findOrderItem(items []models.OrderItem, itemID uint) *models.OrderItem {
	for i := range items {
		if items[i].ID == itemID {
			return &items[i]
		}
	}
	return nil
}
