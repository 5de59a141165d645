package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/pazar-next/internal/commission"
	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/logger"
	"github.com/pazar-next/internal/models"
	"github.com/pazar-next/internal/queue"
	"github.com/pazar-next/internal/repository"

	"gorm.io/gorm"
)

// SettlementService 结算业务服务（批次编排、分账入账、打款单生成）
type SettlementService struct {
	settlementRepo repository.SettlementRepository
	orderRepo      repository.OrderRepository
	sellerRepo     repository.SellerRepository
	resolver       *commission.Resolver
	queueClient    *queue.Client
	cfg            *config.SettlementConfig
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	settlementRepo repository.SettlementRepository,
	orderRepo repository.OrderRepository,
	sellerRepo repository.SellerRepository,
	resolver *commission.Resolver,
	queueClient *queue.Client,
	cfg *config.SettlementConfig,
) *SettlementService {
	return &SettlementService{
		settlementRepo: settlementRepo,
		orderRepo:      orderRepo,
		sellerRepo:     sellerRepo,
		resolver:       resolver,
		queueClient:    queueClient,
		cfg:            cfg,
	}
}

// StartRunInput 创建结算批次输入
type StartRunInput struct {
	RunType     string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	OrderIDs    []uint
}

// StartRun 创建结算批次并推送队列
// 队列未启用时（本地开发、测试）同步处理
func (s *SettlementService) StartRun(ctx context.Context, input StartRunInput) (*models.SettlementRun, error) {
	switch input.RunType {
	case constants.RunTypeManual, constants.RunTypeScheduled:
		if input.PeriodStart == nil || input.PeriodEnd == nil || !input.PeriodEnd.After(*input.PeriodStart) {
			return nil, ErrInvalidInput
		}
	case constants.RunTypeOrderTriggered:
		if len(input.OrderIDs) == 0 {
			return nil, ErrInvalidInput
		}
	default:
		return nil, ErrInvalidInput
	}

	run := &models.SettlementRun{
		RunNo:       generateRunNo(),
		RunType:     input.RunType,
		Status:      constants.RunStatusPending,
		PeriodStart: input.PeriodStart,
		PeriodEnd:   input.PeriodEnd,
		OrderIDs:    input.OrderIDs,
	}
	if err := s.settlementRepo.CreateRun(run); err != nil {
		return nil, err
	}

	if !s.queueClient.Enabled() {
		if err := s.ProcessRun(ctx, run.ID); err != nil {
			return nil, err
		}
		return s.settlementRepo.GetRunByID(run.ID)
	}

	if err := s.queueClient.EnqueueSettlementRun(queue.SettlementRunPayload{RunID: run.ID}, input.RunType); err != nil {
		logger.Errorw("结算批次入队失败", "run_id", run.ID, "error", err)
		run.Status = constants.RunStatusFailed
		run.FailedReason = fmt.Sprintf("入队失败: %v", err)
		if updateErr := s.settlementRepo.UpdateRun(run); updateErr != nil {
			logger.Errorw("结算批次状态回写失败", "run_id", run.ID, "error", updateErr)
		}
		return nil, err
	}
	return run, nil
}

// TriggerOrderSettlement 订单送达后触发单笔结算任务
func (s *SettlementService) TriggerOrderSettlement(ctx context.Context, orderID uint) error {
	if orderID == 0 {
		return ErrInvalidInput
	}
	if !s.queueClient.Enabled() {
		return s.ProcessOrder(ctx, orderID)
	}
	return s.queueClient.EnqueueOrderSettlement(queue.OrderSettlementPayload{OrderID: orderID})
}

// ProcessRun 处理结算批次（队列 worker 入口, 可安全重试）
func (s *SettlementService) ProcessRun(ctx context.Context, runID uint) error {
	run, err := s.settlementRepo.GetRunByID(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return ErrNotFound
	}
	// 重试时允许 processing 的批次继续, 已入账订单项会被幂等跳过
	if run.Status != constants.RunStatusPending && run.Status != constants.RunStatusProcessing {
		logger.Warnw("结算批次状态不允许处理", "run_id", run.ID, "status", run.Status)
		return nil
	}

	now := time.Now()
	run.Status = constants.RunStatusProcessing
	run.StartedAt = &now
	if err := s.settlementRepo.UpdateRun(run); err != nil {
		return err
	}

	items, err := s.collectItems(run)
	if err != nil {
		return s.failRun(run, fmt.Sprintf("收集订单项失败: %v", err))
	}

	result, err := s.settleItems(ctx, run, items)
	if err != nil {
		return s.failRun(run, err.Error())
	}

	finished := time.Now()
	run.SellerCount = result.sellerCount
	run.SettledItems = result.settled
	run.SkippedItems = result.skipped
	run.FinishedAt = &finished
	run.FailureSummary = result.failureSummary()
	// failed 只用于输入集无法读取的整批失败(failRun);
	// 分组层面的失败一律 partially_completed, 修复后重跑补齐
	if len(result.failures) == 0 {
		run.Status = constants.RunStatusCompleted
	} else {
		run.Status = constants.RunStatusPartiallyCompleted
	}
	if err := s.settlementRepo.UpdateRun(run); err != nil {
		return err
	}

	logger.Infow("结算批次处理完成",
		"run_id", run.ID,
		"status", run.Status,
		"sellers", run.SellerCount,
		"settled_items", run.SettledItems,
		"skipped_items", run.SkippedItems,
		"failed_sellers", len(result.failures),
	)
	return nil
}

// ProcessOrder 处理单笔订单结算（订单触发队列 worker 入口）
// 为该订单落一条 order_triggered 批次记录, 与账期批次共用结算核心
func (s *SettlementService) ProcessOrder(ctx context.Context, orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrNotFound
	}
	if !isSettleableStatus(order.Status) {
		logger.Warnw("订单状态不可结算, 跳过", "order_id", orderID, "status", order.Status)
		return nil
	}

	run := &models.SettlementRun{
		RunNo:    generateRunNo(),
		RunType:  constants.RunTypeOrderTriggered,
		Status:   constants.RunStatusPending,
		OrderIDs: []uint{orderID},
	}
	if err := s.settlementRepo.CreateRun(run); err != nil {
		return err
	}
	return s.ProcessRun(ctx, run.ID)
}

func (s *SettlementService) collectItems(run *models.SettlementRun) ([]models.OrderItem, error) {
	if len(run.OrderIDs) > 0 {
		return s.orderRepo.ListItemsForOrders(constants.SettleableOrderStatuses, run.OrderIDs)
	}
	if run.PeriodStart == nil || run.PeriodEnd == nil {
		return nil, ErrInvalidInput
	}
	return s.orderRepo.ListItemsForPeriod(constants.SettleableOrderStatuses, *run.PeriodStart, *run.PeriodEnd)
}

type settleResult struct {
	sellerCount int
	settled     int
	skipped     int
	failures    map[uint]string
}

func (r *settleResult) failureSummary() models.JSON {
	if len(r.failures) == 0 {
		return nil
	}
	summary := make(models.JSON, len(r.failures))
	for sellerID, reason := range r.failures {
		summary[fmt.Sprintf("%d", sellerID)] = reason
	}
	return summary
}

// settleItems 按卖家分组入账
// 每个卖家分组一个事务: 组内失败只影响该卖家, 其他分组继续
func (s *SettlementService) settleItems(ctx context.Context, run *models.SettlementRun, items []models.OrderItem) (*settleResult, error) {
	result := &settleResult{failures: make(map[uint]string)}
	if len(items) == 0 {
		return result, nil
	}

	itemIDs := make([]uint, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}
	settled, err := s.settlementRepo.SettledItemIDs(itemIDs)
	if err != nil {
		return nil, fmt.Errorf("查询已结算订单项失败: %v", err)
	}

	groups := make(map[uint][]models.OrderItem)
	for _, item := range items {
		if settled[item.ID] {
			result.skipped++
			continue
		}
		groups[item.SellerID] = append(groups[item.SellerID], item)
	}
	if len(groups) == 0 {
		return result, nil
	}

	sellerIDs := make([]uint, 0, len(groups))
	for sellerID := range groups {
		sellerIDs = append(sellerIDs, sellerID)
	}
	sort.Slice(sellerIDs, func(i, j int) bool { return sellerIDs[i] < sellerIDs[j] })

	sellers, err := s.sellerRepo.GetByIDs(sellerIDs)
	if err != nil {
		return nil, fmt.Errorf("加载卖家档案失败: %v", err)
	}

	result.sellerCount = len(groups)
	for _, sellerID := range sellerIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		group := groups[sellerID]
		seller, ok := sellers[sellerID]
		if !ok {
			result.failures[sellerID] = "卖家档案不存在"
			continue
		}
		if seller.Status != constants.SellerStatusActive {
			result.failures[sellerID] = ErrSellerInactive.Error()
			continue
		}
		count, err := s.settleSellerGroup(run, &seller, group)
		if err != nil {
			logger.Errorw("卖家分组结算失败", "run_id", run.ID, "seller_id", sellerID, "error", err)
			result.failures[sellerID] = err.Error()
			continue
		}
		result.settled += count
	}
	return result, nil
}

// settleSellerGroup 单个卖家组的入账事务: 分录 + 打款单一起落库
func (s *SettlementService) settleSellerGroup(run *models.SettlementRun, seller *models.SellerProfile, items []models.OrderItem) (int, error) {
	settledCount := 0
	err := s.settlementRepo.Transaction(func(tx *gorm.DB) error {
		repo := s.settlementRepo.WithTx(tx)
		runID := run.ID

		payout := &models.Payout{
			PayoutNo: generatePayoutNo(),
			SellerID: &seller.ID,
			RunID:    &runID,
			Currency: s.currency(),
			Status:   constants.PayoutStatusScheduled,
		}
		if err := repo.CreatePayout(payout); err != nil {
			return err
		}

		total := models.Money{}
		for _, item := range items {
			split, err := s.resolver.Resolve(seller.SellerType, item.Subtotal.Decimal, seller.CustomCommissionRate)
			if err != nil {
				return fmt.Errorf("订单项 %d 佣金计算失败: %w", item.ID, err)
			}
			entry := &models.SettlementEntry{
				RunID:            &runID,
				SellerID:         seller.ID,
				OrderID:          item.OrderID,
				OrderItemID:      item.ID,
				Direction:        constants.EntryDirectionEarn,
				GrossAmount:      item.Subtotal,
				CommissionRate:   split.Rate,
				CommissionAmount: models.NewMoneyFromDecimal(split.Commission),
				NetAmount:        models.NewMoneyFromDecimal(split.Net),
				PayoutID:         &payout.ID,
			}
			if err := repo.CreateEntry(entry); err != nil {
				return err
			}
			total = models.NewMoneyFromDecimal(total.Decimal.Add(split.Net))
			settledCount++
		}

		payout.Amount = total
		return repo.UpdatePayout(payout)
	})
	if err != nil {
		return 0, err
	}
	return settledCount, nil
}

func (s *SettlementService) failRun(run *models.SettlementRun, reason string) error {
	now := time.Now()
	run.Status = constants.RunStatusFailed
	run.FailedReason = reason
	run.FinishedAt = &now
	if err := s.settlementRepo.UpdateRun(run); err != nil {
		logger.Errorw("结算批次失败状态回写失败", "run_id", run.ID, "error", err)
	}
	return fmt.Errorf("结算批次 %d 失败: %s", run.ID, reason)
}

func (s *SettlementService) currency() string {
	if s.cfg != nil && strings.TrimSpace(s.cfg.DefaultCurrency) != "" {
		return s.cfg.DefaultCurrency
	}
	return "TRY"
}

// GetRun 查询结算批次
func (s *SettlementService) GetRun(runID uint) (*models.SettlementRun, error) {
	run, err := s.settlementRepo.GetRunByID(runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNotFound
	}
	return run, nil
}

// ListRuns 分页查询结算批次
func (s *SettlementService) ListRuns(filter repository.SettlementRunListFilter) ([]models.SettlementRun, int64, error) {
	return s.settlementRepo.ListRuns(filter)
}

// ListEntries 分页查询结算分录
func (s *SettlementService) ListEntries(filter repository.SettlementEntryListFilter) ([]models.SettlementEntry, int64, error) {
	return s.settlementRepo.ListEntries(filter)
}

// ListPayouts 分页查询打款单
func (s *SettlementService) ListPayouts(filter repository.PayoutListFilter) ([]models.Payout, int64, error) {
	return s.settlementRepo.ListPayouts(filter)
}

// GetSellerSnapshot 查询卖家财务快照
func (s *SettlementService) GetSellerSnapshot(sellerID uint) (*repository.SellerSnapshot, error) {
	seller, err := s.sellerRepo.GetByID(sellerID)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, ErrNotFound
	}

	snapshot, err := s.settlementRepo.SellerSnapshot(sellerID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrNotFound
	}
	return snapshot, nil
}

// MarkPayoutProcessing 打款开始执行
func (s *SettlementService) MarkPayoutProcessing(payoutID uint) (*models.Payout, error) {
	payout, err := s.settlementRepo.GetPayoutByID(payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrNotFound
	}
	if payout.Status != constants.PayoutStatusScheduled {
		return nil, ErrPayoutNotProcessable
	}
	payout.Status = constants.PayoutStatusProcessing
	if err := s.settlementRepo.UpdatePayout(payout); err != nil {
		return nil, err
	}
	return payout, nil
}

// MarkPayoutPaid 打款完成
func (s *SettlementService) MarkPayoutPaid(payoutID uint) (*models.Payout, error) {
	payout, err := s.settlementRepo.GetPayoutByID(payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrNotFound
	}
	if payout.Status != constants.PayoutStatusScheduled && payout.Status != constants.PayoutStatusProcessing {
		return nil, ErrPayoutNotProcessable
	}
	now := time.Now()
	payout.Status = constants.PayoutStatusPaid
	payout.PaidAt = &now
	payout.FailedReason = ""
	if err := s.settlementRepo.UpdatePayout(payout); err != nil {
		return nil, err
	}
	return payout, nil
}

// MarkPayoutFailed 打款失败
func (s *SettlementService) MarkPayoutFailed(payoutID uint, reason string) (*models.Payout, error) {
	payout, err := s.settlementRepo.GetPayoutByID(payoutID)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrNotFound
	}
	if payout.Status == constants.PayoutStatusPaid {
		return nil, ErrPayoutNotProcessable
	}
	payout.Status = constants.PayoutStatusFailed
	payout.FailedReason = reason
	if err := s.settlementRepo.UpdatePayout(payout); err != nil {
		return nil, err
	}
	return payout, nil
}

func isSettleableStatus(status string) bool {
	for _, s := range constants.SettleableOrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func generateRunNo() string {
	return fmt.Sprintf("SR%s%s", time.Now().Format("20060102150405"), randNumeric(6))
}

func generatePayoutNo() string {
	return fmt.Sprintf("PO%s%s", time.Now().Format("20060102150405"), randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
