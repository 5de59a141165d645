package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pazar-next/internal/commission"
	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/models"
	"github.com/pazar-next/internal/queue"
	"github.com/pazar-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupSettlementServiceTest(t *testing.T) (*SettlementService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:settlement_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.SellerProfile{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.SettlementRun{},
		&models.SettlementEntry{},
		&models.Payout{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	resolver := commission.NewResolver(
		decimal.RequireFromString("0.10"),
		decimal.RequireFromString("0.08"),
	)
	queueClient, err := queue.NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}
	svc := NewSettlementService(
		repository.NewSettlementRepository(db),
		repository.NewOrderRepository(db),
		repository.NewSellerRepository(db),
		resolver,
		queueClient,
		&config.SettlementConfig{DefaultCurrency: "TRY"},
	)
	return svc, db
}

func createTestSeller(t *testing.T, db *gorm.DB, id uint, sellerType string, customRate *decimal.Decimal) {
	t.Helper()
	seller := models.SellerProfile{
		ID:                   id,
		UserID:               id + 1000,
		ShopName:             fmt.Sprintf("shop-%d", id),
		SellerType:           sellerType,
		CustomCommissionRate: customRate,
		Status:               constants.SellerStatusActive,
	}
	if err := db.Create(&seller).Error; err != nil {
		t.Fatalf("create seller failed: %v", err)
	}
}

func createDeliveredOrder(t *testing.T, db *gorm.DB, orderNo string, deliveredAt time.Time, items ...models.OrderItem) *models.Order {
	t.Helper()
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal.Decimal)
	}
	order := &models.Order{
		OrderNo:       orderNo,
		UserID:        1,
		Status:        constants.OrderStatusDelivered,
		Currency:      "TRY",
		TotalAmount:   models.NewMoneyFromDecimal(total),
		PaymentMethod: constants.PaymentProviderStripe,
		PaymentRef:    "pi_" + orderNo,
		DeliveredAt:   &deliveredAt,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	for i := range items {
		items[i].OrderID = order.ID
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("create order item failed: %v", err)
		}
	}
	return order
}

func testItem(sellerID uint, subtotal string) models.OrderItem {
	amount, _ := models.NewMoneyFromString(subtotal)
	return models.OrderItem{
		SellerID:  sellerID,
		ProductID: sellerID * 10,
		Title:     "item",
		Quantity:  1,
		UnitPrice: amount,
		Subtotal:  amount,
	}
}

func TestStartRunSettlesPeriod(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	createTestSeller(t, db, 1, constants.SellerTypeIndividual, nil)
	createTestSeller(t, db, 2, constants.SellerTypeCorporate, nil)

	delivered := time.Now().Add(-24 * time.Hour)
	createDeliveredOrder(t, db, "O1", delivered, testItem(1, "100.00"), testItem(2, "50.00"))

	start := delivered.Add(-time.Hour)
	end := time.Now()
	run, err := svc.StartRun(context.Background(), StartRunInput{
		RunType:     constants.RunTypeManual,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != constants.RunStatusCompleted {
		t.Fatalf("批次应完成, 实际: %s (%s)", run.Status, run.FailedReason)
	}
	if run.SettledItems != 2 || run.SellerCount != 2 {
		t.Fatalf("入账统计异常: %+v", run)
	}

	// 个人卖家 100 按 10% 抽佣
	var entry models.SettlementEntry
	if err := db.Where("seller_id = ?", 1).First(&entry).Error; err != nil {
		t.Fatalf("查询分录失败: %v", err)
	}
	if entry.CommissionAmount.Decimal.StringFixed(2) != "10.00" || entry.NetAmount.Decimal.StringFixed(2) != "90.00" {
		t.Fatalf("个人卖家分账异常: commission=%s net=%s", entry.CommissionAmount, entry.NetAmount)
	}

	// 企业卖家 50 按 8% 抽佣
	entry = models.SettlementEntry{}
	if err := db.Where("seller_id = ?", 2).First(&entry).Error; err != nil {
		t.Fatalf("查询分录失败: %v", err)
	}
	if entry.CommissionAmount.Decimal.StringFixed(2) != "4.00" || entry.NetAmount.Decimal.StringFixed(2) != "46.00" {
		t.Fatalf("企业卖家分账异常: commission=%s net=%s", entry.CommissionAmount, entry.NetAmount)
	}

	// 打款单金额等于净额合计
	var payout models.Payout
	if err := db.Where("seller_id = ?", 1).First(&payout).Error; err != nil {
		t.Fatalf("查询打款单失败: %v", err)
	}
	if payout.Amount.Decimal.StringFixed(2) != "90.00" || payout.Status != constants.PayoutStatusScheduled {
		t.Fatalf("打款单异常: %+v", payout)
	}
}

func TestProcessRunIdempotentRerun(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	createTestSeller(t, db, 1, constants.SellerTypeIndividual, nil)

	delivered := time.Now().Add(-24 * time.Hour)
	createDeliveredOrder(t, db, "O1", delivered, testItem(1, "100.00"))

	start := delivered.Add(-time.Hour)
	end := time.Now()
	input := StartRunInput{RunType: constants.RunTypeManual, PeriodStart: &start, PeriodEnd: &end}

	if _, err := svc.StartRun(context.Background(), input); err != nil {
		t.Fatalf("第一次结算失败: %v", err)
	}
	second, err := svc.StartRun(context.Background(), input)
	if err != nil {
		t.Fatalf("第二次结算失败: %v", err)
	}
	if second.SettledItems != 0 || second.SkippedItems != 1 {
		t.Fatalf("重跑应全部跳过: %+v", second)
	}

	var count int64
	db.Model(&models.SettlementEntry{}).Count(&count)
	if count != 1 {
		t.Fatalf("重复入账: 分录数 %d", count)
	}
}

func TestProcessRunPartialFailure(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	createTestSeller(t, db, 1, constants.SellerTypeIndividual, nil)
	// 卖家 2 档案缺失, 其分组应失败但不影响卖家 1

	delivered := time.Now().Add(-24 * time.Hour)
	createDeliveredOrder(t, db, "O1", delivered, testItem(1, "100.00"), testItem(2, "50.00"))

	start := delivered.Add(-time.Hour)
	end := time.Now()
	run, err := svc.StartRun(context.Background(), StartRunInput{
		RunType:     constants.RunTypeManual,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != constants.RunStatusPartiallyCompleted {
		t.Fatalf("期望部分完成, 实际: %s", run.Status)
	}
	if run.SettledItems != 1 {
		t.Fatalf("卖家 1 应正常入账: %+v", run)
	}
	if run.FailureSummary == nil || run.FailureSummary["2"] == nil {
		t.Fatalf("失败摘要应记录卖家 2: %+v", run.FailureSummary)
	}
}

func TestProcessRunAllGroupsFailedEndsPartiallyCompleted(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	// 唯一参与卖家档案缺失: 分组失败不是批次失败, 修复档案后可重跑补齐
	delivered := time.Now().Add(-24 * time.Hour)
	createDeliveredOrder(t, db, "O1", delivered, testItem(1, "100.00"))

	start := delivered.Add(-time.Hour)
	end := time.Now()
	run, err := svc.StartRun(context.Background(), StartRunInput{
		RunType:     constants.RunTypeManual,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != constants.RunStatusPartiallyCompleted {
		t.Fatalf("全组失败应为部分完成而非 failed: %s", run.Status)
	}
	if run.SettledItems != 0 || run.FailureSummary == nil || run.FailureSummary["1"] == nil {
		t.Fatalf("失败摘要应记录卖家 1: %+v", run)
	}
}

func TestRunRerunAfterFixingSellerProfile(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	createTestSeller(t, db, 1, constants.SellerTypeIndividual, nil)
	// 卖家 2 档案缺失, 首跑只入账卖家 1

	delivered := time.Now().Add(-24 * time.Hour)
	createDeliveredOrder(t, db, "O1", delivered, testItem(1, "100.00"), testItem(2, "50.00"))

	start := delivered.Add(-time.Hour)
	end := time.Now()
	input := StartRunInput{RunType: constants.RunTypeManual, PeriodStart: &start, PeriodEnd: &end}

	first, err := svc.StartRun(context.Background(), input)
	if err != nil {
		t.Fatalf("首跑失败: %v", err)
	}
	if first.Status != constants.RunStatusPartiallyCompleted || first.SettledItems != 1 {
		t.Fatalf("首跑应部分完成: %+v", first)
	}

	// 补建缺失档案后重跑同一账期: 只补缺口, 已完成分组不重复
	createTestSeller(t, db, 2, constants.SellerTypeCorporate, nil)
	second, err := svc.StartRun(context.Background(), input)
	if err != nil {
		t.Fatalf("重跑失败: %v", err)
	}
	if second.Status != constants.RunStatusCompleted {
		t.Fatalf("重跑应完成: %+v", second)
	}
	if second.SettledItems != 1 || second.SkippedItems != 1 {
		t.Fatalf("重跑应只入账缺失分组: %+v", second)
	}

	var count int64
	db.Model(&models.Payout{}).Where("seller_id = ?", 1).Count(&count)
	if count != 1 {
		t.Fatalf("已完成分组不应产生重复打款单: %d", count)
	}
	db.Model(&models.Payout{}).Where("seller_id = ?", 2).Count(&count)
	if count != 1 {
		t.Fatalf("缺失分组应补齐打款单: %d", count)
	}
	db.Model(&models.SettlementEntry{}).Count(&count)
	if count != 2 {
		t.Fatalf("分录总数应为 2: %d", count)
	}
}

func TestProcessRunCustomRate(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	rate := decimal.RequireFromString("0.05")
	createTestSeller(t, db, 1, constants.SellerTypeIndividual, &rate)

	delivered := time.Now().Add(-24 * time.Hour)
	createDeliveredOrder(t, db, "O1", delivered, testItem(1, "50.00"))

	start := delivered.Add(-time.Hour)
	end := time.Now()
	run, err := svc.StartRun(context.Background(), StartRunInput{
		RunType:     constants.RunTypeManual,
		PeriodStart: &start,
		PeriodEnd:   &end,
	})
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if run.Status != constants.RunStatusCompleted {
		t.Fatalf("批次应完成: %s", run.Status)
	}

	var entry models.SettlementEntry
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("查询分录失败: %v", err)
	}
	if entry.CommissionAmount.Decimal.StringFixed(2) != "2.50" || entry.NetAmount.Decimal.StringFixed(2) != "47.50" {
		t.Fatalf("自定义佣金率分账异常: commission=%s net=%s", entry.CommissionAmount, entry.NetAmount)
	}
}

func TestProcessOrderSettlement(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	createTestSeller(t, db, 1, constants.SellerTypeIndividual, nil)

	delivered := time.Now()
	order := createDeliveredOrder(t, db, "O1", delivered, testItem(1, "30.00"))

	if err := svc.ProcessOrder(context.Background(), order.ID); err != nil {
		t.Fatalf("ProcessOrder failed: %v", err)
	}

	var run models.SettlementRun
	if err := db.First(&run).Error; err != nil {
		t.Fatalf("查询批次失败: %v", err)
	}
	if run.RunType != constants.RunTypeOrderTriggered || run.Status != constants.RunStatusCompleted {
		t.Fatalf("订单触发批次异常: %+v", run)
	}

	// 未送达状态的订单直接跳过
	pendingOrder := &models.Order{OrderNo: "O2", UserID: 1, Status: constants.OrderStatusPaid, Currency: "TRY"}
	if err := db.Create(pendingOrder).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := svc.ProcessOrder(context.Background(), pendingOrder.ID); err != nil {
		t.Fatalf("不可结算订单不应报错: %v", err)
	}
	var runCount int64
	db.Model(&models.SettlementRun{}).Count(&runCount)
	if runCount != 1 {
		t.Fatalf("不可结算订单不应生成批次: %d", runCount)
	}
}

func TestStartRunRejectsInvalidInput(t *testing.T) {
	svc, _ := setupSettlementServiceTest(t)

	if _, err := svc.StartRun(context.Background(), StartRunInput{RunType: constants.RunTypeManual}); err != ErrInvalidInput {
		t.Fatalf("缺少账期应报 ErrInvalidInput: %v", err)
	}
	if _, err := svc.StartRun(context.Background(), StartRunInput{RunType: "weekly"}); err != ErrInvalidInput {
		t.Fatalf("未知批次类型应报 ErrInvalidInput: %v", err)
	}
}

func TestPayoutStatusTransitions(t *testing.T) {
	svc, db := setupSettlementServiceTest(t)
	sellerID := uint(1)
	payout := &models.Payout{
		PayoutNo: "PO1",
		SellerID: &sellerID,
		Amount:   models.NewMoneyFromDecimal(decimal.RequireFromString("90.00")),
		Currency: "TRY",
		Status:   constants.PayoutStatusScheduled,
	}
	if err := db.Create(payout).Error; err != nil {
		t.Fatalf("create payout failed: %v", err)
	}

	if _, err := svc.MarkPayoutProcessing(payout.ID); err != nil {
		t.Fatalf("scheduled → processing 失败: %v", err)
	}
	updated, err := svc.MarkPayoutPaid(payout.ID)
	if err != nil {
		t.Fatalf("processing → paid 失败: %v", err)
	}
	if updated.PaidAt == nil {
		t.Fatal("paid 状态应记录打款时间")
	}

	if _, err := svc.MarkPayoutFailed(payout.ID, "x"); err != ErrPayoutNotProcessable {
		t.Fatalf("已打款的单不允许置失败: %v", err)
	}
}
