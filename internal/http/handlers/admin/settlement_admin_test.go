package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pazar-next/internal/commission"
	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/models"
	"github.com/pazar-next/internal/provider"
	"github.com/pazar-next/internal/queue"
	"github.com/pazar-next/internal/repository"
	"github.com/pazar-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupSettlementHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_settlement_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	settlementService := service.NewSettlementService(
		repository.NewSettlementRepository(db),
		repository.NewOrderRepository(db),
		repository.NewSellerRepository(db),
		resolver,
		queueClient,
		&config.SettlementConfig{DefaultCurrency: "TRY"},
	)

	h := &Handler{Container: &provider.Container{
		Config:            &config.Config{},
		SettlementService: settlementService,
	}}

	r := gin.New()
	group := r.Group("/api/v1/admin")
	group.POST("/settlement-runs", h.AdminCreateSettlementRun)
	group.GET("/settlement-runs", h.AdminListSettlementRuns)
	group.GET("/settlement-runs/:id", h.AdminGetSettlementRun)
	group.GET("/settlement-runs/:id/entries", h.AdminListRunEntries)
	group.POST("/orders/:id/settle", h.AdminTriggerOrderSettlement)
	group.GET("/payouts", h.AdminListPayouts)
	group.POST("/payouts/:id/processing", h.AdminMarkPayoutProcessing)
	group.POST("/payouts/:id/paid", h.AdminMarkPayoutPaid)
	group.POST("/payouts/:id/failed", h.AdminMarkPayoutFailed)
	group.GET("/sellers/:id/snapshot", h.AdminGetSellerSnapshot)

	return r, db
}

func seedHandlerSeller(t *testing.T, db *gorm.DB, id uint, sellerType string) {
	t.Helper()
	seller := models.SellerProfile{
		ID:         id,
		UserID:     id + 1000,
		ShopName:   fmt.Sprintf("shop-%d", id),
		SellerType: sellerType,
		Status:     constants.SellerStatusActive,
	}
	if err := db.Create(&seller).Error; err != nil {
		t.Fatalf("create seller failed: %v", err)
	}
}

func seedHandlerOrder(t *testing.T, db *gorm.DB, orderNo string, sellerID uint, subtotal string, deliveredAt time.Time) *models.Order {
	t.Helper()
	amount, err := models.NewMoneyFromString(subtotal)
	if err != nil {
		t.Fatalf("parse amount failed: %v", err)
	}
	order := &models.Order{
		OrderNo:       orderNo,
		UserID:        1,
		Status:        constants.OrderStatusDelivered,
		Currency:      "TRY",
		TotalAmount:   amount,
		PaymentMethod: constants.PaymentProviderStripe,
		PaymentRef:    "pi_" + orderNo,
		DeliveredAt:   &deliveredAt,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	item := models.OrderItem{
		OrderID:   order.ID,
		SellerID:  sellerID,
		ProductID: sellerID * 10,
		Title:     "item",
		Quantity:  1,
		UnitPrice: amount,
		Subtotal:  amount,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("create order item failed: %v", err)
	}
	return order
}

func doJSONRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request failed: %v", err)
		}
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) int {
	t.Helper()
	var resp struct {
		StatusCode int             `json:"status_code"`
		Msg        string          `json:"msg"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v (%s)", err, w.Body.String())
	}
	if data != nil && len(resp.Data) > 0 && string(resp.Data) != "null" {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("unmarshal data failed: %v (%s)", err, string(resp.Data))
		}
	}
	return resp.StatusCode
}

func TestAdminCreateSettlementRun(t *testing.T) {
	r, db := setupSettlementHandlerTest(t)
	seedHandlerSeller(t, db, 1, constants.SellerTypeIndividual)
	delivered := time.Now().Add(-24 * time.Hour)
	seedHandlerOrder(t, db, "H1", 1, "100.00", delivered)

	start := delivered.Add(-time.Hour)
	end := time.Now()
	w := doJSONRequest(t, r, http.MethodPost, "/api/v1/admin/settlement-runs", gin.H{
		"run_type":     constants.RunTypeManual,
		"period_start": start.Format(time.RFC3339),
		"period_end":   end.Format(time.RFC3339),
	})

	var run models.SettlementRun
	if code := decodeResponse(t, w, &run); code != 0 {
		t.Fatalf("create run want status_code 0 got %d (%s)", code, w.Body.String())
	}
	if run.Status != constants.RunStatusCompleted {
		t.Fatalf("批次应完成, 实际: %s (%s)", run.Status, run.FailedReason)
	}
	if run.SettledItems != 1 {
		t.Fatalf("入账订单项数应为 1, 实际: %d", run.SettledItems)
	}

	// 缺少批次类型应拒绝
	w = doJSONRequest(t, r, http.MethodPost, "/api/v1/admin/settlement-runs", gin.H{})
	if code := decodeResponse(t, w, nil); code != 400 {
		t.Fatalf("missing run_type want status_code 400 got %d", code)
	}

	// 列表与详情
	w = doJSONRequest(t, r, http.MethodGet, "/api/v1/admin/settlement-runs", nil)
	var runs []models.SettlementRun
	if code := decodeResponse(t, w, &runs); code != 0 {
		t.Fatalf("list runs want status_code 0 got %d", code)
	}
	if len(runs) != 1 {
		t.Fatalf("批次列表数量应为 1, 实际: %d", len(runs))
	}

	w = doJSONRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/admin/settlement-runs/%d", run.ID), nil)
	var got models.SettlementRun
	if code := decodeResponse(t, w, &got); code != 0 {
		t.Fatalf("get run want status_code 0 got %d", code)
	}
	if got.RunNo != run.RunNo {
		t.Fatalf("批次编号不一致: %s vs %s", got.RunNo, run.RunNo)
	}

	w = doJSONRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/admin/settlement-runs/%d/entries", run.ID), nil)
	var entries []models.SettlementEntry
	if code := decodeResponse(t, w, &entries); code != 0 {
		t.Fatalf("list entries want status_code 0 got %d", code)
	}
	if len(entries) != 1 {
		t.Fatalf("分录数量应为 1, 实际: %d", len(entries))
	}

	w = doJSONRequest(t, r, http.MethodGet, "/api/v1/admin/settlement-runs/99999", nil)
	if code := decodeResponse(t, w, nil); code != 404 {
		t.Fatalf("missing run want status_code 404 got %d", code)
	}
}

func TestAdminTriggerOrderSettlement(t *testing.T) {
	r, db := setupSettlementHandlerTest(t)
	seedHandlerSeller(t, db, 1, constants.SellerTypeIndividual)
	order := seedHandlerOrder(t, db, "H2", 1, "80.00", time.Now().Add(-time.Hour))

	w := doJSONRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/admin/orders/%d/settle", order.ID), nil)
	if code := decodeResponse(t, w, nil); code != 0 {
		t.Fatalf("trigger settle want status_code 0 got %d (%s)", code, w.Body.String())
	}

	var count int64
	if err := db.Model(&models.SettlementEntry{}).Where("order_id = ?", order.ID).Count(&count).Error; err != nil {
		t.Fatalf("count entries failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("订单分录数量应为 1, 实际: %d", count)
	}

	w = doJSONRequest(t, r, http.MethodPost, "/api/v1/admin/orders/99999/settle", nil)
	if code := decodeResponse(t, w, nil); code != 404 {
		t.Fatalf("missing order want status_code 404 got %d", code)
	}
}

func TestAdminPayoutTransitions(t *testing.T) {
	r, db := setupSettlementHandlerTest(t)
	seedHandlerSeller(t, db, 1, constants.SellerTypeCorporate)
	delivered := time.Now().Add(-24 * time.Hour)
	seedHandlerOrder(t, db, "H3", 1, "200.00", delivered)

	start := delivered.Add(-time.Hour)
	end := time.Now()
	w := doJSONRequest(t, r, http.MethodPost, "/api/v1/admin/settlement-runs", gin.H{
		"run_type":     constants.RunTypeManual,
		"period_start": start.Format(time.RFC3339),
		"period_end":   end.Format(time.RFC3339),
	})
	if code := decodeResponse(t, w, nil); code != 0 {
		t.Fatalf("create run want status_code 0 got %d", code)
	}

	w = doJSONRequest(t, r, http.MethodGet, "/api/v1/admin/payouts?seller_id=1", nil)
	var payouts []models.Payout
	if code := decodeResponse(t, w, &payouts); code != 0 {
		t.Fatalf("list payouts want status_code 0 got %d", code)
	}
	if len(payouts) != 1 {
		t.Fatalf("打款单数量应为 1, 实际: %d", len(payouts))
	}
	payout := payouts[0]
	if payout.Status != constants.PayoutStatusScheduled {
		t.Fatalf("打款单初始状态应为 scheduled, 实际: %s", payout.Status)
	}

	w = doJSONRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/admin/payouts/%d/processing", payout.ID), nil)
	var updated models.Payout
	if code := decodeResponse(t, w, &updated); code != 0 {
		t.Fatalf("mark processing want status_code 0 got %d (%s)", code, w.Body.String())
	}
	if updated.Status != constants.PayoutStatusProcessing {
		t.Fatalf("打款单状态应为 processing, 实际: %s", updated.Status)
	}

	w = doJSONRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/admin/payouts/%d/paid", payout.ID), nil)
	if code := decodeResponse(t, w, &updated); code != 0 {
		t.Fatalf("mark paid want status_code 0 got %d", code)
	}
	if updated.Status != constants.PayoutStatusPaid || updated.PaidAt == nil {
		t.Fatalf("打款单应已支付: %+v", updated)
	}

	// 已支付的打款单不允许再标记失败
	w = doJSONRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/admin/payouts/%d/failed", payout.ID), gin.H{"reason": "bank rejected"})
	if code := decodeResponse(t, w, nil); code != 400 {
		t.Fatalf("fail paid payout want status_code 400 got %d", code)
	}

	// 失败标记必须带原因
	w = doJSONRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/admin/payouts/%d/failed", payout.ID), gin.H{})
	if code := decodeResponse(t, w, nil); code != 400 {
		t.Fatalf("missing reason want status_code 400 got %d", code)
	}
}

func TestAdminGetSellerSnapshot(t *testing.T) {
	r, db := setupSettlementHandlerTest(t)
	seedHandlerSeller(t, db, 1, constants.SellerTypeIndividual)
	delivered := time.Now().Add(-24 * time.Hour)
	seedHandlerOrder(t, db, "H4", 1, "100.00", delivered)

	start := delivered.Add(-time.Hour)
	end := time.Now()
	w := doJSONRequest(t, r, http.MethodPost, "/api/v1/admin/settlement-runs", gin.H{
		"run_type":     constants.RunTypeManual,
		"period_start": start.Format(time.RFC3339),
		"period_end":   end.Format(time.RFC3339),
	})
	if code := decodeResponse(t, w, nil); code != 0 {
		t.Fatalf("create run want status_code 0 got %d", code)
	}

	w = doJSONRequest(t, r, http.MethodGet, "/api/v1/admin/sellers/1/snapshot", nil)
	var snapshot repository.SellerSnapshot
	if code := decodeResponse(t, w, &snapshot); code != 0 {
		t.Fatalf("get snapshot want status_code 0 got %d (%s)", code, w.Body.String())
	}
	if !snapshot.GrossAmount.Decimal.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("累计毛额应为 100.00, 实际: %s", snapshot.GrossAmount.Decimal)
	}
	// 个体卖家默认佣金 10%
	if !snapshot.CommissionAmount.Decimal.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("累计佣金应为 10.00, 实际: %s", snapshot.CommissionAmount.Decimal)
	}
	if !snapshot.PendingPayout.Decimal.Equal(decimal.RequireFromString("90.00")) {
		t.Fatalf("未完成打款应为 90.00, 实际: %s", snapshot.PendingPayout.Decimal)
	}

	w = doJSONRequest(t, r, http.MethodGet, "/api/v1/admin/sellers/99999/snapshot", nil)
	if code := decodeResponse(t, w, nil); code != 404 {
		t.Fatalf("missing seller want status_code 404 got %d", code)
	}
}
