package main

import (
	"fmt"
	"time"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/logger"
	"github.com/pazar-next/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 买家
	buyers := []models.User{
		{Email: "ayse@example.com", DisplayName: "Ayşe", CreditPoints: 0, Status: "active"},
		{Email: "mehmet@example.com", DisplayName: "Mehmet", CreditPoints: 500, Status: "active"},
	}
	for i := range buyers {
		var existing models.User
		if err := models.DB.Where("email = ?", buyers[i].Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&buyers[i]).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", buyers[i].Email, err)
			} else {
				stdLog.Printf("Created user: %s", buyers[i].Email)
			}
		} else {
			buyers[i] = existing
			stdLog.Printf("User already exists: %s", buyers[i].Email)
		}
	}

	// 卖家主体账号与档案
	sellerUsers := []models.User{
		{Email: "shop-elektronik@example.com", DisplayName: "Elektronik Dünyası", Status: "active"},
		{Email: "shop-moda@example.com", DisplayName: "Moda Evi", Status: "active"},
	}
	for i := range sellerUsers {
		var existing models.User
		if err := models.DB.Where("email = ?", sellerUsers[i].Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&sellerUsers[i]).Error; err != nil {
				stdLog.Printf("Failed to create seller user %s: %v", sellerUsers[i].Email, err)
			}
		} else {
			sellerUsers[i] = existing
		}
	}

	now := time.Now()
	customRate := decimal.RequireFromString("0.05")
	sellers := []models.SellerProfile{
		{
			UserID:      sellerUsers[0].ID,
			ShopName:    "Elektronik Dünyası",
			SellerType:  constants.SellerTypeIndividual,
			PayoutEmail: sellerUsers[0].Email,
			PayoutIBAN:  "TR330006100519786457841326",
			Status:      constants.SellerStatusActive,
			ApprovedAt:  &now,
		},
		{
			UserID:               sellerUsers[1].ID,
			ShopName:             "Moda Evi",
			SellerType:           constants.SellerTypeCorporate,
			CustomCommissionRate: &customRate,
			PayoutEmail:          sellerUsers[1].Email,
			PayoutIBAN:           "TR980006200119011234567890",
			Status:               constants.SellerStatusActive,
			ApprovedAt:           &now,
		},
	}
	for i := range sellers {
		var existing models.SellerProfile
		if err := models.DB.Where("user_id = ?", sellers[i].UserID).First(&existing).Error; err != nil {
			if err := models.DB.Create(&sellers[i]).Error; err != nil {
				stdLog.Printf("Failed to create seller %s: %v", sellers[i].ShopName, err)
			} else {
				stdLog.Printf("Created seller: %s", sellers[i].ShopName)
			}
		} else {
			sellers[i] = existing
			stdLog.Printf("Seller already exists: %s", sellers[i].ShopName)
		}
	}

	// 商品
	products := []models.Product{
		{SellerID: sellers[0].ID, Title: "Kablosuz Kulaklık", Price: mustMoney("899.90"), Stock: 40, Status: "active"},
		{SellerID: sellers[0].ID, Title: "USB-C Şarj Kablosu", Price: mustMoney("149.50"), Stock: 200, Status: "active"},
		{SellerID: sellers[1].ID, Title: "Pamuklu Tişört", Price: mustMoney("259.00"), Stock: 80, Status: "active"},
	}
	for i := range products {
		var existing models.Product
		if err := models.DB.Where("seller_id = ? AND title = ?", products[i].SellerID, products[i].Title).First(&existing).Error; err != nil {
			if err := models.DB.Create(&products[i]).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", products[i].Title, err)
			} else {
				stdLog.Printf("Created product: %s", products[i].Title)
			}
		} else {
			products[i] = existing
		}
	}

	// 已送达订单, 可直接发起结算批次验证流程
	deliveredAt := now.Add(-48 * time.Hour)
	paidAt := deliveredAt.Add(-2 * time.Hour)
	orders := []struct {
		orderNo string
		userID  uint
		method  string
		ref     string
		items   []models.OrderItem
	}{
		{
			orderNo: "SD20260828000001",
			userID:  buyers[0].ID,
			method:  constants.PaymentProviderStripe,
			ref:     "pi_seed_0001",
			items: []models.OrderItem{
				{SellerID: sellers[0].ID, ProductID: products[0].ID, Title: products[0].Title, Quantity: 1, UnitPrice: products[0].Price, Subtotal: products[0].Price},
				{SellerID: sellers[1].ID, ProductID: products[2].ID, Title: products[2].Title, Quantity: 2, UnitPrice: products[2].Price, Subtotal: mustMoney("518.00")},
			},
		},
		{
			orderNo: "SD20260828000002",
			userID:  buyers[1].ID,
			method:  constants.PaymentProviderIyzico,
			ref:     "iyz_seed_0002",
			items: []models.OrderItem{
				{SellerID: sellers[0].ID, ProductID: products[1].ID, Title: products[1].Title, Quantity: 3, UnitPrice: products[1].Price, Subtotal: mustMoney("448.50")},
			},
		},
	}

	for _, seedOrder := range orders {
		var existing models.Order
		if err := models.DB.Where("order_no = ?", seedOrder.orderNo).First(&existing).Error; err == nil {
			stdLog.Printf("Order already exists: %s", seedOrder.orderNo)
			continue
		}

		total := decimal.Zero
		for _, item := range seedOrder.items {
			total = total.Add(item.Subtotal.Decimal)
		}
		order := models.Order{
			OrderNo:       seedOrder.orderNo,
			UserID:        seedOrder.userID,
			Status:        constants.OrderStatusDelivered,
			Currency:      cfg.Settlement.DefaultCurrency,
			TotalAmount:   models.NewMoneyFromDecimal(total),
			PaymentMethod: seedOrder.method,
			PaymentRef:    seedOrder.ref,
			PaidAt:        &paidAt,
			DeliveredAt:   &deliveredAt,
			Items:         seedOrder.items,
		}
		if err := models.DB.Create(&order).Error; err != nil {
			stdLog.Printf("Failed to create order %s: %v", seedOrder.orderNo, err)
			continue
		}
		stdLog.Printf("Created order: %s (items=%d)", seedOrder.orderNo, len(seedOrder.items))
	}

	fmt.Println("Seed completed.")
}

func mustMoney(amount string) models.Money {
	money, err := models.NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return money
}
