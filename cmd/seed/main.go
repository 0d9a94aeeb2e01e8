package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/provider"
	"github.com/modamart/internal/service"

	"github.com/shopspring/decimal"
)

const (
	demoCustomerID   uint = 1
	demoSupplierUser uint = 101
	demoDesignerUser uint = 102
	demoAdminID      uint = 900
	demoSupplierID   uint = 11
	demoDesignerID   uint = 22
)

type demoProduct struct {
	SellerID   uint
	SellerType string
	Title      string
	Price      string
	Stock      int
}

var demoProducts = []demoProduct{
	{SellerID: demoSupplierID, SellerType: constants.SellerTypeSupplier, Title: "Katun Jepang 1m", Price: "150000", Stock: 40},
	{SellerID: demoSupplierID, SellerType: constants.SellerTypeSupplier, Title: "Linen Rami 1m", Price: "95000", Stock: 25},
	{SellerID: demoDesignerID, SellerType: constants.SellerTypeDesigner, Title: "Batik Pattern Pack", Price: "80000", Stock: 100},
	{SellerID: demoDesignerID, SellerType: constants.SellerTypeDesigner, Title: "Kebaya Cutting Guide", Price: "175000", Stock: 10},
}

func main() {
	var deposit string
	flag.StringVar(&deposit, "deposit", "500000", "演示顾客钱包初始余额")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitSystemAccounts(cfg.Checkout.Currency); err != nil {
		stdLog.Fatalf("Failed to init system accounts: %v", err)
	}

	// 种子数据不需要异步任务
	cfg.Queue.Enabled = false
	cfg.Events.Enabled = false
	container := provider.NewContainer(cfg)
	defer container.Close()

	// 商品
	productIDs := make([]uint, 0, len(demoProducts))
	for _, item := range demoProducts {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			stdLog.Fatalf("Invalid price %s: %v", item.Price, err)
		}
		var existing models.Product
		if err := models.DB.Where("seller_id = ? AND title = ?", item.SellerID, item.Title).First(&existing).Error; err == nil {
			stdLog.Printf("Product already exists: %s", item.Title)
			productIDs = append(productIDs, existing.ID)
			continue
		}
		product := models.Product{
			SellerID:    item.SellerID,
			SellerType:  item.SellerType,
			Title:       item.Title,
			PriceAmount: models.NewMoneyFromDecimal(price),
			Stock:       item.Stock,
			IsActive:    true,
		}
		if err := models.DB.Create(&product).Error; err != nil {
			stdLog.Printf("Failed to create product %s: %v", item.Title, err)
			continue
		}
		stdLog.Printf("Created product: %s (#%d)", product.Title, product.ID)
		productIDs = append(productIDs, product.ID)
	}

	// 顾客钱包充值，reference 固定保证重复执行不会重复入账
	amount, err := decimal.NewFromString(deposit)
	if err != nil || !amount.IsPositive() {
		stdLog.Fatalf("Invalid deposit amount: %s", deposit)
	}
	txn, err := container.WalletLedger.Credit(context.Background(), service.LedgerEntry{
		Account:   service.CustomerAccount(demoCustomerID),
		Amount:    models.NewMoneyFromDecimal(amount),
		Kind:      constants.BalanceKindDeposit,
		Reference: fmt.Sprintf("seed:deposit:%d", demoCustomerID),
		Remark:    "seed deposit",
	})
	if err != nil {
		stdLog.Fatalf("Failed to fund customer wallet: %v", err)
	}
	stdLog.Printf("Customer #%d balance: %s", demoCustomerID, txn.BalanceAfter.String())

	// 购物车：每个商品各 1 件
	for _, productID := range productIDs {
		if err := container.CartService.UpsertItem(service.UpsertCartItemInput{
			UserID:    demoCustomerID,
			ProductID: productID,
			Quantity:  1,
		}); err != nil {
			stdLog.Printf("Failed to add product #%d to cart: %v", productID, err)
		}
	}

	// 演示令牌
	actors := []struct {
		label string
		actor service.Actor
	}{
		{"customer", service.Actor{UserID: demoCustomerID, Role: constants.RoleCustomer}},
		{"supplier", service.Actor{UserID: demoSupplierUser, Role: constants.RoleSeller, SellerID: demoSupplierID}},
		{"designer", service.Actor{UserID: demoDesignerUser, Role: constants.RoleSeller, SellerID: demoDesignerID}},
		{"admin", service.Actor{UserID: demoAdminID, Role: constants.RoleAdmin}},
	}
	for _, item := range actors {
		token, expiresAt, err := container.TokenService.Generate(item.actor, 24*7)
		if err != nil {
			stdLog.Printf("Failed to issue %s token: %v", item.label, err)
			continue
		}
		fmt.Printf("%-9s expires=%s\n  %s\n", item.label, expiresAt.Format("2006-01-02 15:04"), token)
	}

	stdLog.Println("Seed completed")
}
