package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type serviceTestEnv struct {
	db             *gorm.DB
	cfg            config.CheckoutConfig
	orderRepo      *repository.GormOrderRepository
	productRepo    *repository.GormProductRepository
	paymentRepo    *repository.GormPaymentRepository
	checkoutRepo   *repository.GormCheckoutRepository
	settlementRepo *repository.GormSettlementRepository
	walletRepo     *repository.GormWalletRepository
	ledger         *WalletLedger
	splitter       *OrderSplitter
	cart           *CartService
	checkout       *CheckoutService
	settlement     *SettlementService
	fulfillment    *FulfillmentService
	payment        *PaymentService
	wallet         *WalletService
	orders         *OrderService
}

type serviceTestOptions struct {
	shippingFee    string
	commissionRate string
}

func setupServiceTest(t *testing.T, opts serviceTestOptions) *serviceTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	shippingFee := decimal.Zero
	if opts.shippingFee != "" {
		shippingFee = decimal.RequireFromString(opts.shippingFee)
	}
	rate := decimal.Zero
	if opts.commissionRate != "" {
		rate = decimal.RequireFromString(opts.commissionRate)
	}
	cfg := config.CheckoutConfig{
		Currency:             "IDR",
		SessionTTLMinutes:    30,
		PayTimeoutSeconds:    10,
		PaymentExpireMinutes: 15,
		ShippingFeePerSeller: shippingFee.String(),
	}
	retry := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

	env := &serviceTestEnv{
		db:             db,
		cfg:            cfg,
		orderRepo:      repository.NewOrderRepository(db),
		productRepo:    repository.NewProductRepository(db),
		paymentRepo:    repository.NewPaymentRepository(db),
		checkoutRepo:   repository.NewCheckoutRepository(db),
		settlementRepo: repository.NewSettlementRepository(db),
		walletRepo:     repository.NewWalletRepository(db),
	}
	cartRepo := repository.NewCartRepository(db)
	env.ledger = NewWalletLedger(env.walletRepo, cfg.Currency, retry)
	env.splitter = NewOrderSplitter(env.orderRepo, shippingFee)
	env.cart = NewCartService(cartRepo, env.productRepo)
	env.checkout = NewCheckoutService(CheckoutServiceDeps{
		Checkout:     cfg,
		Commission:   rate,
		CheckoutRepo: env.checkoutRepo,
		CartRepo:     cartRepo,
		ProductRepo:  env.productRepo,
		PaymentRepo:  env.paymentRepo,
		OrderRepo:    env.orderRepo,
		Ledger:       env.ledger,
		Splitter:     env.splitter,
		Retry:        retry,
	})
	env.settlement = NewSettlementService(env.orderRepo, env.settlementRepo, env.ledger, nil, retry)
	env.fulfillment = NewFulfillmentService(env.orderRepo, env.settlement, env.ledger, nil, retry)
	env.payment = NewPaymentService(cfg, env.paymentRepo, env.ledger, env.checkout, nil, nil, retry)
	env.wallet = NewWalletService(env.ledger, env.settlement)
	env.orders = NewOrderService(env.orderRepo)
	return env
}

func (e *serviceTestEnv) createProduct(t *testing.T, sellerID uint, sellerType string, price int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:    sellerID,
		SellerType:  sellerType,
		Title:       fmt.Sprintf("fabric-%d-%d", sellerID, price),
		PriceAmount: models.NewMoneyFromInt(price),
		Stock:       stock,
		IsActive:    true,
	}
	if err := e.productRepo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (e *serviceTestEnv) fundCustomer(t *testing.T, userID uint, amount int64) {
	t.Helper()
	_, err := e.ledger.Credit(context.Background(), LedgerEntry{
		Account:   CustomerAccount(userID),
		Amount:    models.NewMoneyFromInt(amount),
		Kind:      constants.BalanceKindDeposit,
		Reference: fmt.Sprintf("test:fund:%d:%d", userID, time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("fund customer failed: %v", err)
	}
}

func (e *serviceTestEnv) addToCart(t *testing.T, userID uint, productID uint, quantity int) {
	t.Helper()
	if err := e.cart.UpsertItem(UpsertCartItemInput{UserID: userID, ProductID: productID, Quantity: quantity}); err != nil {
		t.Fatalf("add to cart failed: %v", err)
	}
}

func (e *serviceTestEnv) balanceOf(t *testing.T, ref AccountRef) decimal.Decimal {
	t.Helper()
	balance, err := e.ledger.GetBalance(ref)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	return balance.Decimal
}

func (e *serviceTestEnv) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := e.db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count rows failed: %v", err)
	}
	return count
}

// twoSellerSession 卖家 A 150,000 与卖家 B 80,000 的结算会话
func (e *serviceTestEnv) twoSellerSession(t *testing.T, userID uint) (*CheckoutSessionView, *models.Product, *models.Product) {
	t.Helper()
	productA := e.createProduct(t, 11, constants.SellerTypeSupplier, 150000, 10)
	productB := e.createProduct(t, 22, constants.SellerTypeDesigner, 80000, 10)
	e.addToCart(t, userID, productA.ID, 1)
	e.addToCart(t, userID, productB.ID, 1)
	view, err := e.checkout.CreateFromCart(context.Background(), userID)
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	return view, productA, productB
}

func requireDecimal(t *testing.T, label string, got decimal.Decimal, want int64) {
	t.Helper()
	if !got.Equal(decimal.NewFromInt(want)) {
		t.Fatalf("%s: want %d, got %s", label, want, got.String())
	}
}

func sellerActor(sellerID uint) Actor {
	return Actor{Role: constants.RoleSeller, SellerID: sellerID, UserID: sellerID + 1000}
}
