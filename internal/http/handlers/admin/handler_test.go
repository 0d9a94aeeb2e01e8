package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/provider"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupAdminHandlerTest(t *testing.T) (*Handler, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:admin_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	container := provider.NewContainer(&config.Config{
		Checkout:   config.CheckoutConfig{Currency: "IDR", SessionTTLMinutes: 30, PayTimeoutSeconds: 10},
		Settlement: config.SettlementConfig{CommissionRate: "0.10"},
		Ledger:     config.LedgerConfig{RetryAttempts: 3, RetryBaseMS: 1},
	})
	return New(container), container
}

func paidSubOrder(t *testing.T, c *provider.Container) uint {
	t.Helper()
	ctx := context.Background()
	product := &models.Product{SellerID: 11, SellerType: constants.SellerTypeDesigner, Title: "batik", PriceAmount: models.NewMoneyFromInt(200000), Stock: 3, IsActive: true}
	if err := models.DB.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if _, err := c.WalletLedger.Credit(ctx, service.LedgerEntry{
		Account:   service.CustomerAccount(1),
		Amount:    models.NewMoneyFromInt(300000),
		Kind:      constants.BalanceKindDeposit,
		Reference: "test:fund:1",
	}); err != nil {
		t.Fatalf("fund failed: %v", err)
	}
	if err := c.CartService.UpsertItem(service.UpsertCartItemInput{UserID: 1, ProductID: product.ID, Quantity: 1}); err != nil {
		t.Fatalf("cart failed: %v", err)
	}
	session, err := c.CheckoutService.CreateFromCart(ctx, 1)
	if err != nil {
		t.Fatalf("session failed: %v", err)
	}
	result, err := c.CheckoutService.PayAllSelected(ctx, service.PayInput{UserID: 1, SessionID: session.ID, TxnRef: "admin-test"})
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	return result.Orders[0].SubOrders[0].ID
}

func deliver(t *testing.T, c *provider.Container, subOrderID uint) {
	t.Helper()
	ctx := context.Background()
	actor := service.Actor{UserID: 500, Role: constants.RoleSeller, SellerID: 11}
	if _, err := c.FulfillmentService.Confirm(ctx, actor, subOrderID); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := c.FulfillmentService.StartProcessing(ctx, actor, subOrderID); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if _, err := c.FulfillmentService.Ship(ctx, actor, subOrderID, service.TrackingInfo{Carrier: "JNE", TrackingNo: "JN-9"}); err != nil {
		t.Fatalf("ship failed: %v", err)
	}
	if _, err := c.FulfillmentService.Deliver(ctx, actor, subOrderID); err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
}

func perform(t *testing.T, handler gin.HandlerFunc, path string, id uint) envelope {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, path, nil)
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", id)}}
	c.Set("user_id", uint(1000))
	c.Set("role", constants.RoleAdmin)
	handler(c)
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return resp
}

func TestSettleSubOrder(t *testing.T) {
	h, c := setupAdminHandlerTest(t)
	subOrderID := paidSubOrder(t, c)

	resp := perform(t, h.SettleSubOrder, "/api/v1/admin/suborders/1/settle", subOrderID)
	if resp.StatusCode != response.CodeConflict {
		t.Fatalf("undelivered sub order should not settle, got %+v", resp)
	}
	resp = perform(t, h.SettleSubOrder, "/api/v1/admin/suborders/1/settle", 9999)
	if resp.StatusCode != response.CodeNotFound {
		t.Fatalf("unknown sub order should be not found, got %+v", resp)
	}

	deliver(t, c, subOrderID)
	resp = perform(t, h.SettleSubOrder, "/api/v1/admin/suborders/1/settle", subOrderID)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("settle should return the existing settlement, got %+v", resp)
	}
	var settlement struct {
		NetAmount        string `json:"net_amount"`
		CommissionAmount string `json:"commission_amount"`
	}
	if err := json.Unmarshal(resp.Data, &settlement); err != nil {
		t.Fatalf("decode settlement failed: %v", err)
	}
	if settlement.NetAmount != "180000.00" || settlement.CommissionAmount != "20000.00" {
		t.Fatalf("unexpected settlement amounts: %+v", settlement)
	}

	var count int64
	models.DB.Model(&models.OrderSellerSettlement{}).Count(&count)
	if count != 1 {
		t.Fatalf("settlement must be written once, got %d", count)
	}
}

func TestVerifyWallet(t *testing.T) {
	h, c := setupAdminHandlerTest(t)
	paidSubOrder(t, c)

	account, err := c.WalletLedger.GetAccount(service.CustomerAccount(1))
	if err != nil || account == nil {
		t.Fatalf("load account failed: %v", err)
	}
	resp := perform(t, h.VerifyWallet, "/api/v1/admin/wallets/1/verify", account.ID)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("verify failed: %+v", resp)
	}
	var result struct {
		Consistent bool `json:"consistent"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode verification failed: %v", err)
	}
	if !result.Consistent {
		t.Fatalf("ledger should match stored balance")
	}

	if err := models.DB.Model(&models.WalletAccount{}).Where("id = ?", account.ID).
		Update("balance", models.NewMoneyFromInt(1)).Error; err != nil {
		t.Fatalf("tamper balance failed: %v", err)
	}
	resp = perform(t, h.VerifyWallet, "/api/v1/admin/wallets/1/verify", account.ID)
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode verification failed: %v", err)
	}
	if result.Consistent {
		t.Fatalf("tampered balance should be reported")
	}

	resp = perform(t, h.VerifyWallet, "/api/v1/admin/wallets/9999/verify", 9999)
	if resp.StatusCode != response.CodeNotFound {
		t.Fatalf("unknown wallet should be not found, got %+v", resp)
	}
}
