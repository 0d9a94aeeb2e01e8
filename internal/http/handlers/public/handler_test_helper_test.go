package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/payment"
	"github.com/modamart/internal/provider"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testCallbackSecret = "cb-test-secret"

type handlerTestEnv struct {
	db        *gorm.DB
	container *provider.Container
	handler   *Handler
}

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

type requestIdentity struct {
	userID   uint
	role     string
	sellerID uint
}

func customer(userID uint) requestIdentity {
	return requestIdentity{userID: userID, role: constants.RoleCustomer}
}

func setupHandlerTest(t *testing.T) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:public_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{
		Checkout: config.CheckoutConfig{
			Currency:             "IDR",
			SessionTTLMinutes:    30,
			PayTimeoutSeconds:    10,
			PaymentExpireMinutes: 15,
		},
		Payment:    config.PaymentConfig{CallbackSecret: testCallbackSecret},
		Settlement: config.SettlementConfig{CommissionRate: "0.05"},
		Ledger:     config.LedgerConfig{RetryAttempts: 3, RetryBaseMS: 1},
	}
	container := provider.NewContainer(cfg)
	return &handlerTestEnv{db: db, container: container, handler: New(container)}
}

func (e *handlerTestEnv) createProduct(t *testing.T, sellerID uint, sellerType string, price int64) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:    sellerID,
		SellerType:  sellerType,
		Title:       fmt.Sprintf("fabric-%d", sellerID),
		PriceAmount: models.NewMoneyFromInt(price),
		Stock:       10,
		IsActive:    true,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (e *handlerTestEnv) fund(t *testing.T, userID uint, amount int64) {
	t.Helper()
	_, err := e.container.WalletLedger.Credit(context.Background(), service.LedgerEntry{
		Account:   service.CustomerAccount(userID),
		Amount:    models.NewMoneyFromInt(amount),
		Kind:      constants.BalanceKindDeposit,
		Reference: fmt.Sprintf("test:fund:%d", userID),
	})
	if err != nil {
		t.Fatalf("fund failed: %v", err)
	}
}

func (e *handlerTestEnv) balance(t *testing.T, ref service.AccountRef) string {
	t.Helper()
	balance, err := e.container.WalletLedger.GetBalance(ref)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	return balance.Decimal.StringFixed(2)
}

func perform(t *testing.T, handler gin.HandlerFunc, method, path, body string, params gin.Params, who *requestIdentity) envelope {
	t.Helper()
	return performWithHeaders(t, handler, method, path, body, params, who, nil)
}

// performCallback 按网关方式对原文签名后投递回调
func performCallback(t *testing.T, env *handlerTestEnv, body string) envelope {
	t.Helper()
	headers := map[string]string{"X-Signature": payment.Sign(testCallbackSecret, []byte(body))}
	return performWithHeaders(t, env.handler.PaymentCallback, http.MethodPost, "/api/v1/payments/callback", body, nil, nil, headers)
}

func performWithHeaders(t *testing.T, handler gin.HandlerFunc, method, path, body string, params gin.Params, who *requestIdentity, headers map[string]string) envelope {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	c.Request = req
	c.Params = params
	if who != nil {
		c.Set("user_id", who.userID)
		c.Set("role", who.role)
		if who.sellerID != 0 {
			c.Set("seller_id", who.sellerID)
		}
	}
	handler(c)

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func idParam(key string, id uint) gin.Params {
	return gin.Params{{Key: key, Value: fmt.Sprintf("%d", id)}}
}
