package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/payment"
	"github.com/modamart/internal/service"
)

func TestPaymentCallbackRejectsMalformedPayload(t *testing.T) {
	env := setupHandlerTest(t)
	resp := performCallback(t, env, `{"status":"paid"}`)
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("missing txn_ref should be rejected, got %+v", resp)
	}
	resp = performCallback(t, env, `{"txn_ref":"nope","status":"paid","amount":"1"}`)
	if resp.StatusCode != response.CodeNotFound {
		t.Fatalf("unknown txn should be not found, got %+v", resp)
	}
}

func TestRechargeAndCallbackCreditWallet(t *testing.T) {
	env := setupHandlerTest(t)
	who := customer(5)

	resp := perform(t, env.handler.CreateWalletRecharge, http.MethodPost, "/api/v1/wallet/recharges", `{"amount":"0"}`, nil, &who)
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("zero recharge should be rejected, got %+v", resp)
	}
	resp = perform(t, env.handler.CreateWalletRecharge, http.MethodPost, "/api/v1/wallet/recharges", `{"amount":"75000","txn_ref":"rc-h1"}`, nil, &who)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("recharge failed: %+v", resp)
	}

	body := `{"txn_ref":"rc-h1","status":"success","amount":75000,"provider_ref":"PG-9"}`
	for i := 0; i < 2; i++ {
		resp = performCallback(t, env, body)
		if resp.StatusCode != response.CodeOK {
			t.Fatalf("callback %d failed: %+v", i, resp)
		}
		var result struct {
			Duplicate bool `json:"duplicate"`
		}
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			t.Fatalf("decode callback failed: %v", err)
		}
		if result.Duplicate != (i == 1) {
			t.Fatalf("callback %d duplicate=%v", i, result.Duplicate)
		}
	}
	if got := env.balance(t, service.CustomerAccount(5)); got != "75000.00" {
		t.Fatalf("unexpected balance: %s", got)
	}

	resp = perform(t, env.handler.GetMyWalletTransactions, http.MethodGet, "/api/v1/wallet/transactions", "", nil, &who)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("list transactions failed: %+v", resp)
	}
	var txns []struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(resp.Data, &txns); err != nil {
		t.Fatalf("decode transactions failed: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected one transaction, got %s", fmt.Sprint(txns))
	}
}

func TestPaymentCallbackRequiresGatewaySignature(t *testing.T) {
	env := setupHandlerTest(t)
	if _, err := env.container.PaymentService.CreateRecharge(context.Background(), service.CreateRechargeInput{
		UserID: 7,
		Amount: models.NewMoneyFromInt(1000000),
		TxnRef: "self-topup",
	}); err != nil {
		t.Fatalf("create recharge failed: %v", err)
	}

	body := `{"txn_ref":"self-topup","status":"success","amount":"1000000"}`
	cases := []struct {
		name    string
		headers map[string]string
	}{
		{name: "unsigned", headers: nil},
		{name: "wrong_secret", headers: map[string]string{"X-Signature": payment.Sign("guessed", []byte(body))}},
		{name: "signed_other_body", headers: map[string]string{"X-Signature": payment.Sign(testCallbackSecret, []byte(`{"txn_ref":"self-topup"}`))}},
	}
	for _, tc := range cases {
		resp := performWithHeaders(t, env.handler.PaymentCallback, http.MethodPost, "/api/v1/payments/callback", body, nil, nil, tc.headers)
		if resp.StatusCode != response.CodeUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %+v", tc.name, resp)
		}
	}
	if got := env.balance(t, service.CustomerAccount(7)); got != "0.00" {
		t.Fatalf("rejected callbacks must not credit the wallet, got %s", got)
	}
	record, err := env.container.PaymentRepo.GetByTxnRef("self-topup")
	if err != nil || record == nil {
		t.Fatalf("load payment failed: %v", err)
	}
	if record.Status != constants.PaymentStatusPending {
		t.Fatalf("payment should stay pending, got %s", record.Status)
	}

	if resp := performCallback(t, env, body); resp.StatusCode != response.CodeOK {
		t.Fatalf("signed callback should succeed, got %+v", resp)
	}
	if got := env.balance(t, service.CustomerAccount(7)); got != "1000000.00" {
		t.Fatalf("unexpected balance after signed callback: %s", got)
	}
}

func TestPaymentCallbackWithoutSecretRejectsAll(t *testing.T) {
	env := setupHandlerTest(t)
	env.container.Config.Payment.CallbackSecret = ""
	resp := performCallback(t, env, `{"txn_ref":"any","status":"success","amount":"1"}`)
	if resp.StatusCode != response.CodeInternal {
		t.Fatalf("missing secret should fail closed, got %+v", resp)
	}
}

func TestCartRejectsUnknownProduct(t *testing.T) {
	env := setupHandlerTest(t)
	who := customer(1)
	resp := perform(t, env.handler.UpsertCartItem, http.MethodPost, "/api/v1/cart/items", `{"product_id":999,"quantity":1}`, nil, &who)
	if resp.StatusCode != response.CodeNotFound {
		t.Fatalf("unknown product should be not found, got %+v", resp)
	}
	resp = perform(t, env.handler.GetCart, http.MethodGet, "/api/v1/cart", "", nil, &who)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("get cart failed: %+v", resp)
	}
}
