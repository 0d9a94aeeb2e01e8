package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/i18n"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
)

type sessionPayload struct {
	ID            uint   `json:"id"`
	SelectedTotal string `json:"selected_total"`
}

type payPayload struct {
	Status     string `json:"status"`
	Replayed   bool   `json:"replayed"`
	OrderGroup *struct {
		ID uint `json:"id"`
	} `json:"order_group"`
	Orders []struct {
		ID        uint `json:"id"`
		SubOrders []struct {
			ID       uint `json:"id"`
			SellerID uint `json:"seller_id"`
		} `json:"sub_orders"`
	} `json:"orders"`
}

func openTwoSellerSession(t *testing.T, env *handlerTestEnv, userID uint) sessionPayload {
	t.Helper()
	productA := env.createProduct(t, 11, constants.SellerTypeSupplier, 150000)
	productB := env.createProduct(t, 22, constants.SellerTypeDesigner, 80000)
	who := customer(userID)
	for _, productID := range []uint{productA.ID, productB.ID} {
		resp := perform(t, env.handler.UpsertCartItem, http.MethodPost, "/api/v1/cart/items",
			fmt.Sprintf(`{"product_id":%d,"quantity":1}`, productID), nil, &who)
		if resp.StatusCode != response.CodeOK {
			t.Fatalf("upsert cart failed: %+v", resp)
		}
	}
	resp := perform(t, env.handler.CreateCheckoutSession, http.MethodPost, "/api/v1/checkout/sessions", "", nil, &who)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("create session failed: %+v", resp)
	}
	var session sessionPayload
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		t.Fatalf("decode session failed: %v", err)
	}
	return session
}

func TestCheckoutWalletPayThroughHandlers(t *testing.T) {
	env := setupHandlerTest(t)
	env.fund(t, 1, 500000)
	session := openTwoSellerSession(t, env, 1)
	if session.SelectedTotal != "230000.00" {
		t.Fatalf("unexpected selected total: %s", session.SelectedTotal)
	}

	who := customer(1)
	resp := perform(t, env.handler.PayCheckoutSession, http.MethodPost, "/api/v1/checkout/sessions/1/pay",
		`{"txn_ref":"web-1"}`, idParam("id", session.ID), &who)
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("pay failed: %+v", resp)
	}
	var paid payPayload
	if err := json.Unmarshal(resp.Data, &paid); err != nil {
		t.Fatalf("decode pay result failed: %v", err)
	}
	if paid.Status != constants.PaymentStatusSuccess || paid.OrderGroup == nil || len(paid.Orders) != 1 {
		t.Fatalf("unexpected pay result: %s", string(resp.Data))
	}
	if len(paid.Orders[0].SubOrders) != 2 {
		t.Fatalf("expected two sub orders, got %d", len(paid.Orders[0].SubOrders))
	}
	if got := env.balance(t, service.CustomerAccount(1)); got != "270000.00" {
		t.Fatalf("unexpected customer balance: %s", got)
	}

	replay := perform(t, env.handler.PayCheckoutSession, http.MethodPost, "/api/v1/checkout/sessions/1/pay",
		`{"txn_ref":"web-1"}`, idParam("id", session.ID), &who)
	var replayed payPayload
	if err := json.Unmarshal(replay.Data, &replayed); err != nil {
		t.Fatalf("decode replay failed: %v", err)
	}
	if replay.StatusCode != response.CodeOK || !replayed.Replayed {
		t.Fatalf("replay should succeed without effect: %s", string(replay.Data))
	}
	if got := env.balance(t, service.CustomerAccount(1)); got != "270000.00" {
		t.Fatalf("replay must not debit again: %s", got)
	}
}

func TestCheckoutPayInsufficientBalance(t *testing.T) {
	env := setupHandlerTest(t)
	env.fund(t, 1, 100000)
	session := openTwoSellerSession(t, env, 1)

	who := customer(1)
	resp := perform(t, env.handler.PayCheckoutSession, http.MethodPost, "/api/v1/checkout/sessions/1/pay",
		"", idParam("id", session.ID), &who)
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("expected bad request, got %+v", resp)
	}
	if resp.Msg != i18n.T(i18n.DefaultLocale, "error.insufficient_balance") {
		t.Fatalf("unexpected message: %s", resp.Msg)
	}
	if got := env.balance(t, service.CustomerAccount(1)); got != "100000.00" {
		t.Fatalf("balance must be untouched: %s", got)
	}
}

func TestCheckoutSessionScopedToOwner(t *testing.T) {
	env := setupHandlerTest(t)
	session := openTwoSellerSession(t, env, 1)

	other := customer(2)
	resp := perform(t, env.handler.GetCheckoutSession, http.MethodGet, "/api/v1/checkout/sessions/1", "", idParam("id", session.ID), &other)
	if resp.StatusCode != response.CodeNotFound {
		t.Fatalf("foreign session should be not found, got %+v", resp)
	}

	resp = perform(t, env.handler.GetCheckoutSession, http.MethodGet, "/api/v1/checkout/sessions/x", "", gin.Params{{Key: "id", Value: "x"}}, &other)
	if resp.StatusCode != response.CodeBadRequest {
		t.Fatalf("invalid id should be rejected, got %+v", resp)
	}

	resp = perform(t, env.handler.CreateCheckoutSession, http.MethodPost, "/api/v1/checkout/sessions", "", nil, nil)
	if resp.StatusCode != response.CodeUnauthorized {
		t.Fatalf("missing identity should be unauthorized, got %+v", resp)
	}
}
