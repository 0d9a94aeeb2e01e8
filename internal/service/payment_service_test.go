package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"
)

func createGatewayPayment(t *testing.T, env *serviceTestEnv, userID uint, txnRef string) (*CheckoutSessionView, *PayResult) {
	t.Helper()
	view, _, _ := env.twoSellerSession(t, userID)
	result, err := env.checkout.PayAllSelected(context.Background(), PayInput{
		UserID:    userID,
		SessionID: view.ID,
		TxnRef:    txnRef,
		Method:    constants.PayMethodGateway,
	})
	if err != nil {
		t.Fatalf("gateway pay failed: %v", err)
	}
	return view, result
}

func TestPaymentCallbackSuccessSplitsOrder(t *testing.T) {
	env := setupServiceTest(t, serviceTestOptions{})
	ctx := context.Background()
	view, _ := createGatewayPayment(t, env, 1, "gw-ok")

	result, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{
		TxnRef:      "gw-ok",
		Status:      "paid",
		Amount:      models.NewMoneyFromInt(230000),
		ProviderRef: "PG-1",
	})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if result.Duplicate || result.Refunded || result.OrderGroupID == nil {
		t.Fatalf("unexpected callback result: %+v", result)
	}
	if result.Payment.Status != constants.PaymentStatusSuccess || result.Payment.ProviderRef != "PG-1" {
		t.Fatalf("payment should be marked success: %+v", result.Payment)
	}
	requireDecimal(t, "escrow", env.balanceOf(t, EscrowAccount()), 230000)
	requireDecimal(t, "customer", env.balanceOf(t, CustomerAccount(1)), 0)
	session, _ := env.checkoutRepo.GetSessionByID(view.ID)
	if session.Status != constants.CheckoutSessionStatusConsumed {
		t.Fatalf("session should be consumed, got %s", session.Status)
	}
	orders, err := env.orderRepo.ListByGroup(*result.OrderGroupID)
	if err != nil || len(orders) != 1 {
		t.Fatalf("expected one order in group: %v", err)
	}
	subs, _ := env.orderRepo.ListSubOrders(orders[0].ID)
	if len(subs) != 2 {
		t.Fatalf("expected two sub orders, got %d", len(subs))
	}

	replayed, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "gw-ok", Status: "success", Amount: models.NewMoneyFromInt(230000)})
	if err != nil {
		t.Fatalf("replayed callback failed: %v", err)
	}
	if !replayed.Duplicate || replayed.OrderGroupID == nil || *replayed.OrderGroupID != *result.OrderGroupID {
		t.Fatalf("replay should return the original group: %+v", replayed)
	}
	requireDecimal(t, "escrow after replay", env.balanceOf(t, EscrowAccount()), 230000)
	if n := env.countRows(t, &models.Order{}); n != 1 {
		t.Fatalf("replay must not split again, got %d orders", n)
	}
	if n, err := env.walletRepo.CountByPaymentTransaction(result.Payment.ID); err != nil || n != 1 {
		t.Fatalf("replay must not post escrow again: rows=%d err=%v", n, err)
	}
}

func TestPaymentCallbackValidation(t *testing.T) {
	env := setupServiceTest(t, serviceTestOptions{})
	ctx := context.Background()
	createGatewayPayment(t, env, 1, "gw-check")

	if _, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "gw-check", Status: "paid", Amount: models.NewMoneyFromInt(1)}); !errors.Is(err, ErrPaymentAmountMismatch) {
		t.Fatalf("expected ErrPaymentAmountMismatch, got %v", err)
	}
	if _, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "gw-check", Status: "maybe"}); !errors.Is(err, ErrPaymentStatusInvalid) {
		t.Fatalf("expected ErrPaymentStatusInvalid, got %v", err)
	}
	if _, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "missing", Status: "paid"}); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
	if _, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{Status: "paid"}); !errors.Is(err, ErrPaymentInvalid) {
		t.Fatalf("expected ErrPaymentInvalid, got %v", err)
	}
	payment, _ := env.paymentRepo.GetByTxnRef("gw-check")
	if payment.Status != constants.PaymentStatusPending {
		t.Fatalf("rejected callbacks must not change the payment, got %s", payment.Status)
	}
}

func TestPaymentCallbackFailureKeepsSessionOpen(t *testing.T) {
	env := setupServiceTest(t, serviceTestOptions{})
	ctx := context.Background()
	view, _ := createGatewayPayment(t, env, 1, "gw-fail")

	result, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "gw-fail", Status: "fail", Amount: models.NewMoneyFromInt(230000)})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if result.Payment.Status != constants.PaymentStatusFailed {
		t.Fatalf("payment should be failed, got %s", result.Payment.Status)
	}
	session, _ := env.checkoutRepo.GetSessionByID(view.ID)
	if session.Status != constants.CheckoutSessionStatusOpen {
		t.Fatalf("session should stay open for another attempt, got %s", session.Status)
	}
	if n := env.countRows(t, &models.Order{}); n != 0 {
		t.Fatalf("no order expected, got %d", n)
	}
}

func TestPaymentCallbackSplitFailureRefundsWallet(t *testing.T) {
	env := setupServiceTest(t, serviceTestOptions{})
	ctx := context.Background()
	view, _ := createGatewayPayment(t, env, 1, "gw-refund")
	if err := env.db.Model(&models.CheckoutSession{}).Where("id = ?", view.ID).
		Update("status", constants.CheckoutSessionStatusExpired).Error; err != nil {
		t.Fatalf("expire session failed: %v", err)
	}

	result, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "gw-refund", Status: "success", Amount: models.NewMoneyFromInt(230000)})
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if !result.Refunded || result.Payment.Status != constants.PaymentStatusRefunded {
		t.Fatalf("payment should be refunded: %+v", result)
	}
	requireDecimal(t, "customer", env.balanceOf(t, CustomerAccount(1)), 230000)
	requireDecimal(t, "escrow", env.balanceOf(t, EscrowAccount()), 0)
	if n := env.countRows(t, &models.Order{}); n != 0 {
		t.Fatalf("failed split must not leave orders, got %d", n)
	}

	again, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "gw-refund", Status: "success", Amount: models.NewMoneyFromInt(230000)})
	if err != nil || !again.Duplicate {
		t.Fatalf("second callback should be a duplicate: %+v err=%v", again, err)
	}
	requireDecimal(t, "customer after replay", env.balanceOf(t, CustomerAccount(1)), 230000)
}

func TestPaymentExpirePendingAndLateCapture(t *testing.T) {
	env := setupServiceTest(t, serviceTestOptions{})
	ctx := context.Background()
	createGatewayPayment(t, env, 1, "gw-late")

	expired, err := env.payment.ExpirePending(ctx, "gw-late")
	if err != nil || expired {
		t.Fatalf("payment within its window must not expire: expired=%v err=%v", expired, err)
	}
	if err := env.db.Model(&models.PaymentTransaction{}).Where("txn_ref = ?", "gw-late").
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("age payment failed: %v", err)
	}
	count, err := env.payment.SweepExpiredPayments(ctx, time.Now())
	if err != nil || count != 1 {
		t.Fatalf("sweep should expire one payment: count=%d err=%v", count, err)
	}

	result, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "gw-late", Status: "success", Amount: models.NewMoneyFromInt(230000)})
	if err != nil {
		t.Fatalf("late callback failed: %v", err)
	}
	if !result.Refunded {
		t.Fatalf("late capture should be refunded to the wallet: %+v", result)
	}
	requireDecimal(t, "customer", env.balanceOf(t, CustomerAccount(1)), 230000)
}

func TestPaymentRechargeCreditsWallet(t *testing.T) {
	env := setupServiceTest(t, serviceTestOptions{})
	ctx := context.Background()

	if _, err := env.payment.CreateRecharge(ctx, CreateRechargeInput{UserID: 1, Amount: models.ZeroMoney()}); !errors.Is(err, ErrWalletInvalidAmount) {
		t.Fatalf("expected ErrWalletInvalidAmount, got %v", err)
	}
	payment, err := env.payment.CreateRecharge(ctx, CreateRechargeInput{UserID: 1, Amount: models.NewMoneyFromInt(50000), TxnRef: "rc-1"})
	if err != nil {
		t.Fatalf("create recharge failed: %v", err)
	}
	if payment.Purpose != constants.PaymentPurposeRecharge || payment.Status != constants.PaymentStatusPending {
		t.Fatalf("unexpected recharge payment: %+v", payment)
	}
	if _, err := env.payment.CreateRecharge(ctx, CreateRechargeInput{UserID: 2, Amount: models.NewMoneyFromInt(50000), TxnRef: "rc-1"}); !errors.Is(err, ErrTxnRefConflict) {
		t.Fatalf("expected ErrTxnRefConflict, got %v", err)
	}

	if _, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "rc-1", Status: "success", Amount: models.NewMoneyFromInt(50000)}); err != nil {
		t.Fatalf("recharge callback failed: %v", err)
	}
	requireDecimal(t, "customer", env.balanceOf(t, CustomerAccount(1)), 50000)
	replayed, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "rc-1", Status: "success", Amount: models.NewMoneyFromInt(50000)})
	if err != nil || !replayed.Duplicate {
		t.Fatalf("recharge replay should be a duplicate: %+v err=%v", replayed, err)
	}
	if n, err := env.walletRepo.CountByPaymentTransaction(payment.ID); err != nil || n != 1 {
		t.Fatalf("recharge replay must not deposit again: rows=%d err=%v", n, err)
	}
	requireDecimal(t, "customer after replay", env.balanceOf(t, CustomerAccount(1)), 50000)
	txns, total, err := env.wallet.ListCustomerTransactions(1, repositoryFilter(constants.BalanceKindDeposit))
	if err != nil || total != 1 || len(txns) != 1 {
		t.Fatalf("expected one deposit: total=%d err=%v", total, err)
	}
}

func TestPaymentCallbackRejectsWalletPayment(t *testing.T) {
	env := setupServiceTest(t, serviceTestOptions{})
	ctx := context.Background()
	env.fundCustomer(t, 1, 500000)
	view, _, _ := env.twoSellerSession(t, 1)
	if _, err := env.checkout.PayAllSelected(ctx, PayInput{UserID: 1, SessionID: view.ID, TxnRef: "wallet-1"}); err != nil {
		t.Fatalf("wallet pay failed: %v", err)
	}
	if _, err := env.payment.HandleCallback(ctx, PaymentCallbackInput{TxnRef: "wallet-1", Status: "paid", Amount: models.NewMoneyFromInt(230000)}); !errors.Is(err, ErrPaymentInvalid) {
		t.Fatalf("expected ErrPaymentInvalid, got %v", err)
	}
}

func repositoryFilter(kind string) repository.BalanceTransactionListFilter {
	return repository.BalanceTransactionListFilter{Page: 1, PageSize: 20, Kind: kind}
}
