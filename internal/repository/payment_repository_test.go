package repository

import (
	"testing"
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"
)

func TestPaymentRepositoryTxnRefAndExpiredPending(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewPaymentRepository(db)
	now := time.Now().UTC().Truncate(time.Second)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	sessionID := uint(5)

	rows := []models.PaymentTransaction{
		{TxnRef: "txn-expired", UserID: 1, Purpose: constants.PaymentPurposeCheckout, Provider: constants.PaymentProviderGateway, Status: constants.PaymentStatusPending, Amount: models.NewMoneyFromInt(100), Currency: "IDR", CheckoutSessionID: &sessionID, SelectedItemIDs: models.UintList{3, 4}, ExpiresAt: &past},
		{TxnRef: "txn-live", UserID: 1, Purpose: constants.PaymentPurposeCheckout, Provider: constants.PaymentProviderGateway, Status: constants.PaymentStatusPending, Amount: models.NewMoneyFromInt(100), Currency: "IDR", ExpiresAt: &future},
		{TxnRef: "txn-paid", UserID: 1, Purpose: constants.PaymentPurposeCheckout, Provider: constants.PaymentProviderWallet, Status: constants.PaymentStatusSuccess, Amount: models.NewMoneyFromInt(100), Currency: "IDR", ExpiresAt: &past},
	}
	for i := range rows {
		if err := repo.Create(&rows[i]); err != nil {
			t.Fatalf("create payment failed: %v", err)
		}
	}

	got, err := repo.GetByTxnRefForUpdate("txn-expired")
	if err != nil {
		t.Fatalf("get by txn ref failed: %v", err)
	}
	if got == nil || !got.SelectedItemIDs.Contains(4) || got.SelectedItemIDs.Contains(9) {
		t.Fatalf("unexpected payment: %+v", got)
	}
	missing, err := repo.GetByTxnRef("txn-unknown")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown txn ref, got %+v err=%v", missing, err)
	}

	expired, err := repo.ListExpiredPending(now, 10)
	if err != nil {
		t.Fatalf("list expired failed: %v", err)
	}
	if len(expired) != 1 || expired[0].TxnRef != "txn-expired" {
		t.Fatalf("unexpected expired payments: %+v", expired)
	}

	dup := models.PaymentTransaction{TxnRef: "txn-live", UserID: 2, Purpose: constants.PaymentPurposeRecharge, Provider: constants.PaymentProviderGateway, Status: constants.PaymentStatusPending, Amount: models.NewMoneyFromInt(1), Currency: "IDR"}
	if err := repo.Create(&dup); !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation on txn ref, got %v", err)
	}
}
