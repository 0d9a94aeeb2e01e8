package repository

import (
	"testing"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"

	"github.com/shopspring/decimal"
)

func TestWalletRepositoryOwnerLookupAndSum(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewWalletRepository(db)

	account := &models.WalletAccount{
		OwnerType: constants.WalletOwnerCustomer,
		OwnerID:   42,
		Balance:   models.NewMoneyFromInt(300),
		Currency:  "IDR",
		Status:    constants.WalletStatusActive,
	}
	if err := repo.CreateAccount(account); err != nil {
		t.Fatalf("create account failed: %v", err)
	}

	got, err := repo.GetAccountByOwnerForUpdate(constants.WalletOwnerCustomer, 42)
	if err != nil {
		t.Fatalf("get account for update failed: %v", err)
	}
	if got == nil || got.ID != account.ID {
		t.Fatalf("unexpected account: %+v", got)
	}
	missing, err := repo.GetAccountByOwner(constants.WalletOwnerSeller, 42)
	if err != nil {
		t.Fatalf("get missing account failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("seller account should not exist")
	}

	txns := []models.BalanceTransaction{
		{AccountID: account.ID, Kind: constants.BalanceKindDeposit, Status: constants.BalanceStatusSuccess, Amount: models.NewMoneyFromInt(500), BalanceBefore: models.ZeroMoney(), BalanceAfter: models.NewMoneyFromInt(500), Currency: "IDR", Reference: "test:deposit"},
		{AccountID: account.ID, Kind: constants.BalanceKindPayment, Status: constants.BalanceStatusSuccess, Amount: models.NewMoneyFromInt(-200), BalanceBefore: models.NewMoneyFromInt(500), BalanceAfter: models.NewMoneyFromInt(300), Currency: "IDR", Reference: "test:payment"},
		{AccountID: account.ID, Kind: constants.BalanceKindDeposit, Status: constants.BalanceStatusFail, Amount: models.NewMoneyFromInt(999), BalanceBefore: models.NewMoneyFromInt(300), BalanceAfter: models.NewMoneyFromInt(300), Currency: "IDR", Reference: "test:failed"},
	}
	for i := range txns {
		if err := repo.CreateTransaction(&txns[i]); err != nil {
			t.Fatalf("create transaction failed: %v", err)
		}
	}

	sum, err := repo.SumSuccessAmounts(account.ID)
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("sum want 300 got %s", sum.String())
	}

	byRef, err := repo.GetTransactionByReference("test:payment")
	if err != nil {
		t.Fatalf("get by reference failed: %v", err)
	}
	if byRef == nil || !byRef.Amount.Decimal.Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("unexpected transaction: %+v", byRef)
	}

	list, total, err := repo.ListTransactions(BalanceTransactionListFilter{AccountID: account.ID, Kind: constants.BalanceKindDeposit, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("expected 2 deposit rows, got total=%d len=%d", total, len(list))
	}
}

func TestWalletRepositoryReferenceUnique(t *testing.T) {
	db := setupRepositoryTestDB(t)
	repo := NewWalletRepository(db)
	first := &models.BalanceTransaction{AccountID: 1, Kind: constants.BalanceKindDeposit, Status: constants.BalanceStatusSuccess, Amount: models.NewMoneyFromInt(1), Currency: "IDR", Reference: "dup:ref"}
	if err := repo.CreateTransaction(first); err != nil {
		t.Fatalf("create first failed: %v", err)
	}
	second := &models.BalanceTransaction{AccountID: 1, Kind: constants.BalanceKindDeposit, Status: constants.BalanceStatusSuccess, Amount: models.NewMoneyFromInt(1), Currency: "IDR", Reference: "dup:ref"}
	err := repo.CreateTransaction(second)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}
