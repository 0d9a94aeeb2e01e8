package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountRef 钱包持有方
type AccountRef struct {
	OwnerType string
	OwnerID   uint
}

// CustomerAccount 顾客钱包
func CustomerAccount(userID uint) AccountRef {
	return AccountRef{OwnerType: constants.WalletOwnerCustomer, OwnerID: userID}
}

// SellerAccount 卖家钱包
func SellerAccount(sellerID uint) AccountRef {
	return AccountRef{OwnerType: constants.WalletOwnerSeller, OwnerID: sellerID}
}

// PlatformAccount 平台佣金账户
func PlatformAccount() AccountRef {
	return AccountRef{OwnerType: constants.WalletOwnerPlatform, OwnerID: constants.SystemWalletOwnerID}
}

// EscrowAccount 平台托管账户
func EscrowAccount() AccountRef {
	return AccountRef{OwnerType: constants.WalletOwnerEscrow, OwnerID: constants.SystemWalletOwnerID}
}

func (a AccountRef) String() string {
	return fmt.Sprintf("%s:%d", a.OwnerType, a.OwnerID)
}

// LedgerEntry 单笔记账输入，Amount 恒为正数，方向由 Debit/Credit 决定
type LedgerEntry struct {
	Account              AccountRef
	Amount               models.Money
	Kind                 string
	Reference            string
	OrderID              *uint
	SubOrderID           *uint
	SettlementID         *uint
	PaymentTransactionID *uint
	Remark               string

	// AllowOverdraft 仅对平台账户生效：平台垫付卖家待追回款时允许余额为负
	AllowOverdraft bool
}

// AccountVerification 账户余额核对结果
type AccountVerification struct {
	AccountID     uint         `json:"account_id"`
	OwnerType     string       `json:"owner_type"`
	OwnerID       uint         `json:"owner_id"`
	StoredBalance models.Money `json:"stored_balance"`
	LedgerBalance models.Money `json:"ledger_balance"`
	Consistent    bool         `json:"consistent"`
}

// WalletLedger 钱包账本，余额变动的唯一写入方
type WalletLedger struct {
	walletRepo repository.WalletRepository
	currency   string
	retry      RetryPolicy
}

// NewWalletLedger 创建钱包账本
func NewWalletLedger(walletRepo repository.WalletRepository, currency string, retry RetryPolicy) *WalletLedger {
	return &WalletLedger{
		walletRepo: walletRepo,
		currency:   normalizeCurrency(currency),
		retry:      retry,
	}
}

// DebitInTx 在调用方事务内扣减余额
func (l *WalletLedger) DebitInTx(tx *gorm.DB, entry LedgerEntry) (*models.BalanceTransaction, error) {
	return l.apply(tx, entry, true)
}

// CreditInTx 在调用方事务内增加余额
func (l *WalletLedger) CreditInTx(tx *gorm.DB, entry LedgerEntry) (*models.BalanceTransaction, error) {
	return l.apply(tx, entry, false)
}

// Debit 独立事务扣减余额（行锁冲突时重试）
func (l *WalletLedger) Debit(ctx context.Context, entry LedgerEntry) (*models.BalanceTransaction, error) {
	return l.applyStandalone(ctx, entry, true)
}

// Credit 独立事务增加余额（行锁冲突时重试）
func (l *WalletLedger) Credit(ctx context.Context, entry LedgerEntry) (*models.BalanceTransaction, error) {
	return l.applyStandalone(ctx, entry, false)
}

func (l *WalletLedger) applyStandalone(ctx context.Context, entry LedgerEntry, debit bool) (*models.BalanceTransaction, error) {
	var result *models.BalanceTransaction
	err := l.RunInTx(ctx, func(tx *gorm.DB) error {
		txn, err := l.apply(tx, entry, debit)
		if err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunInTx 在独立事务中执行多笔记账，行锁冲突时整体重试
func (l *WalletLedger) RunInTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return withLockRetry(ctx, l.retry, func() error {
		return l.walletRepo.Transaction(func(tx *gorm.DB) error {
			return fn(tx.WithContext(ctx))
		})
	})
}

// BalanceForUpdateInTx 加锁读取账户余额，账户不存在时自动开户
func (l *WalletLedger) BalanceForUpdateInTx(tx *gorm.DB, ref AccountRef) (decimal.Decimal, error) {
	if tx == nil {
		return decimal.Zero, gorm.ErrInvalidTransaction
	}
	account, err := l.ensureAccountForUpdate(l.walletRepo.WithTx(tx), ref, time.Now())
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance.Decimal.Round(2), nil
}

func (l *WalletLedger) apply(tx *gorm.DB, entry LedgerEntry, debit bool) (*models.BalanceTransaction, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	amount := entry.Amount.Decimal.Round(2)
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrWalletInvalidAmount
	}
	reference := strings.TrimSpace(entry.Reference)
	if reference == "" {
		return nil, ErrLedgerReferenceEmpty
	}
	repo := l.walletRepo.WithTx(tx)

	existing, err := repo.GetTransactionByReference(reference)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	account, err := l.ensureAccountForUpdate(repo, entry.Account, now)
	if err != nil {
		return nil, err
	}
	if account.Status != constants.WalletStatusActive && (debit || account.Status == constants.WalletStatusInactive) {
		return nil, ErrWalletLocked
	}

	signed := amount
	if debit {
		signed = amount.Neg()
	}
	before := account.Balance.Decimal.Round(2)
	after := before.Add(signed).Round(2)
	if after.LessThan(decimal.Zero) && !(entry.AllowOverdraft && entry.Account.OwnerType == constants.WalletOwnerPlatform) {
		return nil, ErrInsufficientBalance
	}
	if err := repo.UpdateAccountBalance(account.ID, models.NewMoneyFromDecimal(after)); err != nil {
		return nil, err
	}

	txn := &models.BalanceTransaction{
		AccountID:            account.ID,
		Kind:                 entry.Kind,
		Status:               constants.BalanceStatusSuccess,
		Amount:               models.NewMoneyFromDecimal(signed),
		BalanceBefore:        models.NewMoneyFromDecimal(before),
		BalanceAfter:         models.NewMoneyFromDecimal(after),
		Currency:             account.Currency,
		OrderID:              entry.OrderID,
		SubOrderID:           entry.SubOrderID,
		SettlementID:         entry.SettlementID,
		PaymentTransactionID: entry.PaymentTransactionID,
		Reference:            reference,
		Remark:               entry.Remark,
		CreatedAt:            now,
	}
	if err := repo.CreateTransaction(txn); err != nil {
		return nil, err
	}
	account.Balance = models.NewMoneyFromDecimal(after)
	return txn, nil
}

// ensureAccountForUpdate 加锁读取账户，不存在时自动开户
func (l *WalletLedger) ensureAccountForUpdate(repo *repository.GormWalletRepository, ref AccountRef, now time.Time) (*models.WalletAccount, error) {
	if ref.OwnerType == "" {
		return nil, ErrWalletAccountNotFound
	}
	account, err := repo.GetAccountByOwnerForUpdate(ref.OwnerType, ref.OwnerID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	account = &models.WalletAccount{
		OwnerType: ref.OwnerType,
		OwnerID:   ref.OwnerID,
		Balance:   models.ZeroMoney(),
		Currency:  l.currency,
		Status:    constants.WalletStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Transaction(func(inner *gorm.DB) error {
		return repo.WithTx(inner).CreateAccount(account)
	}); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
	}
	account, err = repo.GetAccountByOwnerForUpdate(ref.OwnerType, ref.OwnerID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrWalletAccountNotFound
	}
	return account, nil
}

// GetAccount 获取钱包账户（不存在时自动创建）
func (l *WalletLedger) GetAccount(ref AccountRef) (*models.WalletAccount, error) {
	account, err := l.walletRepo.GetAccountByOwner(ref.OwnerType, ref.OwnerID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}
	if err := l.walletRepo.Transaction(func(tx *gorm.DB) error {
		created, err := l.ensureAccountForUpdate(l.walletRepo.WithTx(tx), ref, time.Now())
		if err != nil {
			return err
		}
		account = created
		return nil
	}); err != nil {
		return nil, err
	}
	return account, nil
}

// GetBalance 查询余额
func (l *WalletLedger) GetBalance(ref AccountRef) (models.Money, error) {
	account, err := l.walletRepo.GetAccountByOwner(ref.OwnerType, ref.OwnerID)
	if err != nil {
		return models.ZeroMoney(), err
	}
	if account == nil {
		return models.ZeroMoney(), nil
	}
	return account.Balance, nil
}

// ListTransactions 分页查询账户流水
func (l *WalletLedger) ListTransactions(ref AccountRef, filter repository.BalanceTransactionListFilter) ([]models.BalanceTransaction, int64, error) {
	account, err := l.walletRepo.GetAccountByOwner(ref.OwnerType, ref.OwnerID)
	if err != nil {
		return nil, 0, err
	}
	if account == nil {
		return []models.BalanceTransaction{}, 0, nil
	}
	filter.AccountID = account.ID
	return l.walletRepo.ListTransactions(filter)
}

// VerifyAccount 以流水重算余额并与账户余额比对
func (l *WalletLedger) VerifyAccount(accountID uint) (*AccountVerification, error) {
	account, err := l.walletRepo.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrWalletAccountNotFound
	}
	sum, err := l.walletRepo.SumSuccessAmounts(account.ID)
	if err != nil {
		return nil, err
	}
	result := &AccountVerification{
		AccountID:     account.ID,
		OwnerType:     account.OwnerType,
		OwnerID:       account.OwnerID,
		StoredBalance: account.Balance,
		LedgerBalance: models.NewMoneyFromDecimal(sum),
		Consistent:    account.Balance.Decimal.Round(2).Equal(sum.Round(2)),
	}
	if !result.Consistent {
		logger.Errorw("wallet_ledger_inconsistent",
			"account_id", account.ID,
			"stored_balance", result.StoredBalance.String(),
			"ledger_balance", result.LedgerBalance.String(),
		)
	}
	return result, nil
}

func normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "IDR"
	}
	return currency
}
