package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/repository"

	"gorm.io/gorm"
)

// WalletService 钱包服务（账户查询、流水、卖家提现）
type WalletService struct {
	ledger      *WalletLedger
	settlements *SettlementService
}

// WithdrawInput 卖家提现输入
type WithdrawInput struct {
	SellerID  uint
	Amount    models.Money
	Reference string
	Remark    string
}

// WalletOverview 钱包概览
type WalletOverview struct {
	Account *models.WalletAccount `json:"account"`
	Balance models.Money          `json:"balance"`
}

// NewWalletService 创建钱包服务
func NewWalletService(ledger *WalletLedger, settlements *SettlementService) *WalletService {
	return &WalletService{ledger: ledger, settlements: settlements}
}

// GetCustomerWallet 获取顾客钱包
func (s *WalletService) GetCustomerWallet(userID uint) (*WalletOverview, error) {
	if userID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	return s.overview(CustomerAccount(userID))
}

// GetSellerWallet 获取卖家钱包
func (s *WalletService) GetSellerWallet(sellerID uint) (*WalletOverview, error) {
	if sellerID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	return s.overview(SellerAccount(sellerID))
}

func (s *WalletService) overview(ref AccountRef) (*WalletOverview, error) {
	account, err := s.ledger.GetAccount(ref)
	if err != nil {
		return nil, err
	}
	return &WalletOverview{Account: account, Balance: account.Balance}, nil
}

// ListCustomerTransactions 分页查询顾客流水
func (s *WalletService) ListCustomerTransactions(userID uint, filter repository.BalanceTransactionListFilter) ([]models.BalanceTransaction, int64, error) {
	if userID == 0 {
		return nil, 0, ErrWalletAccountNotFound
	}
	return s.ledger.ListTransactions(CustomerAccount(userID), filter)
}

// ListSellerTransactions 分页查询卖家流水
func (s *WalletService) ListSellerTransactions(sellerID uint, filter repository.BalanceTransactionListFilter) ([]models.BalanceTransaction, int64, error) {
	if sellerID == 0 {
		return nil, 0, ErrWalletAccountNotFound
	}
	return s.ledger.ListTransactions(SellerAccount(sellerID), filter)
}

// Withdraw 卖家提现（扣减卖家余额，外部打款不在本服务内）
func (s *WalletService) Withdraw(ctx context.Context, input WithdrawInput) (*models.BalanceTransaction, error) {
	if input.SellerID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	amount := models.NewMoneyFromDecimal(input.Amount.Decimal)
	if !amount.Decimal.IsPositive() {
		return nil, ErrWalletInvalidAmount
	}
	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		return nil, ErrLedgerReferenceEmpty
	}
	var txn *models.BalanceTransaction
	// 提现前先追回平台垫付款，追回后余额不足则拒绝提现
	err := s.ledger.RunInTx(ctx, func(tx *gorm.DB) error {
		if s.settlements != nil {
			if _, err := s.settlements.CollectClawbacksInTx(tx, input.SellerID); err != nil {
				return err
			}
		}
		debited, err := s.ledger.DebitInTx(tx, LedgerEntry{
			Account:   SellerAccount(input.SellerID),
			Amount:    amount,
			Kind:      constants.BalanceKindWithdrawal,
			Reference: fmt.Sprintf("withdrawal:%d:%s", input.SellerID, reference),
			Remark:    cleanWalletRemark(input.Remark, "seller withdrawal"),
		})
		if err != nil {
			return err
		}
		txn = debited
		return nil
	})
	if err != nil {
		logger.For("wallet").Warnw("wallet_withdraw_failed", "seller_id", input.SellerID, logger.Amount("amount", amount.Decimal), "error", err)
		return nil, err
	}
	logger.For("wallet").Infow("wallet_withdrawn",
		"seller_id", input.SellerID,
		logger.Amount("amount", amount.Decimal),
		logger.Amount("balance_after", txn.BalanceAfter.Decimal),
	)
	return txn, nil
}

// VerifyAccount 管理员核对账户余额
func (s *WalletService) VerifyAccount(accountID uint) (*AccountVerification, error) {
	if accountID == 0 {
		return nil, ErrWalletAccountNotFound
	}
	return s.ledger.VerifyAccount(accountID)
}

func cleanWalletRemark(raw string, fallback string) string {
	remark := strings.TrimSpace(raw)
	if remark == "" {
		return fallback
	}
	return truncate(remark, 255)
}
