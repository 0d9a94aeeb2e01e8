package repository

import (
	"errors"
	"strings"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository 钱包数据访问接口
type WalletRepository interface {
	GetAccountByID(id uint) (*models.WalletAccount, error)
	GetAccountByOwner(ownerType string, ownerID uint) (*models.WalletAccount, error)
	GetAccountByOwnerForUpdate(ownerType string, ownerID uint) (*models.WalletAccount, error)
	CreateAccount(account *models.WalletAccount) error
	UpdateAccountBalance(accountID uint, balance models.Money) error
	CreateTransaction(txn *models.BalanceTransaction) error
	GetTransactionByReference(reference string) (*models.BalanceTransaction, error)
	ListTransactions(filter BalanceTransactionListFilter) ([]models.BalanceTransaction, int64, error)
	SumSuccessAmounts(accountID uint) (decimal.Decimal, error)
	CountByPaymentTransaction(paymentTransactionID uint) (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormWalletRepository
}

// GormWalletRepository GORM 钱包仓储实现
type GormWalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWalletRepository) WithTx(tx *gorm.DB) *GormWalletRepository {
	if tx == nil {
		return r
	}
	return &GormWalletRepository{db: tx}
}

// Transaction 开启事务
func (r *GormWalletRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetAccountByID 按 ID 获取钱包账户
func (r *GormWalletRepository) GetAccountByID(id uint) (*models.WalletAccount, error) {
	if id == 0 {
		return nil, nil
	}
	var account models.WalletAccount
	if err := r.db.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByOwner 按持有方获取钱包账户
func (r *GormWalletRepository) GetAccountByOwner(ownerType string, ownerID uint) (*models.WalletAccount, error) {
	ownerType = strings.TrimSpace(ownerType)
	if ownerType == "" {
		return nil, nil
	}
	var account models.WalletAccount
	if err := r.db.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountByOwnerForUpdate 按持有方加锁获取钱包账户
func (r *GormWalletRepository) GetAccountByOwnerForUpdate(ownerType string, ownerID uint) (*models.WalletAccount, error) {
	ownerType = strings.TrimSpace(ownerType)
	if ownerType == "" {
		return nil, nil
	}
	var account models.WalletAccount
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount 创建钱包账户
func (r *GormWalletRepository) CreateAccount(account *models.WalletAccount) error {
	return r.db.Create(account).Error
}

// UpdateAccountBalance 更新账户余额（仅账本在追加流水的同一事务内调用）
func (r *GormWalletRepository) UpdateAccountBalance(accountID uint, balance models.Money) error {
	return r.db.Model(&models.WalletAccount{}).
		Where("id = ?", accountID).
		Update("balance", balance).Error
}

// CreateTransaction 追加余额流水
func (r *GormWalletRepository) CreateTransaction(txn *models.BalanceTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactionByReference 按幂等引用获取流水
func (r *GormWalletRepository) GetTransactionByReference(reference string) (*models.BalanceTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var txn models.BalanceTransaction
	if err := r.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// ListTransactions 分页查询余额流水
func (r *GormWalletRepository) ListTransactions(filter BalanceTransactionListFilter) ([]models.BalanceTransaction, int64, error) {
	query := r.db.Model(&models.BalanceTransaction{})
	if filter.AccountID != 0 {
		query = query.Where("account_id = ?", filter.AccountID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var txns []models.BalanceTransaction
	if err := query.Order("id desc").Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// SumSuccessAmounts 汇总账户全部成功流水金额
func (r *GormWalletRepository) SumSuccessAmounts(accountID uint) (decimal.Decimal, error) {
	var rows []struct {
		Amount models.Money
	}
	if err := r.db.Model(&models.BalanceTransaction{}).
		Select("amount").
		Where("account_id = ? AND status = ?", accountID, constants.BalanceStatusSuccess).
		Find(&rows).Error; err != nil {
		return decimal.Zero, err
	}
	// 逐条累加，避免数据库 SUM 在 sqlite 下退化为浮点
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount.Decimal)
	}
	return total, nil
}

// CountByPaymentTransaction 统计某支付流水关联的余额流水数量
func (r *GormWalletRepository) CountByPaymentTransaction(paymentTransactionID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.BalanceTransaction{}).
		Where("payment_transaction_id = ?", paymentTransactionID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
