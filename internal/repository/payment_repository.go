package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository 支付流水数据访问接口
type PaymentRepository interface {
	Create(payment *models.PaymentTransaction) error
	Update(payment *models.PaymentTransaction) error
	GetByID(id uint) (*models.PaymentTransaction, error)
	GetByTxnRef(txnRef string) (*models.PaymentTransaction, error)
	GetByTxnRefForUpdate(txnRef string) (*models.PaymentTransaction, error)
	ListExpiredPending(now time.Time, limit int) ([]models.PaymentTransaction, error)
	WithTx(tx *gorm.DB) *GormPaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) *GormPaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// Create 创建支付流水
func (r *GormPaymentRepository) Create(payment *models.PaymentTransaction) error {
	return r.db.Create(payment).Error
}

// Update 更新支付流水
func (r *GormPaymentRepository) Update(payment *models.PaymentTransaction) error {
	return r.db.Save(payment).Error
}

// GetByID 根据 ID 获取支付流水
func (r *GormPaymentRepository) GetByID(id uint) (*models.PaymentTransaction, error) {
	var payment models.PaymentTransaction
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByTxnRef 根据幂等引用获取支付流水
func (r *GormPaymentRepository) GetByTxnRef(txnRef string) (*models.PaymentTransaction, error) {
	txnRef = strings.TrimSpace(txnRef)
	if txnRef == "" {
		return nil, nil
	}
	var payment models.PaymentTransaction
	if err := r.db.Where("txn_ref = ?", txnRef).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// GetByTxnRefForUpdate 根据幂等引用加锁获取支付流水
func (r *GormPaymentRepository) GetByTxnRefForUpdate(txnRef string) (*models.PaymentTransaction, error) {
	txnRef = strings.TrimSpace(txnRef)
	if txnRef == "" {
		return nil, nil
	}
	var payment models.PaymentTransaction
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("txn_ref = ?", txnRef).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ListExpiredPending 获取已过期但仍待支付的网关流水
func (r *GormPaymentRepository) ListExpiredPending(now time.Time, limit int) ([]models.PaymentTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var payments []models.PaymentTransaction
	if err := r.db.Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", constants.PaymentStatusPending, now).
		Order("id asc").
		Limit(limit).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
