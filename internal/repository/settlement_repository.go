package repository

import (
	"errors"

	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettlementRepository 卖家结算数据访问接口
type SettlementRepository interface {
	Create(settlement *models.OrderSellerSettlement) error
	Update(settlement *models.OrderSellerSettlement) error
	GetByOrderSeller(orderID, sellerID uint) (*models.OrderSellerSettlement, error)
	GetByOrderSellerForUpdate(orderID, sellerID uint) (*models.OrderSellerSettlement, error)
	CountByOrderSeller(orderID, sellerID uint) (int64, error)
	ListPendingClawbacksForUpdate(sellerID uint) ([]models.OrderSellerSettlement, error)
	WithTx(tx *gorm.DB) *GormSettlementRepository
}

// GormSettlementRepository GORM 实现
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewSettlementRepository 创建结算仓库
func NewSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSettlementRepository) WithTx(tx *gorm.DB) *GormSettlementRepository {
	if tx == nil {
		return r
	}
	return &GormSettlementRepository{db: tx}
}

// Create 创建结算记录（唯一索引保证每个订单每个卖家只结算一次）
func (r *GormSettlementRepository) Create(settlement *models.OrderSellerSettlement) error {
	return r.db.Create(settlement).Error
}

// Update 更新结算记录
func (r *GormSettlementRepository) Update(settlement *models.OrderSellerSettlement) error {
	return r.db.Save(settlement).Error
}

// GetByOrderSeller 按订单与卖家获取结算记录
func (r *GormSettlementRepository) GetByOrderSeller(orderID, sellerID uint) (*models.OrderSellerSettlement, error) {
	var settlement models.OrderSellerSettlement
	if err := r.db.Where("order_id = ? AND seller_id = ?", orderID, sellerID).First(&settlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settlement, nil
}

// GetByOrderSellerForUpdate 加锁获取结算记录
func (r *GormSettlementRepository) GetByOrderSellerForUpdate(orderID, sellerID uint) (*models.OrderSellerSettlement, error) {
	var settlement models.OrderSellerSettlement
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND seller_id = ?", orderID, sellerID).
		First(&settlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settlement, nil
}

// CountByOrderSeller 统计结算记录数量
func (r *GormSettlementRepository) CountByOrderSeller(orderID, sellerID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.OrderSellerSettlement{}).
		Where("order_id = ? AND seller_id = ?", orderID, sellerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListPendingClawbacksForUpdate 加锁获取卖家待追回的冲正结算，按时间先后
func (r *GormSettlementRepository) ListPendingClawbacksForUpdate(sellerID uint) ([]models.OrderSellerSettlement, error) {
	var settlements []models.OrderSellerSettlement
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("seller_id = ? AND clawback_status = ?", sellerID, constants.ClawbackStatusPending).
		Order("id asc").
		Find(&settlements).Error; err != nil {
		return nil, err
	}
	return settlements, nil
}
