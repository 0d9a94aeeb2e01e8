package repository

import (
	"errors"

	"github.com/modamart/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口（目录只读 + 库存占用）
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	GetByIDs(ids []uint) ([]models.Product, error)
	Create(product *models.Product) error
	ReserveStock(productID uint, quantity int) (bool, error)
	ReleaseStock(productID uint, quantity int) error
	ConsumeStock(productID uint, quantity int) error
	WithTx(tx *gorm.DB) *GormProductRepository
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// GetByID 根据 ID 获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// GetByIDs 批量获取商品
func (r *GormProductRepository) GetByIDs(ids []uint) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品（仅供种子数据与测试使用）
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// ReserveStock 占用库存（条件更新，库存不足时返回 false）
func (r *GormProductRepository) ReserveStock(productID uint, quantity int) (bool, error) {
	if quantity <= 0 {
		return true, nil
	}
	result := r.db.Model(&models.Product{}).
		Where("id = ? AND stock - reserved_stock >= ?", productID, quantity).
		UpdateColumn("reserved_stock", gorm.Expr("reserved_stock + ?", quantity))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseStock 释放库存占用
func (r *GormProductRepository) ReleaseStock(productID uint, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	return r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("reserved_stock", gorm.Expr("CASE WHEN reserved_stock >= ? THEN reserved_stock - ? ELSE 0 END", quantity, quantity)).Error
}

// ConsumeStock 支付成功后扣减库存并释放占用
func (r *GormProductRepository) ConsumeStock(productID uint, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	return r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"stock":          gorm.Expr("CASE WHEN stock >= ? THEN stock - ? ELSE 0 END", quantity, quantity),
			"reserved_stock": gorm.Expr("CASE WHEN reserved_stock >= ? THEN reserved_stock - ? ELSE 0 END", quantity, quantity),
		}).Error
}
