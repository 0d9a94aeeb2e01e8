package repository

import (
	"errors"

	"github.com/modamart/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	ListByUser(userID uint) ([]models.CartItem, error)
	Upsert(item *models.CartItem) error
	DeleteByUserAndProduct(userID, productID uint) error
	DeleteByUserAndProducts(userID uint, productIDs []uint) error
	ClearByUser(userID uint) error
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// ListByUser 获取用户购物车项（按加入顺序）
func (r *GormCartRepository) ListByUser(userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.Where("user_id = ?", userID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Upsert 添加或更新购物车项
func (r *GormCartRepository) Upsert(item *models.CartItem) error {
	if item == nil {
		return nil
	}
	var existing models.CartItem
	err := r.db.Where("user_id = ? AND product_id = ?", item.UserID, item.ProductID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(item).Error
	}
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"quantity":   item.Quantity,
		"updated_at": item.UpdatedAt,
	}
	if err := r.db.Model(&existing).Updates(updates).Error; err != nil {
		return err
	}
	item.ID = existing.ID
	item.CreatedAt = existing.CreatedAt
	return nil
}

// DeleteByUserAndProduct 删除购物车项（物理删除，避免唯一索引冲突）
func (r *GormCartRepository) DeleteByUserAndProduct(userID, productID uint) error {
	return r.db.Unscoped().Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.CartItem{}).Error
}

// DeleteByUserAndProducts 批量删除已支付的购物车项
func (r *GormCartRepository) DeleteByUserAndProducts(userID uint, productIDs []uint) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.Unscoped().Where("user_id = ? AND product_id IN ?", userID, productIDs).Delete(&models.CartItem{}).Error
}

// ClearByUser 清空购物车
func (r *GormCartRepository) ClearByUser(userID uint) error {
	return r.db.Unscoped().Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}
