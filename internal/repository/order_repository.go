package repository

import (
	"errors"

	"github.com/modamart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口（订单组/父订单/子订单/明细）
type OrderRepository interface {
	CreateGroup(group *models.OrderGroup) error
	GetGroupByID(id uint) (*models.OrderGroup, error)
	CreateOrder(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDAndUser(id uint, userID uint) (*models.Order, error)
	ListByGroup(groupID uint) ([]models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	CreateSubOrders(subOrders []models.SubOrder) error
	GetSubOrderByID(id uint) (*models.SubOrder, error)
	GetSubOrderByIDForUpdate(id uint) (*models.SubOrder, error)
	ListSubOrders(orderID uint) ([]models.SubOrder, error)
	ListSubOrdersByOrderIDs(orderIDs []uint) ([]models.SubOrder, error)
	ListSellerSubOrders(filter SubOrderListFilter) ([]models.SubOrder, int64, error)
	UpdateSubOrder(id uint, updates map[string]interface{}) error
	CreateDetails(details []models.OrderDetail) error
	ListDetails(orderID uint) ([]models.OrderDetail, error)
	UpdateDetailStatusBySubOrder(subOrderID uint, status string) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// CreateGroup 创建订单组
func (r *GormOrderRepository) CreateGroup(group *models.OrderGroup) error {
	return r.db.Create(group).Error
}

// GetGroupByID 根据 ID 获取订单组
func (r *GormOrderRepository) GetGroupByID(id uint) (*models.OrderGroup, error) {
	var group models.OrderGroup
	if err := r.db.First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// CreateOrder 创建父订单
func (r *GormOrderRepository) CreateOrder(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDAndUser 获取用户订单
func (r *GormOrderRepository) GetByIDAndUser(id uint, userID uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByGroup 获取订单组内订单
func (r *GormOrderRepository) ListByGroup(groupID uint) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Where("order_group_id = ?", groupID).Order("id asc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// List 分页查询订单
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var orders []models.Order
	if err := query.Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// CreateSubOrders 批量创建子订单
func (r *GormOrderRepository) CreateSubOrders(subOrders []models.SubOrder) error {
	if len(subOrders) == 0 {
		return nil
	}
	return r.db.Create(&subOrders).Error
}

// GetSubOrderByID 根据 ID 获取子订单
func (r *GormOrderRepository) GetSubOrderByID(id uint) (*models.SubOrder, error) {
	var subOrder models.SubOrder
	if err := r.db.First(&subOrder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subOrder, nil
}

// GetSubOrderByIDForUpdate 加锁获取子订单
func (r *GormOrderRepository) GetSubOrderByIDForUpdate(id uint) (*models.SubOrder, error) {
	var subOrder models.SubOrder
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&subOrder, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subOrder, nil
}

// ListSubOrders 获取订单下的子订单
func (r *GormOrderRepository) ListSubOrders(orderID uint) ([]models.SubOrder, error) {
	var subOrders []models.SubOrder
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&subOrders).Error; err != nil {
		return nil, err
	}
	return subOrders, nil
}

// ListSubOrdersByOrderIDs 批量获取子订单
func (r *GormOrderRepository) ListSubOrdersByOrderIDs(orderIDs []uint) ([]models.SubOrder, error) {
	if len(orderIDs) == 0 {
		return []models.SubOrder{}, nil
	}
	var subOrders []models.SubOrder
	if err := r.db.Where("order_id IN ?", orderIDs).Order("id asc").Find(&subOrders).Error; err != nil {
		return nil, err
	}
	return subOrders, nil
}

// ListSellerSubOrders 卖家分页查询子订单
func (r *GormOrderRepository) ListSellerSubOrders(filter SubOrderListFilter) ([]models.SubOrder, int64, error) {
	query := r.db.Model(&models.SubOrder{}).Where("seller_id = ?", filter.SellerID)
	if filter.Status != "" {
		query = query.Where("fulfillment_status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var subOrders []models.SubOrder
	if err := query.Order("id desc").Find(&subOrders).Error; err != nil {
		return nil, 0, err
	}
	return subOrders, total, nil
}

// UpdateSubOrder 更新子订单字段
func (r *GormOrderRepository) UpdateSubOrder(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.SubOrder{}).Where("id = ?", id).Updates(updates).Error
}

// CreateDetails 批量创建订单明细
func (r *GormOrderRepository) CreateDetails(details []models.OrderDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.db.Create(&details).Error
}

// ListDetails 获取订单明细
func (r *GormOrderRepository) ListDetails(orderID uint) ([]models.OrderDetail, error) {
	var details []models.OrderDetail
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

// UpdateDetailStatusBySubOrder 同步子订单下明细状态
func (r *GormOrderRepository) UpdateDetailStatusBySubOrder(subOrderID uint, status string) error {
	return r.db.Model(&models.OrderDetail{}).
		Where("sub_order_id = ?", subOrderID).
		Update("item_status", status).Error
}
