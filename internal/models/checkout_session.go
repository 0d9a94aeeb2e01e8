package models

import (
	"time"

	"gorm.io/gorm"
)

// CheckoutSession 结算会话
type CheckoutSession struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                    // 主键
	SessionNo       string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"session_no"` // 会话编号
	UserID          uint           `gorm:"not null;index" json:"user_id"`                           // 用户ID
	Status          string         `gorm:"type:varchar(20);not null;index" json:"status"`           // 会话状态（open/consumed/expired）
	Currency        string         `gorm:"type:varchar(10);not null" json:"currency"`               // 币种
	ExpiresAt       time.Time      `gorm:"index;not null" json:"expires_at"`                        // 过期时间
	ConsumedAt      *time.Time     `json:"consumed_at,omitempty"`                                   // 消费时间
	OrderGroupID    *uint          `gorm:"index" json:"order_group_id,omitempty"`                   // 生成的订单组ID
	ShippingAddress JSON           `gorm:"type:json" json:"shipping_address,omitempty"`             // 收货地址
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间
}

// TableName 指定表名
func (CheckoutSession) TableName() string {
	return "checkout_sessions"
}

// CheckoutSessionItem 结算会话项（价格快照）
type CheckoutSessionItem struct {
	ID         uint      `gorm:"primarykey" json:"id"`                          // 主键
	SessionID  uint      `gorm:"not null;index" json:"session_id"`              // 会话ID
	SellerID   uint      `gorm:"not null;index" json:"seller_id"`               // 卖家ID
	SellerType string    `gorm:"type:varchar(20);not null" json:"seller_type"`  // 卖家类型（supplier/designer）
	ProductID  uint      `gorm:"not null;index" json:"product_id"`              // 商品ID
	CartItemID uint      `gorm:"not null;default:0" json:"cart_item_id"`        // 来源购物车项ID
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`       // 商品标题快照
	Quantity   int       `gorm:"not null" json:"quantity"`                      // 数量
	UnitPrice  Money     `gorm:"type:decimal(20,2);not null" json:"unit_price"` // 单价快照
	IsSelected bool      `gorm:"not null" json:"is_selected"`                   // 是否勾选
	Reserved   bool      `gorm:"not null;default:false" json:"-"`               // 是否仍占用库存
	CreatedAt  time.Time `json:"created_at"`                                    // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (CheckoutSessionItem) TableName() string {
	return "checkout_session_items"
}
