package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品/面料（目录由外部维护，这里只保留结算所需字段）
type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                      // 主键
	SellerID      uint           `gorm:"not null;index" json:"seller_id"`                           // 卖家ID
	SellerType    string         `gorm:"type:varchar(20);not null;index" json:"seller_type"`        // 卖家类型（supplier/designer）
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`                   // 标题
	PriceAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price_amount"` // 当前价格
	Stock         int            `gorm:"not null;default:0" json:"stock"`                           // 库存总量
	ReservedStock int            `gorm:"not null;default:0" json:"reserved_stock"`                  // 结算会话占用量
	IsActive      bool           `gorm:"not null;index" json:"is_active"`                           // 是否上架
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// AvailableStock 可售库存
func (p Product) AvailableStock() int {
	available := p.Stock - p.ReservedStock
	if available < 0 {
		return 0
	}
	return available
}
