package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSellerSettlement 卖家结算记录（每个订单每个卖家唯一）
type OrderSellerSettlement struct {
	ID               uint            `gorm:"primarykey" json:"id"`                                              // 主键
	OrderID          uint            `gorm:"not null;uniqueIndex:idx_settlement_order_seller" json:"order_id"`  // 订单ID
	SellerID         uint            `gorm:"not null;uniqueIndex:idx_settlement_order_seller" json:"seller_id"` // 卖家ID
	SellerType       string          `gorm:"type:varchar(20);not null" json:"seller_type"`                      // 卖家类型
	SubOrderID       uint            `gorm:"not null;index" json:"sub_order_id"`                                // 子订单ID
	GrossAmount      Money           `gorm:"type:decimal(20,2);not null" json:"gross_amount"`                   // 结算基数（不含运费）
	CommissionRate   decimal.Decimal `gorm:"type:decimal(6,4);not null" json:"commission_rate"`                 // 佣金比例
	CommissionAmount Money           `gorm:"type:decimal(20,2);not null" json:"commission_amount"`              // 平台佣金
	NetAmount        Money           `gorm:"type:decimal(20,2);not null" json:"net_amount"`                     // 卖家净收入
	ShippingAmount   Money           `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_amount"`      // 运费转付
	Status           string          `gorm:"type:varchar(20);not null;index" json:"status"`                     // 结算状态（settled/reversed）
	SettledAt        time.Time       `gorm:"index" json:"settled_at"`                                           // 结算时间
	ReversedAt       *time.Time      `json:"reversed_at,omitempty"`                                             // 冲正时间
	ClawbackAmount   Money           `gorm:"type:decimal(20,2);not null;default:0" json:"clawback_amount"`      // 冲正时卖家余额不足、由平台垫付的待追回金额
	ClawbackStatus   string          `gorm:"type:varchar(20);index" json:"clawback_status,omitempty"`           // 追回状态（pending/collected）
	ClawbackAt       *time.Time      `json:"clawback_at,omitempty"`                                             // 追回时间
	CreatedAt        time.Time       `json:"created_at"`                                                        // 创建时间
	UpdatedAt        time.Time       `json:"updated_at"`                                                        // 更新时间
}

// TableName 指定表名
func (OrderSellerSettlement) TableName() string {
	return "order_seller_settlements"
}
