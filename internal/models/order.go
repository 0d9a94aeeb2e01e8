package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderGroup 订单组（一次支付事件产生的订单集合）
type OrderGroup struct {
	ID                   uint           `gorm:"primarykey" json:"id"`                                  // 主键
	GroupNo              string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"group_no"` // 订单组编号
	UserID               uint           `gorm:"not null;index" json:"user_id"`                         // 用户ID
	CheckoutSessionID    uint           `gorm:"not null;index" json:"checkout_session_id"`             // 结算会话ID
	PaymentTransactionID uint           `gorm:"not null;index" json:"payment_transaction_id"`          // 支付流水ID
	TotalPrice           Money          `gorm:"type:decimal(20,2);not null" json:"total_price"`        // 支付总额
	Currency             string         `gorm:"type:varchar(10);not null" json:"currency"`             // 币种
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt            time.Time      `json:"updated_at"`                                            // 更新时间
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (OrderGroup) TableName() string {
	return "order_groups"
}

// Order 订单表（父订单）
type Order struct {
	ID                uint            `gorm:"primarykey" json:"id"`                                        // 主键
	OrderNo           string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`       // 订单编号
	OrderGroupID      *uint           `gorm:"index" json:"order_group_id,omitempty"`                       // 订单组ID
	UserID            uint            `gorm:"index;not null" json:"user_id"`                               // 用户ID
	CheckoutSessionID uint            `gorm:"index;not null" json:"checkout_session_id"`                   // 结算会话ID
	PaymentStatus     string          `gorm:"type:varchar(20);index;not null" json:"payment_status"`       // 支付状态
	Currency          string          `gorm:"type:varchar(10);not null" json:"currency"`                   // 币种
	Subtotal          Money           `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`       // 商品小计
	ShippingFee       Money           `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_fee"`   // 运费
	Discount          Money           `gorm:"type:decimal(20,2);not null;default:0" json:"discount"`       // 优惠金额
	TotalPrice        Money           `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`    // 实付金额
	CommissionRate    decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0" json:"commission_rate"` // 佣金比例快照
	ShippingAddress   JSON            `gorm:"type:json" json:"shipping_address,omitempty"`                 // 收货地址快照
	PaidAt            *time.Time      `gorm:"index" json:"paid_at"`                                        // 支付时间
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt         time.Time       `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`                                              // 软删除时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// SubOrder 子订单（按卖家拆分）
type SubOrder struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                                          // 主键
	SubOrderNo        string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"sub_order_no"`                     // 子订单编号
	OrderID           uint           `gorm:"not null;index;uniqueIndex:idx_sub_order_seller" json:"order_id"`               // 父订单ID
	SellerID          uint           `gorm:"not null;index;uniqueIndex:idx_sub_order_seller" json:"seller_id"`              // 卖家ID
	SellerType        string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_sub_order_seller" json:"seller_type"` // 卖家类型
	FulfillmentStatus string         `gorm:"type:varchar(20);not null;index" json:"fulfillment_status"`                     // 履约状态
	Subtotal          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`                         // 商品小计
	ShippingFee       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"shipping_fee"`                     // 分摊运费
	TotalPrice        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`                      // 子订单金额
	Carrier           string         `gorm:"type:varchar(60)" json:"carrier,omitempty"`                                     // 承运商
	TrackingNo        string         `gorm:"type:varchar(120)" json:"tracking_no,omitempty"`                                // 物流单号
	CancelReason      string         `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`                              // 取消/退货原因
	ConfirmedAt       *time.Time     `json:"confirmed_at,omitempty"`                                                        // 确认时间
	ProcessingAt      *time.Time     `json:"processing_at,omitempty"`                                                       // 备货时间
	ShippedAt         *time.Time     `json:"shipped_at,omitempty"`                                                          // 发货时间
	DeliveredAt       *time.Time     `json:"delivered_at,omitempty"`                                                        // 签收时间
	CanceledAt        *time.Time     `json:"canceled_at,omitempty"`                                                         // 取消时间
	ReturnedAt        *time.Time     `json:"returned_at,omitempty"`                                                         // 退货时间
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                                       // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                                       // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                                // 软删除时间
}

// TableName 指定表名
func (SubOrder) TableName() string {
	return "sub_orders"
}

// OrderDetail 订单明细行
type OrderDetail struct {
	ID         uint           `gorm:"primarykey" json:"id"`                               // 主键
	OrderID    uint           `gorm:"not null;index" json:"order_id"`                     // 父订单ID
	SubOrderID uint           `gorm:"not null;index" json:"sub_order_id"`                 // 子订单ID
	ProductID  uint           `gorm:"not null;index" json:"product_id"`                   // 商品ID
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`            // 商品标题快照
	Quantity   int            `gorm:"not null" json:"quantity"`                           // 数量
	UnitPrice  Money          `gorm:"type:decimal(20,2);not null" json:"unit_price"`      // 成交单价
	LineTotal  Money          `gorm:"type:decimal(20,2);not null" json:"line_total"`      // 行小计
	ItemStatus string         `gorm:"type:varchar(20);not null;index" json:"item_status"` // 明细状态
	CreatedAt  time.Time      `json:"created_at"`                                         // 创建时间
	UpdatedAt  time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (OrderDetail) TableName() string {
	return "order_details"
}
