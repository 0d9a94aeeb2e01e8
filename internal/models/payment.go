package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentTransaction 支付流水（以 TxnRef 幂等）
type PaymentTransaction struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                  // 主键
	TxnRef            string         `gorm:"type:varchar(120);not null;uniqueIndex" json:"txn_ref"` // 幂等引用
	UserID            uint           `gorm:"not null;index" json:"user_id"`                         // 付款用户ID
	Purpose           string         `gorm:"type:varchar(20);not null;index" json:"purpose"`        // 用途（checkout/recharge）
	Provider          string         `gorm:"type:varchar(20);not null" json:"provider"`             // 资金来源（wallet/gateway）
	Status            string         `gorm:"type:varchar(20);not null;index" json:"status"`         // 支付状态
	Amount            Money          `gorm:"type:decimal(20,2);not null" json:"amount"`             // 支付金额
	Currency          string         `gorm:"type:varchar(10);not null" json:"currency"`             // 币种
	CheckoutSessionID *uint          `gorm:"index" json:"checkout_session_id,omitempty"`            // 结算会话ID
	ProviderScope     uint           `gorm:"not null;default:0" json:"provider_scope"`              // 限定卖家ID（0 表示全部勾选项）
	SelectedItemIDs   UintList       `gorm:"type:text" json:"selected_item_ids"`                    // 支付时锁定的结算项
	OrderGroupID      *uint          `gorm:"index" json:"order_group_id,omitempty"`                 // 生成的订单组ID
	ProviderRef       string         `gorm:"type:varchar(120);index" json:"provider_ref,omitempty"` // 网关流水号
	CallbackPayload   JSON           `gorm:"type:json" json:"-"`                                    // 回调原始数据
	FailureReason     string         `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`     // 失败原因
	ExpiresAt         *time.Time     `gorm:"index" json:"expires_at,omitempty"`                     // 过期时间
	PaidAt            *time.Time     `gorm:"index" json:"paid_at,omitempty"`                        // 支付时间
	CallbackAt        *time.Time     `json:"callback_at,omitempty"`                                 // 回调时间
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}
