package models

import (
	"time"

	"gorm.io/gorm"
)

// WalletAccount 钱包账户
type WalletAccount struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                                     // 主键
	OwnerType string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_wallet_owner" json:"owner_type"` // 持有方类型（customer/seller/platform/escrow）
	OwnerID   uint           `gorm:"not null;uniqueIndex:idx_wallet_owner" json:"owner_id"`                    // 持有方ID
	Balance   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`                     // 当前余额
	Currency  string         `gorm:"type:varchar(10);not null" json:"currency"`                                // 币种
	Status    string         `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`           // 账户状态（active/locked/inactive）
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                                  // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                                  // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                                           // 软删除时间
}

// TableName 指定表名
func (WalletAccount) TableName() string {
	return "wallet_accounts"
}

// BalanceTransaction 余额流水（只追加，不修改）
type BalanceTransaction struct {
	ID                   uint      `gorm:"primarykey" json:"id"`                                    // 主键
	AccountID            uint      `gorm:"not null;index" json:"account_id"`                        // 钱包账户ID
	Kind                 string    `gorm:"type:varchar(30);not null;index" json:"kind"`             // 流水类型
	Status               string    `gorm:"type:varchar(20);not null;index" json:"status"`           // 流水状态
	Amount               Money     `gorm:"type:decimal(20,2);not null" json:"amount"`               // 变动金额（带符号）
	BalanceBefore        Money     `gorm:"type:decimal(20,2);not null" json:"balance_before"`       // 变动前余额
	BalanceAfter         Money     `gorm:"type:decimal(20,2);not null" json:"balance_after"`        // 变动后余额
	Currency             string    `gorm:"type:varchar(10);not null" json:"currency"`               // 币种
	OrderID              *uint     `gorm:"index" json:"order_id,omitempty"`                         // 关联订单ID
	SubOrderID           *uint     `gorm:"index" json:"sub_order_id,omitempty"`                     // 关联子订单ID
	SettlementID         *uint     `gorm:"index" json:"settlement_id,omitempty"`                    // 关联结算ID
	PaymentTransactionID *uint     `gorm:"index" json:"payment_transaction_id,omitempty"`           // 关联支付流水ID
	Reference            string    `gorm:"type:varchar(120);not null;uniqueIndex" json:"reference"` // 幂等引用
	Remark               string    `gorm:"type:varchar(255)" json:"remark"`                         // 备注
	CreatedAt            time.Time `gorm:"index" json:"created_at"`                                 // 创建时间
}

// TableName 指定表名
func (BalanceTransaction) TableName() string {
	return "balance_transactions"
}
