package repository

import "time"

// BalanceTransactionListFilter 查询余额流水的过滤条件
type BalanceTransactionListFilter struct {
	Page        int
	PageSize    int
	AccountID   uint
	OrderID     uint
	Kind        string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// SubOrderListFilter 查询子订单列表的过滤条件
type SubOrderListFilter struct {
	Page     int
	PageSize int
	SellerID uint
	Status   string
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	UserID        uint
	PaymentStatus string
}
