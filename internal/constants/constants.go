package constants

// 钱包持有方类型常量
const (
	WalletOwnerCustomer = "customer"
	WalletOwnerSeller   = "seller"
	WalletOwnerPlatform = "platform"
	WalletOwnerEscrow   = "escrow"
)

// SystemWalletOwnerID 平台/托管账户的持有方 ID
const SystemWalletOwnerID uint = 0

// 钱包账户状态常量
const (
	WalletStatusActive   = "active"
	WalletStatusLocked   = "locked"
	WalletStatusInactive = "inactive"
)

// 余额流水类型常量
const (
	BalanceKindDeposit         = "deposit"
	BalanceKindWithdrawal      = "withdrawal"
	BalanceKindPayment         = "payment"
	BalanceKindPaymentReceived = "payment_received"
	BalanceKindRefund          = "refund"
	BalanceKindTransfer        = "transfer"
	BalanceKindClawback        = "clawback"
)

// 余额流水状态常量
const (
	BalanceStatusPending = "pending"
	BalanceStatusSuccess = "success"
	BalanceStatusFail    = "fail"
)

// 支付流水状态常量
const (
	PaymentStatusPending  = "pending"
	PaymentStatusSuccess  = "success"
	PaymentStatusFailed   = "failed"
	PaymentStatusExpired  = "expired"
	PaymentStatusRefunded = "refunded"
)

// 支付用途与资金来源常量
const (
	PaymentPurposeCheckout = "checkout"
	PaymentPurposeRecharge = "recharge"
	PaymentProviderWallet  = "wallet"
	PaymentProviderGateway = "gateway"
)

// 结算会话状态常量
const (
	CheckoutSessionStatusOpen     = "open"
	CheckoutSessionStatusConsumed = "consumed"
	CheckoutSessionStatusExpired  = "expired"
)

// 订单支付状态常量
const (
	OrderPaymentStatusPending = "pending"
	OrderPaymentStatusPaid    = "paid"
	OrderPaymentStatusFailed  = "failed"
	OrderPaymentStatusExpired = "expired"
)

// 卖家类型常量
const (
	SellerTypeSupplier = "supplier"
	SellerTypeDesigner = "designer"
)

// 子订单履约状态常量
const (
	FulfillmentStatusPending    = "pending"
	FulfillmentStatusConfirmed  = "confirmed"
	FulfillmentStatusProcessing = "processing"
	FulfillmentStatusShipped    = "shipped"
	FulfillmentStatusDelivered  = "delivered"
	FulfillmentStatusCanceled   = "canceled"
	FulfillmentStatusReturned   = "returned"
)

// 订单明细状态常量
const (
	OrderItemStatusPending   = "pending"
	OrderItemStatusConfirmed = "confirmed"
	OrderItemStatusShipped   = "shipped"
	OrderItemStatusDelivered = "delivered"
	OrderItemStatusCanceled  = "canceled"
	OrderItemStatusReturned  = "returned"
)

// 结算状态常量
const (
	SettlementStatusSettled  = "settled"
	SettlementStatusReversed = "reversed"

	ClawbackStatusPending   = "pending"
	ClawbackStatusCollected = "collected"
)

// 支付方式常量
const (
	PayMethodWallet  = "wallet"
	PayMethodGateway = "gateway"
)

// 用户角色常量
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// QueueDefault 默认队列名称
const QueueDefault = "default"

// 异步任务类型常量
const (
	TaskCheckoutSessionExpire = "checkout:session_expire"
	TaskPaymentTimeoutExpire  = "payment:timeout_expire"
)

// 领域事件主题常量
const (
	EventOrderSplit        = "order.split"
	EventSubOrderPrefix    = "suborder"
	EventSettlementCreated = "settlement.created"
	EventSettlementReverse = "settlement.reversed"
	EventWalletDeposit     = "wallet.deposit"
)
