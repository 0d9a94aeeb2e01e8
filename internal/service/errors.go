package service

import (
	"errors"
	"fmt"
)

// 钱包账本错误
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrWalletLocked          = errors.New("wallet account locked")
	ErrWalletAccountNotFound = errors.New("wallet account not found")
	ErrWalletInvalidAmount   = errors.New("wallet amount invalid")
	ErrLedgerReferenceEmpty  = errors.New("ledger reference empty")
)

// 购物车与结算会话错误
var (
	ErrCartEmpty              = errors.New("cart is empty")
	ErrCartItemInvalid        = errors.New("cart item invalid")
	ErrProductNotFound        = errors.New("product not found")
	ErrProductNotAvailable    = errors.New("product not available")
	ErrStockInsufficient      = errors.New("stock insufficient")
	ErrSessionNotFound        = errors.New("checkout session not found")
	ErrSessionExpired         = errors.New("checkout session expired")
	ErrSessionAlreadyConsumed = errors.New("checkout session already consumed")
	ErrCheckoutItemInvalid    = errors.New("checkout item invalid")
	ErrNothingSelected        = errors.New("no checkout item selected")
	ErrPayMethodInvalid       = errors.New("pay method invalid")
	ErrCheckoutBusy           = errors.New("checkout payment in progress")
	ErrSellerTypeConflict     = errors.New("seller id bound to another seller type")
)

// 支付错误
var (
	ErrDuplicateTxnRef       = errors.New("duplicate txn ref")
	ErrTxnRefConflict        = errors.New("txn ref belongs to another payment")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentInvalid        = errors.New("payment invalid")
	ErrPaymentStatusInvalid  = errors.New("payment status invalid")
	ErrPaymentAmountMismatch = errors.New("payment amount mismatch")
)

// 订单、履约与结算错误
var (
	ErrSplitConsistency        = errors.New("order split consistency violated")
	ErrOrderNotFound           = errors.New("order not found")
	ErrSubOrderNotFound        = errors.New("sub order not found")
	ErrForbiddenSubOrder       = errors.New("sub order belongs to another seller")
	ErrInvalidStateTransition  = errors.New("invalid state transition")
	ErrTrackingInfoRequired    = errors.New("tracking info required")
	ErrSettlementAlreadyExists = errors.New("settlement already exists")
	ErrSettlementNotFound      = errors.New("settlement not found")
)

// StateTransitionError 非法状态迁移，携带当前状态与目标状态
type StateTransitionError struct {
	Current string
	Target  string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.Current, e.Target)
}

// Is 使 errors.Is(err, ErrInvalidStateTransition) 成立
func (e *StateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}
