package queue

import (
	"encoding/json"

	"github.com/modamart/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCheckoutSessionExpire 结算会话过期任务
	TaskCheckoutSessionExpire = constants.TaskCheckoutSessionExpire
	// TaskPaymentTimeoutExpire 待支付流水超时任务
	TaskPaymentTimeoutExpire = constants.TaskPaymentTimeoutExpire
)

// CheckoutSessionExpirePayload 结算会话过期任务载荷
type CheckoutSessionExpirePayload struct {
	SessionID uint `json:"session_id"`
}

// PaymentTimeoutExpirePayload 支付超时任务载荷
type PaymentTimeoutExpirePayload struct {
	TxnRef string `json:"txn_ref"`
}

// NewCheckoutSessionExpireTask 创建结算会话过期任务
func NewCheckoutSessionExpireTask(payload CheckoutSessionExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckoutSessionExpire, body), nil
}

// NewPaymentTimeoutExpireTask 创建支付超时任务
func NewPaymentTimeoutExpireTask(payload PaymentTimeoutExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentTimeoutExpire, body), nil
}
