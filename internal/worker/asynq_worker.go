package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/provider"
	"github.com/modamart/internal/queue"
	"github.com/modamart/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCheckoutSessionExpire, c.handleCheckoutSessionExpire)
	mux.HandleFunc(queue.TaskPaymentTimeoutExpire, c.handlePaymentTimeoutExpire)
}

// 载荷无法解析时不再重试
func skipRetry(err error) error {
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}

func (c *Consumer) handleCheckoutSessionExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_session_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CheckoutSessionExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_session_expire_unmarshal_failed", "error", err)
		return skipRetry(err)
	}
	if payload.SessionID == 0 {
		logger.Debugw("worker_session_expire_skip_invalid_payload", "session_id", payload.SessionID)
		return nil
	}
	if c.CheckoutService == nil {
		logger.Warnw("worker_session_expire_skip_service_nil", "session_id", payload.SessionID)
		return nil
	}
	expired, err := c.CheckoutService.ExpireSession(ctx, payload.SessionID)
	if err != nil {
		logger.Warnw("worker_session_expire_failed", "session_id", payload.SessionID, "error", err)
		return err
	}
	if !expired {
		logger.Debugw("worker_session_expire_skip_not_due", "session_id", payload.SessionID)
	}
	return nil
}

func (c *Consumer) handlePaymentTimeoutExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_payment_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PaymentTimeoutExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_payment_expire_unmarshal_failed", "error", err)
		return skipRetry(err)
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_payment_expire_skip_service_nil", "txn_ref", payload.TxnRef)
		return nil
	}
	expired, err := c.PaymentService.ExpirePending(ctx, payload.TxnRef)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentInvalid):
			logger.Debugw("worker_payment_expire_skip_invalid_payload", "txn_ref", payload.TxnRef)
			return nil
		default:
			logger.Warnw("worker_payment_expire_failed", "txn_ref", payload.TxnRef, "error", err)
			return err
		}
	}
	if !expired {
		logger.Debugw("worker_payment_expire_skip_not_due", "txn_ref", payload.TxnRef)
	}
	return nil
}
