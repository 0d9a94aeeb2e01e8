package service

import (
	"context"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/metrics"
	"github.com/modamart/internal/repository"
)

// RetryPolicy 行锁冲突重试策略
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// NewRetryPolicy 从账本配置构造重试策略
func NewRetryPolicy(cfg config.LedgerConfig) RetryPolicy {
	policy := RetryPolicy{
		Attempts:  cfg.RetryAttempts,
		BaseDelay: time.Duration(cfg.RetryBaseMS) * time.Millisecond,
	}
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 50 * time.Millisecond
	}
	return policy
}

// withLockRetry 仅对行锁冲突/死锁/SQLite busy 做指数退避重试
func withLockRetry(ctx context.Context, policy RetryPolicy, operation func() error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if !repository.IsLockContention(err) || i == attempts-1 {
			return err
		}
		metrics.LedgerLockRetriesTotal.Inc()
		delay := policy.BaseDelay << uint(i)
		logger.Debugw("ledger_lock_retry", "attempt", i+1, "delay_ms", delay.Milliseconds(), "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
