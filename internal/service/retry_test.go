package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modamart/internal/config"
)

func TestNewRetryPolicyDefaults(t *testing.T) {
	policy := NewRetryPolicy(config.LedgerConfig{})
	if policy.Attempts != 1 || policy.BaseDelay != 50*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", policy)
	}
	policy = NewRetryPolicy(config.LedgerConfig{RetryAttempts: 4, RetryBaseMS: 20})
	if policy.Attempts != 4 || policy.BaseDelay != 20*time.Millisecond {
		t.Fatalf("unexpected policy: %+v", policy)
	}
}

func TestWithLockRetryRetriesOnlyLockContention(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := withLockRetry(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt: calls=%d err=%v", calls, err)
	}

	calls = 0
	err = withLockRetry(context.Background(), policy, func() error {
		calls++
		return ErrInsufficientBalance
	})
	if !errors.Is(err, ErrInsufficientBalance) || calls != 1 {
		t.Fatalf("business errors must not retry: calls=%d err=%v", calls, err)
	}

	calls = 0
	err = withLockRetry(context.Background(), policy, func() error {
		calls++
		return errors.New("database table is locked")
	})
	if err == nil || calls != 3 {
		t.Fatalf("expected exhausted retries: calls=%d err=%v", calls, err)
	}
}

func TestWithLockRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withLockRetry(ctx, RetryPolicy{Attempts: 5, BaseDelay: time.Second}, func() error {
		calls++
		return errors.New("database is locked")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("expected context cancellation after first attempt: calls=%d err=%v", calls, err)
	}
}
