package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modamart/internal/config"
)

type stubSessionSweeper struct {
	calls int
	count int
	err   error
}

func (s *stubSessionSweeper) SweepExpiredSessions(context.Context, time.Time) (int, error) {
	s.calls++
	return s.count, s.err
}

type stubPaymentSweeper struct {
	calls int
	count int
}

func (s *stubPaymentSweeper) SweepExpiredPayments(context.Context, time.Time) (int, error) {
	s.calls++
	return s.count, nil
}

func TestNewSweeperInterval(t *testing.T) {
	if got := NewSweeper(config.CheckoutConfig{}, nil, nil).Interval(); got != defaultSweepInterval {
		t.Fatalf("default interval want %s got %s", defaultSweepInterval, got)
	}
	if got := NewSweeper(config.CheckoutConfig{SweepIntervalSeconds: 1}, nil, nil).Interval(); got != minSweepInterval {
		t.Fatalf("interval should be clamped to %s, got %s", minSweepInterval, got)
	}
	if got := NewSweeper(config.CheckoutConfig{SweepIntervalSeconds: 60}, nil, nil).Interval(); got != time.Minute {
		t.Fatalf("interval want 1m got %s", got)
	}
}

func TestSweeperRunOnceContinuesAfterError(t *testing.T) {
	sessions := &stubSessionSweeper{count: 1, err: errors.New("db down")}
	payments := &stubPaymentSweeper{count: 3}
	sweeper := NewSweeper(config.CheckoutConfig{}, sessions, payments)

	s, p := sweeper.RunOnce(context.Background(), time.Now())
	if s != 1 || p != 3 {
		t.Fatalf("unexpected counts: sessions=%d payments=%d", s, p)
	}
	if sessions.calls != 1 || payments.calls != 1 {
		t.Fatalf("both sweepers should run once")
	}
}

func TestSweeperStartStopsOnCancel(t *testing.T) {
	sessions := &stubSessionSweeper{}
	sweeper := NewSweeper(config.CheckoutConfig{}, sessions, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start should exit cleanly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not stop after cancel")
	}
}
