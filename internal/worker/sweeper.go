package worker

import (
	"context"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/logger"
)

const (
	defaultSweepInterval = 30 * time.Second
	minSweepInterval     = 5 * time.Second
)

// SessionSweeper 批量过期结算会话
type SessionSweeper interface {
	SweepExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// PaymentSweeper 批量过期待支付流水
type PaymentSweeper interface {
	SweepExpiredPayments(ctx context.Context, now time.Time) (int, error)
}

// Sweeper 定时兜底扫描，队列不可用或任务丢失时仍能释放库存
type Sweeper struct {
	name     string
	interval time.Duration
	sessions SessionSweeper
	payments PaymentSweeper
}

// NewSweeper 创建兜底扫描服务
func NewSweeper(cfg config.CheckoutConfig, sessions SessionSweeper, payments PaymentSweeper) *Sweeper {
	interval := time.Duration(cfg.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	return &Sweeper{
		name:     "sweeper",
		interval: interval,
		sessions: sessions,
		payments: payments,
	}
}

// Name 服务名称
func (s *Sweeper) Name() string {
	if s == nil || s.name == "" {
		return "sweeper"
	}
	return s.name
}

// Interval 扫描间隔
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Start 启动扫描循环，ctx 取消后退出
func (s *Sweeper) Start(ctx context.Context) error {
	s.RunOnce(ctx, time.Now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.RunOnce(ctx, now)
		}
	}
}

// Stop 停止服务
func (s *Sweeper) Stop(ctx context.Context) error {
	return nil
}

// RunOnce 执行一轮扫描，返回本轮过期的会话数与流水数
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (int, int) {
	sessions, payments := 0, 0
	if s.sessions != nil {
		count, err := s.sessions.SweepExpiredSessions(ctx, now)
		if err != nil {
			logger.Warnw("worker_session_sweep_failed", "error", err)
		}
		sessions = count
	}
	if s.payments != nil {
		count, err := s.payments.SweepExpiredPayments(ctx, now)
		if err != nil {
			logger.Warnw("worker_payment_sweep_failed", "error", err)
		}
		payments = count
	}
	if sessions > 0 || payments > 0 {
		logger.Infow("worker_sweep_done", "sessions_expired", sessions, "payments_expired", payments)
	}
	return sessions, payments
}
