package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/logger"

	"github.com/nats-io/nats.go"
)

// Publisher 领域事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event string, payload interface{}) error
	Close()
}

// Envelope 事件外层结构
type Envelope struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NatsPublisher 基于 NATS 的事件发布器
type NatsPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NoopPublisher 未启用事件时的空实现
type NoopPublisher struct{}

// Publish 丢弃事件
func (NoopPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	return nil
}

// Close 空实现
func (NoopPublisher) Close() {}

// New 根据配置创建发布器，未启用时返回 NoopPublisher
func New(cfg *config.EventsConfig, appName string) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnw("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infow("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NatsPublisher{conn: conn, prefix: strings.Trim(cfg.SubjectPrefix, ".")}, nil
}

// Subject 拼接事件主题
func Subject(prefix, event string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return event
	}
	return prefix + "." + event
}

// Publish 发布事件
func (p *NatsPublisher) Publish(ctx context.Context, event string, payload interface{}) error {
	if p == nil || p.conn == nil {
		return nil
	}
	data, err := json.Marshal(Envelope{Event: event, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return err
	}
	subject := Subject(p.prefix, event)
	if err := p.conn.Publish(subject, data); err != nil {
		logger.Warnw("event_publish_failed", "subject", subject, "error", err)
		return err
	}
	return nil
}

// Close 刷新并关闭连接
func (p *NatsPublisher) Close() {
	if p == nil || p.conn == nil || p.conn.IsClosed() {
		return
	}
	_ = p.conn.Drain()
}
