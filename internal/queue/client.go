package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueCheckoutSessionExpire 推送结算会话过期任务（延迟到会话过期时间）
func (c *Client) EnqueueCheckoutSessionExpire(payload CheckoutSessionExpirePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCheckoutSessionExpireTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueDelayed(task, delay)
}

// EnqueuePaymentTimeoutExpire 推送待支付流水超时任务
func (c *Client) EnqueuePaymentTimeoutExpire(payload PaymentTimeoutExpirePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPaymentTimeoutExpireTask(payload)
	if err != nil {
		return err
	}
	return c.enqueueDelayed(task, delay)
}

func (c *Client) enqueueDelayed(task *asynq.Task, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	options := []asynq.Option{asynq.Queue(c.defaultQueue), asynq.ProcessIn(delay), asynq.MaxRetry(5)}
	_, err := c.client.Enqueue(task, options...)
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
