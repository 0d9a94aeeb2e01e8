package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/payment"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	UserJWT    JWTConfig        `mapstructure:"user_jwt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Checkout   CheckoutConfig   `mapstructure:"checkout"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Events     EventsConfig     `mapstructure:"events"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Service    string `mapstructure:"service"`
	Level      string `mapstructure:"level"` // 为空时 debug 模式为 debug，其余为 info
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Service:    c.Service,
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置（令牌由外部认证服务签发，这里只做校验）
type JWTConfig struct {
	SecretKey string `mapstructure:"secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// CheckoutConfig 结算配置
type CheckoutConfig struct {
	Currency             string `mapstructure:"currency"`
	SessionTTLMinutes    int    `mapstructure:"session_ttl_minutes"`
	PayTimeoutSeconds    int    `mapstructure:"pay_timeout_seconds"`
	PaymentExpireMinutes int    `mapstructure:"payment_expire_minutes"`
	ShippingFeePerSeller string `mapstructure:"shipping_fee_per_seller"`
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds"`
}

// SessionTTL 结算会话有效期
func (c CheckoutConfig) SessionTTL() time.Duration {
	if c.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// PayTimeout 单次支付最长执行时间
func (c CheckoutConfig) PayTimeout() time.Duration {
	if c.PayTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.PayTimeoutSeconds) * time.Second
}

// PaymentExpire 网关支付有效期
func (c CheckoutConfig) PaymentExpire() time.Duration {
	if c.PaymentExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.PaymentExpireMinutes) * time.Minute
}

// ShippingFee 每个卖家子订单的固定运费
func (c CheckoutConfig) ShippingFee() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.ShippingFeePerSeller))
	if err != nil || fee.IsNegative() {
		return decimal.Zero
	}
	return fee.Round(2)
}

// PaymentConfig 网关回调配置
type PaymentConfig struct {
	CallbackSecret  string `mapstructure:"callback_secret"`  // 回调 HMAC 密钥，为空时拒绝全部回调
	SignatureHeader string `mapstructure:"signature_header"` // 签名请求头
}

// SignatureHeaderName 签名请求头，未配置时使用 X-Signature
func (c PaymentConfig) SignatureHeaderName() string {
	if header := strings.TrimSpace(c.SignatureHeader); header != "" {
		return header
	}
	return payment.DefaultSignatureHeader
}

// SettlementConfig 结算配置
type SettlementConfig struct {
	CommissionRate string `mapstructure:"commission_rate"`
}

// Rate 平台佣金比例（下单时快照到订单）
func (c SettlementConfig) Rate() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.CommissionRate))
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero
	}
	return rate
}

// LedgerConfig 账本配置
type LedgerConfig struct {
	RetryAttempts int `mapstructure:"retry_attempts"`
	RetryBaseMS   int `mapstructure:"retry_base_ms"`
}

// EventsConfig 领域事件发布配置
type EventsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 接口限流配置
type RateLimitConfig struct {
	Pay      RateLimitRuleConfig `mapstructure:"pay"`
	Callback RateLimitRuleConfig `mapstructure:"callback"`
}

// RateLimitRuleConfig 单条限流规则
type RateLimitRuleConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")     // 从当前目录查找
	v.AddConfigPath("./")    // 备用路径
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(v)

	// 环境变量支持
	v.AutomaticEnv()                                   // 自动读取环境变量
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := Decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(err)
	}
	return cfg
}

// Decode 将 viper 实例解析为配置
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("配置解析失败: %w", err)
	}
	return &cfg, nil
}

// SetDefaults 设置默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.service", "modamart")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "modamart.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/modamart.db")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.issuer", "modamart-auth")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "mm")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
		"Idempotency-Key",
		"X-Signature",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("checkout.currency", "IDR")
	v.SetDefault("checkout.session_ttl_minutes", 30)
	v.SetDefault("checkout.pay_timeout_seconds", 10)
	v.SetDefault("checkout.payment_expire_minutes", 15)
	v.SetDefault("checkout.shipping_fee_per_seller", "0")
	v.SetDefault("checkout.sweep_interval_seconds", 60)
	v.SetDefault("payment.callback_secret", "")
	v.SetDefault("payment.signature_header", payment.DefaultSignatureHeader)
	v.SetDefault("settlement.commission_rate", "0.05")
	v.SetDefault("ledger.retry_attempts", 3)
	v.SetDefault("ledger.retry_base_ms", 50)
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.url", "nats://127.0.0.1:4222")
	v.SetDefault("events.subject_prefix", "modamart")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("rate_limit.pay.window_seconds", 60)
	v.SetDefault("rate_limit.pay.max_requests", 20)
	v.SetDefault("rate_limit.callback.window_seconds", 60)
	v.SetDefault("rate_limit.callback.max_requests", 600)
}
