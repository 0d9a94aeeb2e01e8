package provider

import (
	"github.com/modamart/internal/authz"
	"github.com/modamart/internal/cache"
	"github.com/modamart/internal/config"
	"github.com/modamart/internal/events"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/models"
	"github.com/modamart/internal/queue"
	"github.com/modamart/internal/repository"
	"github.com/modamart/internal/service"

	"gorm.io/gorm"
)

const appName = "modamart"

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Publisher   events.Publisher

	// Repositories
	ProductRepo    repository.ProductRepository
	CartRepo       repository.CartRepository
	CheckoutRepo   repository.CheckoutRepository
	PaymentRepo    repository.PaymentRepository
	OrderRepo      repository.OrderRepository
	WalletRepo     repository.WalletRepository
	SettlementRepo repository.SettlementRepository

	// Services
	AuthzService       *authz.Service
	TokenService       *service.TokenService
	WalletLedger       *service.WalletLedger
	OrderSplitter      *service.OrderSplitter
	CartService        *service.CartService
	CheckoutService    *service.CheckoutService
	OrderService       *service.OrderService
	SettlementService  *service.SettlementService
	FulfillmentService *service.FulfillmentService
	PaymentService     *service.PaymentService
	WalletService      *service.WalletService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	// 事件发布失败时退化为空实现，不影响交易链路
	publisher, err := events.New(&cfg.Events, appName)
	if err != nil {
		logger.Warnw("provider_init_event_publisher_failed", "error", err)
		publisher = events.NoopPublisher{}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Publisher:   publisher,
	}

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService

	c.initRepositories(models.DB)
	c.initServices()
	return c
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.Publisher != nil {
		c.Publisher.Close()
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.ProductRepo = repository.NewProductRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
	c.CheckoutRepo = repository.NewCheckoutRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.SettlementRepo = repository.NewSettlementRepository(db)
}

func (c *Container) initServices() {
	cfg := c.Config
	retry := service.NewRetryPolicy(cfg.Ledger)

	c.WalletLedger = service.NewWalletLedger(c.WalletRepo, cfg.Checkout.Currency, retry)
	c.OrderSplitter = service.NewOrderSplitter(c.OrderRepo, cfg.Checkout.ShippingFee())
	c.CartService = service.NewCartService(c.CartRepo, c.ProductRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo)
	c.CheckoutService = service.NewCheckoutService(service.CheckoutServiceDeps{
		Checkout:     cfg.Checkout,
		Commission:   cfg.Settlement.Rate(),
		CheckoutRepo: c.CheckoutRepo,
		CartRepo:     c.CartRepo,
		ProductRepo:  c.ProductRepo,
		PaymentRepo:  c.PaymentRepo,
		OrderRepo:    c.OrderRepo,
		Ledger:       c.WalletLedger,
		Splitter:     c.OrderSplitter,
		QueueClient:  c.QueueClient,
		Publisher:    c.Publisher,
		Retry:        retry,
	})
	c.SettlementService = service.NewSettlementService(c.OrderRepo, c.SettlementRepo, c.WalletLedger, c.Publisher, retry)
	c.FulfillmentService = service.NewFulfillmentService(c.OrderRepo, c.SettlementService, c.WalletLedger, c.Publisher, retry)
	c.PaymentService = service.NewPaymentService(cfg.Checkout, c.PaymentRepo, c.WalletLedger, c.CheckoutService, c.QueueClient, c.Publisher, retry)
	c.WalletService = service.NewWalletService(c.WalletLedger, c.SettlementService)
	c.TokenService = service.NewTokenService(cfg.UserJWT)
}
