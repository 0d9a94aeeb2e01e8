package router

import (
	"sort"
	"strings"

	"github.com/modamart/internal/authz"
	"github.com/modamart/internal/cache"
	"github.com/modamart/internal/config"
	adminhandlers "github.com/modamart/internal/http/handlers/admin"
	publichandlers "github.com/modamart/internal/http/handlers/public"
	sellerhandlers "github.com/modamart/internal/http/handlers/seller"
	"github.com/modamart/internal/http/response"
	"github.com/modamart/internal/logger"
	"github.com/modamart/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按顾客/卖家/后台分组）
	publicHandler := publichandlers.New(c)
	sellerHandler := sellerhandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisClient := cache.Client()
	payRule := RateLimitRule{
		Prefix:        cache.PrefixedKey("rate", "pay"),
		WindowSeconds: cfg.RateLimit.Pay.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Pay.MaxRequests,
	}
	callbackRule := RateLimitRule{
		Prefix:        cache.PrefixedKey("rate", "callback"),
		WindowSeconds: cfg.RateLimit.Callback.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Callback.MaxRequests,
		FailOpen:      true,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(MetricsMiddleware())
	}

	apiV1 := r.Group("/api/v1")
	{
		// 支付网关回调（无需登录）
		apiV1.POST("/payments/callback", RateLimitMiddleware(redisClient, callbackRule, KeyByIPAndJSONField("txn_ref")), publicHandler.PaymentCallback)

		authorized := apiV1.Group("")
		authorized.Use(UserJWTAuthMiddleware(c.TokenService), RoleAuthzMiddleware(c.AuthzService))
		{
			// 购物车
			authorized.GET("/cart", publicHandler.GetCart)
			authorized.POST("/cart/items", publicHandler.UpsertCartItem)
			authorized.DELETE("/cart/items/:product_id", publicHandler.DeleteCartItem)

			// 结算
			authorized.POST("/checkout/sessions", publicHandler.CreateCheckoutSession)
			authorized.GET("/checkout/sessions/:id", publicHandler.GetCheckoutSession)
			authorized.PATCH("/checkout/sessions/:id/selection", publicHandler.UpdateCheckoutSelection)
			authorized.POST("/checkout/sessions/:id/pay", RateLimitMiddleware(redisClient, payRule, KeyByUser), publicHandler.PayCheckoutSession)

			// 订单
			authorized.GET("/orders", publicHandler.ListOrders)
			authorized.GET("/orders/:id", publicHandler.GetOrder)
			authorized.GET("/orders/:id/progress", publicHandler.GetOrderProgress)

			// 钱包
			authorized.GET("/wallet", publicHandler.GetMyWallet)
			authorized.GET("/wallet/transactions", publicHandler.GetMyWalletTransactions)
			authorized.POST("/wallet/recharges", publicHandler.CreateWalletRecharge)

			// 卖家履约
			for _, action := range sellerhandlers.Actions {
				authorized.POST("/suborders/:id/"+action, sellerHandler.SubOrderAction(action))
			}
			authorized.GET("/seller/suborders", sellerHandler.ListSubOrders)
			authorized.POST("/seller/wallet/withdrawals", sellerHandler.Withdraw)

			// 管理员
			authorized.GET("/admin/wallets/:id/verify", adminHandler.VerifyWallet)
			authorized.POST("/admin/suborders/:id/settle", adminHandler.SettleSubOrder)
			authorized.GET("/admin/authz/roles/:role/policies", adminHandler.GetRolePolicies)
			authorized.GET("/admin/authz/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildPermissionCatalog(r))
			})
		}
	}

	if cfg.Metrics.Enabled {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/") {
			continue
		}
		if item.Path == "/api/v1/payments/callback" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] == "admin" || segments[0] == "seller" {
		return segments[0] + "." + segments[1]
	}
	return segments[0]
}
