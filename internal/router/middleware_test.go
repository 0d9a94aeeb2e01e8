package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modamart/internal/authz"
	"github.com/modamart/internal/config"
	"github.com/modamart/internal/constants"
	"github.com/modamart/internal/metrics"
	"github.com/modamart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestResolveAllowedOrigin(t *testing.T) {
	got := resolveAllowedOrigin("https://example.com", []string{"*"}, false)
	if got != "*" {
		t.Fatalf("wildcard without credentials should return *, got %s", got)
	}

	got = resolveAllowedOrigin("https://example.com", []string{"*"}, true)
	if got != "https://example.com" {
		t.Fatalf("wildcard with credentials should echo origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://a.example.com", []string{"https://a.example.com", "https://b.example.com"}, false)
	if got != "https://a.example.com" {
		t.Fatalf("allow-list should return matched origin, got %s", got)
	}

	got = resolveAllowedOrigin("https://x.example.com", []string{"https://a.example.com"}, false)
	if got != "" {
		t.Fatalf("unmatched origin should be empty, got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

type statusEnvelope struct {
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) statusEnvelope {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp statusEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp
}

var testJWT = config.JWTConfig{SecretKey: "test-secret", Issuer: "modamart-auth"}

func TestUserJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(UserJWTAuthMiddleware(service.NewTokenService(config.JWTConfig{})))
	r.GET("/cart", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if resp := decodeStatus(t, w); resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func TestUserJWTAuthMiddlewareSetsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenService(testJWT)

	r := gin.New()
	r.Use(UserJWTAuthMiddleware(tokens))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status_code": 0,
			"data": gin.H{
				"user_id":   c.GetUint("user_id"),
				"role":      c.GetString("role"),
				"seller_id": c.GetUint("seller_id"),
			},
		})
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: 401},
		{name: "wrong scheme", header: "Token abc", want: 401},
		{name: "garbage token", header: "Bearer abc", want: 401},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if resp := decodeStatus(t, w); resp.StatusCode != tc.want {
				t.Fatalf("status_code want %d got %d", tc.want, resp.StatusCode)
			}
		})
	}

	token, _, err := tokens.Generate(service.Actor{UserID: 9, Role: constants.RoleSeller, SellerID: 11}, 1)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	resp := decodeStatus(t, w)
	var identity struct {
		UserID   uint   `json:"user_id"`
		Role     string `json:"role"`
		SellerID uint   `json:"seller_id"`
	}
	if err := json.Unmarshal(resp.Data, &identity); err != nil {
		t.Fatalf("decode identity failed: %v", err)
	}
	if identity.UserID != 9 || identity.Role != constants.RoleSeller || identity.SellerID != 11 {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestRoleAuthzMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_authz_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	newEngine := func(role string) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set("user_id", uint(1))
			if role != "" {
				c.Set("role", role)
			}
			c.Next()
		}, RoleAuthzMiddleware(authzService))
		ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) }
		r.POST("/api/v1/suborders/:id/deliver", ok)
		r.GET("/api/v1/admin/wallets/:id/verify", ok)
		r.POST("/api/v1/checkout/sessions/:id/pay", ok)
		return r
	}

	cases := []struct {
		role   string
		method string
		path   string
		want   int
	}{
		{constants.RoleSeller, http.MethodPost, "/api/v1/suborders/3/deliver", 0},
		{constants.RoleCustomer, http.MethodPost, "/api/v1/suborders/3/deliver", 403},
		{constants.RoleCustomer, http.MethodPost, "/api/v1/checkout/sessions/3/pay", 0},
		{constants.RoleSeller, http.MethodGet, "/api/v1/admin/wallets/1/verify", 403},
		{constants.RoleAdmin, http.MethodGet, "/api/v1/admin/wallets/1/verify", 0},
		{constants.RoleAdmin, http.MethodPost, "/api/v1/suborders/3/deliver", 0},
		{"", http.MethodPost, "/api/v1/checkout/sessions/3/pay", 401},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		newEngine(tc.role).ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if resp := decodeStatus(t, w); resp.StatusCode != tc.want {
			t.Fatalf("%s %s as %q: want %d got %d", tc.method, tc.path, tc.role, tc.want, resp.StatusCode)
		}
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/api/v1/orders/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/orders/:id", "200")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id, nil))
	}
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("route template counter should grow by 2, got %v", got)
	}
}
