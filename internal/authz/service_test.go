package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/modamart/internal/constants"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestBuiltinRolesSellerRoutes(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	allow, err := svc.EnforceRole(constants.RoleSeller, "/api/v1/suborders/12/deliver", "post")
	if err != nil {
		t.Fatalf("enforce seller failed: %v", err)
	}
	if !allow {
		t.Fatalf("seller should be allowed to deliver sub orders")
	}

	allow, err = svc.EnforceRole(constants.RoleCustomer, "/api/v1/suborders/12/deliver", "POST")
	if err != nil {
		t.Fatalf("enforce customer failed: %v", err)
	}
	if allow {
		t.Fatalf("customer should not drive fulfillment")
	}

	allow, err = svc.EnforceRole(constants.RoleCustomer, "/api/v1/checkout/sessions/3/pay", "POST")
	if err != nil {
		t.Fatalf("enforce checkout failed: %v", err)
	}
	if !allow {
		t.Fatalf("customer should be allowed to pay sessions")
	}
}

func TestAdminInheritsSellerPolicies(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	allow, err := svc.EnforceRole(constants.RoleAdmin, "/api/v1/suborders/7/cancel", "POST")
	if err != nil {
		t.Fatalf("enforce admin failed: %v", err)
	}
	if !allow {
		t.Fatalf("admin should inherit seller policies")
	}
	allow, err = svc.EnforceRole(constants.RoleAdmin, "/api/v1/admin/wallets/1/verify", "GET")
	if err != nil {
		t.Fatalf("enforce admin wallet verify failed: %v", err)
	}
	if !allow {
		t.Fatalf("admin should be allowed to verify wallets")
	}
}

func TestRevokeRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("auditor", "/admin/wallets/:id/verify", "GET"); err != nil {
		t.Fatalf("grant policy failed: %v", err)
	}
	policies, err := svc.GetRolePolicies("auditor")
	if err != nil {
		t.Fatalf("get policies failed: %v", err)
	}
	if len(policies) != 1 || policies[0].Subject != "role:auditor" {
		t.Fatalf("unexpected policies: %+v", policies)
	}
	if err := svc.RevokeRolePolicy("auditor", "/admin/wallets/:id/verify", "GET"); err != nil {
		t.Fatalf("revoke policy failed: %v", err)
	}
	allow, err := svc.EnforceRole("auditor", "/api/v1/admin/wallets/1/verify", "GET")
	if err != nil {
		t.Fatalf("enforce after revoke failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false after revoke")
	}
}

func TestNormalizeRole(t *testing.T) {
	role, err := NormalizeRole(" Seller ")
	if err != nil {
		t.Fatalf("normalize role failed: %v", err)
	}
	if role != "role:seller" {
		t.Fatalf("unexpected role: %s", role)
	}
	if _, err := NormalizeRole("  "); err == nil {
		t.Fatalf("expected error for empty role")
	}
}
