package authz

import (
	"fmt"

	"github.com/modamart/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.RoleCustomer,
			Policies: []Policy{
				{Object: "/cart", Action: "GET"},
				{Object: "/cart/items", Action: "POST"},
				{Object: "/cart/items/:product_id", Action: "DELETE"},
				{Object: "/checkout/sessions", Action: "POST"},
				{Object: "/checkout/sessions/:id", Action: "GET"},
				{Object: "/checkout/sessions/:id/selection", Action: "PATCH"},
				{Object: "/checkout/sessions/:id/pay", Action: "POST"},
				{Object: "/orders", Action: "GET"},
				{Object: "/orders/:id", Action: "GET"},
				{Object: "/orders/:id/progress", Action: "GET"},
				{Object: "/wallet", Action: "GET"},
				{Object: "/wallet/transactions", Action: "GET"},
				{Object: "/wallet/recharges", Action: "POST"},
			},
		},
		{
			Role: constants.RoleSeller,
			Policies: []Policy{
				{Object: "/suborders/:id/:action", Action: "POST"},
				{Object: "/seller/suborders", Action: "GET"},
				{Object: "/seller/wallet/withdrawals", Action: "POST"},
				{Object: "/wallet", Action: "GET"},
				{Object: "/wallet/transactions", Action: "GET"},
			},
		},
		{
			Role:     constants.RoleAdmin,
			Inherits: []string{constants.RoleSeller},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
				{Object: "/orders/:id", Action: "GET"},
				{Object: "/orders/:id/progress", Action: "GET"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		for _, parent := range seed.Inherits {
			if err := s.InheritRole(seed.Role, parent); err != nil {
				return err
			}
		}
		for _, policy := range seed.Policies {
			if NormalizeAction(policy.Action) == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if err := s.GrantRolePolicy(seed.Role, policy.Object, policy.Action); err != nil {
				return err
			}
		}
	}
	return nil
}
