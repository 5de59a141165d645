package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "finance_viewer",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
				{Object: "/admin/password", Action: "PUT"},
			},
			Immutable: true,
		},
		{
			Role:     "finance_admin",
			Inherits: []string{"finance_viewer"},
			Policies: []Policy{
				{Object: "/admin/settlement-runs", Action: "*"},
				{Object: "/admin/settlement-runs/:id", Action: "*"},
				{Object: "/admin/settlement-runs/:id/entries", Action: "GET"},
				{Object: "/admin/payouts", Action: "GET"},
				{Object: "/admin/payouts/:id/processing", Action: "POST"},
				{Object: "/admin/payouts/:id/paid", Action: "POST"},
				{Object: "/admin/payouts/:id/failed", Action: "POST"},
				{Object: "/admin/returns", Action: "*"},
				{Object: "/admin/returns/:id", Action: "*"},
				{Object: "/admin/returns/:id/approve", Action: "POST"},
				{Object: "/admin/returns/:id/reject", Action: "POST"},
				{Object: "/admin/returns/:id/refund", Action: "POST"},
				{Object: "/admin/returns/:id/complete", Action: "POST"},
				{Object: "/admin/sellers/:id/snapshot", Action: "GET"},
				{Object: "/admin/orders/:id/settle", Action: "POST"},
				{Object: "/admin/queues/pause", Action: "POST"},
				{Object: "/admin/queues/resume", Action: "POST"},
			},
			Immutable: true,
		},
		{
			Role:     "queue_operator",
			Inherits: []string{"finance_viewer"},
			Policies: []Policy{
				{Object: "/admin/queues/stats", Action: "GET"},
				{Object: "/admin/queues/archived", Action: "GET"},
				{Object: "/admin/queues/pause", Action: "POST"},
				{Object: "/admin/queues/resume", Action: "POST"},
				{Object: "/admin/settlement-runs", Action: "POST"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("check builtin role failed: %w", err)
		}
		if !exists {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor); err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
