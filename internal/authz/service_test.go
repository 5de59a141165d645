package authz

import (
	"fmt"
	"strings"
	"testing"

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

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	if err := svc.SetAdminRoles(1, []string{"finance_admin"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, "/api/v1/admin/returns/42/approve", "POST")
	if err != nil {
		t.Fatalf("enforce approve failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected finance_admin approve allowed")
	}

	allow, err = svc.EnforceAdmin(1, "/admin/settlement-runs", "GET")
	if err != nil {
		t.Fatalf("enforce inherited read failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected inherited finance_viewer read permission")
	}
}

func TestFinanceViewerIsReadOnly(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	if err := svc.SetAdminRoles(2, []string{"finance_viewer"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/payouts", "get")
	if err != nil {
		t.Fatalf("enforce read failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected viewer read allowed")
	}

	allow, err = svc.EnforceAdmin(2, "/admin/payouts/7/paid", "POST")
	if err != nil {
		t.Fatalf("enforce write failed: %v", err)
	}
	if allow {
		t.Fatalf("expected viewer write denied")
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	if err := svc.SetAdminRoles(3, []string{"finance_admin"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	if err := svc.SetAdminRoles(3, []string{"queue_operator"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}

	roles, err := svc.GetAdminRoles(3)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:queue_operator" {
		t.Fatalf("roles want [role:queue_operator], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(3, "/admin/returns/5/approve", "POST")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceAdmin(3, "/admin/queues/pause", "POST")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected queue operator pause allowed")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/settlement-runs/:id", want: "/admin/settlement-runs/:id"},
		{in: "/admin/returns/:id", want: "/admin/returns/:id"},
		{in: "admin/payouts", want: "/admin/payouts"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}
