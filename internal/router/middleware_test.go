package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pazar-next/internal/authz"
	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/models"
	"github.com/pazar-next/internal/repository"
	"github.com/pazar-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupMiddlewareTest(t *testing.T) (*gorm.DB, *service.AuthService, *authz.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_middleware_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: "router-middleware-test-secret", ExpireHours: 1}}
	authService := service.NewAuthService(cfg, repository.NewAdminRepository(db))

	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}

	return db, authService, authzService
}

func createTestAdmin(t *testing.T, db *gorm.DB, authService *service.AuthService, role string) *models.Admin {
	t.Helper()
	hash, err := authService.HashPassword("secret-password")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{Username: fmt.Sprintf("op-%s", role), PasswordHash: hash, Role: role}
	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return admin
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
}

func TestJWTAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	db, _, _ := setupMiddlewareTest(t)

	r := gin.New()
	r.GET("/secure", JWTAuthMiddleware("router-middleware-test-secret", repository.NewAdminRepository(db)), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if code, _ := resp["status_code"].(float64); int(code) != 401 {
		t.Fatalf("missing header want status_code 401 got %v", resp["status_code"])
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if code, _ := resp["status_code"].(float64); int(code) != 401 {
		t.Fatalf("bad token want status_code 401 got %v", resp["status_code"])
	}
}

func TestJWTAuthMiddlewareAcceptsValidToken(t *testing.T) {
	db, authService, _ := setupMiddlewareTest(t)
	admin := createTestAdmin(t, db, authService, constants.RoleFinanceAdmin)

	token, _, err := authService.GenerateJWT(admin)
	if err != nil {
		t.Fatalf("generate jwt failed: %v", err)
	}

	r := gin.New()
	r.GET("/secure", JWTAuthMiddleware("router-middleware-test-secret", repository.NewAdminRepository(db)), func(c *gin.Context) {
		role, _ := c.Get(adminRoleContextKey)
		c.JSON(http.StatusOK, gin.H{"role": role})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["role"] != constants.RoleFinanceAdmin {
		t.Fatalf("context role want %s got %s", constants.RoleFinanceAdmin, resp["role"])
	}
}

func TestAdminRBACMiddlewareEnforcesRole(t *testing.T) {
	db, authService, authzService := setupMiddlewareTest(t)
	viewer := createTestAdmin(t, db, authService, constants.RoleFinanceViewer)
	token, _, err := authService.GenerateJWT(viewer)
	if err != nil {
		t.Fatalf("generate jwt failed: %v", err)
	}

	r := gin.New()
	group := r.Group("/api/v1/admin")
	group.Use(JWTAuthMiddleware("router-middleware-test-secret", repository.NewAdminRepository(db)), AdminRBACMiddleware(authzService))
	group.GET("/payouts", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	group.POST("/payouts/:id/paid", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payouts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("viewer read should be allowed, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/payouts/1/paid", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if code, _ := resp["status_code"].(float64); int(code) != 403 {
		t.Fatalf("viewer write want status_code 403 got %v", resp["status_code"])
	}
}
