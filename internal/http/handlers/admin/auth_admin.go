package admin

import (
	"errors"
	"time"

	"github.com/pazar-next/internal/http/response"
	"github.com/pazar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	Admin     map[string]interface{} `json:"admin"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 运维账号登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, response.CodeUnauthorized, "账号或密码错误", nil)
			return
		}
		respondError(c, response.CodeInternal, "登录失败", err)
		return
	}

	response.Success(c, LoginResponse{
		Token: token,
		Admin: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
			"role":     admin.Role,
		},
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改当前账号密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	if err := h.AuthService.ChangePassword(adminID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "账号不存在", nil)
		case errors.Is(err, service.ErrInvalidPassword):
			respondError(c, response.CodeBadRequest, "原密码错误", nil)
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, "新密码不符合要求", nil)
		default:
			respondError(c, response.CodeInternal, "修改密码失败", err)
		}
		return
	}

	response.Success(c, nil)
}

// GetAdminMe 当前账号信息
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil || admin == nil {
		respondError(c, response.CodeNotFound, "账号不存在", err)
		return
	}

	response.Success(c, gin.H{
		"id":            admin.ID,
		"username":      admin.Username,
		"role":          admin.Role,
		"last_login_at": admin.LastLoginAt,
	})
}
