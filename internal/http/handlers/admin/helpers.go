package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/pazar-next/internal/http/handlers/shared"
	"github.com/pazar-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

func getAdminID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("admin_id")
	if !exists {
		respondError(c, response.CodeUnauthorized, "未登录", nil)
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			respondError(c, response.CodeBadRequest, "账号标识无效", nil)
			return 0, false
		}
		return uint(v), true
	case float64:
		if v < 0 {
			respondError(c, response.CodeBadRequest, "账号标识无效", nil)
			return 0, false
		}
		return uint(v), true
	default:
		respondError(c, response.CodeInternal, "账号标识类型无效", nil)
		return 0, false
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "参数无效", nil)
		return 0, false
	}
	return uint(id), true
}

func parseUintQuery(c *gin.Context, name string) uint {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return uint(parsed)
	}
	return 0
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
