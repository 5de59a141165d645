package router

import (
	"fmt"
	"strings"

	"github.com/pazar-next/internal/cache"
	"github.com/pazar-next/internal/config"
	adminhandlers "github.com/pazar-next/internal/http/handlers/admin"
	"github.com/pazar-next/internal/logger"
	"github.com/pazar-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pz"
	}
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "登录尝试过于频繁, 请稍后再试",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	apiV1 := r.Group("/api/v1")
	{
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(cache.Client(), loginRule), adminHandler.AdminLogin)

			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				// 账号
				authorized.GET("/me", adminHandler.GetAdminMe)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 结算批次
				authorized.POST("/settlement-runs", adminHandler.AdminCreateSettlementRun)
				authorized.GET("/settlement-runs", adminHandler.AdminListSettlementRuns)
				authorized.GET("/settlement-runs/:id", adminHandler.AdminGetSettlementRun)
				authorized.GET("/settlement-runs/:id/entries", adminHandler.AdminListRunEntries)
				authorized.POST("/orders/:id/settle", adminHandler.AdminTriggerOrderSettlement)

				// 打款单
				authorized.GET("/payouts", adminHandler.AdminListPayouts)
				authorized.POST("/payouts/:id/processing", adminHandler.AdminMarkPayoutProcessing)
				authorized.POST("/payouts/:id/paid", adminHandler.AdminMarkPayoutPaid)
				authorized.POST("/payouts/:id/failed", adminHandler.AdminMarkPayoutFailed)
				authorized.GET("/sellers/:id/snapshot", adminHandler.AdminGetSellerSnapshot)

				// 退货与退款
				authorized.POST("/returns", adminHandler.AdminCreateReturn)
				authorized.GET("/returns", adminHandler.AdminListReturns)
				authorized.GET("/returns/:id", adminHandler.AdminGetReturn)
				authorized.POST("/returns/:id/approve", adminHandler.AdminApproveReturn)
				authorized.POST("/returns/:id/reject", adminHandler.AdminRejectReturn)
				authorized.POST("/returns/:id/refund", adminHandler.AdminProcessRefund)
				authorized.POST("/returns/:id/complete", adminHandler.AdminCompleteRefund)

				// 队列运维
				authorized.GET("/queues/stats", adminHandler.AdminQueueStats)
				authorized.GET("/queues/archived", adminHandler.AdminListArchivedTasks)
				authorized.POST("/queues/pause", adminHandler.AdminPauseQueues)
				authorized.POST("/queues/resume", adminHandler.AdminResumeQueues)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
