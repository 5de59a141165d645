package provider

import (
	"github.com/pazar-next/internal/authz"
	"github.com/pazar-next/internal/cache"
	"github.com/pazar-next/internal/commission"
	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/gateway"
	"github.com/pazar-next/internal/gateway/iyzico"
	"github.com/pazar-next/internal/gateway/stripe"
	"github.com/pazar-next/internal/gateway/wechatpay"
	"github.com/pazar-next/internal/logger"
	"github.com/pazar-next/internal/models"
	"github.com/pazar-next/internal/queue"
	"github.com/pazar-next/internal/repository"
	"github.com/pazar-next/internal/service"

	"github.com/shopspring/decimal"
)

// Container 依赖注入容器
type Container struct {
	Config         *config.Config
	QueueClient    *queue.Client
	QueueInspector *queue.Inspector
	Dispatcher     *gateway.Dispatcher

	// Repositories
	AdminRepo      repository.AdminRepository
	UserRepo       repository.UserRepository
	SellerRepo     repository.SellerRepository
	OrderRepo      repository.OrderRepository
	ProductRepo    repository.ProductRepository
	CreditRepo     repository.CreditRepository
	SettlementRepo repository.SettlementRepository
	ReturnRepo     repository.ReturnRepository

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	EmailService      *service.EmailService
	SettlementService *service.SettlementService
	RefundService     *service.RefundService
	ReconcileService  *service.ReconcileService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	var inspector *queue.Inspector
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
		inspector = queue.NewInspector(&cfg.Queue)
	}

	c := &Container{
		Config:         cfg,
		QueueClient:    queueClient,
		QueueInspector: inspector,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化退款渠道
	c.initGateway()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.SellerRepo = repository.NewSellerRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.CreditRepo = repository.NewCreditRepository(db)
	c.SettlementRepo = repository.NewSettlementRepository(db)
	c.ReturnRepo = repository.NewReturnRepository(db)
}

// initGateway 按配置注册启用的退款渠道
func (c *Container) initGateway() {
	providers := make([]gateway.Provider, 0, 3)
	if c.Config.Gateway.Stripe.Enabled {
		providers = append(providers, stripe.New(c.Config.Gateway.Stripe))
	}
	if c.Config.Gateway.Iyzico.Enabled {
		providers = append(providers, iyzico.New(c.Config.Gateway.Iyzico))
	}
	if c.Config.Gateway.Wechatpay.Enabled {
		providers = append(providers, wechatpay.New(c.Config.Gateway.Wechatpay))
	}
	c.Dispatcher = gateway.NewDispatcher(providers...)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.EmailService = service.NewEmailService(&c.Config.Email)

	resolver := commission.NewResolver(
		parseRate(c.Config.Settlement.IndividualRate, "0.10"),
		parseRate(c.Config.Settlement.CorporateRate, "0.08"),
	)
	c.SettlementService = service.NewSettlementService(
		c.SettlementRepo,
		c.OrderRepo,
		c.SellerRepo,
		resolver,
		c.QueueClient,
		&c.Config.Settlement,
	)
	c.RefundService = service.NewRefundService(
		c.ReturnRepo,
		c.OrderRepo,
		c.SettlementRepo,
		c.CreditRepo,
		c.ProductRepo,
		c.UserRepo,
		c.SellerRepo,
		c.Dispatcher,
		c.EmailService,
		&c.Config.Settlement,
	)
	c.ReconcileService = service.NewReconcileService(
		c.ReturnRepo,
		c.SettlementRepo,
		c.RefundService,
		c.Dispatcher,
		&c.Config.Settlement,
	)
}

// parseRate 解析佣金率配置, 非法值回退到内置默认并告警
func parseRate(raw, fallback string) decimal.Decimal {
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		logger.Warnw("provider_invalid_commission_rate", "raw", raw, "fallback", fallback)
		return decimal.RequireFromString(fallback)
	}
	return rate
}
