package config

import (
	"fmt"
	"strings"

	"github.com/pazar-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Email      EmailConfig      `mapstructure:"email"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Security   SecurityConfig   `mapstructure:"security"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit LoginRateLimitConfig `mapstructure:"login_rate_limit"`
}

// LoginRateLimitConfig 登录限流配置
type LoginRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig 运维接口 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	RunConcurrency        int    `mapstructure:"run_concurrency"`       // 结算批次 worker 并发
	OrderConcurrency      int    `mapstructure:"order_concurrency"`     // 单笔订单结算 worker 并发
	MaxRetry              int    `mapstructure:"max_retry"`             // 最大重试次数
	RunTimeoutMinutes     int    `mapstructure:"run_timeout_minutes"`   // 结算批次任务超时
	OrderTimeoutSeconds   int    `mapstructure:"order_timeout_seconds"` // 订单结算任务超时
	RetryBaseDelaySeconds int    `mapstructure:"retry_base_delay_seconds"`
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	UseTLS   bool   `mapstructure:"use_tls"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// GatewayConfig 支付网关配置
type GatewayConfig struct {
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Wechatpay WechatpayConfig `mapstructure:"wechatpay"`
	Iyzico    IyzicoConfig    `mapstructure:"iyzico"`
}

// StripeConfig Stripe 渠道配置
type StripeConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SecretKey  string `mapstructure:"secret_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

// WechatpayConfig 微信支付渠道配置
type WechatpayConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	MerchantID         string `mapstructure:"mchid"`
	MerchantSerialNo   string `mapstructure:"merchant_serial_no"`
	MerchantPrivateKey string `mapstructure:"merchant_private_key"`
	APIV3Key           string `mapstructure:"api_v3_key"`
}

// IyzicoConfig Iyzico 渠道配置
type IyzicoConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	APIKey     string `mapstructure:"api_key"`
	SecretKey  string `mapstructure:"secret_key"`
	APIBaseURL string `mapstructure:"api_base_url"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

// SettlementConfig 结算策略配置
type SettlementConfig struct {
	IndividualRate           string `mapstructure:"individual_rate"`            // 个人卖家默认佣金率
	CorporateRate            string `mapstructure:"corporate_rate"`             // 企业卖家默认佣金率
	DefaultCurrency          string `mapstructure:"default_currency"`           // 默认结算币种
	StoreCreditDebitsSeller  bool   `mapstructure:"store_credit_debits_seller"` // 积分退款是否反冲卖家结算
	ScheduleIntervalMinutes  int    `mapstructure:"schedule_interval_minutes"`  // 定时批次间隔
	SchedulePeriodHours      int    `mapstructure:"schedule_period_hours"`      // 定时批次覆盖的账期长度
	StuckRefundMinutes       int    `mapstructure:"stuck_refund_minutes"`       // 退款滞留告警阈值
	ReconcileIntervalMinutes int    `mapstructure:"reconcile_interval_minutes"` // 滞留退款巡检间隔
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/pazar.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "pz")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.run_concurrency", 2)
	viper.SetDefault("queue.order_concurrency", 10)
	viper.SetDefault("queue.max_retry", 3)
	viper.SetDefault("queue.run_timeout_minutes", 5)
	viper.SetDefault("queue.order_timeout_seconds", 30)
	viper.SetDefault("queue.retry_base_delay_seconds", 2)
	viper.SetDefault("email.enabled", false)
	viper.SetDefault("email.host", "")
	viper.SetDefault("email.port", 587)
	viper.SetDefault("email.username", "")
	viper.SetDefault("email.password", "")
	viper.SetDefault("email.from", "")
	viper.SetDefault("email.from_name", "")
	viper.SetDefault("email.use_tls", true)
	viper.SetDefault("email.use_ssl", false)
	viper.SetDefault("gateway.stripe.enabled", false)
	viper.SetDefault("gateway.stripe.api_base_url", "https://api.stripe.com")
	viper.SetDefault("gateway.stripe.timeout_ms", 12000)
	viper.SetDefault("gateway.wechatpay.enabled", false)
	viper.SetDefault("gateway.iyzico.enabled", false)
	viper.SetDefault("gateway.iyzico.api_base_url", "https://api.iyzipay.com")
	viper.SetDefault("gateway.iyzico.timeout_ms", 12000)
	viper.SetDefault("settlement.individual_rate", "0.10")
	viper.SetDefault("settlement.corporate_rate", "0.08")
	viper.SetDefault("settlement.default_currency", "TRY")
	viper.SetDefault("settlement.store_credit_debits_seller", false)
	viper.SetDefault("settlement.schedule_interval_minutes", 0) // 0 表示关闭定时批次
	viper.SetDefault("settlement.schedule_period_hours", 24)
	viper.SetDefault("settlement.stuck_refund_minutes", 30)
	viper.SetDefault("settlement.reconcile_interval_minutes", 10)
	viper.SetDefault("security.login_rate_limit.window_seconds", 60)
	viper.SetDefault("security.login_rate_limit.max_attempts", 10)

	// 环境变量支持（settlement.stuck_refund_minutes -> SETTLEMENT_STUCK_REFUND_MINUTES）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
