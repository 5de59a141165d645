package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// 错误定义
var (
	ErrUnsupportedProvider = errors.New("不支持的支付渠道")
	ErrMissingPaymentRef   = errors.New("缺少支付凭据")
	ErrConfigInvalid       = errors.New("支付渠道配置不完整")
	ErrRequestFailed       = errors.New("支付渠道请求失败")
	ErrResponseInvalid     = errors.New("支付渠道响应异常")
)

// 退款状态
const (
	RefundStatusPending   = "pending"
	RefundStatusSucceeded = "succeeded"
	RefundStatusFailed    = "failed"
)

// RefundInput 渠道退款请求参数
type RefundInput struct {
	PaymentRef string          // 原支付凭据(渠道侧交易号)
	RefundNo   string          // 商户侧退款单号, 渠道幂等键
	Amount     decimal.Decimal // 退款金额
	OrderTotal decimal.Decimal // 原订单总额, 部分渠道要求携带
	Currency   string
	Reason     string
}

// RefundResult 渠道退款结果
type RefundResult struct {
	RefundID string // 渠道侧退款单号
	Status   string
}

// Provider 支付渠道退款端口
type Provider interface {
	Name() string
	Refund(ctx context.Context, input *RefundInput) (*RefundResult, error)
	RefundStatus(ctx context.Context, refundID string) (*RefundResult, error)
}

// Dispatcher 按支付方式路由到对应渠道适配器
type Dispatcher struct {
	providers map[string]Provider
}

func NewDispatcher(providers ...Provider) *Dispatcher {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		m[p.Name()] = p
	}
	return &Dispatcher{providers: m}
}

func (d *Dispatcher) provider(name string) (Provider, error) {
	p, ok := d.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// Refund 发起渠道退款
func (d *Dispatcher) Refund(ctx context.Context, providerName string, input *RefundInput) (*RefundResult, error) {
	if input == nil || input.PaymentRef == "" {
		return nil, ErrMissingPaymentRef
	}
	p, err := d.provider(providerName)
	if err != nil {
		return nil, err
	}
	return p.Refund(ctx, input)
}

// RefundStatus 查询渠道退款状态
func (d *Dispatcher) RefundStatus(ctx context.Context, providerName, refundID string) (*RefundResult, error) {
	p, err := d.provider(providerName)
	if err != nil {
		return nil, err
	}
	return p.RefundStatus(ctx, refundID)
}
