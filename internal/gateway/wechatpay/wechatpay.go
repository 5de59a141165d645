package wechatpay

import (
	"context"
	"fmt"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/refunddomestic"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/gateway"
)

// Provider 微信支付退款适配器, 基于官方 APIv3 SDK
type Provider struct {
	cfg config.WechatpayConfig
}

func New(cfg config.WechatpayConfig) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string {
	return constants.PaymentProviderWechatpay
}

func (p *Provider) client(ctx context.Context) (*core.Client, error) {
	if p.cfg.MerchantID == "" || p.cfg.MerchantSerialNo == "" || p.cfg.MerchantPrivateKey == "" || p.cfg.APIV3Key == "" {
		return nil, fmt.Errorf("%w: 微信支付商户参数不完整", gateway.ErrConfigInvalid)
	}
	privateKey, err := utils.LoadPrivateKey(p.cfg.MerchantPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: 商户私钥解析失败: %v", gateway.ErrConfigInvalid, err)
	}
	client, err := core.NewClient(ctx, option.WithWechatPayAutoAuthCipher(
		p.cfg.MerchantID, p.cfg.MerchantSerialNo, privateKey, p.cfg.APIV3Key,
	))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrRequestFailed, err)
	}
	return client, nil
}

// Refund 发起退款, 微信要求携带原订单总额, 金额单位为分
func (p *Provider) Refund(ctx context.Context, input *gateway.RefundInput) (*gateway.RefundResult, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	svc := refunddomestic.RefundsApiService{Client: client}
	resp, _, err := svc.Create(ctx, refunddomestic.CreateRequest{
		TransactionId: core.String(input.PaymentRef),
		OutRefundNo:   core.String(input.RefundNo),
		Reason:        core.String(input.Reason),
		Amount: &refunddomestic.AmountReq{
			Refund:   core.Int64(input.Amount.Shift(2).Round(0).IntPart()),
			Total:    core.Int64(input.OrderTotal.Shift(2).Round(0).IntPart()),
			Currency: core.String("CNY"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrRequestFailed, err)
	}
	return parseRefund(resp)
}

// RefundStatus 按商户退款单号查询退款状态
func (p *Provider) RefundStatus(ctx context.Context, refundID string) (*gateway.RefundResult, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	svc := refunddomestic.RefundsApiService{Client: client}
	resp, _, err := svc.QueryByOutRefundNo(ctx, refunddomestic.QueryByOutRefundNoRequest{
		OutRefundNo: core.String(refundID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrRequestFailed, err)
	}
	return parseRefund(resp)
}

func parseRefund(resp *refunddomestic.Refund) (*gateway.RefundResult, error) {
	if resp == nil || resp.RefundId == nil {
		return nil, fmt.Errorf("%w: 缺少退款单号", gateway.ErrResponseInvalid)
	}
	result := &gateway.RefundResult{RefundID: *resp.RefundId, Status: gateway.RefundStatusPending}
	if resp.Status != nil {
		switch *resp.Status {
		case refunddomestic.STATUS_SUCCESS:
			result.Status = gateway.RefundStatusSucceeded
		case refunddomestic.STATUS_ABNORMAL, refunddomestic.STATUS_CLOSED:
			result.Status = gateway.RefundStatusFailed
		}
	}
	return result, nil
}
