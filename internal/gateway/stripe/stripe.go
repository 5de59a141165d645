package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/gateway"
)

const (
	defaultBaseURL = "https://api.stripe.com"
	defaultTimeout = 10 * time.Second
)

// 零小数位币种, 金额不乘 100
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"CLP": true,
}

// Provider Stripe 退款适配器, 走 /v1/refunds 表单接口
type Provider struct {
	cfg config.StripeConfig
}

func New(cfg config.StripeConfig) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string {
	return constants.PaymentProviderStripe
}

// Refund 按原支付交易发起退款, 以商户退款单号作幂等键
func (p *Provider) Refund(ctx context.Context, input *gateway.RefundInput) (*gateway.RefundResult, error) {
	if p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: 缺少 secret_key", gateway.ErrConfigInvalid)
	}

	form := url.Values{}
	form.Set("payment_intent", input.PaymentRef)
	form.Set("amount", toMinorAmount(input.Amount, input.Currency))
	form.Set("metadata[refund_no]", input.RefundNo)
	if input.Reason != "" {
		form.Set("metadata[reason]", input.Reason)
	}

	raw, status, err := p.doFormRequest(ctx, http.MethodPost, "/v1/refunds", form, input.RefundNo)
	if err != nil {
		return nil, err
	}
	return parseRefund(raw, status)
}

// RefundStatus 查询渠道侧退款单状态
func (p *Provider) RefundStatus(ctx context.Context, refundID string) (*gateway.RefundResult, error) {
	if p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: 缺少 secret_key", gateway.ErrConfigInvalid)
	}
	raw, status, err := p.doFormRequest(ctx, http.MethodGet, "/v1/refunds/"+url.PathEscape(refundID), nil, "")
	if err != nil {
		return nil, err
	}
	return parseRefund(raw, status)
}

func parseRefund(raw map[string]interface{}, status int) (*gateway.RefundResult, error) {
	if status >= http.StatusBadRequest {
		msg := "unknown"
		if errObj, ok := raw["error"].(map[string]interface{}); ok {
			msg = readString(errObj, "message")
		}
		return nil, fmt.Errorf("%w: %s", gateway.ErrRequestFailed, msg)
	}
	id := readString(raw, "id")
	if id == "" {
		return nil, fmt.Errorf("%w: 缺少退款单号", gateway.ErrResponseInvalid)
	}
	return &gateway.RefundResult{
		RefundID: id,
		Status:   mapStatus(readString(raw, "status")),
	}, nil
}

func mapStatus(s string) string {
	switch s {
	case "succeeded":
		return gateway.RefundStatusSucceeded
	case "failed", "canceled":
		return gateway.RefundStatusFailed
	default:
		return gateway.RefundStatusPending
	}
}

func (p *Provider) doFormRequest(ctx context.Context, method, path string, form url.Values, idempotencyKey string) (map[string]interface{}, int, error) {
	baseURL := p.cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := defaultTimeout
	if p.cfg.TimeoutMS > 0 {
		timeout = time.Duration(p.cfg.TimeoutMS) * time.Millisecond
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(baseURL, "/")+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", gateway.ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	// Stripe 以该请求头做服务端幂等, 同退款单号重放不会二次扣款
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", gateway.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", gateway.ErrResponseInvalid, err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", gateway.ErrResponseInvalid, err)
	}
	return raw, resp.StatusCode, nil
}

// toMinorAmount 按币种小数位换算为最小货币单位
func toMinorAmount(amount decimal.Decimal, currency string) string {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return amount.Round(0).String()
	}
	return amount.Shift(2).Round(0).String()
}

func readString(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}
