package iyzico

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/gateway"
)

const (
	defaultBaseURL = "https://api.iyzipay.com"
	defaultTimeout = 10 * time.Second

	refundPath = "/v2/payment/refund"
)

// Provider Iyzico 退款适配器, 走 v2 退款接口, IYZWSv2 签名鉴权
type Provider struct {
	cfg config.IyzicoConfig
}

func New(cfg config.IyzicoConfig) *Provider {
	return &Provider{cfg: cfg}
}

func (p *Provider) Name() string {
	return constants.PaymentProviderIyzico
}

type refundRequest struct {
	PaymentTransactionID string `json:"paymentTransactionId"`
	Price                string `json:"price"`
	Currency             string `json:"currency"`
	ConversationID       string `json:"conversationId"`
}

type refundResponse struct {
	Status         string `json:"status"`
	PaymentID      string `json:"paymentId"`
	ErrorCode      string `json:"errorCode"`
	ErrorMessage   string `json:"errorMessage"`
	ConversationID string `json:"conversationId"`
}

// Refund 发起退款, 商户退款单号作 conversationId 便于对账
func (p *Provider) Refund(ctx context.Context, input *gateway.RefundInput) (*gateway.RefundResult, error) {
	if p.cfg.APIKey == "" || p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: 缺少 api_key/secret_key", gateway.ErrConfigInvalid)
	}

	payload := refundRequest{
		PaymentTransactionID: input.PaymentRef,
		Price:                input.Amount.StringFixed(2),
		Currency:             strings.ToUpper(input.Currency),
		ConversationID:       input.RefundNo,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrRequestFailed, err)
	}

	resp, status, err := p.doRequest(ctx, http.MethodPost, refundPath, body)
	if err != nil {
		return nil, err
	}
	return parseRefund(resp, status)
}

// RefundStatus 按渠道侧退款单号查询退款状态
func (p *Provider) RefundStatus(ctx context.Context, refundID string) (*gateway.RefundResult, error) {
	if p.cfg.APIKey == "" || p.cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: 缺少 api_key/secret_key", gateway.ErrConfigInvalid)
	}
	resp, status, err := p.doRequest(ctx, http.MethodGet, refundPath+"/"+refundID, nil)
	if err != nil {
		return nil, err
	}
	return parseRefund(resp, status)
}

func parseRefund(resp *refundResponse, status int) (*gateway.RefundResult, error) {
	if status >= http.StatusBadRequest || resp.Status == "failure" {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "unknown"
		}
		return nil, fmt.Errorf("%w: %s %s", gateway.ErrRequestFailed, resp.ErrorCode, msg)
	}
	if resp.PaymentID == "" {
		return nil, fmt.Errorf("%w: 缺少退款单号", gateway.ErrResponseInvalid)
	}
	result := &gateway.RefundResult{RefundID: resp.PaymentID, Status: gateway.RefundStatusPending}
	if resp.Status == "success" {
		result.Status = gateway.RefundStatusSucceeded
	}
	return result, nil
}

func (p *Provider) doRequest(ctx context.Context, method, path string, body []byte) (*refundResponse, int, error) {
	baseURL := p.cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := defaultTimeout
	if p.cfg.TimeoutMS > 0 {
		timeout = time.Duration(p.cfg.TimeoutMS) * time.Millisecond
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(baseURL, "/")+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", gateway.ErrRequestFailed, err)
	}
	randomKey := uuid.NewString()
	req.Header.Set("Authorization", p.authorization(randomKey, path, body))
	req.Header.Set("x-iyzi-rnd", randomKey)
	req.Header.Set("Content-Type", "application/json")

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
	var out refundResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", gateway.ErrResponseInvalid, err)
	}
	return &out, resp.StatusCode, nil
}

// authorization IYZWSv2 签名: HMAC-SHA256(secretKey, randomKey+path+body)
func (p *Provider) authorization(randomKey, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(p.cfg.SecretKey))
	mac.Write([]byte(randomKey))
	mac.Write([]byte(path))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	token := fmt.Sprintf("apiKey:%s&randomKey:%s&signature:%s", p.cfg.APIKey, randomKey, signature)
	return "IYZWSv2 " + base64.StdEncoding.EncodeToString([]byte(token))
}
